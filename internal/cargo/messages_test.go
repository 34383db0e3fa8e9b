package cargo

import (
	"testing"
)

func TestParseMessage_Artifact(t *testing.T) {
	line := `{"reason":"compiler-artifact","package_id":"foo 0.1.0","target":{"kind":["lib"],"crate_types":["lib"],"name":"foo","src_path":"/work/src/lib.rs","edition":"2021"},"features":["default"],"filenames":["/work/target/debug/libfoo.rlib"],"executable":null,"fresh":false}`

	msg, ok := ParseMessage(line)
	if !ok {
		t.Fatal("artifact line not recognized")
	}
	artifact, ok := msg.(*Artifact)
	if !ok {
		t.Fatalf("expected *Artifact, got %T", msg)
	}
	if artifact.Target.Name != "foo" || artifact.Fresh {
		t.Errorf("artifact = %+v", artifact)
	}
}

func TestParseMessage_CompilerMessage(t *testing.T) {
	line := `{"reason":"compiler-message","package_id":"foo 0.1.0","target":{"kind":["lib"],"name":"foo","src_path":"/work/src/lib.rs"},"message":{"message":"unused variable: ` + "`x`" + `","code":{"code":"unused_variables","explanation":null},"level":"warning","spans":[{"file_name":"src/lib.rs","byte_start":10,"byte_end":11,"line_start":2,"line_end":2,"column_start":9,"column_end":10,"is_primary":true,"label":null}],"children":[],"rendered":"warning: unused variable"}}`

	msg, ok := ParseMessage(line)
	if !ok {
		t.Fatal("compiler message line not recognized")
	}
	cm, ok := msg.(*CompilerMessage)
	if !ok {
		t.Fatalf("expected *CompilerMessage, got %T", msg)
	}
	if cm.Message.Level != "warning" || len(cm.Message.Spans) != 1 {
		t.Errorf("message = %+v", cm.Message)
	}
}

func TestParseMessage_BuildScript(t *testing.T) {
	line := `{"reason":"build-script-executed","package_id":"foo 0.1.0","cfgs":["feature=\"std\"","unix"],"env":[["FOO_DIR","/tmp/foo"]],"out_dir":"/work/target/debug/build/foo/out","linked_paths":[]}`

	msg, ok := ParseMessage(line)
	if !ok {
		t.Fatal("build script line not recognized")
	}
	script, ok := msg.(*BuildScript)
	if !ok {
		t.Fatalf("expected *BuildScript, got %T", msg)
	}
	if script.OutDir != "/work/target/debug/build/foo/out" {
		t.Errorf("out dir = %q", script.OutDir)
	}
	env := script.EnvMap()
	if env["FOO_DIR"] != "/tmp/foo" {
		t.Errorf("env = %v", env)
	}
}

func TestParseMessage_TestEvents(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		check func(t *testing.T, event *TestEvent)
	}{
		{
			"suite started",
			`{"type":"suite","event":"started","test_count":2}`,
			func(t *testing.T, event *TestEvent) {
				if event.TestCount != 2 {
					t.Errorf("test count = %d", event.TestCount)
				}
			},
		},
		{
			"test ok",
			`{"type":"test","event":"ok","name":"a","exec_time":0.001}`,
			func(t *testing.T, event *TestEvent) {
				if event.Name != "a" || event.Event != "ok" {
					t.Errorf("event = %+v", event)
				}
			},
		},
		{
			"suite failed",
			`{"type":"suite","event":"failed","passed":1,"failed":1,"ignored":0,"measured":0,"filtered_out":0,"exec_time":0.04}`,
			func(t *testing.T, event *TestEvent) {
				if event.Passed != 1 || event.Failed != 1 {
					t.Errorf("event = %+v", event)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := ParseMessage(tt.line)
			if !ok {
				t.Fatal("test event not recognized")
			}
			event, ok := msg.(*TestEvent)
			if !ok {
				t.Fatalf("expected *TestEvent, got %T", msg)
			}
			tt.check(t, event)
		})
	}
}

func TestParseMessage_UnitGraph(t *testing.T) {
	line := `{"version":1,"units":[{"pkg_id":"a"},{"pkg_id":"b"},{"pkg_id":"c"}],"roots":[2]}`

	msg, ok := ParseMessage(line)
	if !ok {
		t.Fatal("unit graph line not recognized")
	}
	graph, ok := msg.(*UnitGraph)
	if !ok {
		t.Fatalf("expected *UnitGraph, got %T", msg)
	}
	if graph.TotalCompilationSteps() != 3 {
		t.Errorf("steps = %d", graph.TotalCompilationSteps())
	}
}

func TestParseMessage_RejectsJunk(t *testing.T) {
	for _, line := range []string{
		"Compiling foo v0.1.0 (/work)",
		"",
		`{"reason":"build-finished","success":true}`,
		`{"unrelated":true}`,
	} {
		if _, ok := ParseMessage(line); ok {
			t.Errorf("line %q should not parse as a cargo message", line)
		}
	}
}

func TestProcMacroArtifactPath(t *testing.T) {
	artifact := &Artifact{
		Target: MessageTarget{
			Kind:       []string{"proc-macro"},
			CrateTypes: []string{"proc-macro"},
		},
		Filenames: []string{
			"/work/target/debug/deps/derive.d",
			"/work/target/debug/deps/libderive.so",
		},
	}
	path, ok := ProcMacroArtifactPath(artifact)
	if !ok || path != "/work/target/debug/deps/libderive.so" {
		t.Errorf("path = %q, ok = %v", path, ok)
	}

	plainLib := &Artifact{
		Target:    MessageTarget{Kind: []string{"lib"}, CrateTypes: []string{"lib"}},
		Filenames: []string{"/work/target/debug/libfoo.so"},
	}
	if _, ok := ProcMacroArtifactPath(plainLib); ok {
		t.Error("non-proc-macro artifact must not yield a path")
	}
}
