// Package cargo drives cargo subprocesses: it assembles commands,
// streams their output line-by-line and decodes cargo's JSON message
// stream.
package cargo

import (
	"encoding/json"
)

// StreamSource tags a line with the stream it came from
type StreamSource int

const (
	Stdout StreamSource = iota
	Stderr
)

// StreamLine is one line read from a cargo subprocess
type StreamLine struct {
	Source StreamSource
	Text   string
}

// Message is the closed set of JSON records cargo emits on stdout:
// *Artifact, *CompilerMessage, *BuildScript, *TestEvent, *UnitGraph
type Message interface {
	isCargoMessage()
}

// MessageTarget is the target section embedded in artifacts and
// compiler messages
type MessageTarget struct {
	Name       string   `json:"name"`
	Kind       []string `json:"kind"`
	CrateTypes []string `json:"crate_types"`
	SrcPath    string   `json:"src_path"`
	Edition    string   `json:"edition"`
}

// Artifact reports one compiled unit. Fresh units come from cache and
// do not count as compilation steps.
type Artifact struct {
	PackageID  string        `json:"package_id"`
	Target     MessageTarget `json:"target"`
	Features   []string      `json:"features"`
	Filenames  []string      `json:"filenames"`
	Executable string        `json:"executable"`
	Fresh      bool          `json:"fresh"`
}

// CompilerMessage wraps one rustc diagnostic
type CompilerMessage struct {
	PackageID string         `json:"package_id"`
	Target    MessageTarget  `json:"target"`
	Message   RustDiagnostic `json:"message"`
}

// RustDiagnostic is rustc's JSON diagnostic shape
type RustDiagnostic struct {
	Message  string           `json:"message"`
	Code     *DiagnosticCode  `json:"code"`
	Level    string           `json:"level"`
	Spans    []DiagnosticSpan `json:"spans"`
	Children []RustDiagnostic `json:"children"`
	Rendered string           `json:"rendered"`
}

// DiagnosticCode names a rustc lint or error code
type DiagnosticCode struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// DiagnosticSpan is one source span of a diagnostic. Lines and
// columns are 1-based.
type DiagnosticSpan struct {
	FileName    string `json:"file_name"`
	ByteStart   int    `json:"byte_start"`
	ByteEnd     int    `json:"byte_end"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`
	IsPrimary   bool   `json:"is_primary"`
	Label       string `json:"label"`
}

// BuildScript reports the output of a package's build script
type BuildScript struct {
	PackageID   string     `json:"package_id"`
	Cfgs        []string   `json:"cfgs"`
	Env         [][]string `json:"env"`
	OutDir      string     `json:"out_dir"`
	LinkedPaths []string   `json:"linked_paths"`
}

// EnvMap converts the build script's env pairs into a map
func (b *BuildScript) EnvMap() map[string]string {
	env := make(map[string]string, len(b.Env))
	for _, pair := range b.Env {
		if len(pair) == 2 {
			env[pair[0]] = pair[1]
		}
	}
	return env
}

// TestEvent is one record of the libtest JSON stream
type TestEvent struct {
	Type        string  `json:"type"`  // "suite" or "test"
	Event       string  `json:"event"` // "started", "ok", "failed", "ignored", "timeout"
	Name        string  `json:"name"`
	TestCount   int     `json:"test_count"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Ignored     int     `json:"ignored"`
	Measured    int     `json:"measured"`
	FilteredOut int     `json:"filtered_out"`
	ExecTime    float64 `json:"exec_time"`
	Stdout      string  `json:"stdout"`
}

// UnitGraph is the one-shot record of a `--unit-graph` probe. Only
// the unit count is consumed.
type UnitGraph struct {
	Version int               `json:"version"`
	Units   []json.RawMessage `json:"units"`
	Roots   []int             `json:"roots"`
}

// TotalCompilationSteps is the progress denominator for the compile
// task
func (u *UnitGraph) TotalCompilationSteps() int64 {
	return int64(len(u.Units))
}

func (*Artifact) isCargoMessage()        {}
func (*CompilerMessage) isCargoMessage() {}
func (*BuildScript) isCargoMessage()     {}
func (*TestEvent) isCargoMessage()       {}
func (*UnitGraph) isCargoMessage()       {}

// probe captures just enough structure to classify a line before the
// full decode
type probe struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Cfgs    json.RawMessage `json:"cfgs"`
	OutDir  json.RawMessage `json:"out_dir"`
	Message json.RawMessage `json:"message"`
	Target  json.RawMessage `json:"target"`
	Files   json.RawMessage `json:"filenames"`
	Units   json.RawMessage `json:"units"`
	Roots   json.RawMessage `json:"roots"`
}

// ParseMessage decodes one stdout line into a cargo message. The
// second return is false for lines that are not JSON or match no known
// shape; the caller logs and drops those without aborting the stream.
//
// Shapes are told apart structurally: test events carry type+event,
// build scripts carry cfgs+out_dir, compiler messages carry a message
// object with rendered+level+spans, artifacts carry target+filenames,
// and the unit graph carries units+roots.
func ParseMessage(line string) (Message, bool) {
	var p probe
	if err := json.Unmarshal([]byte(line), &p); err != nil {
		return nil, false
	}

	switch {
	case p.Type != "" && p.Event != "":
		var event TestEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, false
		}
		return &event, true

	case p.Cfgs != nil && p.OutDir != nil:
		var script BuildScript
		if err := json.Unmarshal([]byte(line), &script); err != nil {
			return nil, false
		}
		return &script, true

	case p.Message != nil:
		var msg CompilerMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, false
		}
		if msg.Message.Rendered == "" && msg.Message.Level == "" {
			return nil, false
		}
		return &msg, true

	case p.Target != nil && p.Files != nil:
		var artifact Artifact
		if err := json.Unmarshal([]byte(line), &artifact); err != nil {
			return nil, false
		}
		return &artifact, true

	case p.Units != nil && p.Roots != nil:
		var graph UnitGraph
		if err := json.Unmarshal([]byte(line), &graph); err != nil {
			return nil, false
		}
		return &graph, true
	}

	return nil, false
}

// Proc-macro artifacts are dynamic libraries
var dynamicLibraryExtensions = map[string]bool{
	"dll":   true,
	"so":    true,
	"dylib": true,
}

const procMacro = "proc-macro"

// ProcMacroArtifactPath finds the dynamic-library output of a
// proc-macro artifact, if any
func ProcMacroArtifactPath(artifact *Artifact) (string, bool) {
	if !contains(artifact.Target.Kind, procMacro) || !contains(artifact.Target.CrateTypes, procMacro) {
		return "", false
	}
	for _, file := range artifact.Filenames {
		if ext := fileExtension(file); dynamicLibraryExtensions[ext] {
			return file, true
		}
	}
	return "", false
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func fileExtension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i+1:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}
