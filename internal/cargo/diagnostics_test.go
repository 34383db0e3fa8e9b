package cargo

import (
	"testing"

	"github.com/zk/cargo-bsp/internal/bsp"
)

func diagnosticFixture() *CompilerMessage {
	return &CompilerMessage{
		PackageID: "foo 0.1.0",
		Target:    MessageTarget{Name: "foo", SrcPath: "/work/src/lib.rs"},
		Message: RustDiagnostic{
			Message:  "unused variable: `x`",
			Level:    "warning",
			Rendered: "warning: unused variable: `x`\n --> src/lib.rs:2:9\n",
			Code:     &DiagnosticCode{Code: "unused_variables"},
			Spans: []DiagnosticSpan{
				{FileName: "src/lib.rs", LineStart: 2, LineEnd: 2, ColumnStart: 9, ColumnEnd: 10, IsPrimary: true},
			},
			Children: []RustDiagnostic{
				{
					Message: "consider prefixing with an underscore",
					Level:   "help",
					Spans: []DiagnosticSpan{
						{FileName: "src/lib.rs", LineStart: 2, LineEnd: 2, ColumnStart: 9, ColumnEnd: 10, IsPrimary: true},
					},
				},
			},
		},
	}
}

func TestToDiagnostics(t *testing.T) {
	result := ToDiagnostics(diagnosticFixture(), "/work")
	if len(result) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(result))
	}

	fd := result[0]
	if fd.FilePath != "/work/src/lib.rs" {
		t.Errorf("file path = %q, want it resolved against the root", fd.FilePath)
	}
	diag := fd.Diagnostic
	if diag.Severity != bsp.SeverityWarning {
		t.Errorf("severity = %v", diag.Severity)
	}
	if diag.Range.Start.Line != 1 || diag.Range.Start.Character != 8 {
		t.Errorf("range start = %+v, spans are 1-based but ranges 0-based", diag.Range.Start)
	}
	if diag.Code != "unused_variables" {
		t.Errorf("code = %q", diag.Code)
	}
	if len(diag.RelatedInformation) != 1 {
		t.Fatalf("related info = %v", diag.RelatedInformation)
	}
	if diag.RelatedInformation[0].Message != "consider prefixing with an underscore" {
		t.Errorf("related message = %q", diag.RelatedInformation[0].Message)
	}
	if diag.RelatedInformation[0].Location.URI != "file:///work/src/lib.rs" {
		t.Errorf("related uri = %q, want an absolute file uri", diag.RelatedInformation[0].Location.URI)
	}
}

func TestToDiagnostics_AbsoluteSpanPathKept(t *testing.T) {
	message := diagnosticFixture()
	message.Message.Spans[0].FileName = "/elsewhere/src/lib.rs"

	result := ToDiagnostics(message, "/work")
	if len(result) != 1 || result[0].FilePath != "/elsewhere/src/lib.rs" {
		t.Errorf("absolute span paths must pass through unchanged, got %+v", result)
	}
}

func TestToDiagnostics_NoPrimarySpan(t *testing.T) {
	message := &CompilerMessage{
		Message: RustDiagnostic{
			Message: "aborting due to previous error",
			Level:   "error",
		},
	}
	if got := ToDiagnostics(message, "/work"); len(got) != 0 {
		t.Errorf("span-less diagnostics must be dropped, got %v", got)
	}
}

func TestMapSeverity(t *testing.T) {
	tests := []struct {
		level string
		want  bsp.DiagnosticSeverity
	}{
		{"error", bsp.SeverityError},
		{"ice", bsp.SeverityError},
		{"warning", bsp.SeverityWarning},
		{"note", bsp.SeverityInformation},
		{"help", bsp.SeverityHint},
		{"unknown", bsp.SeverityError},
	}
	for _, tt := range tests {
		if got := MapSeverity(tt.level); got != tt.want {
			t.Errorf("MapSeverity(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
