package cargo

import (
	"path/filepath"

	"github.com/zk/cargo-bsp/internal/bsp"
)

// MapSeverity translates a rustc diagnostic level onto the LSP scale
func MapSeverity(level string) bsp.DiagnosticSeverity {
	switch level {
	case "error", "error: internal compiler error", "ice":
		return bsp.SeverityError
	case "warning":
		return bsp.SeverityWarning
	case "note":
		return bsp.SeverityInformation
	case "help":
		return bsp.SeverityHint
	default:
		return bsp.SeverityError
	}
}

// spanRange maps rustc's 1-based line/column span onto a zero-based
// LSP range
func spanRange(span *DiagnosticSpan) bsp.Range {
	return bsp.Range{
		Start: bsp.Position{Line: span.LineStart - 1, Character: span.ColumnStart - 1},
		End:   bsp.Position{Line: span.LineEnd - 1, Character: span.ColumnEnd - 1},
	}
}

// primarySpan picks the first primary span of a diagnostic
func primarySpan(spans []DiagnosticSpan) (*DiagnosticSpan, bool) {
	for i := range spans {
		if spans[i].IsPrimary {
			return &spans[i], true
		}
	}
	return nil, false
}

// FileDiagnostic pairs one converted diagnostic with the document it
// belongs to. FilePath is absolute.
type FileDiagnostic struct {
	FilePath   string
	Diagnostic bsp.Diagnostic
}

// spanPath resolves a span's file name, which rustc reports relative
// to the workspace root
func spanPath(rootDir, fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(rootDir, fileName)
}

// ToDiagnostics converts a compiler message into per-file LSP-style
// diagnostics, resolving span paths against the workspace root.
// Messages without a primary span (whole-crate warnings and the final
// error summaries) produce nothing.
//
// Primary spans of sub-diagnostics become related information on the
// parent.
func ToDiagnostics(message *CompilerMessage, rootDir string) []FileDiagnostic {
	diag := &message.Message
	span, ok := primarySpan(diag.Spans)
	if !ok {
		return nil
	}

	var related []bsp.DiagnosticRelatedInformation
	for _, child := range diag.Children {
		childSpan, ok := primarySpan(child.Spans)
		if !ok {
			continue
		}
		related = append(related, bsp.DiagnosticRelatedInformation{
			Location: bsp.Location{
				URI:   "file://" + filepath.ToSlash(spanPath(rootDir, childSpan.FileName)),
				Range: spanRange(childSpan),
			},
			Message: child.Message,
		})
	}

	text := diag.Rendered
	if text == "" {
		text = diag.Message
	}

	converted := bsp.Diagnostic{
		Range:              spanRange(span),
		Severity:           MapSeverity(diag.Level),
		Source:             "cargo",
		Message:            text,
		RelatedInformation: related,
	}
	if diag.Code != nil {
		converted.Code = diag.Code.Code
	}

	return []FileDiagnostic{{FilePath: spanPath(rootDir, span.FileName), Diagnostic: converted}}
}
