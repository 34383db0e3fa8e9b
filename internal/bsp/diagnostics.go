package bsp

// Position is a zero-based line/character location
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [start, end) span in a document
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// DiagnosticSeverity follows the LSP scale
type DiagnosticSeverity int

const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

// Location pairs a document with a range inside it
type Location struct {
	URI   URI   `json:"uri"`
	Range Range `json:"range"`
}

// DiagnosticRelatedInformation points at related code, such as the
// primary span of a compiler sub-diagnostic
type DiagnosticRelatedInformation struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// CodeDescription links to documentation for a diagnostic code
type CodeDescription struct {
	HRef URI `json:"href"`
}

// Diagnostic is one compiler finding in a document
type Diagnostic struct {
	Range              Range                          `json:"range"`
	Severity           DiagnosticSeverity             `json:"severity,omitempty"`
	Code               string                         `json:"code,omitempty"`
	CodeDescription    *CodeDescription               `json:"codeDescription,omitempty"`
	Source             string                         `json:"source,omitempty"`
	Message            string                         `json:"message"`
	RelatedInformation []DiagnosticRelatedInformation `json:"relatedInformation,omitempty"`
	DataKind           string                         `json:"dataKind,omitempty"`
	Data               interface{}                    `json:"data,omitempty"`
}

// PublishDiagnosticsParams carries a build/publishDiagnostics
// notification. Reset is true on the first batch for a
// (document, target) pair in a request, replacing older findings.
type PublishDiagnosticsParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	BuildTarget  BuildTargetIdentifier  `json:"buildTarget"`
	OriginID     string                 `json:"originId,omitempty"`
	Diagnostics  []Diagnostic           `json:"diagnostics"`
	Reset        bool                   `json:"reset"`
}
