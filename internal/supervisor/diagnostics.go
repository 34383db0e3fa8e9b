package supervisor

import (
	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/cargo"
	"github.com/zk/cargo-bsp/internal/workspace"
)

type diagKey struct {
	uri    bsp.URI
	target bsp.URI
}

// publishCompilerMessage converts one rustc diagnostic into
// publishDiagnostics notifications and updates the error/warning
// counters.
//
// The first batch for a (document, target) pair carries reset=true so
// the client drops findings from earlier runs; later batches append.
func (s *Supervisor) publishCompilerMessage(message *cargo.CompilerMessage) {
	targetID := workspace.BuildTargetID(message.Target.Name, message.Target.SrcPath)

	for _, fd := range cargo.ToDiagnostics(message, s.rootDir) {
		uri := workspace.FileURI(fd.FilePath)

		key := diagKey{uri: uri, target: targetID.URI}
		reset := !s.publishedDiags[key]
		s.publishedDiags[key] = true

		s.notify(bsp.MethodPublishDiagnostics, bsp.PublishDiagnosticsParams{
			TextDocument: bsp.TextDocumentIdentifier{URI: uri},
			BuildTarget:  targetID,
			OriginID:     s.originID,
			Diagnostics:  []bsp.Diagnostic{fd.Diagnostic},
			Reset:        reset,
		})

		switch fd.Diagnostic.Severity {
		case bsp.SeverityError:
			s.state.compile.errors++
		case bsp.SeverityWarning:
			s.state.compile.warnings++
		}
	}
}
