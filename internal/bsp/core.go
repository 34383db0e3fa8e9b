// Package bsp defines the Build Server Protocol 2.1.0 data types the
// server speaks, including the Cargo and Rust extensions.
package bsp

// URI is an RFC-3986 reference, kept opaque
type URI = string

// ProtocolVersion is the BSP version this server implements
const ProtocolVersion = "2.1.0"

// RustID is the BSP language id for Rust
const RustID = "rust"

// BuildTargetIdentifier uniquely identifies one build target
type BuildTargetIdentifier struct {
	URI URI `json:"uri"`
}

// TextDocumentIdentifier names a source document
type TextDocumentIdentifier struct {
	URI URI `json:"uri"`
}

// StatusCode reports how an operation completed
type StatusCode int

const (
	StatusOK        StatusCode = 1
	StatusError     StatusCode = 2
	StatusCancelled StatusCode = 3
)

// Build target tags defined by BSP
const (
	TagLibrary         = "library"
	TagApplication     = "application"
	TagTest            = "test"
	TagIntegrationTest = "integration-test"
	TagBenchmark       = "benchmark"
	TagManual          = "manual"
	TagNoIDE           = "no-ide"
)

// BuildTargetCapabilities describes the operations a client may
// request for a target
type BuildTargetCapabilities struct {
	CanCompile bool `json:"canCompile"`
	CanTest    bool `json:"canTest"`
	CanRun     bool `json:"canRun"`
	CanDebug   bool `json:"canDebug"`
}

// BuildTarget is a buildable unit of the workspace
type BuildTarget struct {
	ID           BuildTargetIdentifier   `json:"id"`
	DisplayName  string                  `json:"displayName,omitempty"`
	BaseDirectory URI                    `json:"baseDirectory,omitempty"`
	Tags         []string                `json:"tags"`
	LanguageIDs  []string                `json:"languageIds"`
	Dependencies []BuildTargetIdentifier `json:"dependencies"`
	Capabilities BuildTargetCapabilities `json:"capabilities"`
	DataKind     string                  `json:"dataKind,omitempty"`
	Data         interface{}             `json:"data,omitempty"`
}

// CargoBuildTargetDataKind marks BuildTarget.Data as CargoBuildTarget
const CargoBuildTargetDataKind = "cargo"

// CargoBuildTarget is the Cargo-extension payload of a BuildTarget
type CargoBuildTarget struct {
	Edition          string   `json:"edition"`
	RequiredFeatures []string `json:"requiredFeatures"`
}
