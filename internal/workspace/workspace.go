package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zk/cargo-bsp/internal/bsp"
)

// Logger is the logging interface the workspace model depends on
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Workspace is the BSP view of one Cargo workspace.
//
// A Workspace is immutable after construction. workspace/reload builds
// a fresh instance and swaps the server's pointer; request supervisors
// capture the pointer at spawn time, so a concurrent reload never
// mutates the model under a running request.
type Workspace struct {
	Root         string
	ManifestPath string
	Metadata     *Metadata

	packagesByID    map[string]*Package
	nodesByID       map[string]*Node
	members         map[string]bool
	targetIndex     map[bsp.URI]targetRef
	enabledFeatures map[string][]string

	logger Logger
}

type targetRef struct {
	pkgID  string
	target *Target
}

// DiscoverManifest finds the Cargo.toml governing the given directory,
// walking upwards so the server can be started from a subdirectory
func DiscoverManifest(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	for {
		candidate := filepath.Join(current, "Cargo.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no Cargo.toml found in %s or any parent directory", dir)
		}
		current = parent
	}
}

// Load discovers the manifest under rootDir, invokes cargo metadata
// and builds the workspace model
func Load(cargoBin, rootDir string, logger Logger) (*Workspace, error) {
	manifestPath, err := DiscoverManifest(rootDir)
	if err != nil {
		return nil, err
	}

	metadata, err := LoadMetadata(cargoBin, manifestPath)
	if err != nil {
		return nil, err
	}

	return New(metadata, rootDir, manifestPath, logger), nil
}

// New builds the workspace model from an already-decoded metadata
// document
func New(metadata *Metadata, rootDir, manifestPath string, logger Logger) *Workspace {
	w := &Workspace{
		Root:            rootDir,
		ManifestPath:    manifestPath,
		Metadata:        metadata,
		packagesByID:    make(map[string]*Package),
		nodesByID:       make(map[string]*Node),
		members:         make(map[string]bool),
		targetIndex:     make(map[bsp.URI]targetRef),
		enabledFeatures: make(map[string][]string),
		logger:          logger,
	}

	for i := range metadata.Packages {
		pkg := &metadata.Packages[i]
		w.packagesByID[pkg.ID] = pkg
		for j := range pkg.Targets {
			target := &pkg.Targets[j]
			id := BuildTargetID(target.Name, target.SrcPath)
			w.targetIndex[id.URI] = targetRef{pkgID: pkg.ID, target: target}
		}
	}

	for _, member := range metadata.WorkspaceMembers {
		w.members[member] = true
	}

	if metadata.Resolve != nil {
		for i := range metadata.Resolve.Nodes {
			node := &metadata.Resolve.Nodes[i]
			w.nodesByID[node.ID] = node
			w.enabledFeatures[node.ID] = node.Features
		}
	}

	return w
}

// IsMember reports whether the package id belongs to the workspace
func (w *Workspace) IsMember(pkgID string) bool {
	return w.members[pkgID]
}

// PackageByID returns the package with the given cargo package id
func (w *Workspace) PackageByID(pkgID string) (*Package, bool) {
	pkg, ok := w.packagesByID[pkgID]
	return pkg, ok
}

// PackageForTarget returns the package owning the given build target
func (w *Workspace) PackageForTarget(id bsp.BuildTargetIdentifier) (*Package, bool) {
	ref, ok := w.targetIndex[id.URI]
	if !ok {
		return nil, false
	}
	return w.packagesByID[ref.pkgID], true
}

// EnabledFeatures returns the resolved feature set of a package
func (w *Workspace) EnabledFeatures(pkgID string) []string {
	return w.enabledFeatures[pkgID]
}

// defaultFeaturesDisabled reports whether a package that declares a
// default feature has it switched off in the resolved graph
func (w *Workspace) defaultFeaturesDisabled(pkg *Package) bool {
	if _, declaresDefault := pkg.Features["default"]; !declaresDefault {
		return false
	}
	for _, feature := range w.enabledFeatures[pkg.ID] {
		if feature == "default" {
			return false
		}
	}
	return true
}

// BuildTargets lists the BSP build targets of every workspace member
func (w *Workspace) BuildTargets() []bsp.BuildTarget {
	var targets []bsp.BuildTarget
	for _, member := range w.Metadata.WorkspaceMembers {
		pkg, ok := w.packagesByID[member]
		if !ok {
			w.logger.Warn("Workspace member %s missing from package list", member)
			continue
		}
		dependencies := w.packageDependencyTargets(pkg.ID)
		for i := range pkg.Targets {
			targets = append(targets, buildTargetFromCargoTarget(&pkg.Targets[i], dependencies))
		}
	}
	return targets
}

// packageDependencyTargets expands a package's resolved dependencies
// into the library-like targets of each depended-on package. Edges are
// keyed by cargo's unique package id. When several library targets of
// a package share a name, the lexicographically smallest source path
// wins.
func (w *Workspace) packageDependencyTargets(pkgID string) []bsp.BuildTargetIdentifier {
	node, ok := w.nodesByID[pkgID]
	if !ok {
		return []bsp.BuildTargetIdentifier{}
	}

	ids := []bsp.BuildTargetIdentifier{}
	for _, dep := range node.Deps {
		depPkg, ok := w.packagesByID[dep.Pkg]
		if !ok {
			w.logger.Warn("Dependency package %s not found in metadata", dep.Pkg)
			continue
		}

		libs := make([]Target, 0, len(depPkg.Targets))
		for _, target := range depPkg.Targets {
			if isLibraryLike(&target) {
				libs = append(libs, target)
			}
		}
		sortTargetsBySrcPath(libs)

		seen := make(map[string]bool)
		for i := range libs {
			if seen[libs[i].Name] {
				continue
			}
			seen[libs[i].Name] = true
			ids = append(ids, BuildTargetID(libs[i].Name, libs[i].SrcPath))
		}
	}
	return ids
}

// TargetDetails answers the target → command-arguments query for one
// build target id
func (w *Workspace) TargetDetails(id bsp.BuildTargetIdentifier) (TargetDetails, bool) {
	ref, ok := w.targetIndex[id.URI]
	if !ok {
		return TargetDetails{}, false
	}
	pkg := w.packagesByID[ref.pkgID]
	return newTargetDetails(pkg, ref.target, w.enabledFeatures[pkg.ID], w.defaultFeaturesDisabled(pkg))
}

// SourcesForTarget lists the source items of one build target
func (w *Workspace) SourcesForTarget(id bsp.BuildTargetIdentifier) (bsp.SourcesItem, bool) {
	ref, ok := w.targetIndex[id.URI]
	if !ok {
		return bsp.SourcesItem{}, false
	}
	pkg := w.packagesByID[ref.pkgID]
	packageDir := filepath.Dir(pkg.ManifestPath)
	return bsp.SourcesItem{
		Target: id,
		Sources: []bsp.SourceItem{
			{URI: FileURI(ref.target.SrcPath), Kind: bsp.SourceItemFile, Generated: false},
		},
		Roots: []bsp.URI{FileURI(packageDir)},
	}, true
}

// TargetsDetails resolves a list of target ids, failing on the first
// unknown id
func (w *Workspace) TargetsDetails(ids []bsp.BuildTargetIdentifier) ([]TargetDetails, error) {
	details := make([]TargetDetails, 0, len(ids))
	for _, id := range ids {
		d, ok := w.TargetDetails(id)
		if !ok {
			return nil, fmt.Errorf("target %s not found in workspace", id.URI)
		}
		details = append(details, d)
	}
	return details, nil
}
