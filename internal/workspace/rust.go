package workspace

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/zk/cargo-bsp/internal/bsp"
)

// PackageBuildData is the per-package information harvested from a
// `cargo check` run: build-script outputs and proc-macro artifacts
type PackageBuildData struct {
	CfgOptions        map[string][]string
	Env               map[string]string
	OutDirURL         bsp.URI
	ProcMacroArtifact bsp.URI
}

// MapCfgOptions splits raw build-script cfgs into a name → values
// map. Each cfg splits at the first '='; the right side loses its
// surrounding quotes. A cfg without '=' maps to an empty value list.
func MapCfgOptions(cfgs []string) map[string][]string {
	options := make(map[string][]string)
	for _, cfg := range cfgs {
		name, value, found := strings.Cut(cfg, "=")
		if !found {
			if _, exists := options[name]; !exists {
				options[name] = []string{}
			}
			continue
		}
		options[name] = append(options[name], strings.Trim(value, `"`))
	}
	return options
}

// DefaultEnv synthesizes the compile-time environment cargo provides
// to every package. Build-script output is merged on top by the
// caller, with the script winning.
func DefaultEnv(pkg *Package) map[string]string {
	major, minor, patch, pre := splitVersion(pkg.Version)
	return map[string]string{
		"CARGO_MANIFEST_DIR":      filepath.Dir(pkg.ManifestPath),
		"CARGO":                   "cargo",
		"CARGO_PKG_VERSION":       pkg.Version,
		"CARGO_PKG_VERSION_MAJOR": major,
		"CARGO_PKG_VERSION_MINOR": minor,
		"CARGO_PKG_VERSION_PATCH": patch,
		"CARGO_PKG_VERSION_PRE":   pre,
		"CARGO_PKG_AUTHORS":       strings.Join(pkg.Authors, ";"),
		"CARGO_PKG_NAME":          pkg.Name,
		"CARGO_PKG_DESCRIPTION":   pkg.Description,
		"CARGO_PKG_REPOSITORY":    pkg.Repository,
		"CARGO_PKG_LICENSE":       pkg.License,
		"CARGO_PKG_LICENSE_FILE":  pkg.LicenseFile,
		"CARGO_CRATE_NAME":        strings.ReplaceAll(pkg.Name, "-", "_"),
	}
}

func splitVersion(version string) (major, minor, patch, pre string) {
	rest := version
	if idx := strings.IndexByte(rest, '-'); idx >= 0 {
		pre = rest[idx+1:]
		rest = rest[:idx]
	}
	parts := strings.SplitN(rest, ".", 3)
	if len(parts) > 0 {
		major = parts[0]
	}
	if len(parts) > 1 {
		minor = parts[1]
	}
	if len(parts) > 2 {
		patch = parts[2]
	}
	return major, minor, patch, pre
}

// ResolveRustWorkspace assembles the rustWorkspace answer for the
// requested targets. buildData may be nil when no check run preceded
// the request.
func (w *Workspace) ResolveRustWorkspace(targets []bsp.BuildTargetIdentifier, buildData map[string]*PackageBuildData) bsp.RustWorkspaceResult {
	packageIDs := w.packagesRelatedToTargets(targets)

	packages := make([]bsp.RustPackage, 0, len(packageIDs))
	rawDependencies := make(map[string][]bsp.RustRawDependency, len(packageIDs))
	dependencies := make(map[string][]bsp.RustDependency, len(packageIDs))

	for _, pkgID := range packageIDs {
		pkg := w.packagesByID[pkgID]
		packages = append(packages, w.rustPackage(pkg, buildData[pkgID]))
		rawDependencies[pkgID] = rustRawDependencies(pkg)
		if node, ok := w.nodesByID[pkgID]; ok {
			dependencies[pkgID] = rustDependencies(node)
		}
	}

	resolved := targets
	if resolved == nil {
		resolved = []bsp.BuildTargetIdentifier{}
	}
	return bsp.RustWorkspaceResult{
		Packages:        packages,
		RawDependencies: rawDependencies,
		Dependencies:    dependencies,
		ResolvedTargets: resolved,
	}
}

// packagesRelatedToTargets collects the packages owning the requested
// targets plus their transitive dependencies. The resolve graph may
// contain cycles through optional and dev edges, so traversal tracks
// visited ids.
func (w *Workspace) packagesRelatedToTargets(targets []bsp.BuildTargetIdentifier) []string {
	visited := make(map[string]bool)
	var queue []string

	for _, id := range targets {
		if ref, ok := w.targetIndex[id.URI]; ok && !visited[ref.pkgID] {
			visited[ref.pkgID] = true
			queue = append(queue, ref.pkgID)
		}
	}

	for head := 0; head < len(queue); head++ {
		node, ok := w.nodesByID[queue[head]]
		if !ok {
			continue
		}
		for _, dep := range node.Deps {
			if !visited[dep.Pkg] {
				visited[dep.Pkg] = true
				queue = append(queue, dep.Pkg)
			}
		}
	}

	sort.Strings(queue)
	return queue
}

func (w *Workspace) rustPackage(pkg *Package, data *PackageBuildData) bsp.RustPackage {
	origin := bsp.RustOriginDependency
	if w.members[pkg.ID] {
		origin = bsp.RustOriginWorkspace
	}

	allTargets := make([]bsp.RustTarget, 0, len(pkg.Targets))
	for i := range pkg.Targets {
		allTargets = append(allTargets, rustTarget(&pkg.Targets[i]))
	}

	features := make([]bsp.RustFeature, 0, len(pkg.Features))
	for name, deps := range pkg.Features {
		if deps == nil {
			deps = []string{}
		}
		features = append(features, bsp.RustFeature{Name: name, Dependencies: deps})
	}
	sort.Slice(features, func(i, j int) bool { return features[i].Name < features[j].Name })

	enabled := w.enabledFeatures[pkg.ID]
	if enabled == nil {
		enabled = []string{}
	}

	result := bsp.RustPackage{
		ID:              pkg.ID,
		RootURL:         FileURI(filepath.Dir(pkg.ManifestPath)),
		Name:            pkg.Name,
		Version:         pkg.Version,
		Origin:          origin,
		Edition:         packageEdition(pkg),
		Source:          pkg.Source,
		ResolvedTargets: allTargets,
		AllTargets:      allTargets,
		Features:        features,
		EnabledFeatures: enabled,
	}

	if data != nil {
		result.CfgOptions = data.CfgOptions
		result.OutDirURL = data.OutDirURL
		result.ProcMacroArtifact = data.ProcMacroArtifact
		result.Env = mergedEnv(pkg, data.Env)
	} else {
		result.Env = DefaultEnv(pkg)
	}
	return result
}

// packageEdition follows cargo semantics: the edition of a package is
// the edition of its targets, which may be newer than the manifest's
// package-level edition. The library target decides when present.
func packageEdition(pkg *Package) string {
	for i := range pkg.Targets {
		if isLibraryLike(&pkg.Targets[i]) {
			return normalizeEdition(pkg.Targets[i].Edition)
		}
	}
	if len(pkg.Targets) > 0 {
		return normalizeEdition(pkg.Targets[0].Edition)
	}
	return normalizeEdition(pkg.Edition)
}

func mergedEnv(pkg *Package, overrides map[string]string) map[string]string {
	env := DefaultEnv(pkg)
	for key, value := range overrides {
		env[key] = value
	}
	return env
}

func rustTarget(target *Target) bsp.RustTarget {
	requiredFeatures := target.RequiredFeatures
	if requiredFeatures == nil {
		requiredFeatures = []string{}
	}
	return bsp.RustTarget{
		Name:             target.Name,
		CrateRootURL:     FileURI(target.SrcPath),
		Kind:             rustTargetKind(target),
		Edition:          normalizeEdition(target.Edition),
		Doctest:          target.Doctest,
		RequiredFeatures: requiredFeatures,
	}
}

func rustTargetKind(target *Target) bsp.RustTargetKind {
	if len(target.Kind) == 0 {
		return bsp.RustTargetUnknown
	}
	switch kind := target.Kind[0]; {
	case libraryKinds[kind]:
		return bsp.RustTargetLib
	case kind == "bin":
		return bsp.RustTargetBin
	case kind == "test":
		return bsp.RustTargetTest
	case kind == "example":
		return bsp.RustTargetExample
	case kind == "bench":
		return bsp.RustTargetBench
	case kind == "custom-build":
		return bsp.RustTargetCustomBuild
	default:
		return bsp.RustTargetUnknown
	}
}

// rustRawDependencies maps the manifest-declared dependencies of a
// package. A normal kind stays absent, matching cargo's own JSON.
func rustRawDependencies(pkg *Package) []bsp.RustRawDependency {
	deps := make([]bsp.RustRawDependency, 0, len(pkg.Dependencies))
	for _, dep := range pkg.Dependencies {
		features := dep.Features
		if features == nil {
			features = []string{}
		}
		deps = append(deps, bsp.RustRawDependency{
			Name:                dep.Name,
			Rename:              dep.Rename,
			Kind:                dep.Kind,
			Target:              dep.Target,
			Optional:            dep.Optional,
			UsesDefaultFeatures: dep.UsesDefaultFeatures,
			Features:            features,
		})
	}
	return deps
}

// rustDependencies maps resolved dependency edges from the resolve
// graph node of a package
func rustDependencies(node *Node) []bsp.RustDependency {
	deps := make([]bsp.RustDependency, 0, len(node.Deps))
	for _, dep := range node.Deps {
		kinds := make([]bsp.RustDepKindInfo, 0, len(dep.DepKinds))
		for _, info := range dep.DepKinds {
			kinds = append(kinds, bsp.RustDepKindInfo{
				Kind:   rustDepKind(info.Kind),
				Target: info.Target,
			})
		}
		deps = append(deps, bsp.RustDependency{
			Pkg:      dep.Pkg,
			Name:     dep.Name,
			DepKinds: kinds,
		})
	}
	return deps
}

func rustDepKind(kind string) bsp.RustDepKind {
	switch kind {
	case "build":
		return bsp.RustDepKindBuild
	case "dev":
		return bsp.RustDepKindDev
	case "", "normal":
		return bsp.RustDepKindNormal
	default:
		return bsp.RustDepKindUnclassified
	}
}
