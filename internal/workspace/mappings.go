package workspace

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/zk/cargo-bsp/internal/bsp"
)

// libraryKinds are the cargo target kinds that produce a library
// artifact and are addressed on the command line with --lib
var libraryKinds = map[string]bool{
	"lib":        true,
	"rlib":       true,
	"dylib":      true,
	"cdylib":     true,
	"staticlib":  true,
	"proc-macro": true,
}

// FileURI renders an absolute path as a file:// URI
func FileURI(path string) bsp.URI {
	return "file://" + filepath.ToSlash(path)
}

// BuildTargetID derives the stable identifier for a target. The id
// embeds the source path and target name so it survives metadata
// reloads on the same repository state.
func BuildTargetID(name, srcPath string) bsp.BuildTargetIdentifier {
	return bsp.BuildTargetIdentifier{URI: fmt.Sprintf("targetId:/%s:%s", srcPath, name)}
}

// tagsAndCapabilities maps cargo target kinds to BSP tags and
// capability flags. LIBRARY and APPLICATION are exclusive per BSP.
func tagsAndCapabilities(kinds []string) ([]string, bsp.BuildTargetCapabilities) {
	var tags []string
	caps := bsp.BuildTargetCapabilities{
		CanCompile: true,
		CanTest:    true,
		CanRun:     true,
		CanDebug:   false,
	}

	for _, kind := range kinds {
		switch {
		case libraryKinds[kind]:
			tags = append(tags, bsp.TagLibrary)
			caps.CanRun = false
		case kind == "bin":
			tags = append(tags, bsp.TagApplication)
		case kind == "example":
			tags = append(tags, bsp.TagApplication)
			caps.CanTest = false
		case kind == "test":
			tags = append(tags, bsp.TagIntegrationTest)
			caps.CanRun = false
		case kind == "bench":
			tags = append(tags, bsp.TagBenchmark)
			caps.CanRun = false
		default:
			// custom-build and anything unknown is not buildable on demand
			tags = append(tags, bsp.TagNoIDE)
			caps.CanCompile = false
			caps.CanTest = false
			caps.CanRun = false
		}
	}
	return tags, caps
}

// normalizeEdition keeps the edition string as cargo reports it,
// defaulting to 2015 which is what cargo assumes when absent
func normalizeEdition(edition string) string {
	if edition == "" {
		return "2015"
	}
	return edition
}

// isLibraryLike reports whether the target produces a linkable
// library artifact
func isLibraryLike(target *Target) bool {
	for _, kind := range target.Kind {
		if libraryKinds[kind] {
			return true
		}
	}
	return false
}

// sortTargetsBySrcPath orders targets lexicographically by source
// path, the tie-break rule for same-name targets
func sortTargetsBySrcPath(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].SrcPath < targets[j].SrcPath
	})
}

// buildTargetFromCargoTarget maps a cargo target and its resolved
// dependency ids into a BSP build target
func buildTargetFromCargoTarget(target *Target, dependencies []bsp.BuildTargetIdentifier) bsp.BuildTarget {
	tags, caps := tagsAndCapabilities(target.Kind)

	requiredFeatures := target.RequiredFeatures
	if requiredFeatures == nil {
		requiredFeatures = []string{}
	}
	if dependencies == nil {
		dependencies = []bsp.BuildTargetIdentifier{}
	}

	return bsp.BuildTarget{
		ID:            BuildTargetID(target.Name, target.SrcPath),
		DisplayName:   target.Name,
		BaseDirectory: FileURI(filepath.Dir(target.SrcPath)),
		Tags:          tags,
		LanguageIDs:   []string{bsp.RustID},
		Dependencies:  dependencies,
		Capabilities:  caps,
		DataKind:      bsp.CargoBuildTargetDataKind,
		Data: bsp.CargoBuildTarget{
			Edition:          normalizeEdition(target.Edition),
			RequiredFeatures: requiredFeatures,
		},
	}
}
