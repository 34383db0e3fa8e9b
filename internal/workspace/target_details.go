package workspace

import (
	"path/filepath"
	"strings"
)

// CargoTargetKind is the command-line addressable kind of a target
type CargoTargetKind string

const (
	KindLib         CargoTargetKind = "lib"
	KindBin         CargoTargetKind = "bin"
	KindExample     CargoTargetKind = "example"
	KindTest        CargoTargetKind = "test"
	KindBench       CargoTargetKind = "bench"
	KindCustomBuild CargoTargetKind = "custom-build"
)

// TargetDetails carries everything command assembly needs to address
// one target: cargo's --package/--lib/--bin flags plus feature state
type TargetDetails struct {
	Name                    string
	Kind                    CargoTargetKind
	PackageName             string
	PackageAbsPath          string
	DefaultFeaturesDisabled bool
	EnabledFeatures         []string
}

// targetKind maps the first cargo kind entry onto the command-line
// kind. Library-like kinds all address as --lib.
func targetKind(target *Target) (CargoTargetKind, bool) {
	if len(target.Kind) == 0 {
		return "", false
	}
	kind := target.Kind[0]
	switch {
	case libraryKinds[kind]:
		return KindLib, true
	case kind == "bin":
		return KindBin, true
	case kind == "example":
		return KindExample, true
	case kind == "test":
		return KindTest, true
	case kind == "bench":
		return KindBench, true
	case kind == "custom-build":
		return KindCustomBuild, true
	default:
		return "", false
	}
}

// newTargetDetails assembles details for a target of the given package
func newTargetDetails(pkg *Package, target *Target, enabledFeatures []string, defaultDisabled bool) (TargetDetails, bool) {
	kind, ok := targetKind(target)
	if !ok {
		return TargetDetails{}, false
	}
	return TargetDetails{
		Name:                    target.Name,
		Kind:                    kind,
		PackageName:             pkg.Name,
		PackageAbsPath:          filepath.Dir(pkg.ManifestPath),
		DefaultFeaturesDisabled: defaultDisabled,
		EnabledFeatures:         enabledFeatures,
	}, true
}

// FeatureFlagValue returns the comma-joined feature list for the
// --features flag, dropping the implicit default feature. Empty means
// the flag should be omitted.
func (t *TargetDetails) FeatureFlagValue() string {
	var kept []string
	for _, feature := range t.EnabledFeatures {
		if feature == "default" {
			continue
		}
		kept = append(kept, feature)
	}
	return strings.Join(kept, ",")
}
