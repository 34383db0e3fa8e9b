package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/logger"
)

func TestMapCfgOptions(t *testing.T) {
	options := MapCfgOptions([]string{
		`feature="std"`,
		`feature="alloc"`,
		"unix",
		`target_os="linux"`,
	})

	assert.Equal(t, []string{"std", "alloc"}, options["feature"])
	assert.Equal(t, []string{"linux"}, options["target_os"])
	value, ok := options["unix"]
	require.True(t, ok, "bare cfg must be present")
	assert.Empty(t, value)
}

func TestDefaultEnv(t *testing.T) {
	pkg := &Package{
		Name:         "my-crate",
		Version:      "1.2.3-alpha.1",
		ManifestPath: "/work/my-crate/Cargo.toml",
		Authors:      []string{"A <a@x>", "B <b@x>"},
		Description:  "demo",
		License:      "MIT",
	}
	env := DefaultEnv(pkg)

	assert.Equal(t, "/work/my-crate", env["CARGO_MANIFEST_DIR"])
	assert.Equal(t, "cargo", env["CARGO"])
	assert.Equal(t, "1.2.3-alpha.1", env["CARGO_PKG_VERSION"])
	assert.Equal(t, "1", env["CARGO_PKG_VERSION_MAJOR"])
	assert.Equal(t, "2", env["CARGO_PKG_VERSION_MINOR"])
	assert.Equal(t, "3", env["CARGO_PKG_VERSION_PATCH"])
	assert.Equal(t, "alpha.1", env["CARGO_PKG_VERSION_PRE"])
	assert.Equal(t, "A <a@x>;B <b@x>", env["CARGO_PKG_AUTHORS"])
	assert.Equal(t, "my-crate", env["CARGO_PKG_NAME"])
	assert.Equal(t, "my_crate", env["CARGO_CRATE_NAME"])
	assert.Equal(t, "MIT", env["CARGO_PKG_LICENSE"])
}

func TestResolveRustWorkspace_TransitiveClosure(t *testing.T) {
	ws := fixtureWorkspace(t)
	result := ws.ResolveRustWorkspace([]bsp.BuildTargetIdentifier{
		BuildTargetID("foo", "/work/foo/src/lib.rs"),
	}, nil)

	require.Len(t, result.Packages, 2, "foo plus its dependency")

	byName := map[string]bsp.RustPackage{}
	for _, pkg := range result.Packages {
		byName[pkg.Name] = pkg
	}

	foo := byName["foo"]
	assert.Equal(t, bsp.RustOriginWorkspace, foo.Origin)
	assert.Equal(t, "2021", foo.Edition)
	assert.ElementsMatch(t, []string{"default", "tls"}, foo.EnabledFeatures)
	assert.Len(t, foo.AllTargets, 5)
	// No check run preceded: env falls back to the synthesized defaults
	assert.Equal(t, "foo", foo.Env["CARGO_PKG_NAME"])

	dep := byName["dep-lib"]
	assert.Equal(t, bsp.RustOriginDependency, dep.Origin)
	assert.Equal(t, "2018", dep.Edition)
	assert.NotEmpty(t, dep.Source)
}

func TestResolveRustWorkspace_FeaturesGraph(t *testing.T) {
	ws := fixtureWorkspace(t)
	result := ws.ResolveRustWorkspace([]bsp.BuildTargetIdentifier{
		BuildTargetID("foo", "/work/foo/src/lib.rs"),
	}, nil)

	var foo bsp.RustPackage
	for _, pkg := range result.Packages {
		if pkg.Name == "foo" {
			foo = pkg
		}
	}

	require.Len(t, foo.Features, 3)
	byFeature := map[string][]string{}
	for _, feature := range foo.Features {
		byFeature[feature.Name] = feature.Dependencies
	}
	assert.Equal(t, []string{"tls"}, byFeature["default"])
	assert.Equal(t, []string{"dep-lib/fancy"}, byFeature["extra"])
	assert.Empty(t, byFeature["tls"])
}

func TestResolveRustWorkspace_RawDependencies(t *testing.T) {
	ws := fixtureWorkspace(t)
	result := ws.ResolveRustWorkspace([]bsp.BuildTargetIdentifier{
		BuildTargetID("foo", "/work/foo/src/lib.rs"),
	}, nil)

	raw := result.RawDependencies[fooID]
	require.Len(t, raw, 2)

	assert.Equal(t, "dep-lib", raw[0].Name)
	assert.Empty(t, raw[0].Kind, "normal dependencies leave the kind empty, as in cargo's JSON")
	assert.True(t, raw[0].UsesDefaultFeatures)

	assert.Equal(t, "dev-helper", raw[1].Name)
	assert.Equal(t, "dev", raw[1].Kind)
}

func TestResolveRustWorkspace_ResolvedDependencies(t *testing.T) {
	ws := fixtureWorkspace(t)
	result := ws.ResolveRustWorkspace([]bsp.BuildTargetIdentifier{
		BuildTargetID("foo", "/work/foo/src/lib.rs"),
	}, nil)

	deps := result.Dependencies[fooID]
	require.Len(t, deps, 1)
	assert.Equal(t, depID, deps[0].Pkg)
	assert.Equal(t, "dep_lib", deps[0].Name)
	require.Len(t, deps[0].DepKinds, 1)
	assert.Equal(t, bsp.RustDepKindNormal, deps[0].DepKinds[0].Kind)
}

func TestResolveRustWorkspace_CyclicGraphTerminates(t *testing.T) {
	metadata := fixtureMetadata()
	// Close a cycle: dep-lib dev-depends back on foo. Cargo metadata
	// can surface such weak cycles.
	metadata.Resolve.Nodes[1].Deps = []NodeDep{
		{Name: "foo", Pkg: fooID, DepKinds: []DepKindInfo{{Kind: "dev"}}},
	}
	ws := New(metadata, "/work", "/work/foo/Cargo.toml", logger.NewTestLogger())

	result := ws.ResolveRustWorkspace([]bsp.BuildTargetIdentifier{
		BuildTargetID("foo", "/work/foo/src/lib.rs"),
	}, nil)
	assert.Len(t, result.Packages, 2, "cycle must not duplicate or hang")
}

func TestResolveRustWorkspace_EmptyTargets(t *testing.T) {
	ws := fixtureWorkspace(t)
	result := ws.ResolveRustWorkspace(nil, nil)
	assert.Empty(t, result.Packages)
	assert.NotNil(t, result.ResolvedTargets)
}

func TestResolveRustWorkspace_BuildDataMergedIn(t *testing.T) {
	ws := fixtureWorkspace(t)
	buildData := map[string]*PackageBuildData{
		fooID: {
			CfgOptions:        map[string][]string{"feature": {"std"}},
			Env:               map[string]string{"OUT_VALUE": "x", "CARGO_PKG_NAME": "overridden"},
			OutDirURL:         "file:///work/target/debug/build/foo/out",
			ProcMacroArtifact: "file:///work/target/debug/deps/libfoo.so",
		},
	}

	result := ws.ResolveRustWorkspace([]bsp.BuildTargetIdentifier{
		BuildTargetID("foo", "/work/foo/src/lib.rs"),
	}, buildData)

	var foo bsp.RustPackage
	for _, pkg := range result.Packages {
		if pkg.Name == "foo" {
			foo = pkg
		}
	}
	assert.Equal(t, "x", foo.Env["OUT_VALUE"])
	assert.Equal(t, "overridden", foo.Env["CARGO_PKG_NAME"], "build script output wins over defaults")
	assert.Equal(t, bsp.URI("file:///work/target/debug/build/foo/out"), foo.OutDirURL)
}

func TestSplitVersion(t *testing.T) {
	tests := []struct {
		version string
		major   string
		minor   string
		patch   string
		pre     string
	}{
		{"1.2.3", "1", "2", "3", ""},
		{"0.1.0-beta.2", "0", "1", "0", "beta.2"},
		{"2", "2", "", "", ""},
	}
	for _, tt := range tests {
		major, minor, patch, pre := splitVersion(tt.version)
		assert.Equal(t, tt.major, major, tt.version)
		assert.Equal(t, tt.minor, minor, tt.version)
		assert.Equal(t, tt.patch, patch, tt.version)
		assert.Equal(t, tt.pre, pre, tt.version)
	}
}
