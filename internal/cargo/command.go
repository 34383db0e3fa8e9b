package cargo

import (
	"os"

	"github.com/zk/cargo-bsp/internal/workspace"
)

// CommandKind selects the cargo subcommand
type CommandKind string

const (
	KindBuild CommandKind = "build"
	KindRun   CommandKind = "run"
	KindTest  CommandKind = "test"
	KindCheck CommandKind = "check"
)

// Invocation is a fully assembled cargo command, ready to spawn.
// Env entries (KEY=VALUE) are appended to the inherited environment.
type Invocation struct {
	Bin  string
	Args []string
	Dir  string
	Env  []string
}

// DefaultBin resolves the cargo binary: $CARGO when set, otherwise
// cargo on $PATH
func DefaultBin() string {
	if bin := os.Getenv("CARGO"); bin != "" {
		return bin
	}
	return "cargo"
}

// messageFormat keeps rendered ANSI diagnostics alongside the
// structured payload
const messageFormat = "--message-format=json-diagnostic-rendered-ansi"

// targetFilterArgs renders the --package/--lib/--bin/--features flags
// for one selected target
func targetFilterArgs(details *workspace.TargetDetails) []string {
	args := []string{"--package", details.PackageName}
	if details.Kind == workspace.KindLib {
		args = append(args, "--lib")
	} else {
		args = append(args, "--"+string(details.Kind), details.Name)
	}
	if features := details.FeatureFlagValue(); features != "" {
		args = append(args, "--features", features)
	}
	if details.DefaultFeaturesDisabled {
		args = append(args, "--no-default-features")
	}
	return args
}

// Assemble builds the requested command for one compile/run/test
// request. Pure: no subprocess is touched.
func Assemble(bin string, kind CommandKind, targets []workspace.TargetDetails, extraArgs []string, rootDir string) Invocation {
	args := []string{string(kind)}

	for i := range targets {
		args = append(args, targetFilterArgs(&targets[i])...)
	}

	switch kind {
	case KindRun:
		// Run keeps plain json messages: the executable artifact is
		// the only reliable compile→run boundary, and the program's
		// own stdout still passes through as non-JSON lines
		args = append(args, "--message-format=json")
	case KindTest:
		args = append(args, messageFormat)
		args = append(args, extraArgs...)
		args = append(args, "--", "--show-output", "-Z", "unstable-options", "--format=json")
		return Invocation{Bin: bin, Args: args, Dir: rootDir}
	default:
		args = append(args, messageFormat)
	}

	args = append(args, extraArgs...)
	return Invocation{Bin: bin, Args: args, Dir: rootDir}
}

// AssembleUnitGraph builds the nightly unit-graph probe matching the
// requested command. It keeps the target filters and never compiles.
func AssembleUnitGraph(bin string, kind CommandKind, targets []workspace.TargetDetails, rootDir string) Invocation {
	args := []string{"+nightly", string(kind), "--unit-graph", "-Z", "unstable-options"}
	for i := range targets {
		args = append(args, targetFilterArgs(&targets[i])...)
	}
	return Invocation{Bin: bin, Args: args, Dir: rootDir}
}

// AssembleCheck builds the workspace-wide check run backing the
// rustWorkspace request
func AssembleCheck(bin, rootDir string) Invocation {
	return Invocation{
		Bin: bin,
		Args: []string{
			"check", "--workspace", "--all-targets",
			"-Z", "unstable-options", "--keep-going",
			"--message-format=json",
		},
		Dir: rootDir,
	}
}

// AssembleClean builds the clean command for buildTarget/cleanCache
func AssembleClean(bin string, targets []workspace.TargetDetails, rootDir string) Invocation {
	args := []string{"clean"}
	seen := make(map[string]bool)
	for i := range targets {
		pkg := targets[i].PackageName
		if !seen[pkg] {
			seen[pkg] = true
			args = append(args, "--package", pkg)
		}
	}
	return Invocation{Bin: bin, Args: args, Dir: rootDir}
}
