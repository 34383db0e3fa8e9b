package bsp

// Request and notification methods recognized by the server
const (
	MethodInitialize        = "build/initialize"
	MethodInitialized       = "build/initialized"
	MethodShutdown          = "build/shutdown"
	MethodExit              = "build/exit"
	MethodCancelRequest     = "$/cancelRequest"
	MethodBuildTargets      = "workspace/buildTargets"
	MethodReload            = "workspace/reload"
	MethodSources           = "buildTarget/sources"
	MethodInverseSources    = "buildTarget/inverseSources"
	MethodResources         = "buildTarget/resources"
	MethodOutputPaths       = "buildTarget/outputPaths"
	MethodDependencySources = "buildTarget/dependencySources"
	MethodDependencyModules = "buildTarget/dependencyModules"
	MethodCompile           = "buildTarget/compile"
	MethodRun               = "buildTarget/run"
	MethodTest              = "buildTarget/test"
	MethodCleanCache        = "buildTarget/cleanCache"
	MethodRustWorkspace     = "rustWorkspace"

	MethodLogMessage         = "build/logMessage"
	MethodTaskStart          = "build/taskStart"
	MethodTaskProgress       = "build/taskProgress"
	MethodTaskFinish         = "build/taskFinish"
	MethodPublishDiagnostics = "build/publishDiagnostics"
)

// InitializeBuildParams is sent by the client as the first request
type InitializeBuildParams struct {
	DisplayName  string                  `json:"displayName"`
	Version      string                  `json:"version"`
	BSPVersion   string                  `json:"bspVersion"`
	RootURI      URI                     `json:"rootUri"`
	Capabilities BuildClientCapabilities `json:"capabilities"`
	Data         interface{}             `json:"data,omitempty"`
}

// BuildClientCapabilities advertises the languages the client handles
type BuildClientCapabilities struct {
	LanguageIDs []string `json:"languageIds"`
}

// InitializeBuildResult is the server half of the handshake
type InitializeBuildResult struct {
	DisplayName  string                  `json:"displayName"`
	Version      string                  `json:"version"`
	BSPVersion   string                  `json:"bspVersion"`
	Capabilities BuildServerCapabilities `json:"capabilities"`
	Data         interface{}             `json:"data,omitempty"`
}

// CompileProvider lists languages compile requests are served for
type CompileProvider struct {
	LanguageIDs []string `json:"languageIds"`
}

// RunProvider lists languages run requests are served for
type RunProvider struct {
	LanguageIDs []string `json:"languageIds"`
}

// TestProvider lists languages test requests are served for
type TestProvider struct {
	LanguageIDs []string `json:"languageIds"`
}

// BuildServerCapabilities is advertised in the initialize result
type BuildServerCapabilities struct {
	CompileProvider            *CompileProvider `json:"compileProvider,omitempty"`
	TestProvider               *TestProvider    `json:"testProvider,omitempty"`
	RunProvider                *RunProvider     `json:"runProvider,omitempty"`
	DebugProvider              interface{}      `json:"debugProvider,omitempty"`
	InverseSourcesProvider     bool             `json:"inverseSourcesProvider"`
	DependencySourcesProvider  bool             `json:"dependencySourcesProvider"`
	DependencyModulesProvider  bool             `json:"dependencyModulesProvider"`
	ResourcesProvider          bool             `json:"resourcesProvider"`
	OutputPathsProvider        bool             `json:"outputPathsProvider"`
	BuildTargetChangedProvider bool             `json:"buildTargetChangedProvider"`
	JVMRunEnvironmentProvider  bool             `json:"jvmRunEnvironmentProvider"`
	JVMTestEnvironmentProvider bool             `json:"jvmTestEnvironmentProvider"`
	CanReload                  bool             `json:"canReload"`
}

// MessageType grades a build/logMessage notification
type MessageType int

const (
	MessageError   MessageType = 1
	MessageWarning MessageType = 2
	MessageInfo    MessageType = 3
	MessageLog     MessageType = 4
)

// LogMessageParams carries a build/logMessage notification
type LogMessageParams struct {
	Type     MessageType `json:"type"`
	Task     *TaskID     `json:"task,omitempty"`
	OriginID string      `json:"originId,omitempty"`
	Message  string      `json:"message"`
}

// CancelRequestParams carries the id of the request to cancel
type CancelRequestParams struct {
	ID interface{} `json:"id"`
}
