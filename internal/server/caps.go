package server

import (
	"github.com/zk/cargo-bsp/internal/bsp"
)

var languageIDs = []string{bsp.RustID}

// serverCapabilities is the capability surface advertised at
// initialize time. Everything not implemented is advertised false so
// well-behaved clients never send it.
func serverCapabilities() bsp.BuildServerCapabilities {
	return bsp.BuildServerCapabilities{
		CompileProvider:            &bsp.CompileProvider{LanguageIDs: languageIDs},
		TestProvider:               &bsp.TestProvider{LanguageIDs: languageIDs},
		RunProvider:                &bsp.RunProvider{LanguageIDs: languageIDs},
		DebugProvider:              nil,
		InverseSourcesProvider:     false,
		DependencySourcesProvider:  false,
		DependencyModulesProvider:  false,
		ResourcesProvider:          false,
		OutputPathsProvider:        false,
		BuildTargetChangedProvider: false,
		JVMRunEnvironmentProvider:  false,
		JVMTestEnvironmentProvider: false,
		CanReload:                  true,
	}
}
