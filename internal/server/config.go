// Package server hosts the JSON-RPC main loop: message dispatch,
// lifecycle, and the routing between client requests and the request
// supervisors.
package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ServerName is the display name advertised in the initialize
// handshake
const ServerName = "cargo-bsp"

// Config is the optional operator configuration read from
// .cargobsp/config.yaml under the workspace root
type Config struct {
	// Cargo overrides the cargo binary; empty means $CARGO or PATH
	Cargo string `yaml:"cargo"`
	// Env is appended to the environment of the build, run, test,
	// check and clean commands; cargo metadata does not receive it
	Env map[string]string `yaml:"env"`
	// LogLevel overrides CARGO_BSP_LOG_LEVEL
	LogLevel string `yaml:"logLevel"`
}

// LoadConfig reads the config file when present; a missing file is
// not an error
func LoadConfig(rootDir string) (*Config, error) {
	path := filepath.Join(rootDir, ".cargobsp", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &config, nil
}

// CargoEnv renders the configured env map as KEY=VALUE pairs in a
// stable order
func (c *Config) CargoEnv() []string {
	if len(c.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Env))
	for key := range c.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+c.Env[key])
	}
	return pairs
}
