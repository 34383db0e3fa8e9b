package server

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfig_MissingFileIsDefault(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Cargo != "" || config.LogLevel != "" || len(config.Env) != 0 {
		t.Errorf("config = %+v, want zero value", config)
	}
}

func TestLoadConfig_ReadsYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".cargobsp"), 0755); err != nil {
		t.Fatal(err)
	}
	content := "cargo: /opt/rust/bin/cargo\nlogLevel: debug\nenv:\n  RUSTC_BOOTSTRAP: \"1\"\n  CARGO_TERM_COLOR: always\n"
	if err := os.WriteFile(filepath.Join(dir, ".cargobsp", "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Cargo != "/opt/rust/bin/cargo" {
		t.Errorf("cargo = %q", config.Cargo)
	}
	if config.LogLevel != "debug" {
		t.Errorf("logLevel = %q", config.LogLevel)
	}

	// Stable order for the rendered environment
	want := []string{"CARGO_TERM_COLOR=always", "RUSTC_BOOTSTRAP=1"}
	if got := config.CargoEnv(); !reflect.DeepEqual(got, want) {
		t.Errorf("CargoEnv() = %v, want %v", got, want)
	}
}

func TestLoadConfig_BadYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".cargobsp"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".cargobsp", "config.yaml"), []byte(":\tnot yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(dir); err == nil {
		t.Error("expected error for malformed config")
	}
}
