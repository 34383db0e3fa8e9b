package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zk/cargo-bsp/internal/cargo"
	"github.com/zk/cargo-bsp/internal/logger"
	"github.com/zk/cargo-bsp/internal/server"
	"github.com/zk/cargo-bsp/internal/workspace"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var rootDir string

	rootCmd := &cobra.Command{
		Use:   "cargo-bsp",
		Short: "Build Server Protocol server for Cargo workspaces",
		Long: `cargo-bsp speaks the Build Server Protocol over stdio so IDE clients
can discover build targets, compile, run and test Rust code through
Cargo without duplicating its knowledge.

The server logs to .cargobsp/server.log inside the workspace; stdout
carries only the protocol.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootDir)
		},
	}
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "workspace root (defaults to the current directory)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "targets",
		Short: "Print the discovered build targets and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(rootDir)
		},
	})

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveRoot(rootDir string) (string, error) {
	if rootDir != "" {
		return rootDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return cwd, nil
}

// runServe starts the BSP server on stdio and exits with its code
func runServe(rootDir string) error {
	root, err := resolveRoot(rootDir)
	if err != nil {
		return err
	}

	fileLogger, err := logger.NewFileLogger(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server log: %v\n", err)
		return err
	}
	defer func() { _ = fileLogger.Close() }()

	config, err := server.LoadConfig(root)
	if err != nil {
		fileLogger.Error("Bad config file: %v", err)
		config = &server.Config{}
	}
	if config.LogLevel != "" {
		fileLogger.SetLevel(logger.ParseLogLevel(config.LogLevel))
	}

	srv := server.New(os.Stdin, os.Stdout, root, version, config, fileLogger)
	code := srv.Run()
	_ = fileLogger.Close()
	os.Exit(code)
	return nil // never reached
}

// runTargets is an operator convenience: show what the workspace
// model would hand to a client, without speaking the protocol
func runTargets(rootDir string) error {
	root, err := resolveRoot(rootDir)
	if err != nil {
		return err
	}

	fileLogger, err := logger.NewFileLogger(root)
	if err != nil {
		return err
	}
	defer func() { _ = fileLogger.Close() }()

	config, err := server.LoadConfig(root)
	if err != nil {
		return err
	}
	cargoBin := config.Cargo
	if cargoBin == "" {
		cargoBin = cargo.DefaultBin()
	}

	ws, err := workspace.Load(cargoBin, root, fileLogger)
	if err != nil {
		return fmt.Errorf("workspace discovery failed: %w", err)
	}

	for _, target := range ws.BuildTargets() {
		caps := ""
		if target.Capabilities.CanRun {
			caps = " (runnable)"
		}
		fmt.Printf("%-24s %-20v %s%s\n", target.DisplayName, target.Tags, target.ID.URI, caps)
	}
	return nil
}
