package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"panopticon/internal/config"
	"panopticon/internal/engine"
	"panopticon/internal/logging"
	"panopticon/internal/version"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "panopticon",
	Short: "Panopticon - repository analysis and security assessment",
	Long: `Panopticon clones or revalidates a cached copy of a repository, detects the
languages in use, runs the matching static analyzers and security scanners as
external processes, and aggregates their findings into a single report.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("panopticon version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: json, human (default from config)")
}

// loadConfigOrExit loads the user configuration. A missing file means
// defaults, anything unreadable is fatal.
func loadConfigOrExit() *config.Config {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds a logger from config with the persistent flag overrides
// applied.
func newLogger(cfg *config.Config) *logging.Logger {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(format),
		Level:  logging.ParseLevel(level),
	})
}

// mustEngine wires an engine or exits.
func mustEngine(cfg *config.Config, logger *logging.Logger) *engine.Engine {
	eng, err := engine.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return eng
}
