package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"panopticon/internal/logging"
	"panopticon/internal/mcp"
	"panopticon/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server.

The server communicates over stdio using JSON-RPC 2.0 and exposes the
analysis operations as tools:
  - analyzeRepository: language-aware analysis plus a security scan
  - detectLanguages: language detection with confidence scores
  - getRepositoryStructure: bounded directory tree plus dependency manifests
  - inspectFiles: read specific files from the repository
  - listBranches, compareRevisions, getCommitHistory: git inspection
  - getScanHistory: recorded runs and their stored reports
  - getStatus: server state and analyzer binary availability

This command is typically invoked by MCP clients, not directly by users.
Logs go to stderr; stdout carries the protocol.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrExit()

	// stdout carries the wire protocol, so logs always go to stderr and
	// default to JSON
	format := logging.JSONFormat
	if logFormatFlag != "" {
		format = logging.Format(logFormatFlag)
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(level),
		Output: os.Stderr,
	})

	eng := mustEngine(cfg, logger)
	defer eng.Close()

	// Surface missing analyzers at startup; the server runs regardless
	for _, tool := range eng.Doctor(context.Background()) {
		if !tool.Installed {
			logger.Warn("Analyzer not installed", map[string]interface{}{
				"tool": tool.Name,
				"hint": tool.InstallHint,
			})
		}
	}

	server := mcp.NewServer(version.Version, eng, logger)
	if err := server.Start(); err != nil {
		logger.Error("MCP server error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}
