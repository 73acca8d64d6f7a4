package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check which analyzer binaries are installed",
	Long: `Check the local system for the analyzer binaries the registry can
dispatch to. Each tool is probed for presence and, where a minimum version is
declared, for that version.

Exits non-zero when any tool is missing so provisioning scripts can gate on
it.`,
	Run: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer eng.Close()

	statuses := eng.Doctor(context.Background())

	if doctorFormat == "json" {
		printEnvelope(map[string]interface{}{"tools": statuses})
		missing := false
		for _, s := range statuses {
			if !s.Installed {
				missing = true
			}
		}
		if missing {
			os.Exit(1)
		}
		return
	}

	missing := 0
	for _, s := range statuses {
		switch {
		case !s.Installed:
			missing++
			fmt.Printf("✗ %-14s not installed", s.Name)
			if s.InstallHint != "" {
				fmt.Printf("  (install: %s)", s.InstallHint)
			}
			fmt.Println()
		case s.Outdated:
			fmt.Printf("! %-14s %s (want >= %s)\n", s.Name, s.Version, s.MinVersion)
		case s.Version != "":
			fmt.Printf("✓ %-14s %s\n", s.Name, s.Version)
		default:
			fmt.Printf("✓ %-14s installed\n", s.Name)
		}
	}

	if missing > 0 {
		fmt.Printf("\n%d of %d tools missing. Analysis still runs; missing tools are reported per run.\n",
			missing, len(statuses))
		os.Exit(1)
	}
	fmt.Printf("\nAll %d tools installed.\n", len(statuses))
}
