package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded analysis runs",
	Long: `List recorded analysis runs, newest first.

With a run id, print that run including its stored report.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer eng.Close()

	if len(args) == 1 {
		entry, err := eng.GetRun(args[0])
		if err != nil {
			exitWithError(historyFormat, err)
		}
		if historyFormat == "json" {
			printEnvelope(entry)
			return
		}
		fmt.Printf("%s  %s  %s\n", entry.ID, entry.StartedAt.Format("2006-01-02 15:04:05"), entry.Location)
		if entry.Report != nil {
			fmt.Println()
			printReportHuman(entry.Report)
		}
		return
	}

	entries, err := eng.RecentRuns(historyLimit)
	if err != nil {
		exitWithError(historyFormat, err)
	}

	if historyFormat == "json" {
		printEnvelope(map[string]interface{}{"runs": entries})
		return
	}

	if len(entries) == 0 {
		fmt.Println("No recorded runs.")
		return
	}
	for _, e := range entries {
		branch := e.Branch
		if branch == "" {
			branch = "-"
		}
		fmt.Printf("%s  %s  %-8s  %3d findings  %s@%s\n",
			e.ID, e.StartedAt.Format("2006-01-02 15:04:05"), e.Status,
			e.FindingsTotal, e.Location, branch)
	}
}
