package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"panopticon/internal/engine"
	"panopticon/internal/report"
)

var (
	analyzeBranch        string
	analyzeToken         string
	analyzeLanguages     []string
	analyzeMinConfidence float64
	analyzeFormat        string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <location>",
	Short: "Analyze a repository",
	Long: `Run the full analysis pipeline against a repository.

The location can be an https or ssh remote, or a local path. Languages are
detected from the working tree, the matching analyzers run in parallel, and
their findings are aggregated into one report. A missing or failing tool is
reported inside the result; it does not abort the run.

Examples:
  panopticon analyze https://gitlab.example.com/group/project.git
  panopticon analyze git@github.com:org/repo.git --branch release
  panopticon analyze ./checkout --language go --format json`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeBranch, "branch", "",
		"Branch to check out (default: the remote's default branch)")
	analyzeCmd.Flags().StringVar(&analyzeToken, "token", "",
		"Access token for private https remotes")
	analyzeCmd.Flags().StringSliceVar(&analyzeLanguages, "language", nil,
		"Restrict analysis to these languages (repeatable)")
	analyzeCmd.Flags().Float64Var(&analyzeMinConfidence, "min-confidence", -1,
		"Minimum language confidence for analyzer selection (0..1)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "human",
		"Output format (json, human)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer eng.Close()

	req := engine.AnalyzeRequest{
		Source: engine.Source{
			Location:   args[0],
			Credential: analyzeToken,
			Branch:     analyzeBranch,
		},
		Languages: analyzeLanguages,
	}
	if analyzeMinConfidence >= 0 {
		req.MinConfidence = &analyzeMinConfidence
	}

	rep, err := eng.AnalyzeRepository(context.Background(), req)
	if err != nil {
		exitWithError(analyzeFormat, err)
	}

	if analyzeFormat == "json" {
		printEnvelope(rep)
		return
	}
	printReportHuman(rep)
}

func printReportHuman(rep *report.Report) {
	if rep.Reason != "" {
		fmt.Printf("Nothing to analyze: %s\n", rep.Reason)
		return
	}

	fmt.Println("Languages:")
	for _, lang := range sortedKeys(rep.Languages) {
		fmt.Printf("  %-12s %5.1f%%\n", lang, rep.Languages[lang]*100)
	}

	for _, lang := range sortedKeys(rep.Analysis) {
		fmt.Printf("\n%s:\n", lang)
		tools := rep.Analysis[lang]
		for _, tool := range sortedKeys(tools) {
			fmt.Printf("  %-14s %s\n", tool, describeResult(tools[tool]))
		}
	}

	if rep.SecurityScan != nil {
		fmt.Printf("\nsecurity scan:\n  %-14s %s\n",
			rep.SecurityScan.Tool, describeResult(rep.SecurityScan))
	}

	if rep.Summary != nil {
		fmt.Printf("\nSummary: %d findings, %d tools run, %d failed (%dms)\n",
			rep.Summary.FindingsTotal, rep.Summary.ToolsRun,
			rep.Summary.ToolsFailed, rep.DurationMs)
		for _, severity := range sortedKeys(rep.Summary.BySeverity) {
			fmt.Printf("  %-8s %d\n", severity, rep.Summary.BySeverity[severity])
		}
	}

	if rep.Stale {
		fmt.Println("\nWarning: the remote could not be refreshed; this ran against the cached copy.")
	}
}

func describeResult(r *report.ToolResult) string {
	switch {
	case r.Outcome == report.OutcomeSuccess && len(r.Findings) > 0:
		return fmt.Sprintf("%s (%d findings, %dms)", r.Outcome, len(r.Findings), r.DurationMs)
	case r.Outcome.Failed() && r.Error != "":
		return fmt.Sprintf("%s: %s", r.Outcome, r.Error)
	default:
		return fmt.Sprintf("%s (%dms)", r.Outcome, r.DurationMs)
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
