package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"panopticon/internal/engine"
)

var (
	languagesBranch string
	languagesToken  string
	languagesFormat string
)

var languagesCmd = &cobra.Command{
	Use:   "languages <location>",
	Short: "Detect the languages used in a repository",
	Long: `Detect the programming languages used in a repository.

Confidence is the share of recognized source files per language. An empty
result means nothing recognizable was found; that is not an error.`,
	Args: cobra.ExactArgs(1),
	Run:  runLanguages,
}

func init() {
	languagesCmd.Flags().StringVar(&languagesBranch, "branch", "",
		"Branch to check out (default: the remote's default branch)")
	languagesCmd.Flags().StringVar(&languagesToken, "token", "",
		"Access token for private https remotes")
	languagesCmd.Flags().StringVar(&languagesFormat, "format", "human",
		"Output format (json, human)")
	rootCmd.AddCommand(languagesCmd)
}

func runLanguages(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer eng.Close()

	langs, err := eng.DetectLanguages(context.Background(), engine.Source{
		Location:   args[0],
		Credential: languagesToken,
		Branch:     languagesBranch,
	})
	if err != nil {
		exitWithError(languagesFormat, err)
	}

	if languagesFormat == "json" {
		printEnvelope(map[string]interface{}{"languages": langs})
		return
	}

	if len(langs) == 0 {
		fmt.Println("No supported language detected.")
		return
	}
	for _, lang := range sortedKeys(langs) {
		fmt.Printf("%-12s %5.1f%%\n", lang, langs[lang]*100)
	}
}
