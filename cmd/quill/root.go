package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "AI-assisted research workflows",
	Long: `Quill turns a research goal into an ordered workflow of tasks and
executes them through a text-generation backend.

Every status change is persisted, so an interrupted run resumes exactly
where it left off. Tasks that need a human (downloading papers, manual
review) park the workflow until you mark them complete.

The built-in literature_review domain walks a five-stage pipeline:
collect papers, upload them, analyze, outline, and write the review,
exporting the result as markdown, HTML, and plain text.

Quick start:
  quill config init
  quill run "transformer architectures for time series"
  quill papers add --title "Attention Is All You Need" --year 2017
  quill complete <workflow-id> <task-id>
  quill resume <workflow-id>`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(papersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
