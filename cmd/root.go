// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "repo-activity",
	Short: "A CLI tool to summarize PR and issue activity in a GitHub repository.",
	Long: `repo-activity summarizes pull request and issue activity in a GitHub
repository over a date range, splitting collaborator work from community
contributions. It leans on the gh CLI for authentication, so a plain
"gh auth login" is all the setup it needs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}
