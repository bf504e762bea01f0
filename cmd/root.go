// Package cmd holds the CLI commands. Each command loads configuration,
// builds the application via app.Setup, runs one operation, and releases
// everything before returning.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sitedex",
	Short: "sitedex indexes websites for hybrid semantic search",
	Long: `sitedex fetches web pages, extracts their readable content, chunks and
embeds it, and stores everything in PostgreSQL for combined vector and
full-text retrieval.

Run "sitedex serve" to start the HTTP API, or use the process, query and
library commands directly from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
