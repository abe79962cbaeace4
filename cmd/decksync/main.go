// Package main provides the entry point for the decksync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "decksync",
		Short: "Spreadsheet to slide deck table sync",
		Long: `decksync keeps the tool tables of a PowerPoint deck in line with a
tracking spreadsheet. Matching rows are updated in place, new tools are
appended to the first qualifying table, and full tables continue on new
slides.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(syncCmd, statusCmd, validateCmd, versionCmd)
	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "decksync version %s\n", version)
	},
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
