package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "flowmap",
	Short: "Keeps a workflow graph synchronized with screen source files",
	Long: `flowmap watches a git-versioned source tree of UI screens, extracts
their structure heuristically, and reconciles the result into a persistent
journey graph without destroying history.

The graph document lives in the data directory and is consumed by the
interactive editor and the export utilities.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}
