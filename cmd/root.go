package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var Verbose bool

var RootCmd = &cobra.Command{
	Use:   "cadmcp",
	Short: "MCP server that drives a browser for CAD drawing tasks",
	Long: `cadmcp exposes browser automation (navigate, click, inspect, highlight) as MCP tools,
and runs long rayon.design drawing tasks in the background with results served as MCP resources.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Enable verbose (debug) logging")

	// stdout belongs to the stdio transport
	RootCmd.SetOut(os.Stderr)
	RootCmd.SetErr(os.Stderr)
}
