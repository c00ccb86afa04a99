package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cadmcp/internal/bootstrap"
)

const stopTimeout = 30 * time.Second

var (
	// path to the MCP log file, override with --log
	mcpLogPath   string
	mcpTransport string
	mcpEnvFile   string
)

// mcpCmd is the cobra subcommand which will start our MCP server.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server (stdio by default, or SSE)",
	RunE:  runMCP,
}

func init() {
	RootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVarP(&mcpLogPath, "log", "l", "", "path to the MCP log file (default <logs dir>/cadmcp-mcp.log)")
	mcpCmd.Flags().StringVarP(&mcpTransport, "transport", "t", "", "transport to serve: stdio or sse (default from SERVER_TRANSPORT)")
	mcpCmd.Flags().StringVarP(&mcpEnvFile, "env-file", "e", "", "optional .env file to load before reading the environment")
}

func mcpOptions() bootstrap.Options {
	return bootstrap.Options{
		EnvFile:   mcpEnvFile,
		LogFile:   mcpLogPath,
		Transport: mcpTransport,
		Verbose:   Verbose,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	app := bootstrap.NewApp(mcpOptions())

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start mcp server: %w", err)
	}

	sig := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), stopTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop mcp server: %w", err)
	}

	if sig.ExitCode != 0 {
		return fmt.Errorf("mcp server exited with code %d", sig.ExitCode)
	}
	return nil
}
