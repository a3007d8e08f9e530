package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/grounded-qa/internal/mcptool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ask_book tool to an MCP client over stdio",
	Long: `mcp runs a Model Context Protocol server on stdin/stdout. Logs go to
stderr. The ask_book tool runs the same pipeline as the HTTP chat endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer shutdown(deps)

		server := mcptool.NewServer(deps.Orchestrator, deps.Metrics, version)
		return mcptool.ServeStdio(ctx, server, deps.Logger.Named("mcp"))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
