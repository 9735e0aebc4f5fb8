package main

import (
	"os"
	"os/signal"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/transport/mcpserver"
	"github.com/sandevgo/kbqa/pkg/srv"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine as an MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// stdout carries protocol frames
		var flushLog func()
		ctx, flushLog = setupLogger(ctx, os.Stderr)
		defer flushLog()

		e, err := NewEngine(ctx)
		if err != nil {
			return err
		}

		cfg := config.NewMCPServerConfig(ctx)
		cfg.Transport = mcpserver.TransportStdio
		server := mcpserver.NewServer(cfg, e.Orchestrator)

		srv.StartServices(ctx, e.Services)
		runErr := server.Start(ctx)

		stop()
		srv.ShutdownServices(ctx, append([]srv.Service{server}, e.Services...))
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
