package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/kbqa/pkg/log"
	"github.com/sandevgo/kbqa/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enabled transports and background services",
	Long:  `Starts the HTTP API, Telegram bot and MCP server as configured, together with the knowledge base watcher, remote responders and snapshot archiver.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting kbqa")

		services := NewServices(ctx)

		srv.StartServices(ctx, services)

		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("kbqa has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
