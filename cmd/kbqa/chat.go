package main

import (
	"os"
	"os/signal"

	"github.com/sandevgo/kbqa/internal/transport/cli"
	"github.com/sandevgo/kbqa/pkg/log"
	"github.com/sandevgo/kbqa/pkg/srv"
	"github.com/spf13/cobra"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx, os.Stderr)
		defer flushLog()

		e, err := NewEngine(ctx)
		if err != nil {
			return err
		}

		rl, err := cli.NewReadLine(e.Dispatcher(), e.App, chatPlain)
		if err != nil {
			return err
		}
		services := append([]srv.Service{rl}, e.Services...)

		srv.StartServices(ctx, e.Services)
		runErr := rl.Start(ctx)

		stop()
		srv.ShutdownServices(ctx, services)
		log.FromCtx(ctx).Debug().Msg("chat closed")
		return runErr
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "print answers without markdown")
	rootCmd.AddCommand(chatCmd)
}
