package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/synth"
	"github.com/sandevgo/kbqa/internal/service/ui"
	"github.com/sandevgo/kbqa/pkg/log"
	"github.com/spf13/cobra"
)

var (
	askFormat       string
	askConversation string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := core.ParseOutputKind(askFormat)
		if !ok {
			return fmt.Errorf("unknown format %q", askFormat)
		}

		ctx := cmd.Context()
		var flushLog func()
		ctx, flushLog = setupLogger(ctx, os.Stderr)
		defer flushLog()
		logger := log.FromCtx(ctx)

		e, err := NewEngine(ctx)
		if err != nil {
			return err
		}
		defer func() {
			for _, s := range e.Services {
				if err := s.Shutdown(ctx); err != nil {
					logger.Error().Err(err).Msgf("%T failed to shutdown", s)
				}
			}
		}()

		// Earlier conversations are only visible once restored.
		if e.Archiver != nil {
			if _, err := e.Archiver.Restore(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to restore snapshots")
			}
		}

		resp, err := e.Orchestrator.AskIn(ctx, askConversation, strings.Join(args, " "))
		if err != nil {
			return err
		}

		out, err := synth.ToOutput(resp, kind)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		if kind != core.OutputJSON {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.ConfidenceStyle.Render(
				fmt.Sprintf("confidence %.2f · conversation %s", resp.Confidence, resp.ConversationID)))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askFormat, "format", "f", string(core.OutputMarkdown), "output format: markdown, plain, html or json")
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "continue an archived conversation")
	rootCmd.AddCommand(askCmd)
}
