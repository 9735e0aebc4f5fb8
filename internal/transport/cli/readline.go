package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/synth"
	"github.com/sandevgo/kbqa/pkg/log"
)

const defaultSessionKey = "cli-local"

// Handler turns one line of input into a markdown reply.
type Handler interface {
	Handle(ctx context.Context, sess *core.Session, input string) (string, error)
}

type ReadLine struct {
	cfg     core.AppConfig
	handler Handler
	rl      *readline.Instance
	sess    *core.Session
	plain   bool
}

func NewReadLine(handler Handler, cfg core.AppConfig, plain bool) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "kbqa> ",
		HistoryFile:     filepath.Join(cfg.GetRuntimePath(), "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/new"),
			readline.PcItem("/history"),
			readline.PcItem("/clear"),
			readline.PcItem("/switch"),
			readline.PcItem("/export"),
			readline.PcItem("/help"),
		),
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:     cfg,
		handler: handler,
		rl:      rl,
		sess:    &core.Session{Key: defaultSessionKey},
		plain:   plain,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("chat started. Type /help for commands, 'exit' to quit.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "" {
			continue
		}

		out, err := r.handler.Handle(ctx, r.sess, line)
		if err != nil {
			logger.Error().Err(err).Msg("question failed")
			fmt.Fprintf(r.rl.Stdout(), "Error: %v\n", err)
			continue
		}
		if r.plain {
			out = synth.StripMarkdown(out)
		}
		fmt.Fprintf(r.rl.Stdout(), "%s\n\n", out)
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
