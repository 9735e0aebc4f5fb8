package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/sandevgo/kbqa/internal/core"
)

const (
	defaultHistoryLimit = 10
	answerPreviewRunes  = 160
)

var errNoConversation = fmt.Errorf("%w: no active conversation, ask something or use /new", core.ErrNotFound)

type NewCommand struct {
	engine    Engine
	formatter *ResponseFormatter
}

func NewNewCommand(engine Engine) *NewCommand {
	return &NewCommand{engine: engine, formatter: NewResponseFormatter()}
}

func (c *NewCommand) Name() string { return "new" }

func (c *NewCommand) Description() string { return "Start a new conversation" }

func (c *NewCommand) Execute(ctx context.Context, sess *core.Session, args []string) (string, error) {
	conv := c.engine.StartConversation(ctx, sess.Key)
	sess.ConversationID = conv.ID

	return c.formatter.Combine(
		c.formatter.Success("New conversation started"),
		c.formatter.Label("Conversation", conv.ID),
	), nil
}

type HistoryCommand struct {
	engine    Engine
	formatter *ResponseFormatter
}

func NewHistoryCommand(engine Engine) *HistoryCommand {
	return &HistoryCommand{engine: engine, formatter: NewResponseFormatter()}
}

func (c *HistoryCommand) Name() string { return "history" }

func (c *HistoryCommand) Description() string { return "Show recent turns of the conversation" }

func (c *HistoryCommand) Execute(ctx context.Context, sess *core.Session, args []string) (string, error) {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return c.formatter.Combine(
				c.formatter.Usage("/history [n]"),
				c.formatter.Examples([]string{"/history", "/history 3"}),
			), nil
		}
		limit = n
	}
	if sess.ConversationID == "" {
		return "", errNoConversation
	}

	turns, err := c.engine.HistoryOf(ctx, sess.ConversationID, limit)
	if err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("History"),
			c.formatter.Label("Status", "No turns yet."),
		), nil
	}

	items := make([]string, len(turns))
	for i, t := range turns {
		items[i] = fmt.Sprintf("**%s**\n  %s", t.Text, preview(t.MergedAnswer))
	}
	return c.formatter.Combine(
		c.formatter.Info("History"),
		c.formatter.Label("Conversation", sess.ConversationID),
		c.formatter.List(items),
	), nil
}

type ClearCommand struct {
	engine    Engine
	formatter *ResponseFormatter
}

func NewClearCommand(engine Engine) *ClearCommand {
	return &ClearCommand{engine: engine, formatter: NewResponseFormatter()}
}

func (c *ClearCommand) Name() string { return "clear" }

func (c *ClearCommand) Description() string { return "Forget the turns and context of the conversation" }

func (c *ClearCommand) Execute(ctx context.Context, sess *core.Session, args []string) (string, error) {
	if sess.ConversationID == "" {
		return "", errNoConversation
	}
	if err := c.engine.Clear(ctx, sess.ConversationID); err != nil {
		return "", err
	}
	return c.formatter.Success("Conversation cleared"), nil
}

type SwitchCommand struct {
	engine    Engine
	formatter *ResponseFormatter
}

func NewSwitchCommand(engine Engine) *SwitchCommand {
	return &SwitchCommand{engine: engine, formatter: NewResponseFormatter()}
}

func (c *SwitchCommand) Name() string { return "switch" }

func (c *SwitchCommand) Description() string { return "Continue another conversation" }

func (c *SwitchCommand) Execute(ctx context.Context, sess *core.Session, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Label("Current", orNone(sess.ConversationID)),
			c.formatter.Usage("/switch <conversation-id>"),
		), nil
	}

	conv, err := c.engine.Conversation(ctx, args[0])
	if err != nil {
		return "", err
	}
	sess.ConversationID = conv.ID

	return c.formatter.Combine(
		c.formatter.Success("Switched conversation"),
		c.formatter.Label("Conversation", conv.ID),
		c.formatter.Label("Turns", strconv.Itoa(len(conv.Turns))),
	), nil
}

type ExportCommand struct {
	engine    Engine
	formatter *ResponseFormatter
}

func NewExportCommand(engine Engine) *ExportCommand {
	return &ExportCommand{engine: engine, formatter: NewResponseFormatter()}
}

func (c *ExportCommand) Name() string { return "export" }

func (c *ExportCommand) Description() string { return "Print a snapshot of the conversation" }

func (c *ExportCommand) Execute(ctx context.Context, sess *core.Session, args []string) (string, error) {
	if sess.ConversationID == "" {
		return "", errNoConversation
	}
	snap, err := c.engine.Export(ctx, sess.ConversationID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return c.formatter.Combine(
		c.formatter.Info("Snapshot"),
		c.formatter.Code("json", string(data)),
	), nil
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= answerPreviewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:answerPreviewRunes-3]) + "..."
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
