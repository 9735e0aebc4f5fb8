package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/kbqa/internal/core"
)

type lister interface {
	ListCommands() []core.Command
}

type HelpCommand struct {
	commands  lister
	formatter *ResponseFormatter
}

func NewHelpCommand(commands lister) *HelpCommand {
	return &HelpCommand{commands: commands, formatter: NewResponseFormatter()}
}

func (c *HelpCommand) Name() string { return "help" }

func (c *HelpCommand) Description() string { return "List available commands" }

func (c *HelpCommand) Execute(ctx context.Context, sess *core.Session, args []string) (string, error) {
	cmds := c.commands.ListCommands()
	items := make([]string, len(cmds))
	for i, cmd := range cmds {
		items[i] = fmt.Sprintf("`/%s`  %s", cmd.Name(), cmd.Description())
	}
	return c.formatter.Combine(
		c.formatter.Info("Commands"),
		c.formatter.List(items),
		c.formatter.Tip("anything not starting with / is asked as a question"),
	), nil
}
