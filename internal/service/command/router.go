package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
)

type Router struct {
	commands  map[string]core.Command
	formatter *ResponseFormatter
}

// New registers the given commands plus /help.
func New(commands []core.Command) *Router {
	c := &Router{
		commands:  make(map[string]core.Command),
		formatter: NewResponseFormatter(),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	c.commands["help"] = NewHelpCommand(c)
	return c
}

func (c *Router) Execute(ctx context.Context, sess *core.Session, input string) (string, bool) {
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Sprintf("Unknown command: /%s", name), true
	}

	result, err := cmd.Execute(ctx, sess, args)
	if err != nil {
		return c.formatter.Error(err), true
	}
	return result, true
}

func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}
