package command

import (
	"github.com/sandevgo/kbqa/internal/core"
)

func NewCommands(engine Engine) []core.Command {
	return []core.Command{
		NewNewCommand(engine),
		NewHistoryCommand(engine),
		NewClearCommand(engine),
		NewSwitchCommand(engine),
		NewExportCommand(engine),
	}
}
