package installer

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
)

func NewTelegramTokenStep() Step {
	s := newInputStep("Enter your Telegram Bot Token:", "KBQA_TELEGRAM_TOKEN", "123456789:ABCDEF...")
	s.guard = "KBQA_ENABLE_TELEGRAM"
	s.input.EchoMode = textinput.EchoPassword
	s.input.EchoCharacter = '•'
	return s
}

func NewTelegramOwnerStep() Step {
	s := newInputStep("Enter your Telegram User ID (Owner):", "KBQA_TELEGRAM_OWNER_ID", "123456789")
	s.guard = "KBQA_ENABLE_TELEGRAM"
	s.validate = func(v string) error {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("%q is not a numeric user id", v)
		}
		return nil
	}
	return s
}
