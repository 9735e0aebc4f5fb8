package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type channel struct {
	title string
	key   string
}

// ChannelStep selects which transports kbqa serves.
type ChannelStep struct {
	choices  []channel
	selected map[int]bool
	cursor   int
}

func NewChannelStep() Step {
	return &ChannelStep{
		choices: []channel{
			{title: "HTTP API", key: "KBQA_ENABLE_HTTP"},
			{title: "Telegram bot", key: "KBQA_ENABLE_TELEGRAM"},
			{title: "MCP server", key: "KBQA_ENABLE_MCP"},
		},
		selected: map[int]bool{0: true},
	}
}

func (s *ChannelStep) Init() tea.Cmd {
	return nil
}

func (s *ChannelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case " ", "x":
			s.selected[s.cursor] = !s.selected[s.cursor]
		case "enter":
			for i, c := range s.choices {
				state.EnvVars[c.key] = fmt.Sprint(s.selected[i])
			}
			return nil, nil
		}
	}
	return s, nil
}

func (s *ChannelStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString("Select the channels to serve:\n\n")
	for i, c := range s.choices {
		cursor := " "
		box := "[ ]"
		if s.selected[i] {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s %s", cursor, box, c.title)
		if s.cursor == i {
			line = fmt.Sprintf("❯ %s %s", box, c.title)
			b.WriteString(selStyle.Render(line) + "\n")
		} else {
			b.WriteString(itemStyle.Render(line) + "\n")
		}
	}
	b.WriteString("\n(space to toggle, enter to confirm, ctrl+c to quit)\n")
	return b.String()
}
