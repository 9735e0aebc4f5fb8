package installer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputStep collects one value into an env var. A step with a guard key is
// skipped unless that channel was enabled.
type InputStep struct {
	input    textinput.Model
	prompt   string
	key      string
	guard    string
	optional bool
	validate func(string) error
	err      error
}

func newInputStep(prompt, key, placeholder string) *InputStep {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 50
	ti.Placeholder = placeholder
	return &InputStep{input: ti, prompt: prompt, key: key}
}

func NewHTTPPortStep() Step {
	s := newInputStep("HTTP API port:", "KBQA_HTTP_PORT", "8080")
	s.guard = "KBQA_ENABLE_HTTP"
	s.optional = true
	s.validate = func(v string) error {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%q is not a valid port", v)
		}
		return nil
	}
	return s
}

func NewKnowledgeFileStep() Step {
	s := newInputStep("Path to your knowledge.yaml (leave empty for the bundled sample):", "KBQA_KNOWLEDGE_FILE", "knowledge.yaml")
	s.optional = true
	return s
}

func (s *InputStep) Skip(state *InstallState) bool {
	return s.guard != "" && !state.Enabled(s.guard)
}

func (s *InputStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *InputStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" {
			if s.optional {
				return nil, nil
			}
			s.err = fmt.Errorf("a value is required")
			return s, cmd
		}
		if s.validate != nil {
			if err := s.validate(val); err != nil {
				s.err = err
				return s, cmd
			}
		}
		state.EnvVars[s.key] = val
		return nil, nil
	}
	return s, cmd
}

func (s *InputStep) View(state *InstallState) string {
	view := s.prompt + "\n\n" + s.input.View() + "\n\n"
	if s.err != nil {
		view += errorStyle.Render(s.err.Error()) + "\n\n"
	}
	return view + "(press enter to confirm)\n"
}
