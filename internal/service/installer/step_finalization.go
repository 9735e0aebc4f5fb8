package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep fills in derived values before the .env is written.
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	Finalize(state)
	return nil, nil
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}

// Finalize drops settings of disabled channels and sets defaults.
func Finalize(state *InstallState) {
	for _, key := range []string{"KBQA_ENABLE_HTTP", "KBQA_ENABLE_TELEGRAM", "KBQA_ENABLE_MCP"} {
		if state.EnvVars[key] != "true" {
			state.EnvVars[key] = "false"
		}
	}

	if !state.Enabled("KBQA_ENABLE_TELEGRAM") {
		delete(state.EnvVars, "KBQA_TELEGRAM_TOKEN")
		delete(state.EnvVars, "KBQA_TELEGRAM_OWNER_ID")
	}
	if !state.Enabled("KBQA_ENABLE_HTTP") {
		delete(state.EnvVars, "KBQA_HTTP_PORT")
	}
	if state.Enabled("KBQA_ENABLE_MCP") && state.EnvVars["KBQA_MCP_TRANSPORT"] == "" {
		state.EnvVars["KBQA_MCP_TRANSPORT"] = "http"
	}

	if state.EnvVars["KBQA_DEBUG"] == "" {
		state.EnvVars["KBQA_DEBUG"] = "0"
	}
}
