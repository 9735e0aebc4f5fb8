package installer

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	fs "github.com/sandevgo/kbqa/configs"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/pkg/env"
)

// SaveEnvStep writes the collected configuration to the .env file
type SaveEnvStep struct {
	err   error
	saved bool
}

func NewSaveEnvStep() Step {
	return &SaveEnvStep{}
}

func (s *SaveEnvStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.saved {
		return nil, nil
	}

	if err := SaveEnv(config.GetRuntimePath(), state); err != nil {
		s.err = err
		return s, nil
	}

	s.saved = true
	return nil, nil
}

// SaveEnv writes state as <dir>/.env. An existing file is never overwritten.
func SaveEnv(dir string, state *InstallState) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		return fmt.Errorf(".env file already exists at %s", envPath)
	}

	return os.WriteFile(envPath, []byte(env.MarshalMap(state.EnvVars)), 0600)
}

func (s *SaveEnvStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.saved {
		return "Configuration saved successfully!\n"
	}
	return "Saving configuration...\n"
}

// InitializeFilesStep copies the bundled knowledge base and responder
// directory into the runtime directory.
type InitializeFilesStep struct {
	err  error
	done bool
}

func NewInitializeFilesStep() Step {
	return &InitializeFilesStep{}
}

func (s *InitializeFilesStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *InitializeFilesStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.done {
		return nil, nil
	}

	if err := InitializeFiles(config.GetRuntimePath(), state); err != nil {
		s.err = err
		return s, nil
	}

	s.done = true
	return nil, nil
}

// InitializeFiles writes the embedded samples into dir, keeping files that
// already exist. The sample knowledge base is skipped when a custom one was chosen.
func InitializeFiles(dir string, state *InstallState) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	files := []string{fs.RespondersFile}
	if state.EnvVars["KBQA_KNOWLEDGE_FILE"] == "" {
		files = append(files, fs.KnowledgeFile)
	}

	for _, name := range files {
		dst := filepath.Join(dir, name)
		if _, err := os.Stat(dst); err == nil {
			continue
		}

		data, err := fs.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", name, err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dst, err)
		}
	}
	return nil
}

func (s *InitializeFilesStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.done {
		return "Runtime files initialized successfully!\n"
	}
	return "Initializing runtime files...\n"
}
