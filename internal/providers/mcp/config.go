package mcp

import (
	"fmt"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
)

type TransportType string

const (
	TransportHTTP  TransportType = "http"
	TransportStdio TransportType = "stdio"

	DefaultTool = "answer"
)

// Config is the layout of responders.json.
type Config struct {
	Responders map[string]ServerConfig `json:"responders"`
}

// ServerConfig describes one remote responder and how to reach it.
type ServerConfig struct {
	// Connection
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// Responder metadata
	Name            string   `json:"name"`
	Dimension       string   `json:"dimension,omitempty"`
	Purpose         string   `json:"purpose,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	Dependencies    []string `json:"dependencies,omitempty"`
	Category        string   `json:"category,omitempty"`
	FunctionCapable bool     `json:"functionCapable,omitempty"`
	Tool            string   `json:"tool,omitempty"`
}

func (c *ServerConfig) GetTransport() (TransportType, error) {
	if c.URL != "" {
		return TransportHTTP, nil
	}
	if c.Command != "" {
		return TransportStdio, nil
	}
	return "", fmt.Errorf("invalid config: neither url nor command provided")
}

func (c *ServerConfig) ToolName() string {
	if c.Tool != "" {
		return c.Tool
	}
	return DefaultTool
}

// Definition describes the remote responder registered under id.
func (c *ServerConfig) Definition(id string) core.ResponderDefinition {
	name := c.Name
	if name == "" {
		name = id
	}
	source := c.URL
	if source == "" {
		source = strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
	}
	return core.ResponderDefinition{
		ID:              id,
		Name:            name,
		Dimension:       strings.ToUpper(c.Dimension),
		Purpose:         c.Purpose,
		Capabilities:    c.Capabilities,
		Dependencies:    c.Dependencies,
		Source:          "mcp:" + source,
		Category:        c.Category,
		FunctionCapable: c.FunctionCapable,
	}
}
