package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
)

var ErrClientClosed = errors.New("mcp client closed")

type ManagedClient struct {
	*client.Client
	mu     sync.RWMutex
	closed bool
	name   string
}

func (mc *ManagedClient) Name() string {
	return mc.name
}

func (mc *ManagedClient) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.closed {
		return nil
	}
	mc.closed = true
	if mc.Client == nil {
		return nil
	}
	return mc.Client.Close()
}

func (mc *ManagedClient) IsClosed() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.closed
}

// Ask calls tool with the question and returns the concatenated text content.
func (mc *ManagedClient) Ask(ctx context.Context, tool, question string) (string, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if mc.closed || mc.Client == nil {
		return "", ErrClientClosed
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = map[string]any{"question": question}

	res, err := mc.CallTool(ctx, req)
	if err != nil {
		return "", err
	}

	output := ToolText(res)
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", tool, output)
	}
	return output, nil
}

// ToolText joins the text parts of a tool result.
func ToolText(res *mcpproto.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		switch c := content.(type) {
		case mcpproto.TextContent:
			parts = append(parts, c.Text)
		case *mcpproto.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
