package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	turns map[string][]core.Turn
	seq   int
}

func (f *fakeEngine) AskIn(ctx context.Context, id, text string) (core.FormattedResponse, error) {
	if id == "" {
		id = f.StartConversation(ctx, "").ID
	}
	if _, ok := f.turns[id]; !ok {
		return core.FormattedResponse{}, fmt.Errorf("conversation %q: %w", id, core.ErrNotFound)
	}
	f.turns[id] = append(f.turns[id], core.Turn{Text: text, MergedAnswer: "**bold** answer"})
	return core.FormattedResponse{
		Answer:              "**bold** answer",
		FollowUpSuggestions: []string{"Tell me more"},
		ConversationID:      id,
	}, nil
}

func (f *fakeEngine) StartConversation(ctx context.Context, ownerID string) *core.Conversation {
	f.seq++
	id := fmt.Sprintf("conv-%d", f.seq)
	f.turns[id] = []core.Turn{}
	return core.NewConversation(id, ownerID, time.Now())
}

func (f *fakeEngine) HistoryOf(ctx context.Context, id string, limit int) ([]core.Turn, error) {
	turns, ok := f.turns[id]
	if !ok {
		return nil, fmt.Errorf("conversation %q: %w", id, core.ErrNotFound)
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func newClient(t *testing.T) *client.Client {
	t.Helper()
	s := NewServer(&config.MCPServerConfig{Transport: TransportStdio}, &fakeEngine{turns: map[string][]core.Turn{}})

	cli, err := client.NewInProcessClient(s.MCP())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	ctx := context.Background()
	require.NoError(t, cli.Start(ctx))
	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpproto.Implementation{Name: "test", Version: "0.0.0"}
	_, err = cli.Initialize(ctx, initReq)
	require.NoError(t, err)
	return cli
}

func call(t *testing.T, cli *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()
	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := cli.CallTool(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := mcpproto.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestTools_Listed(t *testing.T) {
	cli := newClient(t)
	res, err := cli.ListTools(context.Background(), mcpproto.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ask", "new_conversation", "history"}, names)
}

func TestAskConversationHistory(t *testing.T) {
	cli := newClient(t)

	id, isErr := call(t, cli, "new_conversation", map[string]any{"userId": "u-1"})
	require.False(t, isErr)
	assert.Equal(t, "conv-1", id)

	out, isErr := call(t, cli, "ask", map[string]any{"question": "What is 4D?", "conversationId": id})
	require.False(t, isErr)
	assert.Contains(t, out, "**bold** answer")
	assert.Contains(t, out, "1. Tell me more")
	assert.Contains(t, out, "conversationId: conv-1")

	out, isErr = call(t, cli, "ask", map[string]any{"question": "and 3D?", "conversationId": id, "format": "plain"})
	require.False(t, isErr)
	assert.NotContains(t, out, "**")

	out, isErr = call(t, cli, "history", map[string]any{"conversationId": id, "limit": 1})
	require.False(t, isErr)
	var turns []core.Turn
	require.NoError(t, json.Unmarshal([]byte(out), &turns))
	require.Len(t, turns, 1)
	assert.Equal(t, "and 3D?", turns[0].Text)
}

func TestAsk_JSONFormat(t *testing.T) {
	cli := newClient(t)

	out, isErr := call(t, cli, "ask", map[string]any{"question": "hello", "format": "json"})
	require.False(t, isErr)

	var resp core.FormattedResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "conv-1", resp.ConversationID)
}

func TestTools_Errors(t *testing.T) {
	cli := newClient(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{name: "missing question", tool: "ask", args: map[string]any{}, want: "question"},
		{name: "bad format", tool: "ask", args: map[string]any{"question": "x", "format": "pdf"}, want: "unknown format"},
		{name: "unknown conversation", tool: "ask", args: map[string]any{"question": "x", "conversationId": "nope"}, want: "not found"},
		{name: "history without id", tool: "history", args: map[string]any{}, want: "conversationId"},
		{name: "history of unknown", tool: "history", args: map[string]any{"conversationId": "nope"}, want: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, cli, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestStart_UnsupportedTransport(t *testing.T) {
	s := NewServer(&config.MCPServerConfig{Transport: "carrier-pigeon"}, &fakeEngine{turns: map[string][]core.Turn{}})
	assert.Error(t, s.Start(context.Background()))
	assert.NoError(t, s.Shutdown(context.Background()))
}
