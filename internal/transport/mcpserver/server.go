package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/synth"
	"github.com/sandevgo/kbqa/pkg/log"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	defaultHistoryLimit = 20
	shutdownTimeout     = 5 * time.Second
)

// Engine is the orchestrator surface exposed as MCP tools.
type Engine interface {
	AskIn(ctx context.Context, conversationID, text string) (core.FormattedResponse, error)
	StartConversation(ctx context.Context, ownerID string) *core.Conversation
	HistoryOf(ctx context.Context, id string, limit int) ([]core.Turn, error)
}

type Server struct {
	cfg    *config.MCPServerConfig
	engine Engine
	mcp    *server.MCPServer
	http   *http.Server
}

func NewServer(cfg *config.MCPServerConfig, engine Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		mcp: server.NewMCPServer(core.AppName, core.AppVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()

	if cfg.Transport == TransportHTTP {
		s.http = &http.Server{
			Addr:              cfg.Addr,
			Handler:           server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true)),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcpproto.NewTool("ask",
			mcpproto.WithDescription("Ask a question about the knowledge base. Follow-up questions may refer to earlier answers when the same conversationId is passed."),
			mcpproto.WithString("question", mcpproto.Required(), mcpproto.Description("Natural language question")),
			mcpproto.WithString("conversationId", mcpproto.Description("Conversation to continue; a new one is started when empty")),
			mcpproto.WithString("format", mcpproto.Description("markdown (default), plain, html or json")),
		),
		s.ask,
	)

	s.mcp.AddTool(
		mcpproto.NewTool("new_conversation",
			mcpproto.WithDescription("Start a new conversation and return its id."),
			mcpproto.WithString("userId", mcpproto.Description("Optional owner of the conversation")),
		),
		s.newConversation,
	)

	s.mcp.AddTool(
		mcpproto.NewTool("history",
			mcpproto.WithDescription("Return the recent turns of a conversation as JSON."),
			mcpproto.WithString("conversationId", mcpproto.Required()),
			mcpproto.WithNumber("limit", mcpproto.Description("Maximum number of turns, most recent kept")),
		),
		s.history,
	)
}

func (s *Server) ask(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	kind, ok := core.ParseOutputKind(req.GetString("format", ""))
	if !ok {
		return mcpproto.NewToolResultError("unknown format"), nil
	}

	resp, err := s.engine.AskIn(ctx, req.GetString("conversationId", ""), question)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("mcp ask failed")
		return mcpproto.NewToolResultError(toolError(err)), nil
	}

	out, err := synth.ToOutput(resp, kind)
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	if kind != core.OutputJSON {
		out += "\n\nconversationId: " + resp.ConversationID
	}
	return mcpproto.NewToolResultText(out), nil
}

func (s *Server) newConversation(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	conv := s.engine.StartConversation(ctx, req.GetString("userId", ""))
	return mcpproto.NewToolResultText(conv.ID), nil
}

func (s *Server) history(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := req.RequireString("conversationId")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	turns, err := s.engine.HistoryOf(ctx, id, req.GetInt("limit", defaultHistoryLimit))
	if err != nil {
		return mcpproto.NewToolResultError(toolError(err)), nil
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return mcpproto.NewToolResultText(string(data)), nil
}

// toolError hides internal failures the same way the HTTP surface does.
func toolError(err error) string {
	if errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrNotFound) {
		return err.Error()
	}
	return "internal error"
}

// MCP exposes the underlying server, mainly for in-process clients.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

func (s *Server) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	switch s.cfg.Transport {
	case TransportStdio:
		logger.Info().Msg("serving mcp over stdio")
		err := server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case TransportHTTP:
		logger.Info().Str("addr", s.cfg.Addr).Msg("serving mcp over streamable http")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported mcp transport: %s", s.cfg.Transport)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(drainCtx)
}
