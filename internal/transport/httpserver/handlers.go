package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/orchestrator"
	"github.com/sandevgo/kbqa/pkg/log"
)

// Engine is the orchestrator surface exposed over HTTP.
type Engine interface {
	AskIn(ctx context.Context, conversationID, text string) (core.FormattedResponse, error)
	StartConversation(ctx context.Context, ownerID string) *core.Conversation
	HistoryOf(ctx context.Context, id string, limit int) ([]core.Turn, error)
	Clear(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id string) (core.Snapshot, error)
	Import(ctx context.Context, snap core.Snapshot) (*core.Conversation, error)
	Health(ctx context.Context) orchestrator.Health
}

type askRequest struct {
	Question       *string `json:"question"`
	ConversationID string  `json:"conversationId"`
}

type conversationRequest struct {
	UserID string `json:"userId"`
}

type conversationResponse struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type handlers struct {
	engine Engine
}

func (h *handlers) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: question must be a string", core.ErrValidation))
		return
	}
	if req.Question == nil {
		fail(c, fmt.Errorf("%w: question is required", core.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	if req.ConversationID != "" {
		ctx = log.With(ctx, "conversation_id", req.ConversationID)
	}

	resp, err := h.engine.AskIn(ctx, req.ConversationID, *req.Question)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (h *handlers) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, fmt.Errorf("%w: limit must be a non-negative integer", core.ErrValidation))
			return
		}
		limit = n
	}

	turns, err := h.engine.HistoryOf(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, turns)
}

func (h *handlers) createConversation(c *gin.Context) {
	var req conversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: userId must be a string", core.ErrValidation))
			return
		}
	}

	conv := h.engine.StartConversation(c.Request.Context(), req.UserID)
	respond(c, http.StatusCreated, conversationResponse{
		ConversationID: conv.ID,
		UserID:         conv.OwnerID,
	})
}

func (h *handlers) deleteConversation(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, messageResponse{Message: fmt.Sprintf("conversation %s deleted", id)})
}

func (h *handlers) clearConversation(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Clear(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, messageResponse{Message: fmt.Sprintf("conversation %s cleared", id)})
}

func (h *handlers) exportConversation(c *gin.Context) {
	snap, err := h.engine.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, snap)
}

func (h *handlers) importConversation(c *gin.Context) {
	var snap core.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		fail(c, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	conv, err := h.engine.Import(c.Request.Context(), snap)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, conversationResponse{
		ConversationID: conv.ID,
		UserID:         conv.OwnerID,
	})
}

func (h *handlers) health(c *gin.Context) {
	respond(c, http.StatusOK, h.engine.Health(c.Request.Context()))
}
