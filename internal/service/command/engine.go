package command

import (
	"context"

	"github.com/sandevgo/kbqa/internal/core"
)

// Engine is the part of the orchestrator the slash commands drive.
type Engine interface {
	StartConversation(ctx context.Context, ownerID string) *core.Conversation
	Conversation(ctx context.Context, id string) (*core.Conversation, error)
	HistoryOf(ctx context.Context, id string, limit int) ([]core.Turn, error)
	Clear(ctx context.Context, id string) error
	Export(ctx context.Context, id string) (core.Snapshot, error)
}
