package core

import (
	"context"
	"time"
)

// ContextStore owns all per-conversation mutable state.
type ContextStore interface {
	Create(ctx context.Context, ownerID string) *Conversation
	Get(ctx context.Context, id string) (*Conversation, error)
	AddTurn(ctx context.Context, id string, turn Turn) error
	UpdateContext(ctx context.Context, id string, updates ...ContextUpdate) error
	ResolveReference(text string, conv *Conversation) (Entity, bool)
	History(ctx context.Context, id string, limit int) ([]Turn, error)
	Clear(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id string) (Snapshot, error)
	Import(ctx context.Context, snap Snapshot) (*Conversation, error)
	IDs() []string
	Count() int
}

const SnapshotVersion = 1

type Snapshot struct {
	Version      int           `json:"version"`
	ExportedAt   time.Time     `json:"exportedAt"`
	Conversation *Conversation `json:"conversation"`
}

type SnapshotInfo struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SnapshotRepository interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
	Delete(ctx context.Context, id string) error
}
