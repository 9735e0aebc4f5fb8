package memory

import (
	"context"
	"fmt"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
)

func (s *Store) Export(ctx context.Context, id string) (core.Snapshot, error) {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{
		Version:      core.SnapshotVersion,
		ExportedAt:   s.now(),
		Conversation: conv,
	}, nil
}

// Import restores a snapshot verbatim, creating or overwriting the
// conversation stored under the snapshot's id.
func (s *Store) Import(ctx context.Context, snap core.Snapshot) (*core.Conversation, error) {
	if snap.Version != core.SnapshotVersion {
		return nil, fmt.Errorf("unsupported version %d: %w", snap.Version, core.ErrSnapshot)
	}
	if snap.Conversation == nil || snap.Conversation.ID == "" {
		return nil, fmt.Errorf("missing conversation: %w", core.ErrSnapshot)
	}

	conv := snap.Conversation.Clone()
	if conv.Turns == nil {
		conv.Turns = []core.Turn{}
	}
	if conv.Entities == nil {
		conv.Entities = map[string]core.Entity{}
	}
	if conv.PreviousIntents == nil {
		conv.PreviousIntents = []core.Intent{}
	}

	s.mu.Lock()
	if e, ok := s.convs[conv.ID]; ok {
		e.mu.Lock()
		e.conv = conv
		e.mu.Unlock()
	} else {
		s.convs[conv.ID] = &entry{conv: conv}
	}
	s.mu.Unlock()

	log.FromCtx(ctx).Debug().Str("conversation_id", conv.ID).Int("turns", len(conv.Turns)).Msg("conversation imported")
	return conv.Clone(), nil
}
