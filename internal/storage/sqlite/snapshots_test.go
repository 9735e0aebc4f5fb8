package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SnapshotRepo {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSnapshotRepo(db)
}

func testSnapshot(id string, updated time.Time) core.Snapshot {
	conv := core.NewConversation(id, "owner-1", updated.Add(-time.Minute))
	conv.UpdatedAt = updated
	conv.CurrentTopic = "4D-Network-Agent"
	conv.Turns = append(conv.Turns, core.Turn{
		ID:        "t1",
		Timestamp: updated,
		Text:      "Tell me about 4D-Network-Agent",
		Intent:    core.Intent{Type: core.IntentResponderQuery, Target: "4D-Network-Agent", Confidence: 0.85},
	})
	return core.Snapshot{Version: core.SnapshotVersion, ExportedAt: updated, Conversation: conv}
}

func TestSnapshotRepo_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testSnapshot("c1", now)))

	got, err := repo.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, core.SnapshotVersion, got.Version)
	require.NotNil(t, got.Conversation)
	assert.Equal(t, "c1", got.Conversation.ID)
	assert.Equal(t, "4D-Network-Agent", got.Conversation.CurrentTopic)
	require.Len(t, got.Conversation.Turns, 1)
	assert.Equal(t, core.IntentResponderQuery, got.Conversation.Turns[0].Intent.Type)
}

func TestSnapshotRepo_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testSnapshot("c1", now)))

	snap := testSnapshot("c1", now.Add(time.Hour))
	snap.Conversation.CurrentTopic = "3D-Storage-Agent"
	require.NoError(t, repo.Save(ctx, snap))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := repo.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "3D-Storage-Agent", got.Conversation.CurrentTopic)
}

func TestSnapshotRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), core.ErrNotFound)
}

func TestSnapshotRepo_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testSnapshot("b", now.Add(time.Minute))))
	require.NoError(t, repo.Save(ctx, testSnapshot("a", now)))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "owner-1", list[0].OwnerID)

	require.NoError(t, repo.Delete(ctx, "a"))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestSnapshotRepo_RejectsEmpty(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.Save(context.Background(), core.Snapshot{Version: core.SnapshotVersion})
	assert.ErrorIs(t, err, core.ErrSnapshot)
}
