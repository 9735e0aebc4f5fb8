package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
)

type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Save(ctx context.Context, snap core.Snapshot) error {
	if snap.Conversation == nil || snap.Conversation.ID == "" {
		return fmt.Errorf("save snapshot: %w", core.ErrSnapshot)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `INSERT INTO snapshots (id, owner_id, version, data, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, version = excluded.version,
		data = excluded.data, updated_at = excluded.updated_at`

	conv := snap.Conversation
	if _, err := r.db.ExecContext(ctx, query, conv.ID, conv.OwnerID, snap.Version, string(data), conv.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, id string) (core.Snapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, fmt.Errorf("snapshot %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot %q: %w", id, err)
	}
	return snap, nil
}

func (r *SnapshotRepo) List(ctx context.Context) ([]core.SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, owner_id, updated_at FROM snapshots ORDER BY updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.SnapshotInfo
	for rows.Next() {
		var (
			info      core.SnapshotInfo
			updatedAt time.Time
		)
		if err := rows.Scan(&info.ID, &info.OwnerID, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.UpdatedAt = updatedAt
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().Int("count", len(out)).Msg("listed snapshots")
	return out, nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("snapshot %q: %w", id, core.ErrNotFound)
	}
	return nil
}
