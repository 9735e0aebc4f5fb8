package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
)

const defaultFlushTimeout = 30 * time.Second

// Archiver restores persisted snapshots into the store on start and writes
// every conversation back periodically and on shutdown.
type Archiver struct {
	store    core.ContextStore
	repo     core.SnapshotRepository
	Interval time.Duration
}

func NewArchiver(store core.ContextStore, repo core.SnapshotRepository, interval time.Duration) *Archiver {
	return &Archiver{
		store:    store,
		repo:     repo,
		Interval: interval,
	}
}

func (a *Archiver) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	n, err := a.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshots: %w", err)
	}
	logger.Info().Int("conversations", n).Msg("snapshots restored")

	if a.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := a.Flush(ctx); err != nil {
				logger.Error().Err(err).Msg("snapshot flush failed")
			}
		}
	}
}

// Shutdown flushes with a fresh deadline since ctx is already cancelled.
func (a *Archiver) Shutdown(ctx context.Context) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFlushTimeout)
	defer cancel()

	n, err := a.Flush(flushCtx)
	log.FromCtx(ctx).Info().Int("conversations", n).Msg("snapshots saved")
	return err
}

func (a *Archiver) Restore(ctx context.Context) (int, error) {
	infos, err := a.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, info := range infos {
		snap, err := a.repo.Load(ctx, info.ID)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("conversation_id", info.ID).Msg("skipping snapshot")
			continue
		}
		if _, err := a.store.Import(ctx, snap); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("conversation_id", info.ID).Msg("skipping snapshot")
			continue
		}
		restored++
	}
	return restored, nil
}

// Flush saves every live conversation and removes snapshots of deleted ones.
func (a *Archiver) Flush(ctx context.Context) (int, error) {
	ids := a.store.IDs()
	live := make(map[string]struct{}, len(ids))

	var errs []error
	saved := 0
	for _, id := range ids {
		live[id] = struct{}{}
		snap, err := a.store.Export(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := a.repo.Save(ctx, snap); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}

	infos, err := a.repo.List(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, info := range infos {
		if _, ok := live[info.ID]; ok {
			continue
		}
		if err := a.repo.Delete(ctx, info.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			errs = append(errs, err)
		}
	}

	return saved, errors.Join(errs...)
}
