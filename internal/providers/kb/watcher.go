package kb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sandevgo/kbqa/pkg/log"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the provider when its file changes. The parent directory
// is watched so editors that replace the file are picked up too.
type Watcher struct {
	provider *Provider
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewWatcher(p *Provider) *Watcher {
	return &Watcher{provider: p, debounce: reloadDebounce}
}

func (w *Watcher) Start(ctx context.Context) error {
	path := w.provider.Path()
	if path == "" {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	w.mu.Lock()
	w.watcher = fw
	w.wg.Add(1)
	w.mu.Unlock()

	go w.loop(ctx, fw, filepath.Clean(path))

	log.FromCtx(ctx).Info().Str("path", path).Msg("watching knowledge base")
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, path string) {
	defer w.wg.Done()
	logger := log.FromCtx(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("knowledge base watcher error")
		case <-timer.C:
			if err := w.provider.Load(ctx); err != nil {
				logger.Error().Err(err).Msg("knowledge base reload failed, keeping previous version")
			}
		}
	}
}

func (w *Watcher) Shutdown(context.Context) error {
	w.mu.Lock()
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()
	if fw == nil {
		return nil
	}
	err := fw.Close()
	w.wg.Wait()
	return err
}
