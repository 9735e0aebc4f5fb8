package mcp

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

type Storage interface {
	Load(ctx context.Context) (*Config, error)
	Save(ctx context.Context, cfg *Config) error
	Watch(ctx context.Context) (<-chan Config, error)
}

// Registry is the in-memory view of responders.json. Writes go to storage
// first and only replace the view once they succeed.
type Registry struct {
	storage Storage
	mu      sync.RWMutex
	servers map[string]ServerConfig
}

func NewRegistry(storage Storage) *Registry {
	return &Registry{
		storage: storage,
		servers: make(map[string]ServerConfig),
	}
}

func (r *Registry) Load(ctx context.Context) error {
	cfg, err := r.storage.Load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.servers = cfg.Responders
	r.mu.Unlock()
	return nil
}

func (r *Registry) Add(ctx context.Context, id string, cfg ServerConfig) error {
	if _, err := cfg.GetTransport(); err != nil {
		return fmt.Errorf("responder %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.servers)
	if next == nil {
		next = make(map[string]ServerConfig, 1)
	}
	next[id] = cfg

	if err := r.storage.Save(ctx, &Config{Responders: next}); err != nil {
		return err
	}
	r.servers = next
	return nil
}

func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[id]; !ok {
		return nil
	}
	next := maps.Clone(r.servers)
	delete(next, id)

	if err := r.storage.Save(ctx, &Config{Responders: next}); err != nil {
		return err
	}
	r.servers = next
	return nil
}

func (r *Registry) Get(id string) (ServerConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.servers[id]
	return cfg, ok
}

func (r *Registry) List() map[string]ServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.servers)
}

// Watch forwards storage updates after applying them to the registry.
func (r *Registry) Watch(ctx context.Context) (<-chan Config, error) {
	ch, err := r.storage.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Config)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-ch:
				if !ok {
					return
				}

				r.mu.Lock()
				r.servers = cfg.Responders
				if r.servers == nil {
					r.servers = make(map[string]ServerConfig)
				}
				r.mu.Unlock()

				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
