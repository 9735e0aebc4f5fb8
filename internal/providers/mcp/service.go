package mcp

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
)

type Timeouts struct {
	Connect time.Duration
}

func NewDefaultTimeouts() *Timeouts {
	return &Timeouts{
		Connect: 30 * time.Second,
	}
}

var _ core.ResponderSource = (*Service)(nil)

// Service keeps remote responders connected according to the registry and
// exposes them as a responder source.
type Service struct {
	registry *Registry
	pool     ConnectionPool
	cache    *DirectoryCache
	timeouts *Timeouts

	mu       sync.Mutex
	active   map[string]ServerConfig
	onChange []func(context.Context)
}

func NewService(pool ConnectionPool, registry *Registry, cache *DirectoryCache) *Service {
	return &Service{
		pool:     pool,
		registry: registry,
		cache:    cache,
		timeouts: NewDefaultTimeouts(),
		active:   make(map[string]ServerConfig),
	}
}

// OnChange registers fn to run whenever the set of connected responders changes.
func (s *Service) OnChange(fn func(context.Context)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) error {
	if err := s.registry.Load(ctx); err != nil {
		return err
	}

	servers := s.registry.List()
	s.mu.Lock()
	for id, cfg := range servers {
		s.active[id] = cfg
	}
	s.mu.Unlock()

	for id, cfg := range servers {
		go s.connect(ctx, id, cfg)
	}

	updates, err := s.registry.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch registry: %w", err)
	}
	go s.watchConfig(ctx, updates)
	return nil
}

func (s *Service) connect(ctx context.Context, id string, cfg ServerConfig) {
	connectCtx, cancel := context.WithTimeout(ctx, s.timeouts.Connect)
	defer cancel()

	logger := log.FromCtx(ctx).With().Str("responder", id).Logger()
	logger.Info().
		Str("url", cfg.URL).
		Str("command", cfg.Command).
		Msg("connecting remote responder")

	if _, err := s.pool.Add(connectCtx, id, cfg); err != nil {
		logger.Error().Err(err).Msg("failed to connect remote responder")
		return
	}

	logger.Info().Msg("remote responder connected")
	s.changed(ctx)
}

func (s *Service) changed(ctx context.Context) {
	s.cache.Invalidate()

	s.mu.Lock()
	subscribers := slices.Clone(s.onChange)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(ctx)
	}
}

func (s *Service) watchConfig(ctx context.Context, updates <-chan Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			s.syncServers(ctx, cfg.Responders)
		}
	}
}

func (s *Service) syncServers(ctx context.Context, desired map[string]ServerConfig) {
	logger := log.FromCtx(ctx)

	var connect []string
	removed := false

	s.mu.Lock()
	for id, current := range s.active {
		next, exists := desired[id]
		if !exists {
			logger.Info().Str("responder", id).Msg("removing remote responder")
			if err := s.pool.Del(id); err != nil {
				logger.Warn().Err(err).Str("responder", id).Msg("failed to close remote responder")
			}
			delete(s.active, id)
			removed = true
			continue
		}
		if !reflect.DeepEqual(current, next) {
			logger.Info().Str("responder", id).Msg("reconnecting remote responder")
			s.active[id] = next
			connect = append(connect, id)
		}
	}
	for id, next := range desired {
		if _, exists := s.active[id]; !exists {
			logger.Info().Str("responder", id).Msg("adding remote responder")
			s.active[id] = next
			connect = append(connect, id)
		}
	}
	s.mu.Unlock()

	for _, id := range connect {
		s.connect(ctx, id, desired[id])
	}
	if removed {
		s.changed(ctx)
	}
}

func (s *Service) Shutdown(context.Context) error {
	return s.pool.Close()
}

// Responders lists the registered responders that currently have a live client.
func (s *Service) Responders(context.Context) ([]core.Responder, error) {
	if cached, ok := s.cache.Get(); ok {
		return cached, nil
	}

	clients := s.pool.All()
	servers := s.registry.List()

	ids := make([]string, 0, len(servers))
	for id := range servers {
		if cli, ok := clients[id]; ok && !cli.IsClosed() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	out := make([]core.Responder, 0, len(ids))
	for _, id := range ids {
		cfg := servers[id]
		out = append(out, &remoteResponder{
			def:  cfg.Definition(id),
			tool: cfg.ToolName(),
			pool: s.pool,
		})
	}
	s.cache.Update(out)
	return out, nil
}

type remoteResponder struct {
	def  core.ResponderDefinition
	tool string
	pool ConnectionPool
}

func (r *remoteResponder) Definition() core.ResponderDefinition {
	return r.def
}

func (r *remoteResponder) Answer(ctx context.Context, question string) (core.ResponderAnswer, error) {
	cli, ok := r.pool.Get(r.def.ID)
	if !ok {
		return core.ResponderAnswer{}, fmt.Errorf("%w: %s is not connected", core.ErrResponderFailed, r.def.Name)
	}

	text, err := cli.Ask(ctx, r.tool, question)
	if err != nil {
		return core.ResponderAnswer{}, fmt.Errorf("%w: %s: %w", core.ErrResponderFailed, r.def.Name, err)
	}

	return core.ResponderAnswer{
		ResponderID:   r.def.ID,
		ResponderName: r.def.Name,
		Source:        r.def.Source,
		Answer:        text,
	}, nil
}
