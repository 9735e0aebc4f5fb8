package kb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/metrics"
	"github.com/sandevgo/kbqa/pkg/log"
)

const defaultCacheSize = 256

type Option func(*Provider)

func WithCacheSize(n int) Option {
	return func(p *Provider) { p.cacheSize = n }
}

func WithFetcher(f *Fetcher) Option {
	return func(p *Provider) { p.fetcher = f }
}

// Provider serves a YAML knowledge file. Reloads swap the whole base at
// once and purge the query cache.
type Provider struct {
	path      string
	cfg       *config.EngineConfig
	fetcher   *Fetcher
	cacheSize int

	mu       sync.RWMutex
	base     *Base
	cache    *lru.Cache
	onReload []func(context.Context)
}

func New(path string, cfg *config.EngineConfig, opts ...Option) (*Provider, error) {
	p := &Provider{
		path:      path,
		cfg:       cfg,
		cacheSize: defaultCacheSize,
		base:      NewBase(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = NewFetcher(0, nil)
	}

	cache, err := lru.New(p.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	p.cache = cache
	return p, nil
}

// NewFromFile serves an already decoded file. Load is a no-op without a path.
func NewFromFile(f *File, cfg *config.EngineConfig) (*Provider, error) {
	p, err := New("", cfg)
	if err != nil {
		return nil, err
	}
	p.base = NewBase(f)
	return p, nil
}

func (p *Provider) Path() string {
	return p.path
}

// Load reads the knowledge file and notifies reload subscribers.
func (p *Provider) Load(ctx context.Context) error {
	if p.path == "" {
		return nil
	}
	f, err := LoadFile(ctx, p.path, p.fetcher)
	if err != nil {
		return err
	}

	base := NewBase(f)
	p.mu.Lock()
	p.base = base
	p.cache.Purge()
	subscribers := append([]func(context.Context){}, p.onReload...)
	p.mu.Unlock()

	st := base.Stats()
	log.FromCtx(ctx).Info().
		Str("path", p.path).
		Int("facts", st.Facts).
		Int("rules", st.Rules).
		Int("responders", st.Responders).
		Int("functions", st.Functions).
		Int("documents", st.Documents).
		Msg("knowledge base loaded")

	for _, fn := range subscribers {
		fn(ctx)
	}
	return nil
}

// OnReload registers fn to run after every successful Load.
func (p *Provider) OnReload(fn func(context.Context)) {
	p.mu.Lock()
	p.onReload = append(p.onReload, fn)
	p.mu.Unlock()
}

func (p *Provider) current() (*Base, *lru.Cache) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.base, p.cache
}

func (p *Provider) Query(ctx context.Context, text string) (core.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return core.QueryResult{}, err
	}
	start := time.Now()
	defer func() { metrics.RecordKnowledgeQuery(time.Since(start).Seconds()) }()

	base, cache := p.current()
	key := normalize(text)
	if v, ok := cache.Get(key); ok {
		metrics.RecordCacheHit("query")
		return v.(core.QueryResult), nil
	}
	metrics.RecordCacheMiss("query")

	res := base.Query(text, p.cfg.ResultLimit)
	cache.Add(key, res)
	return res, nil
}

func (p *Provider) ListResponders(ctx context.Context, filter core.ResponderFilter) ([]core.ResponderDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, _ := p.current()

	dim := strings.ToUpper(filter.Dimension)
	name := strings.ToLower(filter.Name)
	out := []core.ResponderDefinition{}
	for _, r := range base.file.Responders {
		if dim != "" && r.Dimension != dim {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(r.Name), name) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Provider) Stats(context.Context) core.KBStats {
	base, _ := p.current()
	return base.Stats()
}

func (p *Provider) FunctionNames(context.Context) []string {
	base, _ := p.current()
	names := make([]string, 0, len(base.file.Functions))
	for _, fn := range base.file.Functions {
		names = append(names, fn.Name)
	}
	return names
}

// Responders returns one responder per definition plus the default
// responder answering from the whole base.
func (p *Provider) Responders(context.Context) ([]core.Responder, error) {
	base, _ := p.current()
	out := make([]core.Responder, 0, len(base.file.Responders)+1)
	out = append(out, &defaultResponder{provider: p})
	for _, def := range base.file.Responders {
		out = append(out, &localResponder{def: def, base: base, limit: p.cfg.ResultLimit})
	}
	return out, nil
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
