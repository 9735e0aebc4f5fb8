package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/kbqa/internal/core"
)

type mockStorage struct {
	mu      sync.Mutex
	config  *Config
	saveErr error
	updates chan Config
}

func newMockStorage(servers map[string]ServerConfig) *mockStorage {
	if servers == nil {
		servers = map[string]ServerConfig{}
	}
	return &mockStorage{config: &Config{Responders: servers}, updates: make(chan Config)}
}

func (m *mockStorage) Load(context.Context) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := &Config{Responders: map[string]ServerConfig{}}
	for k, v := range m.config.Responders {
		cp.Responders[k] = v
	}
	return cp, nil
}

func (m *mockStorage) Save(_ context.Context, cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.config = cfg
	return nil
}

func (m *mockStorage) Watch(context.Context) (<-chan Config, error) {
	return m.updates, nil
}

func nilTransport(context.Context, ServerConfig) (*client.Client, error) {
	return nil, nil
}

func factoryOf(tr Transport, err error) TransportFactory {
	return func(TransportType) (Transport, error) {
		if err != nil {
			return nil, err
		}
		return tr, nil
	}
}

// inProcessTransport serves an "answer" tool from an in-process MCP server.
func inProcessTransport(t *testing.T) Transport {
	t.Helper()
	srv := server.NewMCPServer("test-responder", "1.0.0", server.WithToolCapabilities(false))
	srv.AddTool(
		mcpproto.NewTool(DefaultTool, mcpproto.WithString("question", mcpproto.Required())),
		func(_ context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
			q, err := req.RequireString("question")
			if err != nil {
				return mcpproto.NewToolResultError(err.Error()), nil
			}
			return mcpproto.NewToolResultText("remote: " + q), nil
		},
	)
	return func(ctx context.Context, _ ServerConfig) (*client.Client, error) {
		cli, err := client.NewInProcessClient(srv)
		if err != nil {
			return nil, err
		}
		return start(ctx, cli)
	}
}

func TestServerConfig(t *testing.T) {
	stdio := ServerConfig{Command: "kb-server", Args: []string{"--net"}, Name: "4D-Network-Agent", Dimension: "4d"}
	tt, err := stdio.GetTransport()
	require.NoError(t, err)
	assert.Equal(t, TransportStdio, tt)
	assert.Equal(t, DefaultTool, stdio.ToolName())

	def := stdio.Definition("net")
	assert.Equal(t, "net", def.ID)
	assert.Equal(t, "4D", def.Dimension)
	assert.Equal(t, "mcp:kb-server --net", def.Source)

	remote := ServerConfig{URL: "http://localhost:9000/mcp", Tool: "ask"}
	tt, err = remote.GetTransport()
	require.NoError(t, err)
	assert.Equal(t, TransportHTTP, tt)
	assert.Equal(t, "ask", remote.ToolName())
	assert.Equal(t, "remote", remote.Definition("remote").Name)

	_, err = (&ServerConfig{}).GetTransport()
	assert.Error(t, err)
}

func TestFileStorage_LoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responders.json")
	fs := NewFileStorage(path)

	cfg, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cfg.Responders)
	assert.FileExists(t, path)

	_, err = NewFileStorage("/nonexistent/dir/responders.json").Load(context.Background())
	assert.Error(t, err)
}

func TestFileStorage_NullAndInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responders.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"responders": null}`), 0o644))

	cfg, err := NewFileStorage(path).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cfg.Responders)

	require.NoError(t, os.WriteFile(path, []byte(`{"responders": []}`), 0o644))
	_, err = NewFileStorage(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStorage_SaveAndWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responders.json")
	fs := NewFileStorage(path)
	fs.interval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, fs.Save(ctx, &Config{Responders: map[string]ServerConfig{}}))
	updates, err := fs.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, fs.Save(ctx, &Config{Responders: map[string]ServerConfig{
		"net": {Command: "kb-server", Name: "4D-Network-Agent"},
	}}))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case cfg := <-updates:
		assert.Equal(t, "4D-Network-Agent", cfg.Responders["net"].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	cancel()
	for range updates {
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	st := newMockStorage(map[string]ServerConfig{"net": {Command: "a"}})
	r := NewRegistry(st)
	require.NoError(t, r.Load(ctx))

	_, ok := r.Get("net")
	assert.True(t, ok)

	require.NoError(t, r.Add(ctx, "store", ServerConfig{URL: "http://x"}))
	assert.Len(t, r.List(), 2)

	assert.Error(t, r.Add(ctx, "bad", ServerConfig{}))

	st.saveErr = errors.New("disk full")
	assert.Error(t, r.Add(ctx, "ui", ServerConfig{Command: "b"}))
	assert.Error(t, r.Remove(ctx, "net"))
	assert.Len(t, r.List(), 2)

	st.saveErr = nil
	require.NoError(t, r.Remove(ctx, "net"))
	require.NoError(t, r.Remove(ctx, "missing"))
	assert.Len(t, r.List(), 1)

	list := r.List()
	delete(list, "store")
	assert.Len(t, r.List(), 1)
}

func TestPool(t *testing.T) {
	ctx := context.Background()
	p := NewPoolWithFactory(factoryOf(nilTransport, nil))

	first, err := p.Add(ctx, "net", ServerConfig{Command: "a"})
	require.NoError(t, err)
	second, err := p.Add(ctx, "net", ServerConfig{Command: "b"})
	require.NoError(t, err)

	got, ok := p.Get("net")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Eventually(t, first.IsClosed, time.Second, 10*time.Millisecond)

	_, err = p.Add(ctx, "bad", ServerConfig{})
	assert.Error(t, err)

	failing := NewPoolWithFactory(factoryOf(nil, errors.New("unsupported")))
	_, err = failing.Add(ctx, "net", ServerConfig{Command: "a"})
	assert.Error(t, err)

	require.NoError(t, p.Del("net"))
	assert.True(t, second.IsClosed())
	require.NoError(t, p.Del("net"))

	_, err = p.Add(ctx, "a", ServerConfig{Command: "a"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.Empty(t, p.All())
}

func TestDirectoryCache(t *testing.T) {
	c := NewDirectoryCache()
	_, ok := c.Get()
	assert.False(t, ok)

	in := []core.Responder{&remoteResponder{def: core.ResponderDefinition{ID: "net"}}}
	c.Update(in)
	got, ok := c.Get()
	require.True(t, ok)
	require.Len(t, got, 1)

	got[0] = nil
	again, _ := c.Get()
	assert.NotNil(t, again[0])

	c.Invalidate()
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestService_RemoteAnswer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newMockStorage(map[string]ServerConfig{
		"net": {Command: "kb-server", Name: "4D-Network-Agent", Dimension: "4D"},
	})
	pool := NewPoolWithFactory(factoryOf(inProcessTransport(t), nil))
	svc := NewService(pool, NewRegistry(st), NewDirectoryCache())

	changed := make(chan struct{}, 4)
	svc.OnChange(func(context.Context) { changed <- struct{}{} })

	require.NoError(t, svc.Start(ctx))
	defer func() { _ = svc.Shutdown(context.Background()) }()

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("remote responder never connected")
	}

	rs, err := svc.Responders(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "4D-Network-Agent", rs[0].Definition().Name)

	a, err := rs[0].Answer(ctx, "what do you route?")
	require.NoError(t, err)
	assert.Equal(t, "remote: what do you route?", a.Answer)
	assert.Equal(t, "net", a.ResponderID)

	st.updates <- Config{Responders: map[string]ServerConfig{}}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("removal not announced")
	}

	rs, err = svc.Responders(ctx)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestRemoteResponder_NotConnected(t *testing.T) {
	r := &remoteResponder{def: core.ResponderDefinition{ID: "net", Name: "4D-Network-Agent"}, tool: DefaultTool, pool: NewPool()}
	_, err := r.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, core.ErrResponderFailed)

	p := NewPoolWithFactory(factoryOf(nilTransport, nil))
	_, err = p.Add(context.Background(), "net", ServerConfig{Command: "a"})
	require.NoError(t, err)
	r.pool = p
	_, err = r.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, ErrClientClosed)
}
