package kb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
)

const sampleKB = `responders:
  - name: 4D-Network-Agent
    dimension: 4d
    purpose: Routes packets between dimensions
    capabilities: [routing, packet inspection]
    dependencies: [4D-Storage-Agent]
    function_capable: true
  - name: 4D-Storage-Agent
    dimension: 4D
    purpose: Persists state
    capabilities: [persistence]
  - name: 3D-Render-Agent
    dimension: 3D
    purpose: Draws scenes
functions:
  - name: net.Dial
    signature: net.Dial(addr string) Conn
    description: Opens a connection to a peer
    responder: 4D-Network-Agent
rules:
  - id: R1
    level: must
    content: Every packet must carry a routing header
    responder: 4D-Network-Agent
facts:
  - name: Latency
    content: Routing latency stays below ten milliseconds
documents:
  - title: Agents overview
    content: The system is made of agents grouped by dimension.
`

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	f, err := Decode([]byte(sampleKB), "knowledge.yaml")
	require.NoError(t, err)
	p, err := NewFromFile(f, config.DefaultEngineConfig())
	require.NoError(t, err)
	return p
}

func TestDecode(t *testing.T) {
	f, err := Decode([]byte(sampleKB), "knowledge.yaml")
	require.NoError(t, err)

	require.Len(t, f.Responders, 3)
	net := f.Responders[0]
	assert.Equal(t, "4d-network-agent", net.ID)
	assert.Equal(t, "4D", net.Dimension)
	assert.Equal(t, "knowledge.yaml", net.Source)
	assert.Equal(t, 2, net.Line)
	assert.True(t, net.FunctionCapable)

	require.Len(t, f.Rules, 1)
	assert.Equal(t, "MUST", f.Rules[0].Level)
	assert.Greater(t, f.Rules[0].Line, net.Line)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("widgets: []"), "kb.yaml")
	assert.ErrorIs(t, err, core.ErrKnowledgeBase)

	_, err = Decode([]byte("facts: {a: b}"), "kb.yaml")
	assert.ErrorIs(t, err, core.ErrKnowledgeBase)

	_, err = Decode([]byte("- just\n- a list"), "kb.yaml")
	assert.ErrorIs(t, err, core.ErrKnowledgeBase)

	f, err := Decode(nil, "kb.yaml")
	require.NoError(t, err)
	assert.Empty(t, f.Facts)
}

func TestQuery(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	res, err := p.Query(ctx, "What agents are available?")
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.Greater(t, res.Confidence, 0.5)

	var kinds []string
	for _, it := range res.Results {
		switch {
		case it.Dimension != "":
			kinds = append(kinds, "responder")
		case it.Name == "" && it.RequirementLevel == "":
			kinds = append(kinds, "document")
		}
	}
	assert.Contains(t, kinds, "responder")
	assert.Contains(t, kinds, "document")
}

func TestQuery_NameMatchRanksFirst(t *testing.T) {
	p := newTestProvider(t)

	res, err := p.Query(context.Background(), "Tell me about 4D-Storage-Agent")
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "4D-Storage-Agent", res.Results[0].Name)
	assert.Contains(t, res.Answer, "**4D-Storage-Agent** (4D)")
}

func TestQuery_NothingFound(t *testing.T) {
	p := newTestProvider(t)

	res, err := p.Query(context.Background(), "zebra quantum banana")
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, nothingFound, res.Answer)
	assert.Equal(t, 0.1, res.Confidence)
}

func TestQuery_Cached(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	first, err := p.Query(ctx, "routing latency")
	require.NoError(t, err)
	assert.Equal(t, 1, p.cache.Len())

	second, err := p.Query(ctx, "  Routing   LATENCY ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.cache.Len())
}

func TestQuery_Cancelled(t *testing.T) {
	p := newTestProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Query(ctx, "routing")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListResponders(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	all, err := p.ListResponders(ctx, core.ResponderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	dim, err := p.ListResponders(ctx, core.ResponderFilter{Dimension: "4d"})
	require.NoError(t, err)
	assert.Len(t, dim, 2)

	named, err := p.ListResponders(ctx, core.ResponderFilter{Dimension: "4D", Name: "storage"})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "4D-Storage-Agent", named[0].Name)
}

func TestStatsAndFunctions(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	assert.Equal(t, core.KBStats{Facts: 1, Rules: 1, Responders: 3, Functions: 1, Documents: 1}, p.Stats(ctx))
	assert.Equal(t, []string{"net.Dial"}, p.FunctionNames(ctx))
}

func TestResponders(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	rs, err := p.Responders(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 4)
	assert.Equal(t, core.DefaultResponderID, rs[0].Definition().ID)

	a, err := rs[1].Answer(ctx, "Which rules apply to routing?")
	require.NoError(t, err)
	assert.Equal(t, "4D-Network-Agent", a.ResponderName)
	assert.Contains(t, a.Answer, "Routes packets between dimensions")
	assert.Contains(t, a.Answer, "**MUST**")

	def, err := rs[0].Answer(ctx, "routing latency")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultResponderName, def.ResponderName)
	assert.Contains(t, def.Answer, "Latency")
}

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Guide</h1><p>Remote routing guide</p></body></html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("Local storage notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte("<p>Rendered <b>page</b></p>"), 0o644))
	kb := sampleKB + `  - title: Notes
    path: notes.md
  - title: Page
    path: page.html
  - title: Remote
    url: ` + srv.URL + "\n"
	path := filepath.Join(dir, "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(kb), 0o644))

	p, err := New(path, config.DefaultEngineConfig())
	require.NoError(t, err)

	reloaded := 0
	p.OnReload(func(context.Context) { reloaded++ })
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, 1, reloaded)

	base, _ := p.current()
	require.Len(t, base.file.Documents, 4)
	assert.Equal(t, "Local storage notes", base.file.Documents[1].Content)
	assert.Equal(t, "Rendered page", base.file.Documents[2].Content)
	assert.Contains(t, base.file.Documents[3].Content, "Remote routing guide")
}

func TestLoad_MissingFile(t *testing.T) {
	p, err := New(filepath.Join(t.TempDir(), "missing.yaml"), config.DefaultEngineConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, p.Load(context.Background()), core.ErrKnowledgeBase)
}

func TestWatcher_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleKB), 0o644))

	p, err := New(path, config.DefaultEngineConfig())
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWatcher(p)
	w.debounce = 10 * time.Millisecond
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Shutdown(context.Background()) }()

	updated := strings.Replace(sampleKB, "facts:\n", "facts:\n  - name: Jitter\n    content: Jitter is measured hourly\n", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		return p.Stats(context.Background()).Facts == 2
	}, 2*time.Second, 20*time.Millisecond)
}
