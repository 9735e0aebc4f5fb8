package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	convs  map[string]*core.Conversation
	askErr error
	seq    int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{convs: map[string]*core.Conversation{}}
}

func (f *fakeEngine) lookup(id string) (*core.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, fmt.Errorf("conversation %q: %w", id, core.ErrNotFound)
	}
	return conv, nil
}

func (f *fakeEngine) AskIn(ctx context.Context, id, text string) (core.FormattedResponse, error) {
	if f.askErr != nil {
		return core.FormattedResponse{}, f.askErr
	}
	if text == "" {
		return core.FormattedResponse{}, fmt.Errorf("%w: question is required", core.ErrValidation)
	}
	if id == "" {
		id = f.StartConversation(ctx, "").ID
	}
	conv, err := f.lookup(id)
	if err != nil {
		return core.FormattedResponse{}, err
	}
	conv.Turns = append(conv.Turns, core.Turn{Text: text, MergedAnswer: "answer"})
	return core.FormattedResponse{
		Answer:              "answer",
		Citations:           []core.Citation{},
		FollowUpSuggestions: []string{},
		RelatedEntities:     []core.Entity{},
		Confidence:          0.8,
		ConversationID:      id,
	}, nil
}

func (f *fakeEngine) StartConversation(ctx context.Context, ownerID string) *core.Conversation {
	f.seq++
	conv := core.NewConversation(fmt.Sprintf("conv-%d", f.seq), ownerID, time.Now())
	f.convs[conv.ID] = conv
	return conv
}

func (f *fakeEngine) HistoryOf(ctx context.Context, id string, limit int) ([]core.Turn, error) {
	conv, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

func (f *fakeEngine) Clear(ctx context.Context, id string) error {
	conv, err := f.lookup(id)
	if err != nil {
		return err
	}
	conv.Turns = []core.Turn{}
	return nil
}

func (f *fakeEngine) Delete(ctx context.Context, id string) error {
	if _, err := f.lookup(id); err != nil {
		return err
	}
	delete(f.convs, id)
	return nil
}

func (f *fakeEngine) Export(ctx context.Context, id string) (core.Snapshot, error) {
	conv, err := f.lookup(id)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Version: core.SnapshotVersion, Conversation: conv}, nil
}

func (f *fakeEngine) Import(ctx context.Context, snap core.Snapshot) (*core.Conversation, error) {
	if snap.Conversation == nil {
		return nil, fmt.Errorf("missing conversation: %w", core.ErrSnapshot)
	}
	f.convs[snap.Conversation.ID] = snap.Conversation
	return snap.Conversation, nil
}

func (f *fakeEngine) Health(ctx context.Context) orchestrator.Health {
	return orchestrator.Health{
		Status: "ok",
		KnowledgeBase: orchestrator.KnowledgeHealth{
			Facts:               3,
			Rules:               2,
			Responders:          4,
			Functions:           1,
			ActiveConversations: len(f.convs),
		},
		Timestamp: time.Now().UTC(),
	}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID string          `json:"requestId"`
	Timestamp time.Time       `json:"timestamp"`
}

func newTestServer(t *testing.T, engine Engine) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.HTTPConfig{RequestTimeout: time.Second, ShutdownTimeout: time.Second, EnableMetrics: true}
	return NewServer(context.Background(), cfg, engine).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestAsk(t *testing.T) {
	h := newTestServer(t, newFakeEngine())

	rec, env := do(t, h, http.MethodPost, "/ask", `{"question":"List all responders"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.False(t, env.Timestamp.IsZero())

	var resp core.FormattedResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "answer", resp.Answer)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.NotNil(t, resp.Citations)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	for _, key := range []string{"answer", "citations", "followUpSuggestions", "relatedEntities", "confidence", "conversationId"} {
		assert.Contains(t, raw, key)
	}
}

func TestAsk_Validation(t *testing.T) {
	h := newTestServer(t, newFakeEngine())

	tests := []struct {
		name string
		body string
	}{
		{name: "missing question", body: `{"conversationId":"x"}`},
		{name: "non-string question", body: `{"question":42}`},
		{name: "empty question", body: `{"question":""}`},
		{name: "malformed json", body: `{"question":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/ask", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestAsk_Errors(t *testing.T) {
	engine := newFakeEngine()
	h := newTestServer(t, engine)

	rec, env := do(t, h, http.MethodPost, "/ask", `{"question":"hi","conversationId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	engine.askErr = fmt.Errorf("%w: disk on fire", core.ErrKnowledgeBase)
	rec, env = do(t, h, http.MethodPost, "/ask", `{"question":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, internalErrorMessage, env.Error)
	assert.NotEmpty(t, env.RequestID)
}

func TestConversationLifecycle(t *testing.T) {
	h := newTestServer(t, newFakeEngine())

	rec, env := do(t, h, http.MethodPost, "/conversation", `{"userId":"u-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created conversationResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "conv-1", created.ConversationID)
	assert.Equal(t, "u-1", created.UserID)

	_, _ = do(t, h, http.MethodPost, "/ask", `{"question":"What is 4D?","conversationId":"conv-1"}`)

	rec, env = do(t, h, http.MethodGet, "/history/conv-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var turns []core.Turn
	require.NoError(t, json.Unmarshal(env.Data, &turns))
	require.Len(t, turns, 1)
	assert.Equal(t, "What is 4D?", turns[0].Text)

	rec, env = do(t, h, http.MethodPost, "/conversation/conv-1/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msg messageResponse
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Contains(t, msg.Message, "cleared")

	rec, _ = do(t, h, http.MethodDelete, "/conversation/conv-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/history/conv-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	rec, _ = do(t, h, http.MethodDelete, "/conversation/conv-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateConversation_EmptyBody(t *testing.T) {
	h := newTestServer(t, newFakeEngine())

	rec, env := do(t, h, http.MethodPost, "/conversation", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.Equal(t, "conv-1", raw["conversationId"])
	assert.NotContains(t, raw, "userId")
}

func TestHistory_BadLimit(t *testing.T) {
	h := newTestServer(t, newFakeEngine())
	rec, _ := do(t, h, http.MethodGet, "/history/conv-1?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportImport(t *testing.T) {
	engine := newFakeEngine()
	h := newTestServer(t, engine)
	_, _ = do(t, h, http.MethodPost, "/ask", `{"question":"hello"}`)

	rec, env := do(t, h, http.MethodGet, "/conversation/conv-1/export", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap core.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.NotNil(t, snap.Conversation)

	snap.Conversation.ID = "restored"
	body, err := json.Marshal(snap)
	require.NoError(t, err)

	rec, env = do(t, h, http.MethodPost, "/conversation/import", string(body))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created conversationResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "restored", created.ConversationID)
	assert.Len(t, engine.convs["restored"].Turns, 1)

	rec, _ = do(t, h, http.MethodPost, "/conversation/import", `{"version":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, newFakeEngine())

	rec, env := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health orchestrator.Health
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.KnowledgeBase.Facts)
	assert.Equal(t, 4, health.KnowledgeBase.Responders)
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, newFakeEngine())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec, _ = do(t, h, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestNoRouteAndMetrics(t *testing.T) {
	h := newTestServer(t, newFakeEngine())

	rec, env := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	_, _ = do(t, h, http.MethodGet, "/health", "")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kbqa_http_requests_total")
}

func TestFail_Mapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("x: %w", core.ErrValidation), want: http.StatusBadRequest},
		{err: fmt.Errorf("x: %w", core.ErrSnapshot), want: http.StatusBadRequest},
		{err: fmt.Errorf("x: %w", core.ErrNotFound), want: http.StatusNotFound},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		fail(c, tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}
