package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/metrics"
	"github.com/sandevgo/kbqa/internal/service/dialogue"
	"github.com/sandevgo/kbqa/internal/service/synth"
	"github.com/sandevgo/kbqa/pkg/log"
)

// Router routes an intent and coordinates the chosen responders.
type Router interface {
	Route(ctx context.Context, in core.Intent, conversationID string) []core.ResponderRoute
	Coordinate(ctx context.Context, routes []core.ResponderRoute, in core.Intent, conversationID string) (*core.Coordination, error)
}

type Orchestrator struct {
	store      core.ContextStore
	controller *dialogue.Controller
	router     Router
	synth      *synth.Synthesizer
	kb         core.KnowledgeBase
	cfg        *config.EngineConfig

	mu     sync.RWMutex
	active string
}

func New(
	store core.ContextStore,
	controller *dialogue.Controller,
	router Router,
	synthesizer *synth.Synthesizer,
	kb core.KnowledgeBase,
	cfg *config.EngineConfig,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		controller: controller,
		router:     router,
		synth:      synthesizer,
		kb:         kb,
		cfg:        cfg,
	}
}

// Ask answers text in the active conversation, starting one if needed.
func (o *Orchestrator) Ask(ctx context.Context, text string) (core.FormattedResponse, error) {
	id := o.Active()
	if id == "" {
		id = o.NewConversation(ctx, "").ID
	}
	return o.AskIn(ctx, id, text)
}

// AskIn answers text in the given conversation. An empty id starts a new
// conversation.
func (o *Orchestrator) AskIn(ctx context.Context, conversationID, text string) (core.FormattedResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.FormattedResponse{}, fmt.Errorf("%w: question is required", core.ErrValidation)
	}
	if conversationID == "" {
		conversationID = o.StartConversation(ctx, "").ID
	}

	start := time.Now()
	res, err := o.controller.HandleTurn(ctx, conversationID, text, o.coordinate)
	if err != nil {
		metrics.RecordQuestion(string(core.IntentUnknown), "error", time.Since(start).Seconds())
		return core.FormattedResponse{}, err
	}

	if res.RequiresClarification {
		metrics.RecordQuestion(string(res.Intent.Type), "clarification", time.Since(start).Seconds())
		return o.synth.Clarify(conversationID, res.Intent, res.Answer, res.FollowUpSuggestions), nil
	}

	outcome := "direct"
	if res.Coordination != nil {
		outcome = "coordinated"
	}
	metrics.RecordQuestion(string(res.Intent.Type), outcome, time.Since(start).Seconds())

	conv, err := o.store.Get(ctx, conversationID)
	if err != nil {
		conv = res.Before
	}
	return o.synth.Synthesize(synth.Input{
		ConversationID: conversationID,
		Intent:         res.Intent,
		Answer:         res.Answer,
		Confidence:     res.Confidence,
		Direct:         res.Direct,
		Coordination:   res.Coordination,
		Entities:       res.Entities,
		Conversation:   conv,
	}), nil
}

// coordinate returns nil whenever the direct answer should win: routing
// failed, merged confidence is below the fallback threshold, or only the
// default responder took part.
func (o *Orchestrator) coordinate(ctx context.Context, in core.Intent, conv *core.Conversation) *core.Coordination {
	logger := log.FromCtx(ctx)

	routes := o.router.Route(ctx, in, conv.ID)
	coord, err := o.router.Coordinate(ctx, routes, in, conv.ID)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("coordination failed, using direct answer")
		return nil
	case coord.Confidence < o.cfg.FallbackThreshold:
		logger.Debug().Float64("confidence", coord.Confidence).Msg("coordination below threshold, using direct answer")
		return nil
	case coord.OnlyDefault():
		return nil
	}
	return coord
}

func (o *Orchestrator) NewConversation(ctx context.Context, ownerID string) *core.Conversation {
	conv := o.StartConversation(ctx, ownerID)
	o.setActive(conv.ID)
	return conv
}

// StartConversation creates a conversation without making it the active one.
func (o *Orchestrator) StartConversation(ctx context.Context, ownerID string) *core.Conversation {
	conv := o.store.Create(ctx, ownerID)
	metrics.SetActiveConversations(o.store.Count())
	log.FromCtx(ctx).Debug().Str("conversation_id", conv.ID).Msg("conversation created")
	return conv
}

func (o *Orchestrator) SwitchConversation(ctx context.Context, id string) error {
	if _, err := o.store.Get(ctx, id); err != nil {
		return err
	}
	o.setActive(id)
	return nil
}

func (o *Orchestrator) Active() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.active
}

func (o *Orchestrator) setActive(id string) {
	o.mu.Lock()
	o.active = id
	o.mu.Unlock()
}

func (o *Orchestrator) Conversation(ctx context.Context, id string) (*core.Conversation, error) {
	return o.store.Get(ctx, id)
}

// History returns the turns of the active conversation.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]core.Turn, error) {
	return o.HistoryOf(ctx, o.Active(), limit)
}

func (o *Orchestrator) HistoryOf(ctx context.Context, id string, limit int) ([]core.Turn, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: no active conversation", core.ErrNotFound)
	}
	return o.store.History(ctx, id, limit)
}

// ClearHistory empties the active conversation.
func (o *Orchestrator) ClearHistory(ctx context.Context) error {
	return o.Clear(ctx, o.Active())
}

func (o *Orchestrator) Clear(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: no active conversation", core.ErrNotFound)
	}
	return o.store.Clear(ctx, id)
}

func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	o.mu.Lock()
	if o.active == id {
		o.active = ""
	}
	o.mu.Unlock()
	metrics.SetActiveConversations(o.store.Count())
	return nil
}

func (o *Orchestrator) Export(ctx context.Context, id string) (core.Snapshot, error) {
	return o.store.Export(ctx, id)
}

func (o *Orchestrator) Import(ctx context.Context, snap core.Snapshot) (*core.Conversation, error) {
	conv, err := o.store.Import(ctx, snap)
	if err != nil {
		return nil, err
	}
	metrics.SetActiveConversations(o.store.Count())
	return conv, nil
}

type KnowledgeHealth struct {
	Facts               int `json:"facts"`
	Rules               int `json:"rules"`
	Responders          int `json:"responders"`
	Functions           int `json:"functions"`
	Documents           int `json:"documents"`
	ActiveConversations int `json:"activeConversations"`
}

type Health struct {
	Status        string          `json:"status"`
	KnowledgeBase KnowledgeHealth `json:"knowledgeBase"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (o *Orchestrator) Health(ctx context.Context) Health {
	st := o.kb.Stats(ctx)
	return Health{
		Status: "ok",
		KnowledgeBase: KnowledgeHealth{
			Facts:               st.Facts,
			Rules:               st.Rules,
			Responders:          st.Responders,
			Functions:           st.Functions,
			Documents:           st.Documents,
			ActiveConversations: o.store.Count(),
		},
		Timestamp: time.Now().UTC(),
	}
}
