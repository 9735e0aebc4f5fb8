package dialogue

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/intent"
	"github.com/sandevgo/kbqa/pkg/log"
)

const maxTurnEntities = 5

// CoordinateFunc routes and coordinates a resolved intent. It returns a nil
// coordination when the direct knowledge base answer should be used instead.
type CoordinateFunc func(ctx context.Context, in core.Intent, conv *core.Conversation) *core.Coordination

type Controller struct {
	store    core.ContextStore
	resolver *intent.Resolver
	kb       core.KnowledgeBase
	cfg      *config.EngineConfig
}

func NewController(store core.ContextStore, resolver *intent.Resolver, kb core.KnowledgeBase, cfg *config.EngineConfig) *Controller {
	return &Controller{
		store:    store,
		resolver: resolver,
		kb:       kb,
		cfg:      cfg,
	}
}

type TurnResult struct {
	ConversationID        string
	Intent                core.Intent
	Answer                string
	Confidence            float64
	RequiresClarification bool
	Clarifications        []core.ClarificationPrompt
	FollowUpSuggestions   []string
	FollowUp              bool
	ContextSwitched       bool
	Entities              []core.Entity

	// Direct is the knowledge base answer for the resolved question. It is
	// nil for clarification turns and when the direct query failed.
	Direct       *core.QueryResult
	Coordination *core.Coordination
	// Before is the conversation as it was when the turn started.
	Before *core.Conversation
}

// HandleTurn resolves text, short-circuits with a clarification when needed,
// otherwise queries the knowledge base and records the turn exactly once.
func (c *Controller) HandleTurn(ctx context.Context, conversationID, text string, coordinate CoordinateFunc) (TurnResult, error) {
	ctx = log.With(ctx, "conversation_id", conversationID)
	logger := log.FromCtx(ctx)

	conv, err := c.store.Get(ctx, conversationID)
	if err != nil {
		return TurnResult{}, err
	}

	res := TurnResult{ConversationID: conversationID, Before: conv}
	res.FollowUp = c.IsFollowUp(text, conv)

	analysis := c.resolver.Analyze(ctx, text, conv)
	in := analysis.Intent
	if res.FollowUp && conv.CurrentIntent != nil {
		if merged, ok := MergeFollowUp(*conv.CurrentIntent, text); ok || !analysis.Classified {
			in = layer(merged, analysis)
		}
	}
	res.Intent = in

	logger.Debug().
		Str("intent", string(in.Type)).
		Str("target", in.Target).
		Float64("confidence", in.Confidence).
		Bool("follow_up", res.FollowUp).
		Msg("turn resolved")

	if in.RequiresClarification {
		res.RequiresClarification = true
		res.Clarifications = in.Clarifications
		res.Confidence = in.Confidence
		res.Answer = clarificationText(in.Clarifications)
		res.FollowUpSuggestions = clarificationSuggestions(in.Clarifications)
		return res, nil
	}

	res.ContextSwitched = IsContextSwitch(in, conv)

	qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	direct, derr := c.kb.Query(qctx, in.ResolvedQuestion)
	cancel()
	if derr != nil {
		logger.Warn().Err(derr).Msg("direct knowledge base query failed")
	} else {
		res.Direct = &direct
	}

	if coordinate != nil {
		res.Coordination = coordinate(ctx, in, conv)
	}

	switch {
	case res.Coordination != nil:
		res.Answer = res.Coordination.MergedText
		res.Confidence = res.Coordination.Confidence
	case res.Direct != nil:
		res.Answer = res.Direct.Answer
		res.Confidence = res.Direct.Confidence
	default:
		return TurnResult{}, fmt.Errorf("%w: %w", core.ErrKnowledgeBase, derr)
	}
	res.Confidence = core.Clamp(res.Confidence)
	res.Entities = turnEntities(in, res.Direct)

	turn := core.Turn{
		Text:         text,
		Intent:       in,
		MergedAnswer: res.Answer,
		Entities:     res.Entities,
	}
	if res.Coordination != nil {
		turn.ResponderAnswers = res.Coordination.Answers()
	}
	if res.ContextSwitched && in.Target == "" && len(res.Entities) > 0 {
		turn.Updates = append(turn.Updates, core.ContextUpdate{Kind: core.UpdateTopic, Topic: res.Entities[0].Name})
	}

	if err := c.store.AddTurn(ctx, conversationID, turn); err != nil {
		return TurnResult{}, err
	}
	return res, nil
}

// layer puts what the resolver found in the new text on top of the
// intent carried forward from the previous turn.
func layer(merged core.Intent, a intent.Resolution) core.Intent {
	out := merged
	if !a.Classified {
		if a.Referent != nil && a.Intent.Target != "" && out.Target == "" {
			out.Target = a.Intent.Target
		}
		return out
	}

	// A different question type starts over from what the resolver found.
	if a.Intent.Type != out.Type {
		out.Type = a.Intent.Type
		out.Target = a.Intent.Target
		out.ResolvedQuestion = a.Intent.ResolvedQuestion
		out.Confidence = a.Intent.Confidence
		out.Filters = maps.Clone(a.Intent.Filters)
		if out.Filters == nil {
			out.Filters = map[string]string{}
		}
		out.RequiresClarification = a.Intent.RequiresClarification
		out.Clarifications = a.Intent.Clarifications
		return out
	}

	for k, v := range a.Intent.Filters {
		if k == core.FilterPage {
			continue
		}
		out.Filters[k] = v
	}
	if a.Intent.Target != "" {
		out.Type = a.Intent.Type
		out.Target = a.Intent.Target
		out.ResolvedQuestion = a.Intent.ResolvedQuestion
		out.Confidence = a.Intent.Confidence
	}
	if out.NeedsTarget() && out.Target == "" {
		out.RequiresClarification = true
		out.Clarifications = a.Intent.Clarifications
	}
	return out
}

func turnEntities(in core.Intent, direct *core.QueryResult) []core.Entity {
	var out []core.Entity
	seen := map[string]bool{}
	add := func(e core.Entity) {
		if e.Name == "" || seen[e.ID] || len(out) >= maxTurnEntities {
			return
		}
		seen[e.ID] = true
		out = append(out, e)
	}

	if in.Target != "" {
		add(core.NewEntity(in.Type.EntityKind(), in.Target))
	}
	if direct != nil {
		for _, item := range direct.Results {
			if item.Name == "" {
				continue
			}
			add(core.NewEntity(ItemKind(item), item.Name))
		}
	}
	return out
}

// ItemKind infers the entity kind of a knowledge base result.
func ItemKind(item core.QueryResultItem) core.EntityKind {
	switch {
	case item.Name != "" && item.Dimension != "":
		return core.EntityResponder
	case item.Name != "" && item.Signature != "":
		return core.EntityFunction
	case item.RequirementLevel != "":
		return core.EntityRule
	case item.Name != "":
		return core.EntityFact
	}
	return core.EntityDocument
}

func clarificationText(prompts []core.ClarificationPrompt) string {
	texts := make([]string, 0, len(prompts))
	for _, p := range prompts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}

func clarificationSuggestions(prompts []core.ClarificationPrompt) []string {
	var out []string
	for _, p := range prompts {
		if len(p.Options) == 0 {
			out = append(out, p.Text)
			continue
		}
		out = append(out, p.Options...)
	}
	return out
}
