package router

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
)

const (
	confidenceExact     = 0.9
	confidenceDimension = 0.8
	confidenceCapable   = 0.7
	confidenceFallback  = 0.6
	confidenceGeneric   = 0.5
	confidenceDefault   = 0.8
)

var (
	dimPrefixRe = regexp.MustCompile(`^(\d+[Dd])-(.+)$`)
	wordRe      = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_-]{3,}`)
)

// FunctionCatalog is implemented by sources that also know function names.
type FunctionCatalog interface {
	FunctionNames(ctx context.Context) []string
}

type Router struct {
	cfg     *config.EngineConfig
	sources []core.ResponderSource
	index   atomic.Pointer[Index]
}

func New(cfg *config.EngineConfig, sources ...core.ResponderSource) *Router {
	r := &Router{cfg: cfg, sources: sources}
	r.index.Store(NewIndex(nil, nil))
	return r
}

// Reindex rebuilds the lookup tables from every source.
func (r *Router) Reindex(ctx context.Context) error {
	var (
		responders []core.Responder
		functions  []string
	)
	for _, src := range r.sources {
		rs, err := src.Responders(ctx)
		if err != nil {
			return fmt.Errorf("list responders: %w", err)
		}
		responders = append(responders, rs...)
		if fc, ok := src.(FunctionCatalog); ok {
			functions = append(functions, fc.FunctionNames(ctx)...)
		}
	}

	idx := NewIndex(responders, functions)
	r.index.Store(idx)
	log.FromCtx(ctx).Info().Int("responders", idx.Len()).Int("functions", len(functions)).Msg("responder index rebuilt")
	return nil
}

// Index returns the current lookup tables. It doubles as the name catalog
// for intent resolution.
func (r *Router) Index() *Index {
	return r.index.Load()
}

func (r *Router) HasName(kind core.EntityKind, name string) bool {
	return r.Index().HasName(kind, name)
}

func (r *Router) Candidates(kind core.EntityKind, fragment string) []string {
	return r.Index().Candidates(kind, fragment)
}

func (r *Router) Names(kind core.EntityKind) []string {
	return r.Index().Names(kind)
}

// Route maps an intent to responders, highest confidence first.
func (r *Router) Route(ctx context.Context, in core.Intent, conversationID string) []core.ResponderRoute {
	idx := r.Index()
	var routes []core.ResponderRoute

	switch in.Type {
	case core.IntentResponderQuery:
		routes = r.routeResponder(idx, in)
	case core.IntentFunctionQuery:
		for _, id := range idx.functional {
			routes = append(routes, r.route(idx, id, confidenceCapable, "function capable"))
		}
		if len(routes) == 0 {
			routes = []core.ResponderRoute{defaultRoute(confidenceFallback, "no function capable responder")}
		}
	case core.IntentRuleQuery, core.IntentFactQuery:
		tokens := contextTokens(in)
		for _, id := range idx.ids {
			if token, ok := mentions(idx.byID[id].Definition(), tokens); ok {
				routes = append(routes, r.route(idx, id, confidenceCapable, fmt.Sprintf("capabilities mention %q", token)))
			}
		}
		if len(routes) == 0 {
			routes = []core.ResponderRoute{defaultRoute(confidenceFallback, "no responder covers the topic")}
		}
	case core.IntentExampleQuery, core.IntentUnknown:
		routes = []core.ResponderRoute{defaultRoute(confidenceDefault, "general question")}
	}

	slices.SortStableFunc(routes, func(a, b core.ResponderRoute) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})

	log.FromCtx(ctx).Debug().
		Str("conversation_id", conversationID).
		Str("intent", string(in.Type)).
		Int("routes", len(routes)).
		Msg("intent routed")
	return routes
}

func (r *Router) routeResponder(idx *Index, in core.Intent) []core.ResponderRoute {
	if in.Target != "" {
		if id, reason, ok := idx.match(in.Target); ok {
			return []core.ResponderRoute{r.route(idx, id, confidenceExact, reason)}
		}
	}
	if dim := strings.ToUpper(in.Filter(core.FilterDimension)); dim != "" {
		var routes []core.ResponderRoute
		for _, id := range idx.byDimension[dim] {
			routes = append(routes, r.route(idx, id, confidenceDimension, "dimension "+dim))
		}
		if len(routes) > 0 {
			return routes
		}
	}
	return []core.ResponderRoute{defaultRoute(confidenceGeneric, "no responder matched")}
}

func (r *Router) route(idx *Index, id string, confidence float64, reason string) core.ResponderRoute {
	def := idx.byID[id].Definition()
	return core.ResponderRoute{
		ResponderID:   id,
		ResponderName: def.Name,
		Category:      def.Category,
		Confidence:    confidence,
		Reason:        reason,
	}
}

func defaultRoute(confidence float64, reason string) core.ResponderRoute {
	return core.ResponderRoute{
		ResponderID:   core.DefaultResponderID,
		ResponderName: core.DefaultResponderName,
		Category:      "general",
		Confidence:    confidence,
		Reason:        reason,
	}
}

// contextTokens picks the words a rule or fact question is about: the
// target, the topic filter, then the longer words of the question.
func contextTokens(in core.Intent) []string {
	if in.Target != "" {
		return []string{strings.ToLower(in.Target)}
	}
	if topic := in.Filter(core.FilterTopic); topic != "" {
		return []string{strings.ToLower(topic)}
	}
	var out []string
	for _, w := range wordRe.FindAllString(in.ResolvedQuestion, -1) {
		w = strings.ToLower(w)
		if !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

func mentions(def core.ResponderDefinition, tokens []string) (string, bool) {
	text := strings.ToLower(def.Purpose + " " + strings.Join(def.Capabilities, " "))
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return t, true
		}
	}
	return "", false
}

var stopWords = map[string]bool{
	"what": true, "which": true, "when": true, "where": true, "does": true, "have": true,
	"rule": true, "rules": true, "fact": true, "facts": true, "apply": true, "about": true,
	"there": true, "that": true, "this": true, "with": true, "from": true, "should": true,
	"must": true, "tell": true, "show": true, "into": true, "they": true, "them": true,
	"requirement": true, "requirements": true, "explain": true, "describe": true,
}
