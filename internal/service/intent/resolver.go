package intent

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/memory"
	"github.com/sandevgo/kbqa/pkg/log"
)

const (
	baseKnown     = 0.5
	baseInherited = 0.4
	baseUnknown   = 0.1

	weightExact  = 0.2
	weightFilter = 0.15
	weightTarget = 0.15

	maxOptions = 5
)

// Catalog answers name lookups against the loaded knowledge base.
type Catalog interface {
	HasName(kind core.EntityKind, name string) bool
	Candidates(kind core.EntityKind, fragment string) []string
	Names(kind core.EntityKind) []string
}

type Resolver struct {
	store   core.ContextStore
	catalog Catalog
	cfg     *config.EngineConfig
}

func NewResolver(store core.ContextStore, catalog Catalog, cfg *config.EngineConfig) *Resolver {
	return &Resolver{store: store, catalog: catalog, cfg: cfg}
}

// Resolve loads the conversation and resolves text against it.
func (r *Resolver) Resolve(ctx context.Context, text, conversationID string) (core.Intent, error) {
	conv, err := r.store.Get(ctx, conversationID)
	if err != nil {
		return core.Intent{}, err
	}
	return r.ResolveWith(ctx, text, conv), nil
}

// Resolution carries the intent plus what the resolver learned on the way.
type Resolution struct {
	Intent   core.Intent
	Referent *core.Entity
	// Classified is set when a lexical classifier matched the text itself
	// rather than the type being inherited or left unknown.
	Classified bool
	Inherited  bool
}

// ResolveWith never fails: unparseable input yields an unknown,
// low-confidence intent with a clarification prompt.
func (r *Resolver) ResolveWith(ctx context.Context, text string, conv *core.Conversation) core.Intent {
	return r.Analyze(ctx, text, conv).Intent
}

func (r *Resolver) Analyze(ctx context.Context, text string, conv *core.Conversation) Resolution {
	logger := log.FromCtx(ctx)
	text = strings.TrimSpace(text)

	in := core.Intent{
		Type:             core.IntentUnknown,
		Question:         text,
		ResolvedQuestion: text,
		Filters:          map[string]string{},
	}

	// 1. Reference resolution
	var referent *core.Entity
	if conv != nil {
		if ent, ok := r.store.ResolveReference(text, conv); ok {
			referent = &ent
			in.ResolvedQuestion = memory.Substitute(text, ent)
		}
	}

	// 2. Classification and 3. target extraction
	var candidates []string
	c, classified := classify(in.ResolvedQuestion)
	if classified {
		in.Type = c.kind
		candidates = c.targets
		logger.Debug().Str("classifier", c.name).Str("intent", string(in.Type)).Msg("intent classified")
	}
	extractFilters(&in)

	if len(candidates) == 1 {
		in.Target = candidates[0]
	}
	if in.Target == "" && len(candidates) == 0 && referent != nil {
		in.Target = referent.Name
		if in.Type == core.IntentUnknown {
			in.Type = typeForKind(referent.Kind)
		}
	}

	// 4. Inheritance from the current intent
	inherited := false
	if in.Type == core.IntentUnknown && conv != nil && conv.CurrentIntent != nil {
		prev := conv.CurrentIntent
		in.Type = prev.Type
		merged := maps.Clone(prev.Filters)
		if merged == nil {
			merged = map[string]string{}
		}
		maps.Copy(merged, in.Filters)
		in.Filters = merged
		if in.Target == "" {
			in.Target = prev.Target
		}
		inherited = in.Type != core.IntentUnknown
	}

	// Partial names resolve through the catalog.
	kind := in.Type.EntityKind()
	exact := false
	if in.Target != "" && r.catalog != nil {
		if r.catalog.HasName(kind, in.Target) {
			exact = true
		} else if opts := r.catalog.Candidates(kind, in.Target); len(opts) == 1 {
			in.Target = opts[0]
		} else if len(opts) > 1 {
			candidates = opts
		}
	}
	ambiguous := len(candidates) > 1

	// 5. Confidence
	base := baseKnown
	switch {
	case in.Type == core.IntentUnknown:
		base = baseUnknown
	case inherited:
		base = baseInherited
	}
	score := base
	if exact {
		score += weightExact
	}
	if hasTextFilter(in.Filters) {
		score += weightFilter
	}
	if in.Target != "" {
		score += weightTarget
	}
	if ambiguous {
		score -= weightTarget
	}
	in.Confidence = core.Clamp(score)

	// 6. Clarification policy
	switch {
	case ambiguous:
		in.RequiresClarification = true
		in.Clarifications = append(in.Clarifications, core.ClarificationPrompt{
			Kind:    core.ClarifyDisambiguation,
			Text:    fmt.Sprintf("Which one do you mean: %s?", strings.Join(limit(candidates, maxOptions), ", ")),
			Options: limit(candidates, maxOptions),
		})
	case in.Type == core.IntentUnknown:
		in.RequiresClarification = true
		in.Clarifications = append(in.Clarifications, core.ClarificationPrompt{
			Kind: core.ClarifyRephrase,
			Text: "I could not tell what you are asking about. Try naming a responder, a function or a rule.",
			Options: []string{
				"What agents are available?",
				"What rules apply?",
				"What functions are available?",
			},
		})
	case in.NeedsTarget() && in.Target == "":
		in.RequiresClarification = true
		var opts []string
		if r.catalog != nil {
			opts = limit(r.catalog.Names(kind), maxOptions)
		}
		in.Clarifications = append(in.Clarifications, core.ClarificationPrompt{
			Kind:    core.ClarifyMissingInfo,
			Text:    fmt.Sprintf("Which %s are you asking about?", kind),
			Options: opts,
		})
	case in.Confidence < r.cfg.ClarificationThreshold:
		in.RequiresClarification = true
		in.Clarifications = append(in.Clarifications, core.ClarificationPrompt{
			Kind: core.ClarifyRephrase,
			Text: "Could you rephrase the question with a bit more detail?",
		})
	}

	return Resolution{Intent: in, Referent: referent, Classified: classified, Inherited: inherited}
}

type match struct {
	name    string
	kind    core.IntentType
	targets []string
}

func classify(text string) (match, bool) {
	for _, c := range classifiers {
		found := c.re.FindAllStringSubmatch(text, -1)
		if len(found) == 0 {
			continue
		}
		m := match{name: c.name, kind: c.kind}
		if c.group > 0 {
			seen := map[string]bool{}
			for _, f := range found {
				t := f[c.group]
				if key := strings.ToLower(t); !seen[key] {
					seen[key] = true
					m.targets = append(m.targets, t)
				}
			}
		}
		return m, true
	}
	return match{}, false
}

// NamedTarget returns the single entity name the classifiers extract from
// text. Keyword-only matches name nothing.
func NamedTarget(text string) (string, bool) {
	m, ok := classify(text)
	if !ok || len(m.targets) != 1 {
		return "", false
	}
	return m.targets[0], true
}

func extractFilters(in *core.Intent) {
	text := in.ResolvedQuestion

	if m := dimensionRe.FindStringSubmatch(text); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				in.Filters[core.FilterDimension] = g + "D"
				break
			}
		}
	}
	if m := levelRe.FindString(text); m != "" {
		in.Filters[core.FilterLevel] = m
	}
	if st, ok := Subtype(text); ok {
		in.Filters[core.FilterQueryType] = st
	}
	if _, ok := in.Filters[core.FilterQueryType]; !ok && pluralRe.MatchString(text) && listRe.MatchString(text) {
		in.Filters[core.FilterQueryType] = core.QueryList
	}
}

// Subtype returns the query subtype named in text, if any.
func Subtype(text string) (string, bool) {
	for _, st := range subtypes {
		if st.re.MatchString(text) {
			return st.value, true
		}
	}
	return "", false
}

// hasTextFilter ignores the list marker, which is implied by the wording
// rather than narrowing the query.
func hasTextFilter(filters map[string]string) bool {
	for k, v := range filters {
		if v == "" {
			continue
		}
		if k == core.FilterQueryType && v == core.QueryList {
			continue
		}
		return true
	}
	return false
}

func typeForKind(kind core.EntityKind) core.IntentType {
	switch kind {
	case core.EntityResponder:
		return core.IntentResponderQuery
	case core.EntityFunction:
		return core.IntentFunctionQuery
	case core.EntityRule:
		return core.IntentRuleQuery
	case core.EntityFact:
		return core.IntentFactQuery
	case core.EntityDocument, core.EntityConcept:
		return core.IntentUnknown
	}
	return core.IntentUnknown
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
