package synth

import (
	"fmt"
	"strings"

	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/tokens"
)

// Input is everything known about an answered turn.
type Input struct {
	ConversationID string
	Intent         core.Intent
	Answer         string
	Confidence     float64
	Direct         *core.QueryResult
	Coordination   *core.Coordination
	Entities       []core.Entity
	Conversation   *core.Conversation
}

type Synthesizer struct {
	cfg *config.EngineConfig
}

func New(cfg *config.EngineConfig) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize builds the response for an answered turn. It never touches
// conversation state.
func (s *Synthesizer) Synthesize(in Input) core.FormattedResponse {
	citations := Citations(in.Direct, in.Coordination)
	answer := tokens.Truncate(strings.TrimSpace(in.Answer), s.cfg.AnswerTokens)

	return core.FormattedResponse{
		Answer:              Format(answer, citations),
		Citations:           citations,
		FollowUpSuggestions: s.FollowUpSuggestions(in.Direct, in.Intent, in.Coordination, in.Conversation, in.Entities),
		RelatedEntities:     nonNil(in.Entities),
		Confidence:          core.Clamp(in.Confidence),
		ConversationID:      in.ConversationID,
	}
}

// Clarify builds the response for a turn that needs more input from the user.
func (s *Synthesizer) Clarify(conversationID string, in core.Intent, text string, suggestions []string) core.FormattedResponse {
	return core.FormattedResponse{
		Answer:                text,
		Citations:             []core.Citation{},
		FollowUpSuggestions:   limit(nonNil(suggestions), s.cfg.MaxSuggestions),
		RelatedEntities:       []core.Entity{},
		Confidence:            core.Clamp(in.Confidence),
		ConversationID:        conversationID,
		RequiresClarification: true,
		Clarifications:        in.Clarifications,
	}
}

// Citations lists one citation per result item with a source plus one per
// responder used. Duplicates on (source, line) keep their first position.
func Citations(result *core.QueryResult, coord *core.Coordination) []core.Citation {
	out := []core.Citation{}
	type key struct {
		source string
		line   int
	}
	seen := map[key]bool{}
	add := func(c core.Citation) {
		k := key{c.Source, c.Line}
		if c.Source == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, c)
	}

	if result != nil {
		for _, item := range result.Results {
			title := item.Title
			if title == "" {
				title = item.Name
			}
			add(core.Citation{
				Source: item.Source,
				Kind:   citationKind(item),
				Title:  title,
				Line:   item.Line,
				URL:    item.URL,
			})
		}
	}

	for _, a := range coord.Answers() {
		source := a.Source
		if source == "" {
			source = "responder:" + a.ResponderID
		}
		add(core.Citation{
			Source: source,
			Kind:   core.CitationResponder,
			Title:  a.ResponderName,
		})
	}
	return out
}

func citationKind(item core.QueryResultItem) core.CitationKind {
	switch {
	case item.Name != "" && item.Dimension != "":
		return core.CitationResponder
	case item.Name != "" && item.Signature != "":
		return core.CitationFunction
	case item.RequirementLevel != "":
		return core.CitationRule
	}
	return core.CitationDocument
}

// Format appends a numbered Sources section. Without citations the answer
// is returned unchanged.
func Format(answer string, citations []core.Citation) string {
	if len(citations) == 0 {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n## Sources\n")
	for i, c := range citations {
		title := c.Title
		if title == "" {
			title = c.Source
		}
		fmt.Fprintf(&b, "\n%d. %s (%s", i+1, title, c.Source)
		if c.Line > 0 {
			fmt.Fprintf(&b, ", line %d", c.Line)
		}
		b.WriteString(")")
		if c.URL != "" {
			b.WriteString(" - " + c.URL)
		}
	}
	return b.String()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func limit(s []string, n int) []string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
