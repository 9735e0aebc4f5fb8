package kb

import (
	"context"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
)

const (
	knowledgeSource      = "knowledge-base"
	definitionConfidence = 0.6
)

// localResponder answers from its own definition and the items that name
// it as their owner.
type localResponder struct {
	def   core.ResponderDefinition
	base  *Base
	limit int
}

func (r *localResponder) Definition() core.ResponderDefinition {
	return r.def
}

func (r *localResponder) Answer(ctx context.Context, question string) (core.ResponderAnswer, error) {
	if err := ctx.Err(); err != nil {
		return core.ResponderAnswer{}, err
	}

	var b strings.Builder
	b.WriteString(describe(core.QueryResultItem{
		Name:      r.def.Name,
		Dimension: r.def.Dimension,
		Content:   strings.TrimSpace(r.def.Purpose + " " + labelled("Capabilities", r.def.Capabilities) + " " + labelled("Dependencies", r.def.Dependencies)),
	}))

	confidence := definitionConfidence
	owned := r.base.QueryOwned(question, r.def.Name, r.limit)
	var extra []core.QueryResultItem
	for _, it := range owned.Results {
		if it.Name == r.def.Name && it.Dimension != "" {
			continue
		}
		extra = append(extra, it)
	}
	if len(extra) > 0 {
		b.WriteString("\n")
		b.WriteString(Summarize(extra))
		confidence = max(confidence, extra[0].Score)
	}

	return core.ResponderAnswer{
		ResponderID:   r.def.ID,
		ResponderName: r.def.Name,
		Source:        r.def.Source,
		Answer:        b.String(),
		Confidence:    confidence,
	}, nil
}

// defaultResponder answers from the whole knowledge base.
type defaultResponder struct {
	provider *Provider
}

func (r *defaultResponder) Definition() core.ResponderDefinition {
	return core.ResponderDefinition{
		ID:       core.DefaultResponderID,
		Name:     core.DefaultResponderName,
		Purpose:  "Answers general questions from the whole knowledge base",
		Source:   knowledgeSource,
		Category: "general",
	}
}

func (r *defaultResponder) Answer(ctx context.Context, question string) (core.ResponderAnswer, error) {
	res, err := r.provider.Query(ctx, question)
	if err != nil {
		return core.ResponderAnswer{}, err
	}
	return core.ResponderAnswer{
		ResponderID:   core.DefaultResponderID,
		ResponderName: core.DefaultResponderName,
		Source:        knowledgeSource,
		Answer:        res.Answer,
		Confidence:    res.Confidence,
	}, nil
}
