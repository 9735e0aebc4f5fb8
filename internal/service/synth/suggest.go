package synth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
)

// FollowUpSuggestions proposes next questions from type templates, then
// the current topic and the first related entity. At most MaxSuggestions
// are returned.
func (s *Synthesizer) FollowUpSuggestions(result *core.QueryResult, in core.Intent, coord *core.Coordination, conv *core.Conversation, entities []core.Entity) []string {
	var out []string
	add := func(items ...string) {
		for _, it := range items {
			if it != "" && !slices.Contains(out, it) {
				out = append(out, it)
			}
		}
	}

	subject := in.Target
	asked := in.Filter(core.FilterQueryType)

	switch in.Type {
	case core.IntentResponderQuery:
		if subject == "" && result != nil && len(result.Results) == 1 {
			subject = result.Results[0].Name
		}
		if subject != "" {
			add(
				unless(asked == core.QueryDependencies, fmt.Sprintf("What are %s dependencies?", possessive(subject))),
				unless(asked == core.QueryCapabilities, fmt.Sprintf("What are %s capabilities?", possessive(subject))),
				unless(asked == core.QueryRules, fmt.Sprintf("What rules apply to %s?", subject)),
			)
		} else {
			if dim := in.Filter(core.FilterDimension); dim != "" {
				add(fmt.Sprintf("What rules apply to %s responders?", dim))
			}
			if first := firstNamed(result, core.CitationResponder); first != "" {
				add(fmt.Sprintf("Tell me about %s", first))
			}
			add("Which responders can call functions?")
		}
	case core.IntentFunctionQuery:
		if subject == "" {
			subject = "this function"
		}
		add(
			unless(asked == core.QueryExamples, fmt.Sprintf("Show examples of %s", subject)),
			unless(asked == core.QueryUsages, fmt.Sprintf("What uses %s?", subject)),
		)
	case core.IntentRuleQuery:
		add(
			"Which requirements are MUST level?",
			"Which requirements are only SHOULD level?",
			"What is optional (MAY)?",
		)
	case core.IntentFactQuery:
		add("Tell me more", "What related facts are there?")
	case core.IntentExampleQuery:
		add("Show me more examples", "Which functions are used in these examples?")
	case core.IntentUnknown:
		add("What responders are available?", "What rules apply?")
	}

	if coord != nil && len(coord.Additional) > 0 {
		add(fmt.Sprintf("Tell me more about what %s said", coord.Additional[0].ResponderName))
	}
	if conv != nil && conv.CurrentTopic != "" && !strings.EqualFold(conv.CurrentTopic, subject) {
		add(fmt.Sprintf("What else should I know about %s?", conv.CurrentTopic))
	}
	if len(entities) > 0 {
		add(fmt.Sprintf("What is related to %s?", entities[0].Name))
	}

	return limit(nonNil(out), s.cfg.MaxSuggestions)
}

func unless(skip bool, s string) string {
	if skip {
		return ""
	}
	return s
}

func possessive(name string) string {
	if strings.HasSuffix(name, "s") {
		return name + "'"
	}
	return name + "'s"
}

func firstNamed(result *core.QueryResult, kind core.CitationKind) string {
	if result == nil {
		return ""
	}
	for _, item := range result.Results {
		if item.Name != "" && citationKind(item) == kind {
			return item.Name
		}
	}
	return ""
}
