package dialogue

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/internal/service/intent"
	"github.com/sandevgo/kbqa/internal/service/memory"
)

var followUpPhraseRe = regexp.MustCompile(`(?i)\b(tell me more|show me more|what about|how about|what else|and|also)\b`)

type template struct {
	name string
	re   *regexp.Regexp
	// apply layers overrides onto the carried intent. m holds the submatches.
	apply func(in *core.Intent, m []string)
}

// templates are tried in order, the first match wins.
var templates = []template{
	{
		name: "related",
		re:   regexp.MustCompile(`(?i)\b(related|similar|connected to)\b`),
		apply: func(in *core.Intent, _ []string) {
			in.Filters[core.FilterRelated] = "true"
		},
	},
	{
		name: "what-else",
		re:   regexp.MustCompile(`(?i)\bwhat else\b`),
		apply: func(in *core.Intent, _ []string) {
			in.Target = ""
			in.Filters[core.FilterQueryType] = core.QueryList
			delete(in.Filters, core.FilterPage)
		},
	},
	{
		name: "show-more",
		re:   regexp.MustCompile(`(?i)\b(tell me more|show me more|more details?|more)\b`),
		apply: func(in *core.Intent, _ []string) {
			page, _ := strconv.Atoi(in.Filters[core.FilterPage])
			if page < 1 {
				page = 1
			}
			in.Filters[core.FilterPage] = strconv.Itoa(page + 1)
		},
	},
	{
		name: "and-also",
		re:   regexp.MustCompile(`(?i)^\s*(?:and|also|what about|how about)\s+(?:the\s+|its\s+|their\s+)?(.+?)[\s?.!]*$`),
		apply: func(in *core.Intent, m []string) {
			subject := strings.TrimSpace(m[1])
			if subject == "" {
				return
			}
			if st, ok := intent.Subtype(subject); ok {
				in.Filters[core.FilterQueryType] = st
				return
			}
			// Only a named entity replaces the target, a question stays with the resolver.
			name, ok := intent.NamedTarget(subject)
			if !ok {
				return
			}
			if in.Target != "" && strings.Contains(in.ResolvedQuestion, in.Target) {
				in.ResolvedQuestion = strings.Replace(in.ResolvedQuestion, in.Target, name, 1)
			} else {
				in.ResolvedQuestion = subject
			}
			in.Target = name
		},
	},
}

// IsFollowUp reports whether text continues the conversation rather than
// starting a new line of questioning.
func (c *Controller) IsFollowUp(text string, conv *core.Conversation) bool {
	if !conv.HasTurns() {
		return false
	}
	if memory.HasPronoun(text) || followUpPhraseRe.MatchString(text) {
		return true
	}
	return conv.CurrentIntent != nil && len(strings.Fields(text)) <= c.cfg.FollowUpMaxWords
}

// MergeFollowUp carries prev forward with the overrides of the first
// matching template. Unmatched text carries prev unchanged except for the
// raw question; ok reports whether a template matched.
func MergeFollowUp(prev core.Intent, text string) (core.Intent, bool) {
	in := prev.Clone()
	if in.Filters == nil {
		in.Filters = map[string]string{}
	}
	in.Question = text
	in.RequiresClarification = false
	in.Clarifications = nil

	for _, t := range templates {
		m := t.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		t.apply(&in, m)
		return in, true
	}
	return in, false
}

// IsContextSwitch reports whether next moves away from the conversation's
// current line of questioning.
func IsContextSwitch(next core.Intent, conv *core.Conversation) bool {
	if conv == nil || conv.CurrentIntent == nil {
		return false
	}
	cur := conv.CurrentIntent
	if next.Type != cur.Type {
		return true
	}
	if next.Target != "" && cur.Target != "" && !strings.EqualFold(next.Target, cur.Target) {
		return true
	}
	return next.Target != "" && conv.CurrentTopic != "" && !strings.EqualFold(next.Target, conv.CurrentTopic)
}
