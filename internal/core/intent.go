package core

import "maps"

type IntentType string

const (
	IntentResponderQuery IntentType = "responder-query"
	IntentFunctionQuery  IntentType = "function-query"
	IntentRuleQuery      IntentType = "rule-query"
	IntentFactQuery      IntentType = "fact-query"
	IntentExampleQuery   IntentType = "example-query"
	IntentUnknown        IntentType = "unknown"
)

// Filter keys understood by the router and synthesizer.
const (
	FilterDimension = "dimension"
	FilterTopic     = "topic"
	FilterQueryType = "queryType"
	FilterLevel     = "level"
	FilterRelated   = "related"
	FilterPage      = "page"
)

// Query subtypes stored under FilterQueryType.
const (
	QueryList         = "list"
	QueryDependencies = "dependencies"
	QueryCapabilities = "capabilities"
	QueryRules        = "rules"
	QueryPurpose      = "purpose"
	QueryExamples     = "examples"
	QueryUsages       = "usages"
)

type ClarificationKind string

const (
	ClarifyDisambiguation ClarificationKind = "disambiguation"
	ClarifyMissingInfo    ClarificationKind = "missing-info"
	ClarifyRephrase       ClarificationKind = "rephrase"
)

type ClarificationPrompt struct {
	Kind    ClarificationKind `json:"kind"`
	Text    string            `json:"text"`
	Options []string          `json:"options,omitempty"`
}

// Intent is the typed interpretation of one question. It is immutable once
// attached to a Turn; use Clone before deriving a new one.
type Intent struct {
	Type                  IntentType            `json:"type"`
	Question              string                `json:"question"`
	ResolvedQuestion      string                `json:"resolvedQuestion"`
	Target                string                `json:"targetEntity,omitempty"`
	Filters               map[string]string     `json:"filters,omitempty"`
	Confidence            float64               `json:"confidence"`
	RequiresClarification bool                  `json:"requiresClarification"`
	Clarifications        []ClarificationPrompt `json:"clarificationPrompts,omitempty"`
}

func (i Intent) Filter(key string) string {
	return i.Filters[key]
}

func (i Intent) Clone() Intent {
	out := i
	out.Filters = maps.Clone(i.Filters)
	if i.Clarifications != nil {
		out.Clarifications = make([]ClarificationPrompt, len(i.Clarifications))
		for n, c := range i.Clarifications {
			c.Options = append([]string(nil), c.Options...)
			out.Clarifications[n] = c
		}
	}
	return out
}

// NeedsTarget reports whether the intent cannot be answered without a named entity.
func (i Intent) NeedsTarget() bool {
	switch i.Type {
	case IntentResponderQuery, IntentFunctionQuery:
		return i.Filter(FilterQueryType) != QueryList && i.Filter(FilterDimension) == ""
	case IntentRuleQuery, IntentFactQuery, IntentExampleQuery, IntentUnknown:
		return false
	}
	return false
}

// EntityKind maps the intent type onto the kind of entity its target names.
func (t IntentType) EntityKind() EntityKind {
	switch t {
	case IntentResponderQuery:
		return EntityResponder
	case IntentFunctionQuery:
		return EntityFunction
	case IntentRuleQuery:
		return EntityRule
	case IntentFactQuery:
		return EntityFact
	case IntentExampleQuery, IntentUnknown:
		return EntityConcept
	}
	return EntityConcept
}
