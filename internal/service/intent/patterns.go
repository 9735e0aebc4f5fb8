package intent

import (
	"regexp"

	"github.com/sandevgo/kbqa/internal/core"
)

// classifier is one entry of the ordered lexical table. The first
// classifier whose pattern matches decides the intent type.
type classifier struct {
	name string
	kind core.IntentType
	re   *regexp.Regexp
	// group is the submatch holding the target name, 0 when the pattern
	// only recognises the kind of question.
	group int
}

var classifiers = []classifier{
	// 4D-Network-Agent, 3D-Storage
	{name: "dimension-name", kind: core.IntentResponderQuery, re: regexp.MustCompile(`\b(\d+[Dd]-[A-Za-z][A-Za-z0-9]*(?:-[A-Za-z0-9]+)*)`), group: 1},
	// Network-Agent, StorageResponder
	{name: "suffix-name", kind: core.IntentResponderQuery, re: regexp.MustCompile(`\b([A-Z][A-Za-z0-9]*(?:-[A-Za-z0-9]+)*-?(?:Agent|Responder))\b`), group: 1},
	{name: "responder-keyword", kind: core.IntentResponderQuery, re: regexp.MustCompile(`(?i)\b(agents?|responders?)\b`)},
	// kb.Query, net::dial, parse()
	{name: "namespaced-function", kind: core.IntentFunctionQuery, re: regexp.MustCompile(`\b([A-Za-z_]\w*(?:(?:\.|::)[A-Za-z_]\w*)+)(?:\(\))?`), group: 1},
	{name: "call-syntax", kind: core.IntentFunctionQuery, re: regexp.MustCompile(`\b([A-Za-z_]\w*)\([^)]*\)`), group: 1},
	{name: "function-keyword", kind: core.IntentFunctionQuery, re: regexp.MustCompile(`(?i)\b(functions?|methods?)\b`)},
	{name: "dimension-token", kind: core.IntentResponderQuery, re: regexp.MustCompile(`(?i)\b(\d+d|dimension\s+\d+)\b`)},
	{name: "requirement-level", kind: core.IntentRuleQuery, re: regexp.MustCompile(`\b(MUST NOT|MUST|SHALL NOT|SHALL|SHOULD NOT|SHOULD|MAY|REQUIRED|OPTIONAL)\b`)},
	{name: "rule-keyword", kind: core.IntentRuleQuery, re: regexp.MustCompile(`(?i)\b(rules?|requirements?|constraints?|policy|policies)\b`)},
	{name: "example-keyword", kind: core.IntentExampleQuery, re: regexp.MustCompile(`(?i)\b(examples?|samples?|show me how|how do i)\b`)},
	{name: "fact-keyword", kind: core.IntentFactQuery, re: regexp.MustCompile(`(?i)\b(facts?|what is|what's|define|definition of|explain|describe)\b`)},
}

var (
	dimensionRe = regexp.MustCompile(`(?i)\b(\d+)d\b|\bdimension\s+(\d+)\b|\b(\d+)[Dd]-`)
	levelRe     = regexp.MustCompile(`\b(MUST NOT|MUST|SHALL NOT|SHALL|SHOULD NOT|SHOULD|MAY|REQUIRED|OPTIONAL)\b`)
	pluralRe    = regexp.MustCompile(`(?i)\b(agents|responders|functions|methods|rules|facts)\b`)
	listRe      = regexp.MustCompile(`(?i)\b(list|available|all|every|which|exist|are there|show)\b`)
)

type subtype struct {
	value string
	re    *regexp.Regexp
}

// subtypes refine an intent into FilterQueryType. Order is priority.
var subtypes = []subtype{
	{core.QueryDependencies, regexp.MustCompile(`(?i)\b(depend\w*|prerequisites?|requires)\b`)},
	{core.QueryCapabilities, regexp.MustCompile(`(?i)\b(capabilit\w*|what can|able to)\b`)},
	{core.QueryRules, regexp.MustCompile(`(?i)\b(rules?|requirements?|constraints?)\b`)},
	{core.QueryPurpose, regexp.MustCompile(`(?i)\b(purpose|role|responsib\w*|what does .+ do)\b`)},
	{core.QueryExamples, regexp.MustCompile(`(?i)\b(examples?|samples?)\b`)},
	{core.QueryUsages, regexp.MustCompile(`(?i)\b(uses? (?:this|it)|usages?|callers?|who calls)\b`)},
}
