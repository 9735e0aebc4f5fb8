package core

const (
	AppName       = "kbqa"
	AppUserAgent  = "kbqa/0.1"
	RepositoryURL = "https://github.com/sandevgo/kbqa"
	AppVersion    = "0.1.0"

	// DefaultResponderID is the generic responder answering from the whole knowledge base.
	DefaultResponderID   = "default"
	DefaultResponderName = "General Knowledge"
)

type OutputKind string

const (
	OutputMarkdown OutputKind = "markdown"
	OutputPlain    OutputKind = "plain"
	OutputJSON     OutputKind = "json"
	OutputHTML     OutputKind = "html"
)

func ParseOutputKind(s string) (OutputKind, bool) {
	switch OutputKind(s) {
	case OutputMarkdown, OutputPlain, OutputJSON, OutputHTML:
		return OutputKind(s), true
	case "":
		return OutputMarkdown, true
	}
	return "", false
}

type CitationKind string

const (
	CitationDocument  CitationKind = "document"
	CitationResponder CitationKind = "responder"
	CitationFunction  CitationKind = "function"
	CitationRule      CitationKind = "rule"
)

type Citation struct {
	Source string       `json:"source"`
	Kind   CitationKind `json:"kind"`
	Title  string       `json:"title,omitempty"`
	Line   int          `json:"line,omitempty"`
	URL    string       `json:"url,omitempty"`
}

// FormattedResponse is the only output of the engine visible to transports.
type FormattedResponse struct {
	Answer                string                `json:"answer"`
	Citations             []Citation            `json:"citations"`
	FollowUpSuggestions   []string              `json:"followUpSuggestions"`
	RelatedEntities       []Entity              `json:"relatedEntities"`
	Confidence            float64               `json:"confidence"`
	ConversationID        string                `json:"conversationId"`
	RequiresClarification bool                  `json:"requiresClarification,omitempty"`
	Clarifications        []ClarificationPrompt `json:"clarificationPrompts,omitempty"`
}

// Clamp bounds a confidence score to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
