package core

import "context"

type QueryResultItem struct {
	Source           string  `json:"source"`
	Line             int     `json:"line,omitempty"`
	Title            string  `json:"title,omitempty"`
	URL              string  `json:"url,omitempty"`
	Name             string  `json:"name,omitempty"`
	Dimension        string  `json:"dimension,omitempty"`
	Signature        string  `json:"signature,omitempty"`
	RequirementLevel string  `json:"requirementLevel,omitempty"`
	Content          string  `json:"content,omitempty"`
	Score            float64 `json:"score"`
}

type QueryResult struct {
	Answer     string            `json:"answer"`
	Results    []QueryResultItem `json:"results"`
	Confidence float64           `json:"confidence"`
}

type ResponderFilter struct {
	Dimension string
	Name      string
}

type KBStats struct {
	Facts      int `json:"facts"`
	Rules      int `json:"rules"`
	Responders int `json:"responders"`
	Functions  int `json:"functions"`
	Documents  int `json:"documents"`
}

// KnowledgeBase is the read-only query surface the engine sits in front of.
type KnowledgeBase interface {
	Query(ctx context.Context, text string) (QueryResult, error)
	ListResponders(ctx context.Context, filter ResponderFilter) ([]ResponderDefinition, error)
	Stats(ctx context.Context) KBStats
}
