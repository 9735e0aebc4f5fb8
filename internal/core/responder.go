package core

import "context"

type ResponderDefinition struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Dimension       string   `json:"dimension,omitempty" yaml:"dimension"`
	Purpose         string   `json:"purpose,omitempty" yaml:"purpose"`
	Capabilities    []string `json:"capabilities,omitempty" yaml:"capabilities"`
	Dependencies    []string `json:"dependencies,omitempty" yaml:"dependencies"`
	Source          string   `json:"source,omitempty" yaml:"source"`
	Line            int      `json:"line,omitempty" yaml:"line"`
	Category        string   `json:"category,omitempty" yaml:"category"`
	FunctionCapable bool     `json:"functionCapable,omitempty" yaml:"function_capable"`
}

// Responder is a named knowledge partition that can answer questions.
type Responder interface {
	Definition() ResponderDefinition
	Answer(ctx context.Context, question string) (ResponderAnswer, error)
}

// ResponderSource supplies the current set of responders. Implementations
// may change the set over time (knowledge base reloads, remote registry).
type ResponderSource interface {
	Responders(ctx context.Context) ([]Responder, error)
}

type ResponderRoute struct {
	ResponderID   string  `json:"responderId"`
	ResponderName string  `json:"responderName"`
	Category      string  `json:"category,omitempty"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

type Coordination struct {
	Primary        ResponderAnswer   `json:"primary"`
	Additional     []ResponderAnswer `json:"additional,omitempty"`
	MergedText     string            `json:"mergedText"`
	Confidence     float64           `json:"confidence"`
	RespondersUsed []string          `json:"respondersUsed"`
}

// Answers returns the primary answer followed by the additional ones.
func (c *Coordination) Answers() []ResponderAnswer {
	if c == nil {
		return nil
	}
	return append([]ResponderAnswer{c.Primary}, c.Additional...)
}

// OnlyDefault reports whether the default responder was the sole contributor.
func (c *Coordination) OnlyDefault() bool {
	return c != nil && len(c.RespondersUsed) == 1 && c.RespondersUsed[0] == DefaultResponderID
}
