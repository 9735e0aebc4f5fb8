package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/kbqa/pkg/log"
)

// EngineConfig holds the tunables of the conversation engine.
type EngineConfig struct {
	// Context store
	HistoryCap      int           `env:"KBQA_HISTORY_CAP" envDefault:"100"`
	EntityExpiry    time.Duration `env:"KBQA_ENTITY_EXPIRY" envDefault:"30m"`
	ReferenceWindow int           `env:"KBQA_REFERENCE_WINDOW" envDefault:"5"`

	// Intent and dialogue
	ClarificationThreshold float64 `env:"KBQA_CLARIFICATION_THRESHOLD" envDefault:"0.5"`
	FollowUpMaxWords       int     `env:"KBQA_FOLLOWUP_MAX_WORDS" envDefault:"5"`

	// Routing and coordination
	FallbackThreshold     float64       `env:"KBQA_FALLBACK_THRESHOLD" envDefault:"0.5"`
	CoordinationThreshold float64       `env:"KBQA_COORDINATION_THRESHOLD" envDefault:"0.7"`
	AdditionalThreshold   float64       `env:"KBQA_ADDITIONAL_THRESHOLD" envDefault:"0.5"`
	MaxAdditional         int           `env:"KBQA_MAX_ADDITIONAL" envDefault:"2"`
	ResponderTimeout      time.Duration `env:"KBQA_RESPONDER_TIMEOUT" envDefault:"2s"`
	QueryTimeout          time.Duration `env:"KBQA_QUERY_TIMEOUT" envDefault:"5s"`

	// Synthesis
	MaxSuggestions int `env:"KBQA_MAX_SUGGESTIONS" envDefault:"5"`
	AnswerTokens   int `env:"KBQA_ANSWER_TOKENS" envDefault:"1500"`
	ResultLimit    int `env:"KBQA_RESULT_LIMIT" envDefault:"10"`
}

func NewEngineConfig(ctx context.Context) *EngineConfig {
	c := &EngineConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Engine config")
	}
	return c
}

// DefaultEngineConfig returns the built-in defaults without reading the environment.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		HistoryCap:             100,
		EntityExpiry:           30 * time.Minute,
		ReferenceWindow:        5,
		ClarificationThreshold: 0.5,
		FollowUpMaxWords:       5,
		FallbackThreshold:      0.5,
		CoordinationThreshold:  0.7,
		AdditionalThreshold:    0.5,
		MaxAdditional:          2,
		ResponderTimeout:       2 * time.Second,
		QueryTimeout:           5 * time.Second,
		MaxSuggestions:         5,
		AnswerTokens:           1500,
		ResultLimit:            10,
	}
}
