// Package recommend suggests activities for a detected emotion. Suggestions
// come from a built-in catalog or, when configured, an LLM provider with the
// catalog as fallback.
package recommend

import (
	"context"

	"github.com/maimood/mood-coach/internal/emotion"
)

// Suggestion is one activity recommendation.
type Suggestion struct {
	Title  string `json:"title" yaml:"title"`
	Detail string `json:"detail" yaml:"detail"`
}

// Provider defines the interface for recommendation backends.
type Provider interface {
	Name() string
	Suggest(ctx context.Context, mood emotion.Label) ([]Suggestion, error)
}
