package recommend

import (
	"context"
	"log"

	"github.com/maimood/mood-coach/internal/config"
	"github.com/maimood/mood-coach/internal/emotion"
)

// Service wraps a provider with the static catalog as fallback, so callers
// always get suggestions even when the configured backend is down.
type Service struct {
	provider Provider
	fallback *StaticProvider
}

func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		fallback: NewStaticProvider(),
	}
}

// NewServiceFromConfig builds a service for the configured provider. An
// unknown or unconfigured provider silently becomes the static catalog.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config) *Service {
	switch cfg.Recommend.Provider {
	case "openai":
		if cfg.OpenAI.Token != "" {
			return NewService(NewOpenAIProvider(cfg.OpenAI.Token, cfg.OpenAI.Model))
		}
	case "gemini":
		if cfg.Gemini.APIKey != "" {
			provider, err := NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
			if err == nil {
				return NewService(provider)
			}
			log.Printf("gemini provider unavailable, using static catalog: %v", err)
		}
	case "ollama":
		return NewService(NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model))
	}
	return NewService(NewStaticProvider())
}

func (s *Service) Provider() string {
	return s.provider.Name()
}

// Suggest returns suggestions for the mood, falling back to the catalog on
// provider error.
func (s *Service) Suggest(ctx context.Context, mood emotion.Label) []Suggestion {
	suggestions, err := s.provider.Suggest(ctx, mood)
	if err != nil {
		log.Printf("recommendation provider %s failed, using static catalog: %v", s.provider.Name(), err)
		suggestions, _ = s.fallback.Suggest(ctx, mood)
	}
	return suggestions
}
