package infrastructure

import (
	"context"
	"fmt"

	"ats-evaluator/config"

	"go.uber.org/zap"
)

// Generator is an evaluation model backend.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
	Close() error
}

// NewGenerator builds the backend selected by cfg.AI.Provider.
func NewGenerator(ctx context.Context, cfg *config.Config, log *zap.Logger) (Generator, error) {
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}

	switch cfg.AI.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, creds.APIKey, cfg.AI.Gemini.Models, log)
	case config.ProviderVertex:
		return NewVertexAIClient(ctx, cfg.AI.Vertex.Project, cfg.AI.Vertex.Location, cfg.AI.Vertex.Model)
	case config.ProviderOpenAI:
		return NewOpenAIClient(creds.APIKey, cfg.AI.OpenAI.Model, cfg.AI.OpenAI.BaseURL)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
