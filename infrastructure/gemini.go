package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ats-evaluator/domain"
	"ats-evaluator/logger"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// models is the subset of *genai.Models used by GeminiClient.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls the Gemini API, trying each configured model in order until one answers.
type GeminiClient struct {
	models     models
	modelNames []string
	logger     *zap.Logger
}

// NewGeminiClient creates a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey string, modelNames []string, log *zap.Logger) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGeminiClient(client.Models, modelNames, log), nil
}

func newGeminiClient(m models, modelNames []string, log *zap.Logger) *GeminiClient {
	names := make([]string, 0, len(modelNames))
	for _, name := range modelNames {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		names = []string{"gemini-2.0-flash"}
	}
	return &GeminiClient{models: m, modelNames: names, logger: logger.OrNop(log)}
}

// GenerateContent returns the first non-empty reply. When every model fails the
// last error is returned wrapped in domain.ErrModelCall.
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.1)
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}

	var lastErr error
	for _, model := range g.modelNames {
		text, err := g.generate(ctx, model, prompt, cfg)
		if err == nil {
			g.logger.Debug("gemini model answered", zap.String("ai_model", model))
			return text, nil
		}
		lastErr = err
		g.logger.Warn("gemini model failed", zap.String("ai_model", model), zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: all gemini models failed: %w", domain.ErrModelCall, lastErr)
}

func (g *GeminiClient) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
		}
		// Only the first usable candidate is taken.
		if builder.Len() > 0 {
			break
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

func (g *GeminiClient) Model() string {
	return g.modelNames[0]
}

func (g *GeminiClient) Close() error {
	return nil
}
