package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ats-evaluator/domain"

	"cloud.google.com/go/vertexai/genai"
)

// VertexAIClient calls Gemini through Vertex AI using application default credentials.
type VertexAIClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

func NewVertexAIClient(ctx context.Context, projectID, location, modelName string) (*VertexAIClient, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("vertex ai project is required")
	}
	if location = strings.TrimSpace(location); location == "" {
		location = "us-central1"
	}
	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.SetTopP(0.8)
	model.SetTopK(40)

	return &VertexAIClient{client: client, model: model, modelName: modelName}, nil
}

func (v *VertexAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: vertex ai: %w", domain.ErrModelCall, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: vertex ai returned no candidates", domain.ErrModelCall)
	}

	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			result.WriteString(string(text))
		}
	}

	output := strings.TrimSpace(result.String())
	if output == "" {
		return "", fmt.Errorf("%w: vertex ai returned empty response", domain.ErrModelCall)
	}
	return output, nil
}

func (v *VertexAIClient) Model() string {
	return v.modelName
}

func (v *VertexAIClient) Close() error {
	return v.client.Close()
}
