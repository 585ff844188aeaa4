package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/binarjoin/agent-engine/pkg/models"
	"google.golang.org/genai"
)

// GeminiDriver talks to the Gemini API through the genai SDK.
type GeminiDriver struct {
	client    *genai.Client
	maxTokens int32
}

var _ Driver = (*GeminiDriver)(nil)

// NewGeminiDriver creates a Gemini driver.
func NewGeminiDriver(ctx context.Context, apiKey string, maxTokens int) (*GeminiDriver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiDriver{client: client, maxTokens: int32(maxTokens)}, nil
}

func (d *GeminiDriver) Kind() models.ProviderKind { return models.ProviderGemini }

func (d *GeminiDriver) Send(ctx context.Context, model string, messages []models.ChatMessage, system string) (*models.Completion, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == string(models.RoleAssistant) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{MaxOutputTokens: d.maxTokens}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := d.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, wrapGeminiError(err)
	}

	comp := &models.Completion{
		Content:  resp.Text(),
		Provider: models.ProviderGemini,
		Model:    model,
	}
	if resp.UsageMetadata != nil {
		comp.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return comp, nil
}

// wrapGeminiError lifts the HTTP status out of a genai.APIError so quota
// detection does not depend on message text.
func wrapGeminiError(err error) *ProviderError {
	pe := &ProviderError{Provider: models.ProviderGemini, Err: err}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.Code
	}
	return pe
}
