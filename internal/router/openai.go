package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/binarjoin/agent-engine/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultHuggingFaceBaseURL is the OpenAI-compatible HuggingFace router.
const DefaultHuggingFaceBaseURL = "https://router.huggingface.co/v1"

// OpenAIDriver talks to any OpenAI-compatible chat completions endpoint.
// It serves both OpenAI itself and the HuggingFace router.
type OpenAIDriver struct {
	kind      models.ProviderKind
	client    *openai.Client
	maxTokens int
	resolve   func(model string) string
}

var _ Driver = (*OpenAIDriver)(nil)

// NewOpenAIDriver creates a driver for api.openai.com.
func NewOpenAIDriver(apiKey string, maxTokens int) *OpenAIDriver {
	return &OpenAIDriver{
		kind:      models.ProviderOpenAI,
		client:    openai.NewClient(apiKey),
		maxTokens: maxTokens,
	}
}

// NewHuggingFaceDriver creates a driver for the HuggingFace router. Model
// names may be catalogue keys; they are resolved to hub ids before sending.
func NewHuggingFaceDriver(apiKey, baseURL string, maxTokens int) *OpenAIDriver {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHuggingFaceBaseURL
	}
	return &OpenAIDriver{
		kind:      models.ProviderHuggingFace,
		client:    openai.NewClientWithConfig(cfg),
		maxTokens: maxTokens,
		resolve:   ResolveHuggingFaceModel,
	}
}

func (d *OpenAIDriver) Kind() models.ProviderKind { return d.kind }

func (d *OpenAIDriver) Send(ctx context.Context, model string, messages []models.ChatMessage, system string) (*models.Completion, error) {
	wire := model
	if d.resolve != nil {
		wire = d.resolve(model)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == string(models.RoleAssistant) {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     wire,
		Messages:  msgs,
		MaxTokens: d.maxTokens,
	})
	if err != nil {
		return nil, d.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: d.kind, Err: fmt.Errorf("empty response from %s", wire)}
	}

	return &models.Completion{
		Content:    resp.Choices[0].Message.Content,
		Provider:   d.kind,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func (d *OpenAIDriver) wrap(err error) error {
	pe := &ProviderError{Provider: d.kind, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
	}
	return pe
}
