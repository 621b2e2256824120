package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterProvider implements Provider using the OpenRouter API (OpenAI-compatible).
type OpenRouterProvider struct {
	client *openai.Client
	model  string
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(apiKey string, model string) *OpenRouterProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://openrouter.ai/api/v1"
	client := openai.NewClientWithConfig(cfg)
	return &OpenRouterProvider{
		client: client,
		model:  model,
	}
}

func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

func (p *OpenRouterProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return completeChat(ctx, p.client, p.model, req)
}
