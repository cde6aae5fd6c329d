package engine

import (
	"context"

	"github.com/kalambet/moara/internal/proxy"
)

// OpenRouterBackend generates text through the OpenRouter API.
type OpenRouterBackend struct {
	client *proxy.Client
	model  string
}

// NewOpenRouterBackend creates a backend for the given key and model.
func NewOpenRouterBackend(apiKey, model string) *OpenRouterBackend {
	return &OpenRouterBackend{client: proxy.NewClient(apiKey), model: model}
}

func (b *OpenRouterBackend) Name() string { return "openrouter" }

func (b *OpenRouterBackend) Complete(ctx context.Context, req Request) (string, error) {
	var msgs []proxy.Message
	if req.System != "" {
		msgs = append(msgs, proxy.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, proxy.Message{Role: "user", Content: req.Prompt})

	out, err := b.client.Complete(ctx, proxy.ChatRequest{
		Model:       b.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", unavailable(b.Name(), err)
	}
	return out, nil
}

func (b *OpenRouterBackend) Ping(ctx context.Context) error {
	if _, err := b.client.ListModels(ctx); err != nil {
		return unavailable(b.Name(), err)
	}
	return nil
}
