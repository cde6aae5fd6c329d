package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/moara/internal/ollama"
)

// OllamaBackend generates text with a model served by a local Ollama.
type OllamaBackend struct {
	client *ollama.Client
	model  string
}

// NewOllamaBackend creates an OllamaBackend for the server at baseURL.
func NewOllamaBackend(baseURL, model string) *OllamaBackend {
	return &OllamaBackend{client: ollama.New(baseURL), model: model}
}

func (b *OllamaBackend) Name() string { return "ollama" }

// Client exposes the underlying HTTP client for startup checks.
func (b *OllamaBackend) Client() *ollama.Client { return b.client }

// Model returns the configured model name.
func (b *OllamaBackend) Model() string { return b.model }

func (b *OllamaBackend) Complete(ctx context.Context, req Request) (string, error) {
	var msgs []ollama.Message
	if req.System != "" {
		msgs = append(msgs, ollama.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, ollama.Message{Role: "user", Content: req.Prompt})

	out, err := b.client.Chat(ctx, b.model, msgs, &ollama.Options{
		Temperature: req.Temperature,
		NumPredict:  req.MaxTokens,
	})
	if err != nil {
		return "", unavailable(b.Name(), err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", unavailable(b.Name(), errors.New("empty completion"))
	}
	return out, nil
}

func (b *OllamaBackend) Ping(ctx context.Context) error {
	if !b.client.IsRunning(ctx) {
		return unavailable(b.Name(), fmt.Errorf("not running at %s", b.client.BaseURL()))
	}
	if !b.client.HasModel(ctx, b.model) {
		return unavailable(b.Name(), fmt.Errorf("model %s not pulled", b.model))
	}
	return nil
}
