package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend generates text with the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini backend. baseURL is optional and only
// overrides the API endpoint.
func NewGeminiBackend(ctx context.Context, apiKey, model, baseURL string) (*GeminiBackend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (b *GeminiBackend) Name() string { return "gemini" }

func (b *GeminiBackend) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", unavailable(b.Name(), err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", unavailable(b.Name(), errors.New("empty completion"))
	}
	return out, nil
}

func (b *GeminiBackend) Ping(ctx context.Context) error {
	if _, err := b.client.Models.Get(ctx, b.model, nil); err != nil {
		return unavailable(b.Name(), err)
	}
	return nil
}
