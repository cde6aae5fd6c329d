package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Provider names accepted by Detect.
const (
	ProviderAuto       = "auto"
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderNone       = "none"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Provider string

	OllamaBaseURL string
	OllamaModel   string

	OpenRouterAPIKey string
	OpenRouterModel  string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
}

// Detect builds the backend named by cfg.Provider. In auto mode it picks the
// first cloud provider with a key, OpenRouter before Gemini, and falls back
// to Unavailable so answers stay deterministic. A named provider without
// credentials also yields Unavailable.
func Detect(ctx context.Context, cfg DetectConfig) (Backend, error) {
	switch cfg.Provider {
	case "", ProviderAuto:
		switch {
		case cfg.OpenRouterAPIKey != "":
			return NewOpenRouterBackend(cfg.OpenRouterAPIKey, cfg.OpenRouterModel), nil
		case cfg.GeminiAPIKey != "":
			return newGemini(ctx, cfg)
		}
		slog.Info("no generation provider credentials found, using deterministic answers")
		return Unavailable{Reason: "no provider credentials"}, nil

	case ProviderOllama:
		return NewOllamaBackend(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	case ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			slog.Warn("openrouter selected but no API key configured")
			return Unavailable{Reason: "openrouter.api_key not set"}, nil
		}
		return NewOpenRouterBackend(cfg.OpenRouterAPIKey, cfg.OpenRouterModel), nil

	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			slog.Warn("gemini selected but no API key configured")
			return Unavailable{Reason: "gemini.api_key not set"}, nil
		}
		return newGemini(ctx, cfg)

	case ProviderNone:
		return Unavailable{Reason: "generation disabled"}, nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
}

func newGemini(ctx context.Context, cfg DetectConfig) (Backend, error) {
	b, err := NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	if err != nil {
		return nil, err
	}
	return b, nil
}
