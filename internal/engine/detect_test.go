package engine

import (
	"context"
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		cfg  DetectConfig
		want string
	}{
		{"auto without keys", DetectConfig{Provider: ProviderAuto}, "none"},
		{"empty provider means auto", DetectConfig{}, "none"},
		{"auto prefers openrouter", DetectConfig{Provider: ProviderAuto, OpenRouterAPIKey: "sk-or", GeminiAPIKey: "g"}, "openrouter"},
		{"auto falls back to gemini", DetectConfig{Provider: ProviderAuto, GeminiAPIKey: "g", GeminiModel: "gemini-2.0-flash"}, "gemini"},
		{"explicit ollama", DetectConfig{Provider: ProviderOllama, OllamaBaseURL: "http://localhost:11434", OllamaModel: "llama3.2"}, "ollama"},
		{"openrouter without key", DetectConfig{Provider: ProviderOpenRouter}, "none"},
		{"gemini without key", DetectConfig{Provider: ProviderGemini}, "none"},
		{"disabled", DetectConfig{Provider: ProviderNone, OpenRouterAPIKey: "sk-or"}, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Detect(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if b.Name() != tt.want {
				t.Errorf("Detect() = %s, want %s", b.Name(), tt.want)
			}
		})
	}
}

func TestDetect_UnknownProvider(t *testing.T) {
	if _, err := Detect(context.Background(), DetectConfig{Provider: "claude"}); err == nil {
		t.Error("Detect(claude) succeeded, want error")
	}
}

func TestUnavailable(t *testing.T) {
	b := Unavailable{Reason: "no key"}
	_, err := b.Complete(context.Background(), Request{Prompt: "oi"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Complete() error = %v, want ErrUnavailable", err)
	}

	r := Status(context.Background(), b)
	if r.Ready || r.Provider != "none" || r.Detail == "" {
		t.Errorf("Status() = %+v", r)
	}
}
