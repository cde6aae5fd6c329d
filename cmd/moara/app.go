package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kalambet/moara/internal/composer"
	"github.com/kalambet/moara/internal/config"
	"github.com/kalambet/moara/internal/engine"
	"github.com/kalambet/moara/internal/intent"
	"github.com/kalambet/moara/internal/ollama"
	"github.com/kalambet/moara/internal/pipeline"
	"github.com/kalambet/moara/internal/records"
	"github.com/kalambet/moara/internal/storage"
	"github.com/kalambet/moara/internal/validator"
)

// app is the in-process agent with everything it was built from.
type app struct {
	cfg     config.Config
	backend engine.Backend
	agent   *pipeline.Agent
	store   *storage.Store
}

// newApp loads the records and selects the backend, classifier, composer and
// validator once. With record set, replies are logged to the interaction
// store; a store that cannot be opened only disables logging.
func newApp(ctx context.Context, cfg config.Config, record bool) (*app, error) {
	ds, err := records.Load(ctx, cfg.Data.Dir)
	if err != nil {
		return nil, err
	}
	slog.Debug("records loaded", "dir", cfg.Data.Dir,
		"transactions", len(ds.Transactions), "history", len(ds.History), "products", len(ds.Products))

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cl, err := intent.New(cfg.Classifier.Backend, backend)
	if err != nil {
		return nil, err
	}
	comp, err := composer.New(composer.Config{
		Mode:        cfg.Generation.Mode,
		Timeout:     cfg.GenerationTimeout(),
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
	}, backend)
	if err != nil {
		return nil, err
	}
	v := validator.New(validator.Limits{
		Short:    cfg.Validator.ShortSentences,
		Detailed: cfg.Validator.DetailedSentences,
	})

	a := &app{
		cfg:     cfg,
		backend: backend,
		agent:   pipeline.NewAgent(ds, cl, comp, v),
	}
	if record {
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			slog.Warn("interaction log disabled", "error", err)
		} else {
			a.store = store
			a.agent.SetRecorder(store)
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

func detectConfig(cfg config.Config) engine.DetectConfig {
	return engine.DetectConfig{
		Provider:         cfg.Generation.Provider,
		OllamaBaseURL:    cfg.Ollama.BaseURL,
		OllamaModel:      cfg.Ollama.Model,
		OpenRouterAPIKey: cfg.OpenRouter.APIKey,
		OpenRouterModel:  cfg.OpenRouter.Model,
		GeminiAPIKey:     cfg.Gemini.APIKey,
		GeminiModel:      cfg.Gemini.Model,
		GeminiBaseURL:    cfg.Gemini.BaseURL,
	}
}

// newBackend detects the generation backend. A local Ollama that is not
// ready degrades to Unavailable so answers stay deterministic.
func newBackend(ctx context.Context, cfg config.Config) (engine.Backend, error) {
	backend, err := engine.Detect(ctx, detectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("detecting generation backend: %w", err)
	}

	ob, ok := backend.(*engine.OllamaBackend)
	if !ok || !usesBackend(cfg) {
		return backend, nil
	}
	if err := ollama.EnsureReady(ctx, ob.Client(), ob.Model(), os.Stderr); err != nil {
		slog.Warn("ollama not ready, using deterministic answers", "error", err)
		return engine.Unavailable{Reason: err.Error()}, nil
	}
	return backend, nil
}

func usesBackend(cfg config.Config) bool {
	return cfg.Generation.Mode == string(composer.ModeGenerative) ||
		cfg.Classifier.Backend == intent.BackendGenerative
}
