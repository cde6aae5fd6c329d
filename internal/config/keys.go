package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	alt     string // conventional provider variable, read after env
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "data.dir", typ: kString, env: "MOARA_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Data.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Dir },
	},
	{
		key: "generation.mode", typ: kString, env: "MOARA_GENERATION_MODE",
		apply:   func(cfg *Config, v any) { cfg.Generation.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.Mode },
	},
	{
		key: "generation.provider", typ: kString, env: "MOARA_GENERATION_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Generation.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.Provider },
	},
	{
		key: "generation.timeout", typ: kString, env: "MOARA_GENERATION_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Generation.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Generation.Timeout },
	},
	{
		key: "generation.max_tokens", typ: kInt, env: "MOARA_GENERATION_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Generation.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Generation.MaxTokens },
	},
	{
		key: "generation.temperature", typ: kFloat, env: "MOARA_GENERATION_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Generation.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Generation.Temperature },
	},
	{
		key: "classifier.backend", typ: kString, env: "MOARA_CLASSIFIER_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Classifier.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Classifier.Backend },
	},
	{
		key: "ollama.base_url", typ: kString, env: "MOARA_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "MOARA_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "openrouter.model", typ: kString, env: "MOARA_OPENROUTER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.Model },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "MOARA_OPENROUTER_API_KEY", alt: "OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "MOARA_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.base_url", typ: kString, env: "MOARA_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "gemini.api_key", typ: kString, env: "MOARA_GEMINI_API_KEY", alt: "GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "validator.short_sentences", typ: kInt, env: "MOARA_VALIDATOR_SHORT_SENTENCES",
		apply:   func(cfg *Config, v any) { cfg.Validator.ShortSentences = v.(int) },
		extract: func(cfg Config) any { return cfg.Validator.ShortSentences },
	},
	{
		key: "validator.detailed_sentences", typ: kInt, env: "MOARA_VALIDATOR_DETAILED_SENTENCES",
		apply:   func(cfg *Config, v any) { cfg.Validator.DetailedSentences = v.(int) },
		extract: func(cfg Config) any { return cfg.Validator.DetailedSentences },
	},
	{
		key: "input.max_length", typ: kInt, env: "MOARA_INPUT_MAX_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Input.MaxLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Input.MaxLength },
	},
	{
		key: "server.port", typ: kInt, env: "MOARA_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_conns", typ: kInt, env: "MOARA_SERVER_MAX_CONNS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "server.api_token", typ: kString, env: "MOARA_SERVER_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MOARA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "MOARA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

// applyEnvOverrides applies every key whose variable lookup returns a
// non-empty value. lookup merges the process environment with .env values.
func applyEnvOverrides(cfg *Config, lookup func(string) string) {
	for _, s := range specs {
		raw := lookup(s.env)
		name := s.env
		if raw == "" && s.alt != "" {
			raw, name = lookup(s.alt), s.alt
		}
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		}
	}
}
