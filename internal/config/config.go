// Package config loads moara settings from defaults, a JSON config file,
// a .env file, MOARA_* environment variables and a secrets file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
)

type Config struct {
	Data       DataConfig
	Generation GenerationConfig
	Classifier ClassifierConfig
	Ollama     OllamaConfig
	OpenRouter OpenRouterConfig
	Gemini     GeminiConfig
	Validator  ValidatorConfig
	Input      InputConfig
	Server     ServerConfig
	Storage    StorageConfig
	Log        LogConfig
}

// DataConfig points at the directory holding the four record files.
type DataConfig struct {
	Dir string
}

type GenerationConfig struct {
	Mode        string // template | generative
	Provider    string // auto | ollama | openrouter | gemini | none
	Timeout     string
	MaxTokens   int
	Temperature float64
}

type ClassifierConfig struct {
	Backend string // keywords | generative
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type OpenRouterConfig struct {
	APIKey string
	Model  string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional API endpoint override
}

type ValidatorConfig struct {
	ShortSentences    int
	DetailedSentences int
}

type InputConfig struct {
	MaxLength int
}

type ServerConfig struct {
	Port     int
	MaxConns int
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

const defaultGenerationTimeout = 15 * time.Second

func defaults() Config {
	return Config{
		Data: DataConfig{Dir: "data"},
		Generation: GenerationConfig{
			Mode:        "template",
			Provider:    "auto",
			Timeout:     defaultGenerationTimeout.String(),
			MaxTokens:   300,
			Temperature: 0.3,
		},
		Classifier: ClassifierConfig{Backend: "keywords"},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		OpenRouter: OpenRouterConfig{Model: "openai/gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-2.0-flash"},
		Validator: ValidatorConfig{
			ShortSentences:    2,
			DetailedSentences: 6,
		},
		Input: InputConfig{MaxLength: 500},
		Server: ServerConfig{
			Port:     4000,
			MaxConns: 64,
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads configuration in increasing precedence: defaults, the JSON file
// at $XDG_CONFIG_HOME/moara/config.json, a .env file in the working
// directory (or MOARA_ENV_FILE), and the process environment. API keys not
// set by the environment are read from the secrets file.
func Load() (Config, error) {
	dotenv, err := readDotEnv()
	if err != nil {
		return Config{}, err
	}
	return loadWith(newFileBackend(FilePath()), secretsFile{path: SecretsFilePath()}, envLookup(dotenv))
}

func readDotEnv() (map[string]string, error) {
	path := os.Getenv("MOARA_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	vals, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vals, nil
}

// envLookup prefers the process environment over .env values.
func envLookup(dotenv map[string]string) func(string) string {
	return func(name string) string {
		if v := os.Getenv(name); v != "" {
			return v
		}
		return dotenv[name]
	}
}

func loadWith(b ConfigBackend, sec secretStore, lookup func(string) string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg, lookup)

	for _, s := range specs {
		if !s.secret || s.extract(cfg).(string) != "" {
			continue
		}
		if v, err := sec.Get(s.key); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	for _, key := range []string{"openrouter.api_key", "gemini.api_key"} {
		s, _ := lookupSpec(key)
		v := s.extract(cfg).(string)
		if v != "" && !ValidAPIKey(v) {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring malformed %s (set via %s or the secrets file).\n", key, s.env)
			s.apply(&cfg, "")
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidAPIKey reports whether key looks like a provider API key: between 10
// and 500 characters with no whitespace.
func ValidAPIKey(key string) bool {
	if len(key) < 10 || len(key) > 500 {
		return false
	}
	return strings.IndexFunc(key, unicode.IsSpace) < 0
}

// Validate checks enumerated and numeric settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Generation.Mode {
	case "template", "generative":
	default:
		errs = append(errs, fmt.Errorf("generation.mode must be template or generative, got %q", c.Generation.Mode))
	}
	switch c.Generation.Provider {
	case "auto", "ollama", "openrouter", "gemini", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown generation.provider %q", c.Generation.Provider))
	}
	switch c.Classifier.Backend {
	case "keywords", "generative":
	default:
		errs = append(errs, fmt.Errorf("classifier.backend must be keywords or generative, got %q", c.Classifier.Backend))
	}
	if d, err := time.ParseDuration(c.Generation.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("generation.timeout %q is not a positive duration", c.Generation.Timeout))
	}
	if c.Validator.ShortSentences <= 0 || c.Validator.DetailedSentences < c.Validator.ShortSentences {
		errs = append(errs, fmt.Errorf("validator sentences must satisfy 0 < short (%d) <= detailed (%d)",
			c.Validator.ShortSentences, c.Validator.DetailedSentences))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// GenerationTimeout returns the parsed generation.timeout.
func (c Config) GenerationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil || d <= 0 {
		return defaultGenerationTimeout
	}
	return d
}
