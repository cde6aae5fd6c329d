package config

import (
	"fmt"
	"strconv"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
// Secret values are masked.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		v := fmt.Sprintf("%v", s.extract(cfg))
		if s.secret && v != "" {
			v = "(set)"
		}
		result = append(result, KeyInfo{Key: s.key, EnvVar: s.env, Value: v})
	}
	return result
}

// SetKey writes a config key to the config file, or a secret to the secrets
// file.
func SetKey(key, value string) error {
	return setKey(newFileBackend(FilePath()), secretsFile{path: SecretsFilePath()}, key, value)
}

func setKey(b ConfigBackend, sec secretStore, key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		if s.alt != "" && !ValidAPIKey(value) {
			return fmt.Errorf("value for %s does not look like an API key", key)
		}
		return sec.Set(key, value)
	}
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		return b.SetInt(key, i)
	case kFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid number for %s: %w", key, err)
		}
	}
	return b.SetString(key, value)
}

// ValidKeys returns the list of valid config key names.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.key)
	}
	return keys
}
