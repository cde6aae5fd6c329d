package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSecretNotFound is returned when the secrets file has no value for a key.
var ErrSecretNotFound = errors.New("secret not found")

const secretsService = "moara"

// secretStore abstracts where API keys live outside the config file.
type secretStore interface {
	Get(account string) (string, error)
	Set(account, value string) error
}

// SecretsFilePath returns the location of the secrets file.
func SecretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "moara", "secrets.json")
}

// secretsFile keeps secrets as {"moara": {"openrouter.api_key": "..."}} in a
// 0600 JSON file.
type secretsFile struct {
	path string
}

func (f secretsFile) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (f secretsFile) Get(account string) (string, error) {
	secrets, err := f.read()
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", err
	}
	val, ok := secrets[secretsService][account]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, account)
	}
	return val, nil
}

func (f secretsFile) Set(account, value string) error {
	secrets, err := f.read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[secretsService] == nil {
		secrets[secretsService] = make(map[string]string)
	}
	secrets[secretsService][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}
