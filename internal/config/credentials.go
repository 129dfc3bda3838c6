package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/normanking/cortexguide/internal/llm"
)

// ErrMissingCredential means the language service key could not be found
var ErrMissingCredential = errors.New("missing credential")

// Credentials is what the gateway needs to reach the language service
type Credentials struct {
	Provider string
	Endpoint string
	Model    string
	APIKey   string
}

// ProviderConfig turns the credentials plus tuning into a provider config
func (c Credentials) ProviderConfig(l LLMConfig) *llm.ProviderConfig {
	return &llm.ProviderConfig{
		Name:        c.Provider,
		Endpoint:    c.Endpoint,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   l.MaxTokens,
		Temperature: l.Temperature,
		Timeout:     l.Timeout,
	}
}

var keyEnvs = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"groq":      "GROQ_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// KeyEnv returns the environment variable the key is read from
func KeyEnv(l LLMConfig) string {
	if l.APIKeyEnv != "" {
		return l.APIKeyEnv
	}
	if env, ok := keyEnvs[l.Provider]; ok {
		return env
	}
	return strings.ToUpper(l.Provider) + "_API_KEY"
}

// LoadEnv loads .env files from the config directory and the working
// directory. Variables already set are left alone; missing files are
// skipped.
func LoadEnv() error {
	var files []string
	if dir, err := GetConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	files = append(files, ".env")

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadCredentials resolves the service key and model once. A provider that
// needs a key and has none yields ErrMissingCredential.
func LoadCredentials(cfg *Config) (Credentials, error) {
	l := cfg.LLM
	if l.Provider == "" {
		l.Provider = "openai"
	}
	c := Credentials{
		Provider: l.Provider,
		Endpoint: l.Endpoint,
		Model:    l.Model,
	}
	if c.Model == "" {
		c.Model = llm.DefaultConfig(l.Provider).Model
	}
	if !llm.NeedsKey(l.Provider) {
		return c, nil
	}

	env := KeyEnv(l)
	c.APIKey = strings.TrimSpace(os.Getenv(env))
	if c.APIKey == "" {
		return c, fmt.Errorf("%w: %s is not set", ErrMissingCredential, env)
	}
	return c, nil
}
