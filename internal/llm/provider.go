// Package llm is the boundary to external text-generation services.
// Providers speak each vendor's wire format; the Gateway owns the system
// framing and turns every failure into a typed error.
package llm

import (
	"context"
	"io"
	"net/http"
	"time"
)

// MaxErrorBodySize limits how much of an error response body is read
const MaxErrorBodySize = 1 << 20

func readLimitedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}

// Provider is one text-generation backend
type Provider interface {
	// Chat sends the full conversation and returns the reply
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier
	Name() string

	// Available reports whether the provider is configured and reachable.
	// Callers treat the answer as advisory.
	Available() bool
}

// Roles used in Message.Role
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is a single round trip
type ChatRequest struct {
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  float64   `json:"temperature,omitempty"`
}

// Message is one dialogue turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse contains the raw reply
type ChatResponse struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	Duration     time.Duration `json:"duration"`
	FinishReason string        `json:"finish_reason,omitempty"`
	TokensUsed   int           `json:"tokens_used,omitempty"`
}

// ProviderConfig configures a provider
type ProviderConfig struct {
	Name        string
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns defaults for a provider name
func DefaultConfig(name string) *ProviderConfig {
	cfg := &ProviderConfig{
		Name:        name,
		MaxTokens:   400,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
	switch name {
	case "openai":
		cfg.Endpoint = "https://api.openai.com/v1"
		cfg.Model = "gpt-4o-mini"
	case "groq":
		cfg.Endpoint = "https://api.groq.com/openai/v1"
		cfg.Model = "llama-3.3-70b-versatile"
		cfg.Timeout = 15 * time.Second
	case "anthropic":
		cfg.Endpoint = "https://api.anthropic.com"
		cfg.Model = "claude-3-5-haiku-latest"
	case "ollama":
		cfg.Endpoint = "http://127.0.0.1:11434"
		cfg.Model = "llama3"
		cfg.Timeout = time.Minute
	case "gemini":
		cfg.Model = "gemini-2.0-flash"
	}
	return cfg
}

// baseProvider carries what every HTTP provider needs
type baseProvider struct {
	config *ProviderConfig
	client *http.Client
}

func newBaseProvider(cfg *ProviderConfig, providerName string) baseProvider {
	defaults := DefaultConfig(providerName)
	if cfg == nil {
		cfg = defaults
	}
	c := *cfg
	if c.Endpoint == "" {
		c.Endpoint = defaults.Endpoint
	}
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaults.MaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = defaults.Temperature
	}
	c.Name = providerName

	return baseProvider{
		config: &c,
		client: &http.Client{Timeout: c.Timeout},
	}
}

func (b *baseProvider) Name() string {
	return b.config.Name
}

// Available checks that a key is configured
func (b *baseProvider) Available() bool {
	return b.config.APIKey != ""
}

func (b *baseProvider) model(req *ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return b.config.Model
}

func (b *baseProvider) maxTokens(req *ChatRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return b.config.MaxTokens
}

func (b *baseProvider) temperature(req *ChatRequest) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return b.config.Temperature
}
