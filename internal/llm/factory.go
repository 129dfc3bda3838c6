package llm

import "fmt"

// NewProvider builds the provider named in cfg
func NewProvider(cfg *ProviderConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil provider config")
	}
	switch cfg.Name {
	case "openai", "groq", "":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	case "gemini":
		return NewGeminiProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// NeedsKey reports whether the named provider requires an API key
func NeedsKey(name string) bool {
	return name != "ollama"
}
