package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OpenAIProvider speaks the chat-completions API. Groq and other
// OpenAI-compatible services use it with a different endpoint.
type OpenAIProvider struct {
	baseProvider
}

// NewOpenAIProvider creates an OpenAI-compatible provider. name selects the
// defaults ("openai", "groq"); an empty name means "openai".
func NewOpenAIProvider(cfg *ProviderConfig) *OpenAIProvider {
	name := "openai"
	if cfg != nil && cfg.Name != "" {
		name = cfg.Name
	}
	return &OpenAIProvider{baseProvider: newBaseProvider(cfg, name)}
}

func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("%s API key not configured: %w", p.Name(), ErrUnavailable)
	}
	start := time.Now()

	oreq := openAIChatRequest{
		Model:       p.model(req),
		MaxTokens:   p.maxTokens(req),
		Temperature: p.temperature(req),
	}
	if req.SystemPrompt != "" {
		oreq.Messages = append(oreq.Messages, openAIMessage{Role: RoleSystem, Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		oreq.Messages = append(oreq.Messages, openAIMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportErr(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, statusErr(p.Name(), resp.StatusCode, bodyBytes)
	}

	var oresp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
		return nil, transportErr(p.Name(), fmt.Errorf("decode response: %w", err))
	}
	if len(oresp.Choices) == 0 {
		return nil, transportErr(p.Name(), fmt.Errorf("no choices in response"))
	}

	choice := oresp.Choices[0]
	return &ChatResponse{
		Content:      choice.Message.Content,
		Model:        oresp.Model,
		Duration:     time.Since(start),
		FinishReason: choice.FinishReason,
		TokensUsed:   oresp.Usage.TotalTokens,
	}, nil
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}
