package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AnthropicProvider speaks the Messages API
type AnthropicProvider struct {
	baseProvider
}

func NewAnthropicProvider(cfg *ProviderConfig) *AnthropicProvider {
	return &AnthropicProvider{baseProvider: newBaseProvider(cfg, "anthropic")}
}

func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured: %w", ErrUnavailable)
	}
	start := time.Now()

	areq := anthropicChatRequest{
		Model:       p.model(req),
		System:      req.SystemPrompt,
		MaxTokens:   p.maxTokens(req),
		Temperature: p.temperature(req),
	}
	for _, msg := range req.Messages {
		// the system prompt travels separately
		if msg.Role == RoleSystem {
			continue
		}
		areq.Messages = append(areq.Messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(areq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportErr(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, statusErr(p.Name(), resp.StatusCode, bodyBytes)
	}

	var aresp anthropicChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&aresp); err != nil {
		return nil, transportErr(p.Name(), fmt.Errorf("decode response: %w", err))
	}

	var content strings.Builder
	for _, block := range aresp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &ChatResponse{
		Content:      content.String(),
		Model:        aresp.Model,
		Duration:     time.Since(start),
		FinishReason: aresp.StopReason,
		TokensUsed:   aresp.Usage.InputTokens + aresp.Usage.OutputTokens,
	}, nil
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicChatResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
