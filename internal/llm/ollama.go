package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaProvider talks to a local Ollama server. It needs no key.
type OllamaProvider struct {
	baseProvider
}

func NewOllamaProvider(cfg *ProviderConfig) *OllamaProvider {
	return &OllamaProvider{baseProvider: newBaseProvider(cfg, "ollama")}
}

// Available probes /api/tags and requires at least one installed model
func (p *OllamaProvider) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	return len(tags.Models) > 0
}

func (p *OllamaProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	oreq := ollamaChatRequest{
		Model:  p.model(req),
		Stream: false,
		Options: ollamaOptions{
			Temperature: p.temperature(req),
			NumPredict:  p.maxTokens(req),
		},
	}
	if req.SystemPrompt != "" {
		oreq.Messages = append(oreq.Messages, ollamaMessage{Role: RoleSystem, Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		oreq.Messages = append(oreq.Messages, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportErr(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, statusErr(p.Name(), resp.StatusCode, bodyBytes)
	}

	var oresp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
		return nil, transportErr(p.Name(), fmt.Errorf("decode response: %w", err))
	}

	return &ChatResponse{
		Content:      oresp.Message.Content,
		Model:        oresp.Model,
		Duration:     time.Since(start),
		FinishReason: oresp.DoneReason,
		TokensUsed:   oresp.PromptEvalCount + oresp.EvalCount,
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}
