package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider uses the Google GenAI SDK
type GeminiProvider struct {
	baseProvider

	once    sync.Once
	gclient *genai.Client
	initErr error
}

func NewGeminiProvider(cfg *ProviderConfig) *GeminiProvider {
	return &GeminiProvider{baseProvider: newBaseProvider(cfg, "gemini")}
}

func (p *GeminiProvider) genaiClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:     p.config.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: p.client,
		}
		if p.config.Endpoint != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.config.Endpoint}
		}
		p.gclient, p.initErr = genai.NewClient(ctx, cc)
	})
	return p.gclient, p.initErr
}

func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured: %w", ErrUnavailable)
	}
	start := time.Now()

	client, err := p.genaiClient(ctx)
	if err != nil {
		return nil, transportErr(p.Name(), fmt.Errorf("create client: %w", err))
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			continue
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	gcfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.temperature(req))),
		MaxOutputTokens: int32(p.maxTokens(req)),
	}
	if req.SystemPrompt != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	model := p.model(req)
	resp, err := client.Models.GenerateContent(ctx, model, contents, gcfg)
	if err != nil {
		return nil, transportErr(p.Name(), err)
	}

	return &ChatResponse{
		Content:  resp.Text(),
		Model:    model,
		Duration: time.Since(start),
	}, nil
}
