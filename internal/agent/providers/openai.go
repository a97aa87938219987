package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexuscore/gateway/internal/agent"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider adapts OpenAI's chat-completions API to agent.LLMProvider.
// Message/tool conversion and stream processing live in openai_compat.go,
// shared with the other OpenAI-wire-compatible adapters (Azure, OpenRouter,
// Copilot Proxy).
type OpenAIProvider struct {
	client *openai.Client
	apiKey string
	base   BaseProvider
}

// NewOpenAIProvider creates an OpenAI provider. An empty apiKey yields a
// provider with no client; Complete then fails fast rather than panicking.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey: apiKey,
		base:   NewBaseProvider("openai", 3, time.Second),
	}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", ContextSize: 16385, SupportsVision: false},
		{ID: "gpt-4", Name: "GPT-4", ContextSize: 8192, SupportsVision: false},
	}
}

func (p *OpenAIProvider) SupportsTools() bool { return true }

func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.client == nil {
		return nil, NewProviderError("openai", req.Model, errors.New("OpenAI API key not configured"))
	}

	chatReq, err := buildOpenAICompatRequest(req.Model, req)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to convert messages: %w", err)
	}

	var stream *openai.ChatCompletionStream
	lastErr := p.base.Retry(ctx, isOpenAICompatRetryable, func() error {
		var err error
		stream, err = p.client.CreateChatCompletionStream(ctx, chatReq)
		return err
	})
	if lastErr != nil {
		wrapped := p.wrapError(lastErr, req.Model)
		if isOpenAICompatRetryable(lastErr) {
			return nil, fmt.Errorf("openai: max retries exceeded: %w", wrapped)
		}
		return nil, wrapped
	}

	chunks := make(chan *agent.CompletionChunk)
	go streamOpenAICompat(ctx, stream, chunks, func(err error) error { return p.wrapError(err, req.Model) })

	return chunks, nil
}

func (p *OpenAIProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if IsProviderError(err) {
		return err
	}
	return NewProviderError("openai", model, err)
}
