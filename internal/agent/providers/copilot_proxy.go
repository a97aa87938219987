package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexuscore/gateway/internal/agent"
	openai "github.com/sashabaranov/go-openai"
)

// CopilotProxyProvider adapts a local Copilot Proxy (a VS Code extension
// exposing GitHub Copilot's models over an OpenAI-compatible endpoint) to
// agent.LLMProvider. No API key is required since auth is handled by the
// proxy process itself; request/response plumbing is shared with the other
// OpenAI-wire vendors via openai_compat.go.
type CopilotProxyProvider struct {
	client   *openai.Client
	baseURL  string
	models   []string
	modelMap map[string]agent.Model
	base     BaseProvider
}

// CopilotProxyConfig configures a CopilotProxyProvider.
type CopilotProxyConfig struct {
	BaseURL              string
	Models               []string
	DefaultContextWindow int
}

// DefaultCopilotProxyModels are common model ids available through Copilot.
var DefaultCopilotProxyModels = []string{
	"gpt-5.2",
	"gpt-5.2-codex",
	"gpt-5.1",
	"gpt-5.1-codex",
	"gpt-5-mini",
	"claude-opus-4.5",
	"claude-sonnet-4.5",
	"claude-haiku-4.5",
	"gemini-3-pro",
	"gemini-3-flash",
}

func NewCopilotProxyProvider(cfg CopilotProxyConfig) (*CopilotProxyProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:3000/v1"
	}

	models := cfg.Models
	if len(models) == 0 {
		models = DefaultCopilotProxyModels
	}

	contextWindow := cfg.DefaultContextWindow
	if contextWindow <= 0 {
		contextWindow = 128000
	}

	modelMap := make(map[string]agent.Model, len(models))
	for _, id := range models {
		modelMap[id] = agent.Model{
			ID:             id,
			Name:           id + " (Copilot Proxy)",
			ContextSize:    contextWindow,
			SupportsVision: true,
		}
	}

	clientConfig := openai.DefaultConfig("n/a") // no API key needed for a local proxy
	clientConfig.BaseURL = baseURL

	return &CopilotProxyProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		baseURL:  baseURL,
		models:   models,
		modelMap: modelMap,
		base:     NewBaseProvider("copilot-proxy", 3, time.Second),
	}, nil
}

func (p *CopilotProxyProvider) Name() string { return "copilot-proxy" }

func (p *CopilotProxyProvider) Models() []agent.Model {
	result := make([]agent.Model, 0, len(p.modelMap))
	for _, m := range p.modelMap {
		result = append(result, m)
	}
	return result
}

func (p *CopilotProxyProvider) SupportsTools() bool { return true }

func (p *CopilotProxyProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.client == nil {
		return nil, NewProviderError("copilot-proxy", req.Model, errors.New("client not initialized"))
	}

	model := req.Model
	if model == "" && len(p.models) > 0 {
		model = p.models[0]
	}
	if model == "" {
		return nil, NewProviderError("copilot-proxy", "", errors.New("model is required"))
	}

	chatReq, err := buildOpenAICompatRequest(model, req)
	if err != nil {
		return nil, fmt.Errorf("copilot-proxy: failed to convert messages: %w", err)
	}

	var stream *openai.ChatCompletionStream
	lastErr := p.base.Retry(ctx, isOpenAICompatRetryable, func() error {
		var err error
		stream, err = p.client.CreateChatCompletionStream(ctx, chatReq)
		return err
	})
	if lastErr != nil {
		wrapped := NewProviderError("copilot-proxy", model, lastErr)
		if isOpenAICompatRetryable(lastErr) {
			return nil, fmt.Errorf("copilot-proxy: max retries exceeded: %w", wrapped)
		}
		return nil, wrapped
	}

	chunks := make(chan *agent.CompletionChunk)
	go streamOpenAICompat(ctx, stream, chunks, func(err error) error {
		return NewProviderError("copilot-proxy", model, err)
	})

	return chunks, nil
}

// CheckHealth verifies connectivity to the Copilot Proxy.
func (p *CopilotProxyProvider) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		return NewProviderError("copilot-proxy", "", err)
	}
	return nil
}
