package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexuscore/gateway/internal/agent"
	openai "github.com/sashabaranov/go-openai"
)

// AzureOpenAIProvider adapts Azure OpenAI Service to agent.LLMProvider.
// Azure differs from direct OpenAI only in how the client is built — a
// resource endpoint, an API version query parameter, and a deployment name
// standing in for a model id — so request/response handling is shared with
// the other OpenAI-wire vendors via openai_compat.go.
type AzureOpenAIProvider struct {
	client       *openai.Client
	apiKey       string
	endpoint     string
	apiVersion   string
	defaultModel string
	base         BaseProvider
}

// AzureOpenAIConfig configures an AzureOpenAIProvider. Endpoint and APIKey
// are required; APIVersion defaults to 2024-02-15-preview.
type AzureOpenAIConfig struct {
	Endpoint     string
	APIKey       string
	APIVersion   string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

func NewAzureOpenAIProvider(cfg AzureOpenAIConfig) (*AzureOpenAIProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("azure: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("azure: API key is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-02-15-preview"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	clientConfig.APIVersion = cfg.APIVersion

	return &AzureOpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		apiKey:       cfg.APIKey,
		endpoint:     cfg.Endpoint,
		apiVersion:   cfg.APIVersion,
		defaultModel: cfg.DefaultModel,
		base:         NewBaseProvider("azure", cfg.MaxRetries, cfg.RetryDelay),
	}, nil
}

func (p *AzureOpenAIProvider) Name() string { return "azure" }

// Models returns placeholder entries, since Azure deployments are
// custom-named per resource rather than a fixed catalog.
func (p *AzureOpenAIProvider) Models() []agent.Model {
	return []agent.Model{
		{ID: "gpt-4o", Name: "GPT-4o (Azure)", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo (Azure)", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4", Name: "GPT-4 (Azure)", ContextSize: 8192, SupportsVision: false},
		{ID: "gpt-35-turbo", Name: "GPT-3.5 Turbo (Azure)", ContextSize: 16385, SupportsVision: false},
	}
}

func (p *AzureOpenAIProvider) SupportsTools() bool { return true }

func (p *AzureOpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.client == nil {
		return nil, NewProviderError("azure", req.Model, errors.New("Azure OpenAI client not initialized (set llm.providers.azure.api_key/base_url)"))
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return nil, NewProviderError("azure", "", errors.New("model/deployment name is required"))
	}

	chatReq, err := buildOpenAICompatRequest(model, req)
	if err != nil {
		return nil, fmt.Errorf("azure: failed to convert messages: %w", err)
	}

	var stream *openai.ChatCompletionStream
	lastErr := p.base.Retry(ctx, isOpenAICompatRetryable, func() error {
		var err error
		stream, err = p.client.CreateChatCompletionStream(ctx, chatReq)
		if err != nil {
			err = p.wrapError(err, model)
		}
		return err
	})
	if lastErr != nil {
		if isOpenAICompatRetryable(lastErr) {
			return nil, fmt.Errorf("azure: max retries exceeded: %w", lastErr)
		}
		return nil, lastErr
	}

	chunks := make(chan *agent.CompletionChunk)
	go streamOpenAICompat(ctx, stream, chunks, func(err error) error { return p.wrapError(err, model) })

	return chunks, nil
}

func (p *AzureOpenAIProvider) wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	if IsProviderError(err) {
		return err
	}
	return NewProviderError("azure", model, err)
}
