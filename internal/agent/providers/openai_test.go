package providers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

func TestConvertOpenAICompatMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []agent.CompletionMessage
		system   string
		wantLen  int
		wantErr  bool
	}{
		{
			name: "basic text messages",
			messages: []agent.CompletionMessage{
				{Role: "user", Content: "Hello"},
				{Role: "assistant", Content: "Hi there!"},
			},
			system:  "You are a helpful assistant",
			wantLen: 3, // system + 2 messages
		},
		{
			name: "message with tool calls",
			messages: []agent.CompletionMessage{
				{Role: "user", Content: "What's the weather?"},
				{
					Role:    "assistant",
					Content: "",
					ToolCalls: []models.ToolCall{
						{ID: "call_123", Name: "get_weather", Input: json.RawMessage(`{"location":"NYC"}`)},
					},
				},
			},
			wantLen: 2,
		},
		{
			name: "message with tool results",
			messages: []agent.CompletionMessage{
				{
					Role: "tool",
					ToolResults: []models.ToolResult{
						{ToolCallID: "call_123", Content: "Sunny, 72F"},
					},
				},
			},
			wantLen: 1,
		},
		{
			name: "message with image attachment (vision)",
			messages: []agent.CompletionMessage{
				{
					Role:    "user",
					Content: "What's in this image?",
					Attachments: []models.Attachment{
						{ID: "img_1", Type: "image", URL: "https://example.com/image.jpg", MimeType: "image/jpeg"},
					},
				},
			},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertOpenAICompatMessages(tt.messages, tt.system)
			if (err != nil) != tt.wantErr {
				t.Fatalf("convertOpenAICompatMessages() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(got) != tt.wantLen {
				t.Errorf("convertOpenAICompatMessages() got %d messages, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestConvertMessagesWithMultipleImages(t *testing.T) {
	messages := []agent.CompletionMessage{
		{
			Role:    "user",
			Content: "Compare these images",
			Attachments: []models.Attachment{
				{ID: "img_1", Type: "image", URL: "https://example.com/image1.jpg"},
				{ID: "img_2", Type: "image", URL: "https://example.com/image2.jpg"},
			},
		},
	}

	got, err := convertOpenAICompatMessages(messages, "")
	if err != nil {
		t.Fatalf("convertOpenAICompatMessages() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if len(got[0].MultiContent) != 3 { // text + 2 images
		t.Errorf("expected 3 content parts, got %d", len(got[0].MultiContent))
	}
}

type openaiMockTool struct {
	name        string
	description string
	schema      json.RawMessage
}

func (m *openaiMockTool) Name() string        { return m.name }
func (m *openaiMockTool) Description() string { return m.description }
func (m *openaiMockTool) Schema() json.RawMessage { return m.schema }
func (m *openaiMockTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	return &agent.ToolResult{Content: "mock result"}, nil
}

func TestOpenAICompatToolChoice(t *testing.T) {
	tests := []struct {
		choice string
		want   any
	}{
		{"", nil},
		{"auto", "auto"},
		{"required", "required"},
		{"none", "none"},
		{"get_weather", openai.ToolChoice{Type: openai.ToolTypeFunction, Function: openai.ToolFunction{Name: "get_weather"}}},
	}

	for _, tt := range tests {
		t.Run(tt.choice, func(t *testing.T) {
			got := openAICompatToolChoice(tt.choice)
			if got != tt.want {
				t.Errorf("openAICompatToolChoice(%q) = %#v, want %#v", tt.choice, got, tt.want)
			}
		})
	}
}

func TestBuildOpenAICompatRequestToolsAndFormat(t *testing.T) {
	req := &agent.CompletionRequest{
		Model:       "gpt-4o",
		Messages:    []agent.CompletionMessage{{Role: "user", Content: "hi"}},
		Temperature: 0.5,
		ToolChoice:  "required",
		Tools:       []agent.Tool{&openaiMockTool{name: "test_tool", description: "A test tool", schema: json.RawMessage(`{"type":"object","properties":{"arg":{"type":"string"}}}`)}},
		ResponseFormat: &agent.ResponseFormat{JSON: true},
	}

	chatReq, err := buildOpenAICompatRequest(req.Model, req)
	if err != nil {
		t.Fatalf("buildOpenAICompatRequest() error = %v", err)
	}
	if len(chatReq.Tools) != 1 || chatReq.Tools[0].Function.Name != "test_tool" {
		t.Fatalf("expected 1 tool named test_tool, got %+v", chatReq.Tools)
	}
	if chatReq.ToolChoice != "required" {
		t.Errorf("expected tool_choice=required, got %v", chatReq.ToolChoice)
	}
	if chatReq.ResponseFormat == nil || chatReq.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Errorf("expected JSON response format, got %+v", chatReq.ResponseFormat)
	}
	if chatReq.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", chatReq.Temperature)
	}
}

func TestIsOpenAICompatRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantRetry bool
	}{
		{"rate limit error", errors.New("rate limit exceeded"), true},
		{"429 status", errors.New("HTTP 429"), true},
		{"500 server error", errors.New("HTTP 500"), true},
		{"timeout", errors.New("timeout exceeded"), true},
		{"invalid API key", errors.New("invalid API key"), false},
		{"no error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOpenAICompatRetryable(tt.err); got != tt.wantRetry {
				t.Errorf("isOpenAICompatRetryable() = %v, want %v", got, tt.wantRetry)
			}
		})
	}
}

func TestProviderName(t *testing.T) {
	provider := &OpenAIProvider{}
	if got := provider.Name(); got != "openai" {
		t.Errorf("Name() = %v, want openai", got)
	}
}

func TestProviderSupportsTools(t *testing.T) {
	provider := &OpenAIProvider{}
	if !provider.SupportsTools() {
		t.Error("SupportsTools() = false, want true")
	}
}

func TestProviderModels(t *testing.T) {
	provider := &OpenAIProvider{}
	models := provider.Models()

	if len(models) == 0 {
		t.Fatal("Models() returned empty list")
	}

	modelNames := make(map[string]bool)
	for _, m := range models {
		modelNames[m.ID] = true
	}

	expectedModels := []string{"gpt-4o", "gpt-4-turbo", "gpt-3.5-turbo"}
	for _, expected := range expectedModels {
		if !modelNames[expected] {
			t.Errorf("Models() missing expected model: %s", expected)
		}
	}
}

func TestOpenAIErrorHandling(t *testing.T) {
	provider := NewOpenAIProvider("")
	req := &agent.CompletionRequest{
		Model:    "gpt-3.5-turbo",
		Messages: []agent.CompletionMessage{{Role: "user", Content: "Hello"}},
	}

	if _, err := provider.Complete(context.Background(), req); err == nil {
		t.Error("Complete() with no API key should return an error")
	}
}

func TestVisionSupport(t *testing.T) {
	provider := &OpenAIProvider{}
	models := provider.Models()

	visionModels := 0
	for _, m := range models {
		if m.SupportsVision {
			visionModels++
		}
	}
	if visionModels == 0 {
		t.Error("no models with vision support found")
	}

	for _, m := range models {
		if m.ID == "gpt-4o" || m.ID == "gpt-4-turbo" {
			if !m.SupportsVision {
				t.Errorf("model %s should support vision", m.ID)
			}
		}
	}
}

func TestTokenCounting(t *testing.T) {
	provider := &OpenAIProvider{}
	models := provider.Models()

	for _, m := range models {
		if m.ContextSize <= 0 {
			t.Errorf("model %s has invalid context size: %d", m.ID, m.ContextSize)
		}
		switch m.ID {
		case "gpt-4o", "gpt-4-turbo":
			if m.ContextSize != 128000 {
				t.Errorf("model %s has wrong context size: %d, want 128000", m.ID, m.ContextSize)
			}
		case "gpt-3.5-turbo":
			if m.ContextSize != 16385 {
				t.Errorf("model %s has wrong context size: %d, want 16385", m.ID, m.ContextSize)
			}
		}
	}
}
