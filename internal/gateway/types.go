package gateway

import (
	"fmt"

	"github.com/nexuscore/gateway/internal/models"
	pkgmodels "github.com/nexuscore/gateway/pkg/models"
)

// chatRequest is the wire shape of a POST /chat or POST /planning body.
// Planning requests use the same envelope with a narrower tool set and a
// different system prompt, selected by the handler rather than by the
// client.
type chatRequest struct {
	Messages       []wireMessage `json:"messages"`
	Providers      []string      `json:"providers,omitempty"`
	Optimization   string        `json:"optimization,omitempty"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"maxTokens,omitempty"`
	Language       string        `json:"language,omitempty"`
	VoiceMode      bool          `json:"voiceMode,omitempty"`
	Location       string        `json:"location,omitempty"`
	IsContinuation bool          `json:"isContinuation,omitempty"`
	RequiresTools  bool          `json:"tools,omitempty"`
	Seed           string        `json:"seed,omitempty"`
	ToolChoice     string        `json:"toolChoice,omitempty"`
	JSONMode       bool          `json:"jsonMode,omitempty"`
}

type wireMessage struct {
	Role        string                 `json:"role"`
	Content     string                 `json:"content"`
	ToolCalls   []pkgmodels.ToolCall   `json:"tool_calls,omitempty"`
	ToolCallID  string                 `json:"tool_call_id,omitempty"`
	Name        string                 `json:"name,omitempty"`
	Attachments []pkgmodels.Attachment `json:"attachments,omitempty"`
}

func (m wireMessage) toMessage() pkgmodels.Message {
	return pkgmodels.Message{
		Role:        pkgmodels.Role(m.Role),
		Content:     m.Content,
		ToolCalls:   m.ToolCalls,
		ToolCallID:  m.ToolCallID,
		Name:        m.Name,
		Attachments: m.Attachments,
	}
}

func toMessages(wire []wireMessage) []pkgmodels.Message {
	out := make([]pkgmodels.Message, 0, len(wire))
	for _, m := range wire {
		out = append(out, m.toMessage())
	}
	return out
}

func toProviders(names []string) []models.Provider {
	if len(names) == 0 {
		return nil
	}
	out := make([]models.Provider, 0, len(names))
	for _, n := range names {
		out = append(out, models.Provider(n))
	}
	return out
}

func toOptimization(raw string) models.Optimization {
	switch models.Optimization(raw) {
	case models.OptimizationCheap, models.OptimizationQuality, models.OptimizationFree, models.OptimizationBalanced:
		return models.Optimization(raw)
	default:
		return models.OptimizationBalanced
	}
}

// generateImageRequest is the wire shape of a POST /generate-image body.
type generateImageRequest struct {
	Prompt       string   `json:"prompt"`
	Providers    []string `json:"providers,omitempty"`
	Optimization string   `json:"optimization,omitempty"`
}

// generateImageResponse is returned on success; Content carries whatever the
// dispatched model returned (a URL or inline base64 payload, provider
// dependent) since the adapter contract has no dedicated image-artifact
// type.
type generateImageResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Content  string `json:"content"`
}

// imageProviderHealth is one entry of the GET /health-check/image-providers
// response: every catalog model carrying the vision capability, alongside
// its current circuit-breaker state.
type imageProviderHealth struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	State     string `json:"state"`
	Available bool   `json:"available"`
}

func circuitStateName(s models.CircuitState) string {
	switch s {
	case models.CircuitOpen:
		return "open"
	case models.CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// errorBody is the JSON shape returned by non-streaming handlers on failure.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(format string, args ...any) errorBody {
	return errorBody{Error: fmt.Sprintf(format, args...)}
}
