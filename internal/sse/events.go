package sse

import pkgmodels "github.com/nexuscore/gateway/pkg/models"

// Event names are part of the wire contract.
const (
	EventLLMRequest      = "llm_request"
	EventLLMResponse     = "llm_response"
	EventDelta           = "delta"
	EventToolCall        = "tool_call"
	EventToolResult      = "tool_result"
	EventMessageComplete = "message_complete"
	EventError           = "error"
)

// LLMRequestPayload accompanies llm_request, emitted before each provider
// call. RequestBody is sanitized (credentials stripped) before inclusion.
type LLMRequestPayload struct {
	Phase       pkgmodels.CallPhase `json:"phase"`
	Provider    string              `json:"provider"`
	Model       string              `json:"model"`
	Iteration   int                 `json:"iteration"`
	RequestBody any                 `json:"requestBody,omitempty"`
}

// LLMResponsePayload accompanies llm_response, emitted after each provider
// call completes (success or failure).
type LLMResponsePayload struct {
	Phase        pkgmodels.CallPhase `json:"phase"`
	Provider     string              `json:"provider"`
	Model        string              `json:"model"`
	Iteration    int                 `json:"iteration"`
	Status       int                 `json:"status,omitempty"`
	Headers      map[string]string   `json:"headers,omitempty"`
	PromptTokens int                 `json:"promptTokens,omitempty"`
	OutputTokens int                 `json:"outputTokens,omitempty"`
	DurationMs   int64               `json:"durationMs,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// DeltaPayload accompanies delta, one per streamed text fragment.
type DeltaPayload struct {
	Text string `json:"text"`
}

// ToolCallPayload accompanies tool_call, emitted when a tool call is
// dispatched to the executor.
type ToolCallPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResultPayload accompanies tool_result, emitted when a tool call
// completes.
type ToolResultPayload struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ContentForModel string `json:"contentForModel"`
	Cached          bool   `json:"cached"`
	ErrorKind       string `json:"errorKind,omitempty"`
}

// ExtractedContent is the deduplicated supplementary data C10 derives from
// tool replies. It is never fed back to the model.
type ExtractedContent struct {
	Sources       []ExtractedSource `json:"sources,omitempty"`
	Images        []string          `json:"images,omitempty"`
	YoutubeVideos []string          `json:"youtubeVideos,omitempty"`
	OtherVideos   []string          `json:"otherVideos,omitempty"`
	Media         []string          `json:"media,omitempty"`
}

// ExtractedSource is one deduplicated source link.
type ExtractedSource struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// MessageCompletePayload accompanies message_complete, emitted once when
// the agentic loop terminates.
type MessageCompletePayload struct {
	Content          string                   `json:"content"`
	LLMAPICalls      []pkgmodels.ProviderCall `json:"llmApiCalls"`
	ExtractedContent ExtractedContent         `json:"extractedContent"`
}

// ErrorPayload accompanies error, emitted on a fatal, unrecoverable
// failure.
type ErrorPayload struct {
	Kind          string `json:"kind"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}
