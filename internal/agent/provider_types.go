package agent

import (
	"context"
	"encoding/json"

	"github.com/nexuscore/gateway/pkg/models"
)

// LLMProvider is the vendor-neutral surface every adapter in
// internal/agent/providers implements. Complete streams its result over a
// channel rather than returning a single value, so the orchestrator can
// forward text/tool-call deltas to the SSE writer as they arrive instead of
// buffering a full turn.
//
// Implementations must be safe for concurrent use: the orchestrator may hold
// several Complete calls in flight at once across candidate fallback.
type LLMProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
	Name() string
	Models() []Model
	SupportsTools() bool
}

// ResponseFormat constrains the shape of a model's reply. JSON requests
// structured (JSON-mode) output; Schema, when set alongside JSON, is passed
// to vendors that support a JSON-schema-constrained response.
type ResponseFormat struct {
	JSON   bool            `json:"json,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// CompletionRequest is the vendor-neutral shape every LLMProvider.Complete
// call receives: messages, tools, and generation parameters in a form that
// doesn't assume any one vendor's wire format. Each adapter is responsible
// for translating this into its own SDK's request type, including any
// vendor-specific rules (e.g. the Gemini adapter downgrading a ToolChoice of
// "required" to "auto" and suppressing ResponseFormat whenever Tools is
// non-empty, since Gemini's API cannot satisfy both simultaneously).
type CompletionRequest struct {
	// Model selects the vendor model id. Empty defers to the adapter's default.
	Model string `json:"model"`

	System   string               `json:"system,omitempty"`
	Messages []CompletionMessage  `json:"messages"`
	Tools    []Tool               `json:"tools,omitempty"`

	// MaxTokens bounds the generated response length; 0 defers to the adapter's default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is forwarded unchanged to vendors that accept it. 0 means unset,
	// not "deterministic" — adapters omit the field rather than sending a literal 0.
	Temperature float64 `json:"temperature,omitempty"`

	// ToolChoice is one of "", "auto", "required", or a specific tool name.
	// Adapters translate this into their own tool-choice representation, or
	// drop it where the vendor has no equivalent (e.g. Ollama).
	ToolChoice string `json:"tool_choice,omitempty"`

	// ResponseFormat requests structured output. Adapters that cannot honor
	// it alongside Tools suppress it rather than erroring, per vendor quirk.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// EnableThinking turns on extended/reasoning mode on vendors that support it.
	EnableThinking bool `json:"enable_thinking,omitempty"`

	// ThinkingBudgetTokens bounds EnableThinking's token budget; 0 uses the adapter's default.
	ThinkingBudgetTokens int `json:"thinking_budget_tokens,omitempty"`
}

// CompletionMessage represents a single message in a conversation.
//
// Messages can contain:
//   - Text content (user queries, assistant responses)
//   - Tool calls (assistant requesting tool execution)
//   - Tool results (responses from executed tools)
//   - Attachments (images, files for vision-capable models)
//
// Role values: "user", "assistant", "tool"
type CompletionMessage struct {
	// Role indicates who sent the message: "user", "assistant", or "tool"
	Role string `json:"role"`

	// Content is the text content of the message (may be empty for tool-only messages)
	Content string `json:"content,omitempty"`

	// ToolCalls contains any tool execution requests from the assistant
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`

	// ToolResults contains responses from executed tools
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`

	// Attachments contains images or files for vision-capable models
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// CompletionChunk is one item off the channel Complete returns: a text
// delta, a fully-assembled tool call, a thinking-block delta, or a terminal
// Done/Error. InputTokens/OutputTokens are only populated on the chunk that
// carries Done.
type CompletionChunk struct {
	// Text contains partial response text (streamed incrementally)
	Text string `json:"text,omitempty"`

	// ToolCall contains a complete tool execution request (when LLM needs tool output)
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	// Done is true when the stream has completed successfully
	Done bool `json:"done,omitempty"`

	// Error contains any error that occurred (streaming is terminated)
	Error error `json:"-"`

	// Thinking contains reasoning/thinking text when extended thinking is enabled.
	// This is streamed separately from the main response text.
	Thinking string `json:"thinking,omitempty"`

	// ThinkingStart signals the beginning of a thinking block.
	ThinkingStart bool `json:"thinking_start,omitempty"`

	// ThinkingEnd signals the end of a thinking block.
	ThinkingEnd bool `json:"thinking_end,omitempty"`

	// InputTokens contains the number of input tokens consumed by this request.
	// Only populated in the final chunk (when Done is true).
	InputTokens int `json:"input_tokens,omitempty"`

	// OutputTokens contains the number of output tokens generated by this response.
	// Only populated in the final chunk (when Done is true).
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Model describes an available LLM model and its capabilities.
//
// This metadata is used for:
//   - Displaying available models to users
//   - Validating model selection
//   - Checking capability requirements (vision, context size)
type Model struct {
	// ID is the API identifier for the model (e.g., "claude-sonnet-4-20250514")
	ID string `json:"id"`

	// Name is the human-readable model name (e.g., "Claude Sonnet 4")
	Name string `json:"name"`

	// ContextSize is the maximum token context window
	ContextSize int `json:"context_size"`

	// SupportsVision indicates if the model can process images
	SupportsVision bool `json:"supports_vision"`
}

// Tool is an executable capability the orchestrator can offer to a model:
// web search, sandboxed code execution, page scraping, and so on. The
// registry in internal/agent/tool_registry.go is the concrete catalog of
// these; this interface is what a provider adapter converts into its own
// vendor's function/tool-calling wire format.
type Tool interface {
	// Name returns the tool name for LLM function calling.
	// Must be a valid function name (alphanumeric, underscores).
	Name() string

	// Description returns a natural language description of what the tool does.
	// This helps the LLM decide when to use the tool.
	Description() string

	// Schema returns the JSON Schema defining the tool's parameters.
	// The LLM uses this to construct valid tool call arguments.
	Schema() json.RawMessage

	// Execute runs the tool with the given JSON parameters.
	// The params match the schema returned by Schema().
	// Returns the tool output or an error.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult contains the output from a tool execution.
//
// Results are sent back to the LLM which uses them to formulate
// its final response. Errors are also communicated via ToolResult
// with IsError=true, allowing the LLM to handle failures gracefully.
type ToolResult struct {
	// Content is the tool's output (text, JSON, etc.)
	Content string `json:"content"`

	// IsError indicates this result represents an error condition
	IsError bool `json:"is_error,omitempty"`

	// Artifacts contains any files/media produced by the tool.
	// These are converted to message attachments when sent to channels.
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Artifact represents a file or media produced by a tool execution.
type Artifact struct {
	// ID is the unique identifier for the artifact.
	ID string `json:"id"`

	// Type describes the artifact type (screenshot, recording, file).
	Type string `json:"type"`

	// MimeType is the MIME type of the artifact data.
	MimeType string `json:"mime_type"`

	// Filename is the suggested filename for the artifact.
	Filename string `json:"filename,omitempty"`

	// Data contains the raw artifact bytes.
	Data []byte `json:"data,omitempty"`

	// URL is an optional URL where the artifact can be accessed.
	URL string `json:"url,omitempty"`
}

// ToolEventStore persists tool calls and results for audit, replay, and analytics.
// This is optional - if nil, tool events are not persisted separately from messages.
type ToolEventStore interface {
	// AddToolCall persists a tool call event.
	AddToolCall(ctx context.Context, sessionID, messageID string, call *models.ToolCall) error

	// AddToolResult persists a tool result event.
	AddToolResult(ctx context.Context, sessionID, messageID string, call *models.ToolCall, result *models.ToolResult) error
}

// ResponseChunk represents a streaming response chunk from the runtime.
// Each chunk may contain text, tool results, tool events, runtime events, or errors.
// Consumers should check each field and handle accordingly.
type ResponseChunk struct {
	Text          string               `json:"text,omitempty"`
	Thinking      string               `json:"thinking,omitempty"`
	ThinkingStart bool                 `json:"thinking_start,omitempty"`
	ThinkingEnd   bool                 `json:"thinking_end,omitempty"`
	ToolResult    *models.ToolResult   `json:"tool_result,omitempty"`
	ToolEvent     *models.ToolEvent    `json:"tool_event,omitempty"`
	Event         *models.RuntimeEvent `json:"event,omitempty"`
	Error         error                `json:"-"`
	// Artifacts contains any files/media produced by tool executions.
	// These should be converted to message attachments when sending to channels.
	Artifacts []Artifact `json:"artifacts,omitempty"`
}
