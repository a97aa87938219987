package models

import "time"

// CallPhase classifies why a provider call was made, for the transparency
// log surfaced to clients in message_complete.
type CallPhase string

const (
	PhaseChatIteration  CallPhase = "chat_iteration"
	PhaseSelfEvaluation CallPhase = "self_evaluation"
	PhaseGuardrailIn    CallPhase = "guardrail_input"
	PhaseGuardrailOut   CallPhase = "guardrail_output"
	PhaseFinalSynthesis CallPhase = "final_synthesis"
	PhaseToolAuxiliary  CallPhase = "tool_auxiliary"
)

// ProviderCall is one entry in providerCallsLog: a record of a single
// upstream LLM invocation, regardless of why it was made.
//
// Provider is a plain string (not internal/models.Provider) so this
// client-facing package stays free of an internal/ import; callers convert
// from the catalog's Provider type with a simple string cast.
type ProviderCall struct {
	Phase        CallPhase `json:"phase"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Iteration    int       `json:"iteration"`
	PromptTokens int       `json:"promptTokens"`
	OutputTokens int       `json:"outputTokens"`
	DurationMs   int64     `json:"durationMs"`
	Status       int       `json:"status,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Now returns the current wall-clock time. Provider call durations are
// measured with time.Since against this, kept as a var so tests can stub it
// if ever needed.
var Now = time.Now
