// Package orchestrator implements the agentic loop (C8): the iteration
// state machine that drives model selection, streaming, tool dispatch, and
// termination for a single chat request. It is the one component that
// touches every other subsystem — catalog-backed selection, the provider
// adapters, the tool registry, the cache (indirectly, via tools), guardrails,
// and the SSE writer — but owns no process-wide state itself; everything it
// mutates is scoped to the request.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/internal/agent/providers"
	"github.com/nexuscore/gateway/internal/breaker"
	"github.com/nexuscore/gateway/internal/extract"
	"github.com/nexuscore/gateway/internal/guardrail"
	"github.com/nexuscore/gateway/internal/models"
	"github.com/nexuscore/gateway/internal/observability"
	"github.com/nexuscore/gateway/internal/sse"
	pkgmodels "github.com/nexuscore/gateway/pkg/models"
)

// defaultSubstantiveChars is the character-count floor below which an
// assistant's content is not considered a real answer (plumbing text, a
// bare acknowledgement, etc).
const defaultSubstantiveChars = 200

// Selector is the subset of *models.Selector the orchestrator needs,
// declared locally so tests can substitute a fake candidate sequence.
type Selector interface {
	SelectSequence(req models.SelectionRequest) ([]*models.Model, error)
}

// toolExecutor is the subset of *agent.Registry the orchestrator needs.
type toolExecutor interface {
	ExecuteAll(ctx context.Context, calls []pkgmodels.ToolCall) []pkgmodels.ToolResult
	Descriptors() []agent.Tool
}

// Config bundles the iteration bounds and policy knobs that come from
// internal/config, translated into orchestrator terms once at startup.
type Config struct {
	MaxToolIterations int
	SafetyIteration   int
	SubstantiveChars  int
	SelfEvaluation    bool
	// SelfEvalMaxRetries bounds how many times a substantive-but-judged-
	// incomplete answer gets sent back for expansion before the loop
	// accepts it as final. Defaults to 1 (a single retry) rather than
	// being hardcoded, since a harsher judge model or a higher-stakes
	// deployment may want more than one pass.
	SelfEvalMaxRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxToolIterations <= 0 {
		c.MaxToolIterations = 10
	}
	if c.SafetyIteration <= 0 {
		c.SafetyIteration = 8
	}
	if c.SubstantiveChars <= 0 {
		c.SubstantiveChars = defaultSubstantiveChars
	}
	if c.SelfEvalMaxRetries <= 0 {
		c.SelfEvalMaxRetries = 1
	}
	return c
}

// Orchestrator runs the agentic loop for one request at a time; a single
// instance is shared across concurrent requests (it holds no per-request
// state of its own), consulting the process-wide Breaker, RateTracker, and
// Selector/Catalog on every call.
type Orchestrator struct {
	Selector  Selector
	Providers *agent.ProviderRegistry
	Tools     toolExecutor
	Breaker   *breaker.Breaker
	Rates     *breaker.RateTracker
	Guardrail *guardrail.Guardrail // nil disables guardrail checks entirely
	Logger    *observability.Logger
	// Events records the run's tool-call and lifecycle events for later
	// timeline inspection (internal/observability's MemoryEventStore). Nil
	// disables recording entirely; a request is never rejected or delayed
	// because of it.
	Events *observability.EventRecorder
	Config Config
}

// Request is the orchestrator's view of a /chat or /planning call, already
// translated from the wire JSON body by the gateway HTTP handler.
type Request struct {
	Messages      []pkgmodels.Message
	SystemPrompt  string
	Providers     []models.Provider
	Optimization  models.Optimization
	Temperature   float64
	MaxTokens     int
	RequiresTools bool
	ToolChoice    string // "", "auto", "required", or a specific tool name
	JSONMode      bool   // requests structured (JSON) output from the candidate model
	Seed          string // per-request determinism seed for selector jitter
	Deadline      time.Time
}

// completionOutcome is one candidate's assembled result: the concatenated
// text, any tool calls requested, and the derived finish classification.
// The adapter contract (agent.CompletionChunk) does not surface a vendor
// finish-reason string, so "stop" vs "tool_calls" is derived here from
// whether any tool-call chunks were produced; "length" is not independently
// observable through this adapter contract and collapses into "stop" with
// whatever partial text was streamed (see DESIGN.md).
type completionOutcome struct {
	content   string
	toolCalls []pkgmodels.ToolCall
	finish    string // "stop" | "tool_calls" | "error"
}

const (
	finishStop      = "stop"
	finishToolCalls = "tool_calls"
	finishError     = "error"
)

// Run drives the full agentic loop for one request, writing every SSE event
// itself and returning only once the terminal message_complete or error
// event has been written (or the client disconnected, in which case it
// returns silently with no further events).
func (o *Orchestrator) Run(ctx context.Context, req Request, w *sse.Writer) {
	cfg := o.Config.withDefaults()

	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	runID := uuid.NewString()
	ctx = observability.AddRunID(ctx, runID)
	runStart := time.Now()
	if o.Events != nil {
		_ = o.Events.RecordRunStart(ctx, runID, map[string]interface{}{
			"optimization": string(req.Optimization),
			"tools_required": req.RequiresTools,
		})
	}
	var runErr error
	defer func() {
		if o.Events != nil {
			_ = o.Events.RecordRunEnd(ctx, time.Since(runStart), runErr)
		}
	}()

	var callsLog []pkgmodels.ProviderCall
	toolNameByCallID := make(map[string]string)

	messages := make([]pkgmodels.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, pkgmodels.Message{Role: pkgmodels.RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	if o.Guardrail != nil {
		verdict, call, err := o.Guardrail.CheckInput(ctx, lastUserContent(messages), 0)
		if call != nil {
			callsLog = append(callsLog, *call)
		}
		if err != nil {
			runErr = err
			o.emitError(w, pkgmodels.ErrorGuardrailBlocked, "", "guardrail unavailable (fail-closed)", "")
			return
		}
		if verdict.Blocked {
			runErr = fmt.Errorf("guardrail blocked input: %s", verdict.Reason)
			o.emitError(w, pkgmodels.ErrorGuardrailBlocked, "", safeRefusal(verdict.Reason), "")
			return
		}
	}

	var finalContent string
	selfEvalRetries := 0
	iteration := 1
	terminated := false

	for !terminated {
		if ctx.Err() != nil {
			break
		}
		if iteration > cfg.MaxToolIterations {
			break
		}

		outcome, err := o.attemptIteration(ctx, req, messages, iteration, w, &callsLog)
		if err != nil {
			kind := pkgmodels.KindOf(err)
			if ctx.Err() != nil {
				break // deadline raced the attempt; fall through to best-effort synthesis below
			}
			runErr = err
			o.emitError(w, kind, "", err.Error(), "")
			return
		}

		if len(outcome.toolCalls) == 0 {
			finalContent = outcome.content
			if outcome.finish == finishStop && isSubstantive(outcome.content, cfg.SubstantiveChars) {
				if cfg.SelfEvaluation && selfEvalRetries < cfg.SelfEvalMaxRetries {
					selfEvalRetries++
					messages = append(messages, pkgmodels.Message{Role: pkgmodels.RoleAssistant, Content: outcome.content})
					comprehensive := o.selfEvaluate(ctx, messages, iteration, &callsLog)
					if !comprehensive {
						iteration++
						messages = append(messages, pkgmodels.Message{
							Role:    pkgmodels.RoleUser,
							Content: "Your previous answer was judged incomplete. Please expand it into a more comprehensive response.",
						})
						continue
					}
				}
			}
			terminated = true
			break
		}

		if iteration >= cfg.SafetyIteration {
			assistantMsg := pkgmodels.Message{Role: pkgmodels.RoleAssistant, Content: outcome.content}
			messages = append(messages, assistantMsg)
			finalContent = o.finalSynthesis(ctx, messages, req, iteration, w, &callsLog)
			terminated = true
			break
		}

		assistantMsg := pkgmodels.Message{Role: pkgmodels.RoleAssistant, Content: outcome.content, ToolCalls: outcome.toolCalls}
		messages = append(messages, assistantMsg)

		toolStart := time.Now()
		for _, tc := range outcome.toolCalls {
			toolNameByCallID[tc.ID] = tc.Name
			_ = w.WriteEvent(sse.EventToolCall, sse.ToolCallPayload{ID: tc.ID, Name: tc.Name, Arguments: string(tc.Input)})
			if o.Events != nil {
				_ = o.Events.RecordToolStart(ctx, tc.Name, string(tc.Input))
			}
		}

		results := o.Tools.ExecuteAll(ctx, outcome.toolCalls)
		for i, res := range results {
			name := outcome.toolCalls[i].Name
			if o.Events != nil {
				var toolErr error
				if res.ErrorKind != "" {
					toolErr = fmt.Errorf("%s: %s", res.ErrorKind, res.Content)
				}
				_ = o.Events.RecordToolEnd(ctx, name, time.Since(toolStart), res.Content, toolErr)
			}
			if werr := w.WriteEvent(sse.EventToolResult, sse.ToolResultPayload{
				ID:              res.ToolCallID,
				Name:            name,
				ContentForModel: res.Content,
				Cached:          res.Cached,
				ErrorKind:       res.ErrorKind,
			}); werr != nil {
				return // client disconnected mid tool-result stream; cancellation already propagated via ctx
			}
			messages = append(messages, pkgmodels.Message{
				Role:       pkgmodels.RoleTool,
				Content:    res.Content,
				ToolCallID: res.ToolCallID,
				Name:       name,
			})
		}

		iteration++
	}

	if !terminated {
		// Bound reached (MAX_TOOL_ITERATIONS or deadline) without a stop
		// condition: synthesize a best-effort closing message rather than
		// surfacing an error, per the propagation policy for
		// MAX_ITERATIONS/DEADLINE_EXCEEDED whenever any partial content
		// exists.
		finalContent = o.finalSynthesis(ctx, messages, req, iteration, w, &callsLog)
	}

	if o.Guardrail != nil {
		verdict, call, err := o.Guardrail.CheckOutput(ctx, finalContent, iteration)
		if call != nil {
			callsLog = append(callsLog, *call)
		}
		if err != nil {
			runErr = err
			o.emitError(w, pkgmodels.ErrorGuardrailBlocked, "", "guardrail unavailable (fail-closed)", "")
			return
		}
		if verdict.Blocked {
			runErr = fmt.Errorf("guardrail blocked output: %s", verdict.Reason)
			o.emitError(w, pkgmodels.ErrorGuardrailBlocked, "", safeRefusal(verdict.Reason), "")
			return
		}
	}

	extracted := extract.FromConversation(messages, toolNameByCallID)
	_ = w.WriteEvent(sse.EventMessageComplete, sse.MessageCompletePayload{
		Content:          finalContent,
		LLMAPICalls:      callsLog,
		ExtractedContent: extracted,
	})
}

// attemptIteration runs the selector's fallback sequence for one iteration
// number: it tries each candidate in order, updating the breaker on every
// breaker-tripping failure, and returns the first success. A 4xx failure is
// surfaced immediately without trying further candidates, per the
// propagation policy (UPSTREAM_4XX neither trips the breaker nor falls
// back).
func (o *Orchestrator) attemptIteration(ctx context.Context, req Request, messages []pkgmodels.Message, iteration int, w *sse.Writer, callsLog *[]pkgmodels.ProviderCall) (completionOutcome, error) {
	candidates, err := o.Selector.SelectSequence(models.SelectionRequest{
		Optimization:        req.Optimization,
		RequiresTools:       req.RequiresTools,
		Providers:           req.Providers,
		Seed:                req.Seed,
		PromptTokens:        estimateTokens(messages),
		MaxTokens:           req.MaxTokens,
		ContextWindowNeeded: 0,
	})
	if err != nil {
		return completionOutcome{}, pkgmodels.NewGatewayError(pkgmodels.ErrorNoModelAvailable, err)
	}

	var lastErr error
	for _, cand := range candidates {
		if ctx.Err() != nil {
			return completionOutcome{}, ctx.Err()
		}
		outcome, record, cerr := o.callOnce(ctx, cand, messages, req, iteration, w, pkgmodels.PhaseChatIteration)
		*callsLog = append(*callsLog, record)
		if cerr == nil {
			if o.Breaker != nil {
				o.Breaker.RecordSuccess(cand.Provider, cand.ID)
			}
			if o.Rates != nil {
				o.Rates.RecordUsage(cand.Provider, cand.ID, record.PromptTokens+record.OutputTokens)
			}
			return outcome, nil
		}

		lastErr = cerr
		kind := pkgmodels.KindOf(cerr)
		if !kind.Fallback() {
			return completionOutcome{}, cerr // 4xx: no breaker trip, no fallback, surface now
		}
		if o.Breaker != nil {
			o.Breaker.RecordFailure(cand.Provider, cand.ID)
		}
		// try next candidate, same iteration number
	}

	if lastErr == nil {
		lastErr = pkgmodels.ErrNoModelAvailable
	}
	return completionOutcome{}, lastErr
}

// callOnce issues a single streaming completion call against one candidate
// model, emitting llm_request/llm_response/delta events as it goes, and
// assembles the result into a completionOutcome.
func (o *Orchestrator) callOnce(ctx context.Context, cand *models.Model, messages []pkgmodels.Message, req Request, iteration int, w *sse.Writer, phase pkgmodels.CallPhase) (completionOutcome, pkgmodels.ProviderCall, error) {
	impl, err := o.Providers.Get(cand.Provider)
	if err != nil {
		rec := pkgmodels.ProviderCall{Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration, Error: err.Error()}
		return completionOutcome{}, rec, pkgmodels.NewGatewayError(pkgmodels.ErrorNoModelAvailable, err)
	}

	creq := &agent.CompletionRequest{
		Model:       cand.ID,
		Messages:    toCompletionMessages(messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		ToolChoice:  req.ToolChoice,
	}
	if req.JSONMode {
		creq.ResponseFormat = &agent.ResponseFormat{JSON: true}
	}
	if req.RequiresTools {
		creq.Tools = o.Tools.Descriptors()
	}

	_ = w.WriteEvent(sse.EventLLMRequest, sse.LLMRequestPayload{
		Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration,
		RequestBody: sanitizedRequestSummary(creq),
	})

	start := time.Now()
	chunks, err := impl.Complete(ctx, creq)
	if err != nil {
		kind := providers.ErrorKind(err)
		rec := pkgmodels.ProviderCall{Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration, DurationMs: time.Since(start).Milliseconds(), Error: err.Error()}
		_ = w.WriteEvent(sse.EventLLMResponse, sse.LLMResponsePayload{Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration, DurationMs: rec.DurationMs, Error: err.Error()})
		return completionOutcome{}, rec, pkgmodels.NewGatewayError(kind, err)
	}

	var sb strings.Builder
	var toolCalls []pkgmodels.ToolCall
	var inTokens, outTokens int
	var streamErr error

	for chunk := range chunks {
		if chunk.Error != nil {
			streamErr = chunk.Error
			continue
		}
		if chunk.Text != "" {
			sb.WriteString(chunk.Text)
			if werr := w.WriteEvent(sse.EventDelta, sse.DeltaPayload{Text: chunk.Text}); werr != nil {
				streamErr = context.Canceled
			}
		}
		if chunk.ToolCall != nil {
			toolCalls = append(toolCalls, pkgmodels.ToolCall{ID: chunk.ToolCall.ID, Name: chunk.ToolCall.Name, Input: chunk.ToolCall.Input})
		}
		if chunk.Done {
			inTokens = chunk.InputTokens
			outTokens = chunk.OutputTokens
		}
	}

	duration := time.Since(start).Milliseconds()

	if streamErr != nil {
		kind := providers.ErrorKind(streamErr)
		if streamErr == context.Canceled {
			kind = pkgmodels.ErrorClientCanceled
		}
		rec := pkgmodels.ProviderCall{Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration, PromptTokens: inTokens, OutputTokens: outTokens, DurationMs: duration, Error: streamErr.Error()}
		_ = w.WriteEvent(sse.EventLLMResponse, sse.LLMResponsePayload{Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration, DurationMs: duration, Error: streamErr.Error()})
		return completionOutcome{}, rec, pkgmodels.NewGatewayError(kind, streamErr)
	}

	finish := finishStop
	if len(toolCalls) > 0 {
		finish = finishToolCalls
	}

	rec := pkgmodels.ProviderCall{
		Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration,
		PromptTokens: inTokens, OutputTokens: outTokens, DurationMs: duration, Status: 200,
	}
	_ = w.WriteEvent(sse.EventLLMResponse, sse.LLMResponsePayload{
		Phase: phase, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration,
		Status: 200, PromptTokens: inTokens, OutputTokens: outTokens, DurationMs: duration,
	})

	return completionOutcome{content: sb.String(), toolCalls: toolCalls, finish: finish}, rec, nil
}

// selfEvaluate runs the judge-model follow-up call that decides whether the
// proposed final answer is comprehensive. Run() bounds how many times this
// can trigger an expansion retry via Config.SelfEvalMaxRetries. Ambiguous or
// failed evaluation is treated as comprehensive (fail-open).
func (o *Orchestrator) selfEvaluate(ctx context.Context, messages []pkgmodels.Message, iteration int, callsLog *[]pkgmodels.ProviderCall) bool {
	candidates, err := o.Selector.SelectSequence(models.SelectionRequest{
		Optimization: models.OptimizationCheap,
		PromptTokens: estimateTokens(messages),
		MaxTokens:    256,
	})
	if err != nil || len(candidates) == 0 {
		return true
	}
	cand := candidates[0]
	impl, err := o.Providers.Get(cand.Provider)
	if err != nil {
		return true
	}

	prompt := selfEvalPrompt(messages)
	start := time.Now()
	chunks, err := impl.Complete(ctx, &agent.CompletionRequest{
		Model:     cand.ID,
		Messages:  []agent.CompletionMessage{{Role: "user", Content: prompt}},
		MaxTokens: 256,
	})
	if err != nil {
		return true
	}

	var sb strings.Builder
	var inTokens, outTokens int
	for chunk := range chunks {
		if chunk.Error != nil {
			return true
		}
		sb.WriteString(chunk.Text)
		if chunk.Done {
			inTokens, outTokens = chunk.InputTokens, chunk.OutputTokens
		}
	}

	*callsLog = append(*callsLog, pkgmodels.ProviderCall{
		Phase: pkgmodels.PhaseSelfEvaluation, Provider: string(cand.Provider), Model: cand.ID, Iteration: iteration,
		PromptTokens: inTokens, OutputTokens: outTokens, DurationMs: time.Since(start).Milliseconds(),
	})
	if o.Rates != nil {
		o.Rates.RecordUsage(cand.Provider, cand.ID, inTokens+outTokens)
	}

	return parseComprehensive(sb.String())
}

func selfEvalPrompt(messages []pkgmodels.Message) string {
	var sb strings.Builder
	sb.WriteString("Given the following conversation, judge whether the assistant's final answer is comprehensive. ")
	sb.WriteString(`Respond with ONLY a JSON object: {"comprehensive": true|false, "reason": "short explanation"}.` + "\n\n")
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return sb.String()
}

// parseComprehensive mirrors guardrail.parseVerdict's tolerant-parsing
// shape: JSON first, then free text scanned for negative phrases before
// positive ones, since "not comprehensive" contains "comprehensive".
// Ambiguous text defaults to comprehensive (fail-open).
func parseComprehensive(raw string) bool {
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Comprehensive bool `json:"comprehensive"`
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			if decodeJSON(raw[start:end+1], &parsed) {
				return parsed.Comprehensive
			}
		}
	}

	lower := strings.ToLower(raw)
	negatives := []string{"not comprehensive", "incomplete", "insufficient"}
	for _, phrase := range negatives {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	positives := []string{"comprehensive", "complete", "sufficient"}
	for _, phrase := range positives {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return true
}

// finalSynthesis issues the one last non-tool-using completion used both by
// the safety cutoff and by the max-iteration/deadline bound: it asks the
// current best candidate to produce a best-effort closing message from
// whatever context has accumulated so far. This call is not counted against
// the tool iteration cap.
func (o *Orchestrator) finalSynthesis(ctx context.Context, messages []pkgmodels.Message, req Request, iteration int, w *sse.Writer, callsLog *[]pkgmodels.ProviderCall) string {
	synthMessages := append(append([]pkgmodels.Message{}, messages...), pkgmodels.Message{
		Role:    pkgmodels.RoleSystem,
		Content: "You have reached the tool-use limit for this request. Synthesize the best possible final answer from the information already gathered above; do not request any further tool calls.",
	})

	candidates, err := o.Selector.SelectSequence(models.SelectionRequest{
		Optimization: req.Optimization,
		Providers:    req.Providers,
		Seed:         req.Seed,
		PromptTokens: estimateTokens(synthMessages),
		MaxTokens:    req.MaxTokens,
	})
	if err != nil || len(candidates) == 0 {
		return bestEffortFallback(messages)
	}

	// Detached from ctx's deadline/cancellation: this call runs even when the
	// request deadline has already passed, since its only purpose is to
	// produce a best-effort answer instead of returning nothing. A real
	// client disconnect is still caught by callOnce's SSE write failing.
	synthCtx := context.WithoutCancel(ctx)
	for _, cand := range candidates {
		outcome, record, cerr := o.callOnce(synthCtx, cand, synthMessages, req, iteration, w, pkgmodels.PhaseFinalSynthesis)
		*callsLog = append(*callsLog, record)
		if cerr != nil {
			if o.Breaker != nil && pkgmodels.KindOf(cerr).Fallback() {
				o.Breaker.RecordFailure(cand.Provider, cand.ID)
			}
			continue
		}
		if o.Breaker != nil {
			o.Breaker.RecordSuccess(cand.Provider, cand.ID)
		}
		if outcome.content != "" {
			return outcome.content
		}
	}
	return bestEffortFallback(messages)
}

// bestEffortFallback is used only when even the final-synthesis call fails
// entirely (every candidate errored): it surfaces the last substantive
// assistant text already in the conversation rather than an empty answer.
func bestEffortFallback(messages []pkgmodels.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == pkgmodels.RoleAssistant && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return "I wasn't able to finish gathering information in time, but here is what I found so far."
}

func (o *Orchestrator) emitError(w *sse.Writer, kind pkgmodels.ErrorKind, code, message, correlationID string) {
	_ = w.WriteEvent(sse.EventError, sse.ErrorPayload{
		Kind: string(kind), Code: code, Message: message, CorrelationID: correlationID,
	})
}

// decodeJSON reports whether raw decodes cleanly into dst, swallowing the
// error: callers treat a decode failure the same as "not JSON" and fall
// through to free-text scanning.
func decodeJSON(raw string, dst any) bool {
	return json.Unmarshal([]byte(raw), dst) == nil
}

func safeRefusal(reason string) string {
	if reason == "" {
		return "This request could not be completed because it was blocked by a content policy."
	}
	return "This request was blocked by a content policy: " + reason
}

// estimateTokens is a cheap 4-chars-per-token heuristic used only for
// rate-limit projection, matching the rough estimate the rate tracker
// expects rather than an exact tokenizer count.
func estimateTokens(messages []pkgmodels.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}

// sanitizedRequestSummary produces the llm_request event's requestBody
// payload: the shape of the call without any credential material (none of
// which ever appears on CompletionRequest in the first place).
func sanitizedRequestSummary(req *agent.CompletionRequest) any {
	return struct {
		Model     string `json:"model"`
		NumMsgs   int    `json:"numMessages"`
		MaxTokens int    `json:"maxTokens,omitempty"`
		HasTools  bool   `json:"hasTools"`
		NumTools  int    `json:"numTools,omitempty"`
	}{
		Model:     req.Model,
		NumMsgs:   len(req.Messages),
		MaxTokens: req.MaxTokens,
		HasTools:  len(req.Tools) > 0,
		NumTools:  len(req.Tools),
	}
}
