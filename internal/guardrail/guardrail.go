// Package guardrail implements the optional pre/post moderation filters
// that sit around the agentic loop: a pre-filter over the user's latest
// input and a post-filter over the model's final content.
package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/internal/models"
	"github.com/nexuscore/gateway/internal/observability"
	pkgmodels "github.com/nexuscore/gateway/pkg/models"
)

// Mode controls what happens when the moderation model itself is
// unavailable or errors.
type Mode string

const (
	// ModeFailOpen lets the request proceed with a logged warning. This is
	// the default: a guardrail outage should not take down the gateway.
	ModeFailOpen Mode = "fail-open"

	// ModeFailClosed blocks the request when the moderation call fails.
	ModeFailClosed Mode = "fail-closed"
)

// Verdict is the outcome of a moderation check.
type Verdict struct {
	Blocked bool
	Reason  string
}

// Selector is the subset of *models.Selector the guardrail needs: pick a
// moderation-capable model to run the check against.
type Selector interface {
	SelectSequence(req models.SelectionRequest) ([]*models.Model, error)
}

// Guardrail runs input/output moderation checks via a cheap model chosen
// through the normal selector, so guardrail calls participate in the same
// catalog/breaker/rate-limit machinery as any other completion.
type Guardrail struct {
	selector Selector
	registry *agent.ProviderRegistry
	mode     Mode
	logger   *observability.Logger
}

// New creates a Guardrail. mode defaults to ModeFailOpen if empty.
func New(selector Selector, registry *agent.ProviderRegistry, mode Mode, logger *observability.Logger) *Guardrail {
	if mode == "" {
		mode = ModeFailOpen
	}
	return &Guardrail{selector: selector, registry: registry, mode: mode, logger: logger}
}

const moderationPrompt = `You are a content moderation classifier. Given the text below, respond with ONLY a JSON object: {"blocked": true|false, "reason": "short explanation"}. Block only content that is clearly disallowed (e.g. requests for weapons of mass destruction, csam, or other severe harms). Err toward allowing borderline or ambiguous content.

Text:
%s`

// CheckInput runs the pre-filter over the user's latest message.
func (g *Guardrail) CheckInput(ctx context.Context, userText string, iteration int) (Verdict, *pkgmodels.ProviderCall, error) {
	return g.check(ctx, userText, pkgmodels.PhaseGuardrailIn, iteration)
}

// CheckOutput runs the post-filter over the model's final content.
func (g *Guardrail) CheckOutput(ctx context.Context, finalText string, iteration int) (Verdict, *pkgmodels.ProviderCall, error) {
	return g.check(ctx, finalText, pkgmodels.PhaseGuardrailOut, iteration)
}

func (g *Guardrail) check(ctx context.Context, text string, phase pkgmodels.CallPhase, iteration int) (Verdict, *pkgmodels.ProviderCall, error) {
	if strings.TrimSpace(text) == "" {
		return Verdict{}, nil, nil
	}

	candidates, err := g.selector.SelectSequence(models.SelectionRequest{
		Optimization: models.OptimizationCheap,
		PromptTokens: len(text) / 4,
		MaxTokens:    256,
	})
	if err != nil || len(candidates) == 0 {
		return g.handleUnavailable(ctx, err)
	}
	model := candidates[0]

	impl, err := g.registry.Get(model.Provider)
	if err != nil {
		return g.handleUnavailable(ctx, err)
	}

	start := time.Now()
	chunks, err := impl.Complete(ctx, &agent.CompletionRequest{
		Model:     model.ID,
		Messages:  []agent.CompletionMessage{{Role: "user", Content: fmt.Sprintf(moderationPrompt, text)}},
		MaxTokens: 256,
	})
	if err != nil {
		return g.handleUnavailable(ctx, err)
	}

	var sb strings.Builder
	var inTokens, outTokens int
	for chunk := range chunks {
		if chunk.Error != nil {
			return g.handleUnavailable(ctx, chunk.Error)
		}
		sb.WriteString(chunk.Text)
		if chunk.Done {
			inTokens = chunk.InputTokens
			outTokens = chunk.OutputTokens
		}
	}

	record := &pkgmodels.ProviderCall{
		Phase:        phase,
		Provider:     string(model.Provider),
		Model:        model.ID,
		Iteration:    iteration,
		PromptTokens: inTokens,
		OutputTokens: outTokens,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	verdict := parseVerdict(sb.String())
	return verdict, record, nil
}

func (g *Guardrail) handleUnavailable(ctx context.Context, cause error) (Verdict, *pkgmodels.ProviderCall, error) {
	if g.mode == ModeFailClosed {
		return Verdict{Blocked: true, Reason: "guardrail unavailable"}, nil, cause
	}
	if g.logger != nil {
		g.logger.Warn(ctx, "guardrail moderation call failed, failing open", "error", cause)
	}
	return Verdict{}, nil, nil
}

// parseVerdict is tolerant: it first tries a JSON object, then falls back to
// scanning free text for explicit negative phrases, checked before positive
// phrases (because "not flagged" contains "flagged"). Ambiguous text is
// treated as not-blocked (fail-open at the content level, independent of the
// Mode setting which only governs moderation-call failures).
func parseVerdict(raw string) Verdict {
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Blocked bool   `json:"blocked"`
		Reason  string `json:"reason"`
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
				return Verdict{Blocked: parsed.Blocked, Reason: parsed.Reason}
			}
		}
	}

	lower := strings.ToLower(raw)
	negatives := []string{"not blocked", "not flagged", "no violation", "false"}
	for _, phrase := range negatives {
		if strings.Contains(lower, phrase) {
			return Verdict{Blocked: false}
		}
	}
	positives := []string{"blocked", "flagged", "disallowed", "true"}
	for _, phrase := range positives {
		if strings.Contains(lower, phrase) {
			return Verdict{Blocked: true, Reason: raw}
		}
	}
	return Verdict{}
}
