package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/internal/models"
	"github.com/nexuscore/gateway/internal/orchestrator"
	"github.com/nexuscore/gateway/internal/sse"
	pkgmodels "github.com/nexuscore/gateway/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, s.Chat, defaultChatSystemPrompt, true)
}

func (s *Server) handlePlanning(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, s.Planning, defaultPlanningSystemPrompt, false)
}

// dispatch decodes the common chatRequest envelope, streams the run over
// SSE, and hands off to the given orchestrator. requiresToolsDefault is the
// fallback for RequiresTools when the client doesn't specify it (/chat
// defaults to tool-enabled, /planning does not, since planning's tool set
// is already read-only and narrow).
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, o *orchestrator.Orchestrator, systemPrompt string, requiresToolsDefault bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, writeJSONError("method not allowed"))
		return
	}
	if o == nil {
		writeJSON(w, http.StatusServiceUnavailable, writeJSONError("orchestrator not configured"))
		return
	}

	var body chatRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, writeJSONError("invalid request body: %v", err))
		return
	}
	if len(body.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, writeJSONError("messages must not be empty"))
		return
	}

	writer, ctx := sse.New(w, r.Context())
	defer writer.Close()

	req := orchestrator.Request{
		Messages:      toMessages(body.Messages),
		SystemPrompt:  systemPrompt,
		Providers:     toProviders(body.Providers),
		Optimization:  toOptimization(body.Optimization),
		Temperature:   body.Temperature,
		MaxTokens:     body.MaxTokens,
		RequiresTools: requiresToolsOrDefault(body, requiresToolsDefault),
		ToolChoice:    body.ToolChoice,
		JSONMode:      body.JSONMode,
		Seed:          body.Seed,
	}
	if s.RequestDeadline > 0 {
		req.Deadline = time.Now().Add(s.RequestDeadline)
	}

	o.Run(ctx, req, writer)
}

func requiresToolsOrDefault(body chatRequest, def bool) bool {
	if body.RequiresTools {
		return true
	}
	return def
}

// handleGenerateImage dispatches a single, non-agentic completion call to a
// vision-capable candidate model. Image generation has no tool-use or
// multi-turn structure, so it bypasses orchestrator.Run entirely rather
// than forcing a one-iteration agentic loop around it.
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, writeJSONError("method not allowed"))
		return
	}
	if s.ImageSelector == nil || s.ImageProviders == nil {
		writeJSON(w, http.StatusServiceUnavailable, writeJSONError("image generation not configured"))
		return
	}

	var body generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, writeJSONError("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, writeJSONError("prompt must not be empty"))
		return
	}

	candidates, err := s.ImageSelector.SelectSequence(models.SelectionRequest{
		Optimization:   toOptimization(body.Optimization),
		Providers:      toProviders(body.Providers),
		RequiresVision: true,
		PromptTokens:   len(body.Prompt) / 4,
	})
	if err != nil || len(candidates) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, writeJSONError("no image-capable provider available"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	for _, cand := range candidates {
		impl, err := s.ImageProviders.Get(cand.Provider)
		if err != nil {
			continue
		}
		content, err := completeOnce(ctx, impl, cand.ID, body.Prompt)
		if err != nil {
			continue
		}
		writeJSON(w, http.StatusOK, generateImageResponse{
			Provider: string(cand.Provider),
			Model:    cand.ID,
			Content:  content,
		})
		return
	}
	writeJSON(w, http.StatusBadGateway, writeJSONError("every candidate image provider failed"))
}

// completeOnce issues a single non-streaming completion call and
// concatenates every text chunk, discarding any tool-call chunks (image
// dispatch never offers tools).
func completeOnce(ctx context.Context, impl agent.LLMProvider, modelID, prompt string) (string, error) {
	chunks, err := impl.Complete(ctx, &agent.CompletionRequest{
		Model:    modelID,
		Messages: []agent.CompletionMessage{{Role: string(pkgmodels.RoleUser), Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return "", chunk.Error
		}
		sb.WriteString(chunk.Text)
	}
	return sb.String(), nil
}

// handleImageProviderHealth reports every catalog model carrying the vision
// capability alongside its current circuit-breaker state, so a caller can
// decide whether POST /generate-image is likely to succeed before trying.
func (s *Server) handleImageProviderHealth(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, writeJSONError("catalog not configured"))
		return
	}
	visionModels := s.Catalog.ListByCapability(models.CapVision)
	out := make([]imageProviderHealth, 0, len(visionModels))
	for _, m := range visionModels {
		state := models.CircuitClosed
		if s.Breaker != nil {
			state = s.Breaker.State(m.Provider, m.ID)
		}
		out = append(out, imageProviderHealth{
			Provider:  string(m.Provider),
			Model:     m.ID,
			State:     circuitStateName(state),
			Available: m.Available && state != models.CircuitOpen,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.Cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, s.Cache.Stats())
}
