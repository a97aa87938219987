// Package gateway wires the orchestrator (internal/orchestrator) to the
// outside world: the /chat, /planning, /generate-image, /cache-stats, and
// /health-check/image-providers HTTP surface, plus the ambient /metrics
// and /healthz routes every deployment expects regardless of which features
// above them are enabled.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/internal/breaker"
	"github.com/nexuscore/gateway/internal/cache"
	"github.com/nexuscore/gateway/internal/models"
	"github.com/nexuscore/gateway/internal/observability"
	"github.com/nexuscore/gateway/internal/orchestrator"
)

// defaultPlanningSystemPrompt is used for POST /planning, whose orchestrator
// instance is wired with a narrower tool set (no exec/write tools, search
// and fetch only) so the model plans instead of acting.
const defaultPlanningSystemPrompt = "You are a planning assistant. Decompose the user's request into a concrete plan. You have access to read-only research tools only; you cannot execute code or modify anything. Do not claim to have taken any action — only propose one."

const defaultChatSystemPrompt = "You are a helpful assistant with access to tools. Use them when they would improve the accuracy or freshness of your answer."

// Server owns the HTTP surface around a pair of orchestrators (one for
// /chat, one for /planning, differing only in tool scope and system
// prompt) and the shared catalog/breaker/cache state the read-only status
// endpoints report on.
type Server struct {
	Host string
	Port int

	Chat     *orchestrator.Orchestrator
	Planning *orchestrator.Orchestrator

	// ImageProviders and ImageSelector back POST /generate-image: a
	// one-shot, non-agentic dispatch to a vision-capable candidate rather
	// than a full orchestrator.Run loop, since image generation has no
	// tool-use or multi-turn structure.
	ImageProviders *agent.ProviderRegistry
	ImageSelector  orchestrator.Selector

	Catalog *models.Catalog
	Breaker *breaker.Breaker
	Cache   *cache.Cache
	Logger  *observability.Logger

	RequestDeadline time.Duration

	httpServer   *http.Server
	httpListener net.Listener
}

// Start builds the mux, binds the listener, and serves in the background.
// It mirrors the teacher's manual net.Listen + server.Serve pattern rather
// than http.ListenAndServe, so the bound listener (and therefore the
// resolved port, useful for :0 in tests) is available to the caller before
// requests start flowing.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/planning", s.handlePlanning)
	mux.HandleFunc("/generate-image", s.handleGenerateImage)
	mux.HandleFunc("/health-check/image-providers", s.handleImageProviderHealth)
	mux.HandleFunc("/cache-stats", s.handleCacheStats)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.httpServer = server
	s.httpListener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.Logger != nil {
				s.Logger.Error(ctx, "http server error", "error", err)
			}
		}
	}()

	return nil
}

// Addr returns the bound listener's address; only valid after Start.
func (s *Server) Addr() string {
	if s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
