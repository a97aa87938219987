// Package main provides the CLI entry point for the gateway.
//
// gatewayd is a multi-provider LLM gateway: it accepts chat requests over
// HTTP, selects a provider/model from a catalog, streams the response back
// as Server-Sent Events, and drives an agentic tool-use loop in between.
//
// # Basic Usage
//
// Start the server:
//
//	gatewayd serve
//
// # Environment Variables
//
// Configuration is loaded entirely from the environment (internal/config);
// see that package's doc comment for the full variable list. Provider
// credentials use the indexed LP_TYPE_<i>/LP_KEY_<i>/... pool.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/internal/agent/providers"
	"github.com/nexuscore/gateway/internal/breaker"
	"github.com/nexuscore/gateway/internal/cache"
	"github.com/nexuscore/gateway/internal/config"
	"github.com/nexuscore/gateway/internal/gateway"
	"github.com/nexuscore/gateway/internal/guardrail"
	"github.com/nexuscore/gateway/internal/models"
	"github.com/nexuscore/gateway/internal/observability"
	"github.com/nexuscore/gateway/internal/orchestrator"
	"github.com/nexuscore/gateway/internal/tools/exec"
	"github.com/nexuscore/gateway/internal/tools/websearch"
	pkgmodels "github.com/nexuscore/gateway/pkg/models"
)

// Build information, populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD)"
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := buildRootCmd()
	if err := root.ExecuteContext(signalContext()); err != nil {
		fmt.Fprintln(os.Stderr, "gatewayd:", err)
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT/SIGTERM, so Cobra's
// RunE (and everything it starts) observes shutdown cooperatively.
func signalContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "gatewayd",
		Short:   "Multi-provider LLM gateway with tool-augmented agentic execution",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}
	root.AddCommand(buildServeCmd(), buildCatalogCmd(), buildDoctorCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var (
		host      string
		port      int
		cacheDir  string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway's HTTP/SSE server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), serveOptions{
				Host: host, Port: port, CacheDir: cacheDir,
				LogLevel: logLevel, LogFormat: logFormat,
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind")
	cmd.Flags().IntVar(&port, "port", 8080, "port to bind")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "./data/cache", "content-cache scratch directory")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "log format: json|text")

	return cmd
}

// buildCatalogCmd exposes a read-only administrative view of the loaded
// catalog, useful for verifying PROVIDER_CATALOG_PATH parses as expected
// before pointing a deployment at it. Catalog reload is explicitly not a
// request-path operation (§4.1), so this is a separate one-shot command
// rather than an endpoint.
func buildCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the resolved model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger("info", "text")
			catalog, err := loadCatalog(cfg, logger)
			if err != nil {
				return err
			}
			for _, m := range catalog.List(nil) {
				fmt.Printf("%-10s %-30s category=%-10s tools=%v deprecated=%v\n",
					m.Provider, m.ID, m.Category, m.HasCapability(models.CapTools), m.Deprecated)
			}
			return nil
		},
	}
}

// buildDoctorCmd runs a handful of startup-time sanity checks (credentials
// present, catalog non-empty, cache directory writable) without binding a
// listener, for use in CI/readiness probes prior to a real deploy.
func buildDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and credentials without serving traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger := newLogger("info", "text")
			catalog, err := loadCatalog(cfg, logger)
			if err != nil {
				return fmt.Errorf("catalog: %w", err)
			}
			if len(catalog.List(nil)) == 0 {
				return errors.New("catalog has no usable models")
			}
			if len(cfg.Credentials) == 0 {
				logger.Warn(cmd.Context(), "doctor: no LP_* provider credentials configured")
			}
			fmt.Println("ok")
			return nil
		},
	}
}

type serveOptions struct {
	Host, CacheDir, LogLevel, LogFormat string
	Port                                int
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(opts.LogLevel, opts.LogFormat)
	logger.Info(ctx, "starting gateway", "version", version, "commit", commit)

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	cb := breaker.New()
	rates := breaker.NewRateTracker()
	selector := models.NewSelector(catalog, cb, rates)

	var snapshotStore *breaker.SnapshotStore
	var snapshotDB *sql.DB
	if cfg.BreakerSnapshotPath != "" {
		snapshotDB, err = sql.Open("sqlite", cfg.BreakerSnapshotPath)
		if err != nil {
			return fmt.Errorf("open breaker snapshot db: %w", err)
		}
		snapshotStore = breaker.NewSnapshotStore(snapshotDB)
		if err := snapshotStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure breaker snapshot schema: %w", err)
		}
		snaps, err := snapshotStore.Load(ctx)
		if err != nil {
			return fmt.Errorf("load breaker snapshot: %w", err)
		}
		cb.Restore(snaps)
		logger.Info(ctx, "restored breaker state", "circuits", len(snaps))
	}

	registry := agent.NewProviderRegistry()
	if err := wireProviders(registry, cfg.Credentials, logger); err != nil {
		return fmt.Errorf("wire providers: %w", err)
	}

	contentCache, err := cache.New(opts.CacheDir, cache.WithByteBudget(cfg.CacheBytesBudget), cache.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open content cache: %w", err)
	}

	tools, err := buildToolRegistry(cfg, contentCache)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	var gr *guardrail.Guardrail
	if cfg.GuardrailMode != config.GuardrailOff {
		mode := guardrail.ModeFailOpen
		if cfg.GuardrailMode.FailClosed() {
			mode = guardrail.ModeFailClosed
		}
		gr = guardrail.New(selector, registry, mode, logger)
	}

	orchCfg := orchestrator.Config{
		MaxToolIterations:  cfg.MaxToolIterations,
		SafetyIteration:    cfg.SafetyIteration,
		SelfEvaluation:     cfg.SelfEvaluationEnabled,
		SelfEvalMaxRetries: cfg.SelfEvalMaxRetries,
	}

	eventStore := observability.NewMemoryEventStore(cfg.EventHistorySize)
	events := observability.NewEventRecorder(eventStore, logger)

	chat := &orchestrator.Orchestrator{
		Selector: selector, Providers: registry, Tools: tools,
		Breaker: cb, Rates: rates, Guardrail: gr, Logger: logger, Events: events, Config: orchCfg,
	}
	planning := &orchestrator.Orchestrator{
		Selector: selector, Providers: registry, Tools: planningToolView(tools),
		Breaker: cb, Rates: rates, Guardrail: gr, Logger: logger, Events: events, Config: orchCfg,
	}

	srv := &gateway.Server{
		Host: opts.Host, Port: opts.Port,
		Chat: chat, Planning: planning,
		ImageProviders: registry, ImageSelector: selector,
		Catalog: catalog, Breaker: cb, Cache: contentCache, Logger: logger,
		RequestDeadline: time.Duration(cfg.RequestDeadlineSeconds) * time.Second,
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	logger.Info(ctx, "gateway listening", "addr", srv.Addr())

	<-ctx.Done()
	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if snapshotStore != nil {
		if err := snapshotStore.Save(shutdownCtx, cb.Snapshot()); err != nil {
			logger.Error(ctx, "failed to persist breaker snapshot", "error", err)
		}
		snapshotDB.Close()
	}
	return nil
}

func newLogger(level, format string) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: format,
	})
}

// loadCatalog reads the declarative catalog document from
// PROVIDER_CATALOG_PATH when set, otherwise falls back to the built-in
// catalog seeded by models.NewCatalog (administrative reload is out of the
// request path per §4.1; this is the one place a fresh *Catalog is built).
func loadCatalog(cfg *config.Config, logger *observability.Logger) (*models.Catalog, error) {
	if cfg.ProviderCatalogPath == "" {
		return models.NewCatalog(), nil
	}
	return models.LoadCatalogFile(cfg.ProviderCatalogPath, logger)
}

// wireProviders constructs one LLMProvider adapter per distinct provider
// type present in the credential pool and registers it. A provider type
// with no corresponding adapter implementation (e.g. "mistral", "cohere",
// "vertex" in the catalog but no adapter file yet) is skipped with a
// warning rather than failing startup — the catalog may list models for
// providers this deployment doesn't have an adapter or credential for.
func wireProviders(registry *agent.ProviderRegistry, creds []config.Credential, logger *observability.Logger) error {
	ctx := context.Background()
	for _, c := range creds {
		if c.Key == "" {
			logger.Warn(ctx, "skipping credential with empty key", "provider", c.Type)
			continue
		}
		switch c.Type {
		case models.ProviderAnthropic:
			p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: c.Key})
			if err != nil {
				return fmt.Errorf("anthropic: %w", err)
			}
			registry.Register(c.Type, p)
		case models.ProviderOpenAI:
			registry.Register(c.Type, providers.NewOpenAIProvider(c.Key))
		case models.ProviderGoogle:
			p, err := providers.NewGoogleProvider(providers.GoogleConfig{APIKey: c.Key})
			if err != nil {
				return fmt.Errorf("google: %w", err)
			}
			registry.Register(c.Type, p)
		case models.ProviderAzure:
			// Azure OpenAI needs a resource endpoint the LP_* credential
			// pool has no slot for; AZURE_OPENAI_ENDPOINT is read directly,
			// matching how the teacher's own Azure config falls back to a
			// well-known env var outside the generic credential shape.
			endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
			if endpoint == "" {
				logger.Warn(ctx, "AZURE_OPENAI_ENDPOINT not set, skipping azure credential")
				continue
			}
			p, err := providers.NewAzureOpenAIProvider(providers.AzureOpenAIConfig{APIKey: c.Key, Endpoint: endpoint})
			if err != nil {
				return fmt.Errorf("azure: %w", err)
			}
			registry.Register(c.Type, p)
		case models.ProviderBedrock:
			p, err := providers.NewBedrockProvider(providers.BedrockConfig{})
			if err != nil {
				return fmt.Errorf("bedrock: %w", err)
			}
			registry.Register(c.Type, p)
		case models.ProviderOllama:
			registry.Register(c.Type, providers.NewOllamaProvider(providers.OllamaConfig{BaseURL: c.Key}))
		case models.ProviderOpenRouter:
			p, err := providers.NewOpenRouterProvider(providers.OpenRouterConfig{APIKey: c.Key})
			if err != nil {
				return fmt.Errorf("openrouter: %w", err)
			}
			registry.Register(c.Type, p)
		case models.ProviderCopilotProxy:
			// The Copilot Proxy adapter serves its own model list rather
			// than reading from the catalog, since it proxies whatever
			// the local Copilot instance exposes; LP_ALLOWED_MODELS_<i>
			// doubles as that list when set.
			proxyModels := c.AllowedModels
			if len(proxyModels) == 0 {
				proxyModels = providers.DefaultCopilotProxyModels
			}
			p, err := providers.NewCopilotProxyProvider(providers.CopilotProxyConfig{BaseURL: c.Key, Models: proxyModels})
			if err != nil {
				return fmt.Errorf("copilot proxy: %w", err)
			}
			registry.Register(c.Type, p)
		default:
			logger.Warn(ctx, "no adapter for provider type, skipping", "provider", c.Type)
		}
	}
	return nil
}

// buildToolRegistry registers the gateway's stock tool set: web search,
// page fetch (with a headless-browser fallback tier for JS-rendered
// pages), and a sandboxed exec tool. Every tool is declared cacheable
// according to the idempotency-key policy in §4.5.
func buildToolRegistry(cfg *config.Config, contentCache *cache.Cache) (*agent.Registry, error) {
	registry := agent.NewRegistry(contentCache, cfg.ToolFanout)

	extractor := websearch.NewContentExtractor().WithHeadlessFallback(websearch.NewHeadlessExtractor())
	searchTool := websearch.NewWebSearchTool(&websearch.Config{ExtractContent: true})
	fetchTool := websearch.NewWebFetchTool(&websearch.FetchConfig{MaxChars: 10000}, websearch.WithExtractor(extractor))

	execManager := exec.NewManager("./data/workspace")
	execTool := exec.NewExecTool("exec", execManager)

	registrations := []agent.ToolDescriptor{
		{
			Tool: searchTool, Cacheable: true,
			IdempotencyKeyFields: []string{"query", "type"},
			MaxExecutionMs:       ttlMillis(cfg, "web_search", 15_000),
			MaxOutputBytes:       100_000,
		},
		{
			Tool: fetchTool, Cacheable: true,
			IdempotencyKeyFields: []string{"url"},
			MaxExecutionMs:       ttlMillis(cfg, "web_fetch", 30_000),
			MaxOutputBytes:       100_000,
		},
		{
			Tool: execTool, Cacheable: false,
			MaxExecutionMs: ttlMillis(cfg, "exec", 30_000),
			MaxOutputBytes: 100_000,
		},
	}

	for _, r := range registrations {
		if err := registry.Register(r); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// ttlMillis resolves a per-tool timeout override from CACHE_TTL_<tool>
// (reused here as the execution-deadline override knob, since §6 only
// defines one per-tool environment override family) falling back to def.
func ttlMillis(cfg *config.Config, tool string, def int) int {
	if seconds, ok := cfg.CacheTTLSeconds[tool]; ok && seconds > 0 {
		return seconds * 1000
	}
	return def
}

// planningToolView narrows the tool set for POST /planning to read-only
// research tools (search, fetch) per §6: planning must not execute code or
// modify anything, only propose a plan.
type planningTools struct {
	full    *agent.Registry
	allowed map[string]bool
}

func planningToolView(full *agent.Registry) *planningTools {
	return &planningTools{full: full, allowed: map[string]bool{"web_search": true, "web_fetch": true}}
}

// ExecuteAll delegates to the full registry; the narrowed tool set is
// enforced by Descriptors (the provider never offers exec to the model in
// the first place), not by filtering calls here.
func (p *planningTools) ExecuteAll(ctx context.Context, calls []pkgmodels.ToolCall) []pkgmodels.ToolResult {
	return p.full.ExecuteAll(ctx, calls)
}

func (p *planningTools) Descriptors() []agent.Tool {
	out := make([]agent.Tool, 0, len(p.allowed))
	for _, t := range p.full.Descriptors() {
		if p.allowed[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}
