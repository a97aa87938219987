package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t,
		"MAX_TOOL_ITERATIONS", "SAFETY_ITERATION", "REQUEST_DEADLINE_SECONDS",
		"CACHE_BYTES_BUDGET", "TOOL_FANOUT", "GUARDRAIL_MODE", "PROVIDER_CATALOG_PATH",
		"SELF_EVALUATION_ENABLED", "SELF_EVAL_MAX_RETRIES", "LP_TYPE_0", "BREAKER_SNAPSHOT_PATH",
		"EVENT_HISTORY_SIZE",
	)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxToolIterations != defaultMaxToolIterations {
		t.Errorf("MaxToolIterations = %d, want %d", cfg.MaxToolIterations, defaultMaxToolIterations)
	}
	if cfg.SafetyIteration != defaultSafetyIteration {
		t.Errorf("SafetyIteration = %d, want %d", cfg.SafetyIteration, defaultSafetyIteration)
	}
	if cfg.GuardrailMode != GuardrailOpen {
		t.Errorf("GuardrailMode = %q, want %q", cfg.GuardrailMode, GuardrailOpen)
	}
	if !cfg.SelfEvaluationEnabled {
		t.Error("SelfEvaluationEnabled should default to true")
	}
	if cfg.SelfEvalMaxRetries != defaultSelfEvalMaxRetries {
		t.Errorf("SelfEvalMaxRetries = %d, want %d", cfg.SelfEvalMaxRetries, defaultSelfEvalMaxRetries)
	}
	if len(cfg.Credentials) != 0 {
		t.Errorf("expected no credentials, got %d", len(cfg.Credentials))
	}
	if cfg.BreakerSnapshotPath != "" {
		t.Errorf("BreakerSnapshotPath should default to empty (disabled), got %q", cfg.BreakerSnapshotPath)
	}
	if cfg.EventHistorySize != defaultEventHistorySize {
		t.Errorf("EventHistorySize = %d, want %d", cfg.EventHistorySize, defaultEventHistorySize)
	}
}

func TestLoadSelfEvalOverrides(t *testing.T) {
	clearEnv(t, "SELF_EVALUATION_ENABLED", "SELF_EVAL_MAX_RETRIES")
	os.Setenv("SELF_EVALUATION_ENABLED", "false")
	os.Setenv("SELF_EVAL_MAX_RETRIES", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SelfEvaluationEnabled {
		t.Error("SelfEvaluationEnabled should honor SELF_EVALUATION_ENABLED=false")
	}
	if cfg.SelfEvalMaxRetries != 3 {
		t.Errorf("SelfEvalMaxRetries = %d, want 3", cfg.SelfEvalMaxRetries)
	}
}

func TestLoadCredentialsIndexedPool(t *testing.T) {
	clearEnv(t, "LP_TYPE_0", "LP_KEY_0", "LP_ALLOWED_MODELS_0", "LP_CAPABILITIES_0", "LP_TYPE_1")
	os.Setenv("LP_TYPE_0", "anthropic")
	os.Setenv("LP_KEY_0", "sk-test")
	os.Setenv("LP_ALLOWED_MODELS_0", "claude-3-opus, claude-3-sonnet")
	os.Setenv("LP_CAPABILITIES_0", "tools,vision")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Credentials) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(cfg.Credentials))
	}
	c := cfg.Credentials[0]
	if string(c.Type) != "anthropic" || c.Key != "sk-test" {
		t.Errorf("unexpected credential: %+v", c)
	}
	if len(c.AllowedModels) != 2 || c.AllowedModels[0] != "claude-3-opus" {
		t.Errorf("unexpected allowed models: %v", c.AllowedModels)
	}
}

func TestLoadCredentialsEmptyTypeIsError(t *testing.T) {
	clearEnv(t, "LP_TYPE_0")
	os.Setenv("LP_TYPE_0", "   ")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for blank LP_TYPE_0")
	}
}

func TestEnvTTLOverrides(t *testing.T) {
	clearEnv(t, "CACHE_TTL_WEB_SEARCH")
	os.Setenv("CACHE_TTL_WEB_SEARCH", "120")

	overrides := envTTLOverrides()
	if overrides["web_search"] != 120 {
		t.Errorf("expected web_search TTL override 120, got %v", overrides)
	}
}
