// Package config loads the gateway's runtime configuration from the
// environment: iteration bounds, cache/guardrail/fanout tuning, and the
// indexed LLM provider credential pool.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nexuscore/gateway/internal/models"
)

// GuardrailMode mirrors internal/guardrail.Mode as a plain string so this
// package doesn't need to import guardrail.
type GuardrailMode string

const (
	GuardrailOff    GuardrailMode = "off"
	GuardrailOpen   GuardrailMode = "open"
	GuardrailClosed GuardrailMode = "closed"
)

// Credential is one entry of the LP_* indexed provider credential pool.
type Credential struct {
	Type          models.Provider
	Key           string
	AllowedModels []string // empty means "all models for this provider"
	Capabilities  []string
}

// Config is the gateway's fully-resolved runtime configuration.
type Config struct {
	MaxToolIterations      int
	SafetyIteration        int
	RequestDeadlineSeconds int
	CacheBytesBudget       int64
	CacheTTLSeconds        map[string]int // per-tool override, key = tool name
	ToolFanout             int
	GuardrailMode          GuardrailMode
	ProviderCatalogPath    string
	Credentials            []Credential
	SelfEvaluationEnabled  bool
	SelfEvalMaxRetries     int
	// BreakerSnapshotPath, if set, persists circuit-breaker state to a
	// sqlite database at this path so OPEN circuits survive a restart
	// instead of every candidate starting CLOSED against live traffic
	// again. Empty disables persistence entirely.
	BreakerSnapshotPath string
	// EventHistorySize bounds the in-memory run/tool-call event timeline
	// (internal/observability's MemoryEventStore) kept for diagnostics.
	EventHistorySize int
}

// asGuardrailMode maps the core GUARDRAIL_MODE vocabulary (off|open|closed)
// onto internal/guardrail's Mode type (fail-open|fail-closed), used when
// wiring a Guardrail from Config. "off" is handled by the caller skipping
// guardrail construction entirely.
func (m GuardrailMode) FailClosed() bool {
	return m == GuardrailClosed
}

const (
	defaultMaxToolIterations      = 10
	defaultSafetyIteration        = 8
	defaultRequestDeadlineSeconds = 600
	defaultCacheBytesBudget       = 512 * 1024 * 1024
	defaultToolFanout             = 4
	defaultSelfEvalMaxRetries     = 1
	defaultEventHistorySize       = 1000
)

// Load reads configuration from the process environment. Unknown LP_* index
// slots (gaps in the sequence) are not an error; the scan simply stops at
// the first missing LP_TYPE_<i>.
func Load() (*Config, error) {
	cfg := &Config{
		MaxToolIterations:      envInt("MAX_TOOL_ITERATIONS", defaultMaxToolIterations),
		SafetyIteration:        envInt("SAFETY_ITERATION", defaultSafetyIteration),
		RequestDeadlineSeconds: envInt("REQUEST_DEADLINE_SECONDS", defaultRequestDeadlineSeconds),
		CacheBytesBudget:       envInt64("CACHE_BYTES_BUDGET", defaultCacheBytesBudget),
		CacheTTLSeconds:        envTTLOverrides(),
		ToolFanout:             envInt("TOOL_FANOUT", defaultToolFanout),
		GuardrailMode:          GuardrailMode(envString("GUARDRAIL_MODE", string(GuardrailOpen))),
		ProviderCatalogPath:    os.Getenv("PROVIDER_CATALOG_PATH"),
		SelfEvaluationEnabled:  envBool("SELF_EVALUATION_ENABLED", true),
		SelfEvalMaxRetries:     envInt("SELF_EVAL_MAX_RETRIES", defaultSelfEvalMaxRetries),
		BreakerSnapshotPath:    os.Getenv("BREAKER_SNAPSHOT_PATH"),
		EventHistorySize:       envInt("EVENT_HISTORY_SIZE", defaultEventHistorySize),
	}

	creds, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds

	return cfg, nil
}

// loadCredentials scans LP_TYPE_<i>/LP_KEY_<i>/LP_ALLOWED_MODELS_<i>/
// LP_CAPABILITIES_<i> starting at index 0 until LP_TYPE_<i> is unset.
func loadCredentials() ([]Credential, error) {
	var creds []Credential
	for i := 0; ; i++ {
		providerType, ok := os.LookupEnv(fmt.Sprintf("LP_TYPE_%d", i))
		if !ok {
			break
		}
		providerType = strings.TrimSpace(providerType)
		if providerType == "" {
			return nil, fmt.Errorf("LP_TYPE_%d is set but empty", i)
		}
		key := os.Getenv(fmt.Sprintf("LP_KEY_%d", i))
		creds = append(creds, Credential{
			Type:          models.Provider(providerType),
			Key:           key,
			AllowedModels: splitCSV(os.Getenv(fmt.Sprintf("LP_ALLOWED_MODELS_%d", i))),
			Capabilities:  splitCSV(os.Getenv(fmt.Sprintf("LP_CAPABILITIES_%d", i))),
		})
	}
	return creds, nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// envTTLOverrides scans CACHE_TTL_<TOOL_NAME> variables (seconds) into a
// lowercase-tool-name-keyed map.
func envTTLOverrides() map[string]int {
	out := make(map[string]int)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, val := parts[0], parts[1]
		const prefix = "CACHE_TTL_"
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		tool := strings.ToLower(strings.TrimPrefix(key, prefix))
		if tool == "" {
			continue
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			out[tool] = seconds
		}
	}
	return out
}
