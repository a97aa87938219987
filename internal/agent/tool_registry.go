package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nexuscore/gateway/internal/cache"
	"github.com/nexuscore/gateway/pkg/models"
)

func contextWithMillis(ctx context.Context, ms int) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}

// ToolDescriptor is the registry's view of one tool: its dispatch contract
// plus the execution policy (cacheability, timeouts, output limits) the
// executor enforces around every call.
type ToolDescriptor struct {
	Tool Tool

	// Cacheable marks the tool's output as safe to memoize in the content
	// cache, keyed by IdempotencyKeyFields.
	Cacheable bool

	// IdempotencyKeyFields names the JSON fields of the call arguments that
	// determine the cache key (e.g. ["query"] for a search tool).
	IdempotencyKeyFields []string

	// MaxExecutionMs bounds wall-clock execution; 0 means the registry
	// default.
	MaxExecutionMs int

	// MaxOutputBytes bounds contentForModel size; 0 means the registry
	// default.
	MaxOutputBytes int
}

const (
	defaultMaxExecutionMs = 30_000
	defaultMaxOutputBytes = 100_000
	defaultFanOut         = 4
	elisionMarker         = "\n...[truncated]..."
)

// cacheStore is the subset of *cache.Cache the registry needs, declared
// locally so call sites can substitute a fake in tests.
type cacheStore interface {
	Get(ctx context.Context, key string) (cache.Entry, bool)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration)
}

// defaultCacheTTL is used for every tool-result cache write; tools don't
// currently differentiate TTLs by content type.
const defaultCacheTTL = 15 * time.Minute

// Registry dispatches tool calls: schema validation, cache consult/write,
// deadline enforcement, output truncation, and concurrent fan-out across a
// single assistant turn's tool_calls.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*ToolDescriptor
	schemas map[string]*jsonschema.Schema
	cache   cacheStore
	fanOut  int
}

// NewRegistry creates an empty tool registry. store may be nil, in which
// case no tool output is ever memoized.
func NewRegistry(store cacheStore, fanOut int) *Registry {
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	return &Registry{
		tools:   make(map[string]*ToolDescriptor),
		schemas: make(map[string]*jsonschema.Schema),
		cache:   store,
		fanOut:  fanOut,
	}
}

// Register adds a tool, compiling its JSON Schema up front so malformed
// schemas fail at startup rather than on first call.
func (r *Registry) Register(desc ToolDescriptor) error {
	name := desc.Tool.Name()
	compiled, err := jsonschema.CompileString(name, string(desc.Tool.Schema()))
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = &desc
	r.schemas[name] = compiled
	return nil
}

// Names returns the registered tool names, for building the Tools list sent
// to a provider.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Descriptors returns every registered Tool, for building the provider's
// tool-definition list.
func (r *Registry) Descriptors() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d.Tool)
	}
	return out
}

// ExecuteAll runs every call in calls concurrently, capped at the
// registry's fan-out limit, and returns results in the same order as calls
// regardless of completion order.
func (r *Registry) ExecuteAll(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, len(calls))
	sem := make(chan struct{}, r.fanOut)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.execute(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

// execute implements the single-call dispatch contract from the registry
// docs: lookup, validate, cache consult, deadline-bound run, truncate,
// cache write.
func (r *Registry) execute(ctx context.Context, call models.ToolCall) models.ToolResult {
	r.mu.RLock()
	desc, ok := r.tools[call.Name]
	schema := r.schemas[call.Name]
	r.mu.RUnlock()

	if !ok {
		return errorResult(call.ID, models.ErrorUnknownTool, fmt.Sprintf("unknown tool %q", call.Name))
	}

	var args any
	dec := json.NewDecoder(bytes.NewReader(call.Input))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil && len(call.Input) > 0 {
		return errorResult(call.ID, models.ErrorInvalidArguments, fmt.Sprintf("invalid arguments JSON: %v", err))
	}
	if schema != nil {
		if err := schema.Validate(args); err != nil {
			return errorResult(call.ID, models.ErrorInvalidArguments, fmt.Sprintf("arguments failed schema validation: %v", err))
		}
	}

	var cacheKey string
	if desc.Cacheable && r.cache != nil {
		cacheKey = r.cacheKeyFor(desc, call)
		if entry, hit := r.cache.Get(ctx, cacheKey); hit {
			return models.ToolResult{
				ToolCallID: call.ID,
				Content:    truncate(string(entry.Payload), maxOutputBytesFor(desc)),
				Cached:     true,
			}
		}
	}

	maxMs := desc.MaxExecutionMs
	if maxMs <= 0 {
		maxMs = defaultMaxExecutionMs
	}
	runCtx, cancel := contextWithMillis(ctx, maxMs)
	defer cancel()

	result, err := desc.Tool.Execute(runCtx, call.Input)
	if err != nil {
		if runCtx.Err() != nil {
			return errorResult(call.ID, models.ErrorToolTimeout, "tool execution exceeded its deadline")
		}
		return errorResult(call.ID, models.ErrorInternal, err.Error())
	}
	if result == nil {
		return errorResult(call.ID, models.ErrorInternal, "tool returned no result")
	}

	content := result.Content
	maxBytes := maxOutputBytesFor(desc)
	truncated := false
	if len(content) > maxBytes {
		content = truncate(content, maxBytes)
		truncated = true
	}

	if desc.Cacheable && r.cache != nil && !result.IsError && cacheKey != "" {
		r.cache.Put(ctx, cacheKey, []byte(content), defaultCacheTTL)
	}

	out := models.ToolResult{
		ToolCallID: call.ID,
		Content:    content,
		IsError:    result.IsError,
	}
	if truncated {
		out.ErrorKind = string(models.ErrorToolOutputTooBig)
	}
	return out
}

func (r *Registry) cacheKeyFor(desc *ToolDescriptor, call models.ToolCall) string {
	var fields map[string]any
	_ = json.Unmarshal(call.Input, &fields)
	values := make([]string, 0, len(desc.IdempotencyKeyFields))
	for _, f := range desc.IdempotencyKeyFields {
		if v, ok := fields[f]; ok {
			b, _ := json.Marshal(v)
			values = append(values, string(b))
		}
	}
	return cache.Key(call.Name, values...)
}

func maxOutputBytesFor(desc *ToolDescriptor) int {
	if desc.MaxOutputBytes > 0 {
		return desc.MaxOutputBytes
	}
	return defaultMaxOutputBytes
}

func truncate(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := max - len(elisionMarker)
	if cut < 0 {
		cut = 0
	}
	return content[:cut] + elisionMarker
}

func errorResult(callID string, kind models.ErrorKind, message string) models.ToolResult {
	return models.ToolResult{
		ToolCallID: callID,
		Content:    message,
		IsError:    true,
		ErrorKind:  string(kind),
	}
}
