package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscore/gateway/internal/cache"
	"github.com/nexuscore/gateway/pkg/models"
)

type fakeTool struct {
	name    string
	schema  string
	execute func(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

func (f *fakeTool) Name() string             { return f.name }
func (f *fakeTool) Description() string      { return "test tool" }
func (f *fakeTool) Schema() json.RawMessage  { return json.RawMessage(f.schema) }
func (f *fakeTool) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	return f.execute(ctx, params)
}

func TestRegistry_UnknownToolReturnsSyntheticError(t *testing.T) {
	r := NewRegistry(nil, 2)
	out := r.ExecuteAll(context.Background(), []models.ToolCall{{ID: "1", Name: "nope", Input: json.RawMessage(`{}`)}})
	require.Len(t, out, 1)
	assert.True(t, out[0].IsError)
	assert.Equal(t, string(models.ErrorUnknownTool), out[0].ErrorKind)
}

func TestRegistry_InvalidArgumentsFailsSchema(t *testing.T) {
	r := NewRegistry(nil, 2)
	require.NoError(t, r.Register(ToolDescriptor{Tool: &fakeTool{
		name:   "calc",
		schema: `{"type":"object","properties":{"expr":{"type":"string"}},"required":["expr"]}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			return &ToolResult{Content: "4"}, nil
		},
	}}))

	out := r.ExecuteAll(context.Background(), []models.ToolCall{{ID: "1", Name: "calc", Input: json.RawMessage(`{}`)}})
	require.Len(t, out, 1)
	assert.True(t, out[0].IsError)
	assert.Equal(t, string(models.ErrorInvalidArguments), out[0].ErrorKind)
}

func TestRegistry_PreservesOrderUnderConcurrentCompletion(t *testing.T) {
	r := NewRegistry(nil, 4)
	require.NoError(t, r.Register(ToolDescriptor{Tool: &fakeTool{
		name:   "slow",
		schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			time.Sleep(20 * time.Millisecond)
			return &ToolResult{Content: "slow-done"}, nil
		},
	}}))
	require.NoError(t, r.Register(ToolDescriptor{Tool: &fakeTool{
		name:   "fast",
		schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			return &ToolResult{Content: "fast-done"}, nil
		},
	}}))

	calls := []models.ToolCall{
		{ID: "1", Name: "slow", Input: json.RawMessage(`{}`)},
		{ID: "2", Name: "fast", Input: json.RawMessage(`{}`)},
	}
	out := r.ExecuteAll(context.Background(), calls)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ToolCallID)
	assert.Equal(t, "2", out[1].ToolCallID)
}

func TestRegistry_TimeoutProducesToolTimeoutKind(t *testing.T) {
	r := NewRegistry(nil, 2)
	require.NoError(t, r.Register(ToolDescriptor{
		Tool: &fakeTool{
			name:   "hangs",
			schema: `{"type":"object"}`,
			execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
		MaxExecutionMs: 5,
	}))

	out := r.ExecuteAll(context.Background(), []models.ToolCall{{ID: "1", Name: "hangs", Input: json.RawMessage(`{}`)}})
	require.Len(t, out, 1)
	assert.Equal(t, string(models.ErrorToolTimeout), out[0].ErrorKind)
}

func TestRegistry_TruncatesOutputWithElisionMarker(t *testing.T) {
	r := NewRegistry(nil, 2)
	big := strings.Repeat("x", 100)
	require.NoError(t, r.Register(ToolDescriptor{
		Tool: &fakeTool{
			name:   "verbose",
			schema: `{"type":"object"}`,
			execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
				return &ToolResult{Content: big}, nil
			},
		},
		MaxOutputBytes: 50,
	}))

	out := r.ExecuteAll(context.Background(), []models.ToolCall{{ID: "1", Name: "verbose", Input: json.RawMessage(`{}`)}})
	require.Len(t, out, 1)
	assert.LessOrEqual(t, len(out[0].Content), 50)
	assert.Contains(t, out[0].Content, "truncated")
}

func TestRegistry_CacheHitShortCircuitsExecution(t *testing.T) {
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)
	r := NewRegistry(store, 2)

	called := 0
	require.NoError(t, r.Register(ToolDescriptor{
		Tool: &fakeTool{
			name:   "searchy",
			schema: `{"type":"object","properties":{"q":{"type":"string"}}}`,
			execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
				called++
				return &ToolResult{Content: "fresh result"}, nil
			},
		},
		Cacheable:            true,
		IdempotencyKeyFields: []string{"q"},
	}))

	call := models.ToolCall{ID: "1", Name: "searchy", Input: json.RawMessage(`{"q":"golang"}`)}
	first := r.ExecuteAll(context.Background(), []models.ToolCall{call})
	require.False(t, first[0].Cached)

	second := r.ExecuteAll(context.Background(), []models.ToolCall{call})
	require.True(t, second[0].Cached)
	assert.Equal(t, 1, called)
}

func TestRegistry_ToolErrorPropagatesAsInternal(t *testing.T) {
	r := NewRegistry(nil, 2)
	require.NoError(t, r.Register(ToolDescriptor{Tool: &fakeTool{
		name:   "broken",
		schema: `{"type":"object"}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			return nil, errors.New("boom")
		},
	}}))

	out := r.ExecuteAll(context.Background(), []models.ToolCall{{ID: "1", Name: "broken", Input: json.RawMessage(`{}`)}})
	require.Len(t, out, 1)
	assert.True(t, out[0].IsError)
	assert.Equal(t, string(models.ErrorInternal), out[0].ErrorKind)
}
