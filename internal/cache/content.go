// Package cache implements the content-addressed payload cache used to
// memoize tool results (search hits, page scrapes, transcripts) across
// requests.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nexuscore/gateway/internal/observability"
)

const (
	defaultByteBudget = 512 * 1024 * 1024
	highWaterRatio    = 0.80
	lowWaterRatio     = 0.70
)

// Entry describes a cached payload returned by Get.
type Entry struct {
	Payload []byte
	Cached  bool
}

// Stats summarizes cache health for the /cache-stats endpoint.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Bytes  int64 `json:"bytes"`
	Count  int   `json:"count"`
}

type record struct {
	size           int64
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// Cache is a content-addressed, file-backed payload cache with TTL expiry
// and high/low-water LRU eviction against a configured byte budget.
//
// Hot metadata lives in memory; payload bytes are read from disk on demand.
// Every operation is best-effort: I/O errors are logged and treated as a
// miss, never surfaced to the caller as an error that would fail the
// enclosing request.
type Cache struct {
	mu      sync.RWMutex
	dir     string
	budget  int64
	entries map[string]*record
	bytes   int64
	hits    int64
	misses  int64
	logger  *observability.Logger
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithByteBudget overrides the default 512MB byte budget.
func WithByteBudget(n int64) Option {
	return func(c *Cache) { c.budget = n }
}

// WithLogger attaches a logger for best-effort I/O failure reporting.
func WithLogger(l *observability.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a Cache backed by dir, a scratch directory for payload files.
// The directory is created if it does not exist.
func New(dir string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	c := &Cache{
		dir:     dir,
		budget:  defaultByteBudget,
		entries: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Key derives a content-addressed cache key from a tool name and its
// idempotency-relevant argument fields.
func Key(toolName string, fields ...string) string {
	h := sha256.New()
	h.Write([]byte(toolName))
	for _, f := range fields {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached payload for key, or ok=false on a miss (including
// an expired entry or a read failure). A hit updates lastAccessedAt.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	rec, found := c.entries[key]
	if !found {
		c.misses++
		c.mu.Unlock()
		return Entry{}, false
	}
	if c.isExpired(rec) {
		c.removeLocked(key)
		c.misses++
		c.mu.Unlock()
		return Entry{}, false
	}
	rec.lastAccessedAt = time.Now()
	c.mu.Unlock()

	payload, err := os.ReadFile(c.path(key))
	if err != nil {
		c.logf(ctx, "cache read failed", "key", key, "error", err)
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return Entry{}, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return Entry{Payload: payload, Cached: true}, true
}

// Put writes payload under key with the given TTL, then evicts
// least-recently-accessed entries if the store is over its high-water mark.
// Any I/O failure is logged and otherwise ignored — callers never see an
// error from a cache write.
func (c *Cache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		c.logf(ctx, "cache temp file create failed", "key", key, "error", err)
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		c.logf(ctx, "cache write failed", "key", key, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		c.logf(ctx, "cache close failed", "key", key, "error", err)
		return
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		c.logf(ctx, "cache rename failed", "key", key, "error", err)
		return
	}

	now := time.Now()
	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		c.bytes -= existing.size
	}
	rec := &record{
		size:           int64(len(payload)),
		lastAccessedAt: now,
	}
	if ttl > 0 {
		rec.expiresAt = now.Add(ttl)
	}
	c.entries[key] = rec
	c.bytes += rec.size
	c.evictIfNeededLocked(ctx)
	c.mu.Unlock()
}

// Stats reports current hit/miss/byte/count accounting.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Bytes:  c.bytes,
		Count:  len(c.entries),
	}
}

func (c *Cache) isExpired(r *record) bool {
	return !r.expiresAt.IsZero() && time.Now().After(r.expiresAt)
}

// evictIfNeededLocked drops expired entries and, if still over the
// high-water mark, evicts least-recently-accessed entries down to the
// low-water mark. Callers must hold c.mu.
func (c *Cache) evictIfNeededLocked(ctx context.Context) {
	highWater := int64(float64(c.budget) * highWaterRatio)
	if c.bytes < highWater {
		return
	}

	for key, rec := range c.entries {
		if c.isExpired(rec) {
			c.removeLocked(key)
		}
	}

	lowWater := int64(float64(c.budget) * lowWaterRatio)
	for c.bytes > lowWater && len(c.entries) > 0 {
		oldestKey := ""
		var oldestAt time.Time
		for key, rec := range c.entries {
			if oldestKey == "" || rec.lastAccessedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = rec.lastAccessedAt
			}
		}
		if oldestKey == "" {
			break
		}
		c.removeLocked(oldestKey)
	}
	_ = ctx
}

// removeLocked deletes an entry's metadata and backing file. Callers must
// hold c.mu.
func (c *Cache) removeLocked(key string) {
	rec, ok := c.entries[key]
	if !ok {
		return
	}
	c.bytes -= rec.size
	delete(c.entries, key)
	_ = os.Remove(c.path(key))
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".bin")
}

func (c *Cache) logf(ctx context.Context, msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(ctx, msg, args...)
}

// ErrNotFound is returned by helpers that want a typed miss signal; the
// Cache API itself uses a plain bool.
var ErrNotFound = errors.New("cache: not found")
