package breaker

import (
	"sync"
	"time"

	"github.com/nexuscore/gateway/internal/models"
)

// window accumulates request and token counts inside a single rolling
// period (minute or day). It is a pure accounting surface: the tracker
// itself never sleeps or retries, per the orchestrator owning that policy.
type window struct {
	start    time.Time
	period   time.Duration
	requests int
	tokens   int
}

func (w *window) rotate(now time.Time) {
	if w.start.IsZero() || now.Sub(w.start) >= w.period {
		w.start = now
		w.requests = 0
		w.tokens = 0
	}
}

// usage holds the four rolling windows tracked per (provider, model):
// requests-per-minute, tokens-per-minute, requests-per-day, tokens-per-day.
type usage struct {
	minute window
	day    window
}

// RateTracker maintains per-(provider, model) RPM/TPM/RPD/TPD counters using
// monotonic rolling windows. It satisfies models.RateView.
type RateTracker struct {
	mu      sync.Mutex
	entries map[key]*usage
	now     func() time.Time
}

// NewRateTracker creates an empty rate tracker.
func NewRateTracker() *RateTracker {
	return &RateTracker{
		entries: make(map[key]*usage),
		now:     time.Now,
	}
}

func (r *RateTracker) get(provider models.Provider, model string) *usage {
	k := key{provider, model}
	u := r.entries[k]
	if u == nil {
		u = &usage{
			minute: window{period: time.Minute},
			day:    window{period: 24 * time.Hour},
		}
		r.entries[k] = u
	}
	return u
}

// ProjectsOverage reports whether issuing a call with the given prompt token
// estimate and maxTokens budget would exceed any of the model's declared
// rate limits, given usage already recorded this window. A zero limit is
// treated as "no declared limit" and never projects overage.
func (r *RateTracker) ProjectsOverage(provider models.Provider, model string, limits models.RateLimits, promptTokens, maxTokens int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	u := r.get(provider, model)
	u.minute.rotate(now)
	u.day.rotate(now)

	projectedTokens := promptTokens + maxTokens

	if limits.RPM > 0 && u.minute.requests+1 > limits.RPM {
		return true
	}
	if limits.TPM > 0 && u.minute.tokens+projectedTokens > limits.TPM {
		return true
	}
	if limits.RPD > 0 && u.day.requests+1 > limits.RPD {
		return true
	}
	if limits.TPD > 0 && u.day.tokens+projectedTokens > limits.TPD {
		return true
	}
	return false
}

// RecordUsage adds an actually-completed call's token counts to the rolling
// windows. Call this after a successful upstream response; do not call it
// for failed or refused attempts.
func (r *RateTracker) RecordUsage(provider models.Provider, model string, tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	u := r.get(provider, model)
	u.minute.rotate(now)
	u.day.rotate(now)
	u.minute.requests++
	u.minute.tokens += tokens
	u.day.requests++
	u.day.tokens += tokens
}

var _ models.RateView = (*RateTracker)(nil)
