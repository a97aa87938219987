// Package breaker implements the per-(provider, model) circuit breaker and
// rate-limit tracker that the model selector consults before dispatch.
package breaker

import (
	"sync"
	"time"

	"github.com/nexuscore/gateway/internal/models"
)

const (
	failureWindow    = 10 * time.Minute
	failureThreshold = 5
	cooldown         = 10 * time.Minute
)

type key struct {
	provider models.Provider
	model    string
}

// entry holds the circuit state for a single (provider, model) pair. All
// fields are protected by the owning Breaker's mutex; no lock is ever held
// across network I/O.
type entry struct {
	state      models.CircuitState
	failures   []time.Time // timestamps within the rolling failure window
	openedAt   time.Time
	halfOpened bool
}

// Breaker tracks circuit state for every (provider, model) pair the gateway
// has dispatched to. It satisfies models.BreakerView and also exposes the
// mutation methods the orchestrator calls after each upstream attempt.
//
// Breaker is process-wide, in-memory state; nothing is persisted across
// restarts, matching the read-mostly/short-critical-section contract the
// selector expects.
type Breaker struct {
	mu      sync.Mutex
	entries map[key]*entry
	now     func() time.Time
}

// New creates an empty breaker. All (provider, model) pairs start CLOSED.
func New() *Breaker {
	return &Breaker{
		entries: make(map[key]*entry),
		now:     time.Now,
	}
}

// State returns the breaker's current view for (provider, model),
// transitioning OPEN to HALF_OPEN if the cooldown has elapsed. This
// transition is observed lazily, on read, rather than via a background
// timer.
func (b *Breaker) State(provider models.Provider, model string) models.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entries[key{provider, model}]
	if e == nil {
		return models.CircuitClosed
	}
	b.maybeHalfOpen(e)
	return e.state
}

// maybeHalfOpen flips an OPEN entry to HALF_OPEN once the cooldown since
// openedAt has elapsed. Callers must hold b.mu.
func (b *Breaker) maybeHalfOpen(e *entry) {
	if e.state == models.CircuitOpen && b.now().Sub(e.openedAt) >= cooldown {
		e.state = models.CircuitHalfOpen
		e.halfOpened = true
	}
}

// RecordSuccess clears the failure history for (provider, model) and, if the
// circuit was HALF_OPEN, closes it. A success against a CLOSED circuit is a
// no-op beyond clearing stale failure timestamps.
func (b *Breaker) RecordSuccess(provider models.Provider, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{provider, model}
	e := b.entries[k]
	if e == nil {
		return
	}
	b.maybeHalfOpen(e)
	e.state = models.CircuitClosed
	e.failures = nil
	e.openedAt = time.Time{}
	e.halfOpened = false
}

// RecordFailure registers a breaker-tripping failure for (provider, model).
// A HALF_OPEN circuit reopens immediately on the first failure it sees,
// restarting the cooldown. A CLOSED circuit opens once five failures have
// landed within the rolling ten-minute window.
func (b *Breaker) RecordFailure(provider models.Provider, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{provider, model}
	e := b.entries[k]
	if e == nil {
		e = &entry{state: models.CircuitClosed}
		b.entries[k] = e
	}
	b.maybeHalfOpen(e)
	now := b.now()

	if e.state == models.CircuitHalfOpen {
		e.state = models.CircuitOpen
		e.openedAt = now
		e.failures = nil
		return
	}

	e.failures = append(prune(e.failures, now), now)
	if len(e.failures) >= failureThreshold {
		e.state = models.CircuitOpen
		e.openedAt = now
		e.failures = nil
	}
}

// prune drops failure timestamps that have aged out of the rolling window.
func prune(failures []time.Time, now time.Time) []time.Time {
	kept := failures[:0]
	for _, t := range failures {
		if now.Sub(t) < failureWindow {
			kept = append(kept, t)
		}
	}
	return kept
}

var _ models.BreakerView = (*Breaker)(nil)
