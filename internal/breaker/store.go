package breaker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nexuscore/gateway/internal/models"
)

// Snapshot is the persisted view of one (provider, model) circuit's state,
// used to survive a process restart without re-learning every open circuit
// from scratch against live traffic.
type Snapshot struct {
	Provider models.Provider
	Model    string
	State    models.CircuitState
	OpenedAt time.Time
}

// Snapshot dumps the breaker's current entries. Only OPEN and HALF_OPEN
// circuits are worth persisting; a restart that forgets a CLOSED circuit
// loses nothing, since CLOSED is the zero value every unseen pair starts at.
func (b *Breaker) Snapshot() []Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Snapshot, 0, len(b.entries))
	for k, e := range b.entries {
		if e.state == models.CircuitClosed {
			continue
		}
		out = append(out, Snapshot{Provider: k.provider, Model: k.model, State: e.state, OpenedAt: e.openedAt})
	}
	return out
}

// Restore seeds the breaker's entries from previously persisted snapshots,
// normal at process startup before traffic starts flowing. A HALF_OPEN
// snapshot is restored as OPEN and re-evaluated against the cooldown on the
// next State() call, since "half open" is meaningful only mid-probe.
func (b *Breaker) Restore(snaps []Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range snaps {
		state := s.State
		if state == models.CircuitHalfOpen {
			state = models.CircuitOpen
		}
		b.entries[key{s.Provider, s.Model}] = &entry{state: state, openedAt: s.OpenedAt}
	}
}

// SnapshotStore persists breaker snapshots across restarts. It is optional:
// the gateway runs fine without one, rebuilding circuit state purely from
// live traffic.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore wraps an already-opened *sql.DB. The caller owns the
// connection's lifecycle (driver selection, DSN, Close).
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// EnsureSchema creates the backing table if it doesn't already exist.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS breaker_state (
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		state TEXT NOT NULL,
		opened_at INTEGER NOT NULL,
		PRIMARY KEY (provider, model)
	)`
	_, err := s.db.ExecContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("breaker: ensure schema: %w", err)
	}
	return nil
}

// Save replaces every persisted row with the given snapshots in a single
// transaction.
func (s *SnapshotStore) Save(ctx context.Context, snaps []Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("breaker: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM breaker_state"); err != nil {
		return fmt.Errorf("breaker: clear snapshot table: %w", err)
	}

	const upsert = `INSERT INTO breaker_state (provider, model, state, opened_at) VALUES (?, ?, ?, ?)`
	for _, snap := range snaps {
		if _, err := tx.ExecContext(ctx, upsert, string(snap.Provider), snap.Model, stateName(snap.State), snap.OpenedAt.Unix()); err != nil {
			return fmt.Errorf("breaker: persist snapshot for %s/%s: %w", snap.Provider, snap.Model, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("breaker: commit snapshot: %w", err)
	}
	return nil
}

// Load reads every persisted snapshot row.
func (s *SnapshotStore) Load(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT provider, model, state, opened_at FROM breaker_state")
	if err != nil {
		return nil, fmt.Errorf("breaker: load snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var provider, model, state string
		var openedAtUnix int64
		if err := rows.Scan(&provider, &model, &state, &openedAtUnix); err != nil {
			return nil, fmt.Errorf("breaker: scan snapshot row: %w", err)
		}
		out = append(out, Snapshot{
			Provider: models.Provider(provider),
			Model:    model,
			State:    parseState(state),
			OpenedAt: time.Unix(openedAtUnix, 0).UTC(),
		})
	}
	return out, rows.Err()
}

func stateName(s models.CircuitState) string {
	switch s {
	case models.CircuitOpen:
		return "open"
	case models.CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

func parseState(name string) models.CircuitState {
	switch name {
	case "open":
		return models.CircuitOpen
	case "half_open":
		return models.CircuitHalfOpen
	default:
		return models.CircuitClosed
	}
}
