package models

import (
	"hash/fnv"
	"math/rand"
	"sort"

	wire "github.com/nexuscore/gateway/pkg/models"
)

// Optimization is the request's cost/quality objective.
type Optimization string

const (
	OptimizationCheap    Optimization = "cheap"
	OptimizationQuality  Optimization = "quality"
	OptimizationFree     Optimization = "free"
	OptimizationBalanced Optimization = "balanced"
)

// CircuitState is the circuit breaker's view of a (provider, model) pair, as
// seen by the selector. The concrete states and their transition rules live
// in the breaker package; the selector only needs to know whether a
// candidate is currently excluded.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// BreakerView is the read-only view of circuit breaker state the selector
// consults. Implemented by the breaker package's Tracker.
type BreakerView interface {
	State(provider Provider, model string) CircuitState
}

// RateView is the read-only view of rate-limit accounting the selector
// consults to reject models that would exceed a declared window.
// Implemented by the breaker package's RateTracker.
type RateView interface {
	ProjectsOverage(provider Provider, model string, limits RateLimits, promptTokens, maxTokens int) bool
}

// SelectionRequest captures the inputs to selectSequence: the request's hard
// requirements plus the optimization objective.
type SelectionRequest struct {
	Optimization        Optimization
	RequiresTools       bool
	RequiresVision      bool
	RequiresJSONMode    bool
	RequiresStreaming   bool
	RequiredCategory    Category // optional floor; empty means no floor
	ContextWindowNeeded int
	PromptTokens        int // estimated, for rate-limit projection
	MaxTokens           int

	// Providers, when non-empty, restricts and orders candidate providers:
	// request-supplied providers are unioned with the full catalog and tried
	// first, in the order given.
	Providers []Provider

	// Seed makes candidate-tie-breaking jitter deterministic for a given
	// request (e.g. derived from the request ID) without relying on global
	// mutable randomness.
	Seed string
}

// MinFallbackCandidates is the minimum fallback-sequence length the selector
// tries to return when enough eligible models exist.
const MinFallbackCandidates = 3

// Selector picks a ranked sequence of (provider, model) candidates for a
// request, consulting the catalog plus circuit breaker and rate-limit state.
// It is stateless beyond those read-only dependencies, and deterministic
// given the same world state and request.Seed.
type Selector struct {
	catalog *Catalog
	breaker BreakerView
	rates   RateView
}

// NewSelector constructs a Selector. breaker and rates may be nil in tests
// that don't exercise circuit/rate filtering; a nil BreakerView is treated as
// "always closed" and a nil RateView as "never projects overage".
func NewSelector(catalog *Catalog, breaker BreakerView, rates RateView) *Selector {
	return &Selector{catalog: catalog, breaker: breaker, rates: rates}
}

// SelectSequence returns an ordered list of candidate models to attempt, or
// wire.ErrNoModelAvailable if none survive filtering.
func (s *Selector) SelectSequence(req SelectionRequest) ([]*Model, error) {
	filter := &Filter{MinContextWindow: req.ContextWindowNeeded}
	if req.RequiresTools {
		filter.RequiredCapabilities = append(filter.RequiredCapabilities, CapTools)
	}
	if req.RequiresVision {
		filter.RequiredCapabilities = append(filter.RequiredCapabilities, CapVision)
	}
	if req.RequiresJSONMode {
		filter.RequiredCapabilities = append(filter.RequiredCapabilities, CapJSON)
	}
	if req.RequiresStreaming {
		filter.RequiredCapabilities = append(filter.RequiredCapabilities, CapStreaming)
	}
	if req.RequiredCategory != "" {
		filter.Categories = categoryFloor(req.RequiredCategory)
	}

	// Step 1+3: capability filter, deprecated/unavailable filter (the latter
	// is List's default behavior).
	candidates := s.catalog.List(filter)

	// Step 2: breaker/rate filter.
	candidates = filterByAvailability(candidates, req, s.breaker, s.rates)

	if len(candidates) == 0 {
		return nil, wire.ErrNoModelAvailable
	}

	// Step 4: score and order.
	scored := make([]scoredModel, 0, len(candidates))
	rng := rand.New(rand.NewSource(int64(seedFrom(req.Seed))))
	for _, m := range candidates {
		scored = append(scored, scoredModel{
			model: m,
			score: scoreModel(m, req, rng),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	// Request-supplied providers, if any, are tried first regardless of
	// score, preserving their given order; remaining candidates follow in
	// score order.
	ordered := prioritizeRequestProviders(scored, req.Providers)

	// Every surviving candidate is kept as a fallback rung (the spec's
	// "top N (>=3 if available)" is automatically satisfied whenever at
	// least 3 candidates survive filtering; a shorter list just means fewer
	// than 3 were eligible).
	return ordered, nil
}

type scoredModel struct {
	model *Model
	score float64
}

func filterByAvailability(candidates []*Model, req SelectionRequest, breaker BreakerView, rates RateView) []*Model {
	out := candidates[:0:0]
	for _, m := range candidates {
		if breaker != nil && breaker.State(m.Provider, m.ID) == CircuitOpen {
			continue
		}
		if rates != nil && rates.ProjectsOverage(m.Provider, m.ID, m.RateLimits, req.PromptTokens, req.MaxTokens) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// categoryFloor expands a required category into itself plus every category
// "above" it (closer to CategoryReasoning), since a floor is a minimum
// capability bar, not an exact match.
func categoryFloor(floor Category) []Category {
	order := []Category{CategorySmall, CategoryMedium, CategoryLarge, CategoryReasoning}
	start := 0
	for i, c := range order {
		if c == floor {
			start = i
			break
		}
	}
	return order[start:]
}

// scoreModel combines the optimization objective, category match, and
// deterministic per-request jitter into a single comparable score (higher is
// better).
func scoreModel(m *Model, req SelectionRequest, rng *rand.Rand) float64 {
	var score float64

	switch req.Optimization {
	case OptimizationCheap:
		score += priceScore(m)
	case OptimizationFree:
		if m.IsFree() {
			score += 100
		}
		score += priceScore(m) * 0.5
	case OptimizationQuality:
		score += float64(categoryRank(m.Category)) * -10 // lower rank (bigger model) scores higher
	case OptimizationBalanced, "":
		score += priceScore(m) * 0.5
		score += float64(categoryRank(m.Category)) * -5
	}

	if req.RequiredCategory != "" && m.Category == req.RequiredCategory {
		score += 5 // exact match preferred over "floor and above"
	}

	score += rng.Float64() * 0.01 // tie-breaking jitter, deterministic per Seed

	return score
}

// priceScore rewards cheaper models; free models score highest.
func priceScore(m *Model) float64 {
	total := m.Pricing.InputPer1M + m.Pricing.OutputPer1M
	if total <= 0 {
		return 50
	}
	return 50 / (1 + total)
}

func prioritizeRequestProviders(scored []scoredModel, providers []Provider) []*Model {
	if len(providers) == 0 {
		result := make([]*Model, len(scored))
		for i, s := range scored {
			result[i] = s.model
		}
		return result
	}

	priority := make(map[Provider]int, len(providers))
	for i, p := range providers {
		priority[p] = i
	}

	byProvider := make(map[Provider][]*Model)
	var rest []*Model
	for _, s := range scored {
		if _, ok := priority[s.model.Provider]; ok {
			byProvider[s.model.Provider] = append(byProvider[s.model.Provider], s.model)
		} else {
			rest = append(rest, s.model)
		}
	}

	result := make([]*Model, 0, len(scored))
	for _, p := range providers {
		result = append(result, byProvider[p]...)
	}
	result = append(result, rest...)
	return result
}

func seedFrom(s string) uint32 {
	if s == "" {
		return 1
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
