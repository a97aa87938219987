// Package models provides the provider/model catalog: the declarative registry of
// what models exist, what they cost, and what they can do.
package models

import (
	"sort"
	"strings"
	"sync"
)

// Provider identifies an LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderMistral   Provider = "mistral"
	ProviderCohere    Provider = "cohere"
	ProviderOllama    Provider = "ollama"
	ProviderAzure     Provider = "azure"
	ProviderBedrock   Provider = "bedrock"
	ProviderVertex    Provider = "vertex"
	// ProviderOpenRouter and ProviderCopilotProxy route through an
	// OpenAI-compatible endpoint under a different base URL/auth scheme;
	// see internal/agent/providers/openrouter.go and copilot_proxy.go.
	ProviderOpenRouter   Provider = "openrouter"
	ProviderCopilotProxy Provider = "copilot_proxy"
)

// Capability identifies a model capability.
type Capability string

const (
	CapVision      Capability = "vision"       // Can process images
	CapTools       Capability = "tools"        // Supports function calling
	CapStreaming   Capability = "streaming"     // Supports streaming responses
	CapJSON        Capability = "json"          // Supports JSON mode
	CapCode        Capability = "code"          // Optimized for code
	CapReasoning   Capability = "reasoning"     // Extended reasoning (o1, etc)
	CapAudio       Capability = "audio"         // Can process audio
	CapVideo       Capability = "video"         // Can process video
	CapEmbeddings  Capability = "embeddings"    // Can generate embeddings
	CapFineTunable Capability = "fine_tunable"  // Can be fine-tuned
	CapPDFInput    Capability = "pdf_input"     // Can process PDFs directly
	CapLongContext Capability = "long_context"  // 100k+ context window
	CapBatch       Capability = "batch"         // Supports batch API
	CapCaching     Capability = "caching"       // Supports prompt caching
)

// Category is the model's size/capability class used for selection and fallback
// ordering. It replaces the older "tier" notion with the four classes the
// request's requiredCategory floor and the selector's scoring function reason
// about.
type Category string

const (
	CategorySmall     Category = "small"
	CategoryMedium    Category = "medium"
	CategoryLarge     Category = "large"
	CategoryReasoning Category = "reasoning"
)

// Pricing is per-million-token pricing in USD.
type Pricing struct {
	InputPer1M  float64 `json:"inputPer1M" yaml:"inputPer1M"`
	OutputPer1M float64 `json:"outputPer1M" yaml:"outputPer1M"`
}

// RateLimits is the model's declared rate-limit envelope. Zero means "no
// declared limit" — the rate tracker treats a zero window as non-binding
// rather than as "always exceeded".
type RateLimits struct {
	RPM int `json:"rpm" yaml:"rpm"`
	TPM int `json:"tpm" yaml:"tpm"`
	RPD int `json:"rpd" yaml:"rpd"`
	TPD int `json:"tpd" yaml:"tpd"`
}

// Model is a ModelDescriptor: an LLM model with its capabilities, pricing, rate
// limits, and lifecycle flags.
type Model struct {
	// ID is the model identifier used in API calls (modelId).
	ID string `json:"id"`

	// Name is a human-readable name.
	Name string `json:"name"`

	// Provider is the LLM provider (providerType).
	Provider Provider `json:"provider"`

	// Category is the size/capability class.
	Category Category `json:"category"`

	// ContextWindow is the maximum context size in tokens.
	ContextWindow int `json:"context_window"`

	// MaxOutputTokens is the maximum output size.
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`

	// Capabilities lists what the model can do. supportsTools/supportsStreaming
	// in the catalog document map to CapTools/CapStreaming membership here.
	Capabilities []Capability `json:"capabilities"`

	// Aliases are alternative names for this model.
	Aliases []string `json:"aliases,omitempty"`

	// Deprecated indicates if this model is deprecated. A model is also
	// treated as deprecated if it was loaded from a catalog document key
	// prefixed "_deprecated_" (see loader.go).
	Deprecated bool `json:"deprecated,omitempty"`

	// Available is false if the model has been withdrawn by the operator
	// (distinct from Deprecated: an available-but-deprecated model still
	// serves traffic for a grace period, an unavailable model never does).
	Available bool `json:"available"`

	// ReplacedBy is the recommended replacement for deprecated models.
	ReplacedBy string `json:"replaced_by,omitempty"`

	// ReleaseDate is when the model was released (YYYY-MM-DD).
	ReleaseDate string `json:"release_date,omitempty"`

	// Description is a brief description.
	Description string `json:"description,omitempty"`

	// Pricing is per-million-token pricing.
	Pricing Pricing `json:"pricing"`

	// RateLimits is the declared RPM/TPM/RPD/TPD envelope consulted by the
	// selector and rate tracker.
	RateLimits RateLimits `json:"rateLimits"`
}

// HasCapability checks if the model has a specific capability.
func (m *Model) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// SupportsVision returns true if the model can process images.
func (m *Model) SupportsVision() bool {
	return m.HasCapability(CapVision)
}

// SupportsTools returns true if the model supports function calling.
func (m *Model) SupportsTools() bool {
	return m.HasCapability(CapTools)
}

// SupportsStreaming returns true if the model supports streaming.
func (m *Model) SupportsStreaming() bool {
	return m.HasCapability(CapStreaming)
}

// SupportsJSONMode returns true if the model supports a constrained JSON
// response format.
func (m *Model) SupportsJSONMode() bool {
	return m.HasCapability(CapJSON)
}

// IsFree returns true if the model has zero declared input and output pricing
// — the selector's "free" optimization objective treats this as a strong
// bonus.
func (m *Model) IsFree() bool {
	return m.Pricing.InputPer1M == 0 && m.Pricing.OutputPer1M == 0
}

// Eligible reports whether the model may be selected at all, independent of
// the current request's capability requirements: not deprecated, not
// withdrawn.
func (m *Model) Eligible() bool {
	return m.Available && !m.Deprecated
}

// Catalog manages a collection of models. It is read-only after construction
// except for administrative Register/Reload calls, which are never invoked
// from the request path.
type Catalog struct {
	mu      sync.RWMutex
	models  map[string]*Model // "provider/id" -> model
	aliases map[string]string // alias -> id
}

// NewCatalog creates a new model catalog seeded with a built-in default model
// list. Production deployments normally replace this by loading a catalog
// document (see loader.go) over PROVIDER_CATALOG_PATH.
func NewCatalog() *Catalog {
	c := &Catalog{
		models:  make(map[string]*Model),
		aliases: make(map[string]string),
	}
	c.registerBuiltinModels()
	return c
}

// NewEmptyCatalog creates a catalog with no models registered, for callers
// (the document loader) that want full control over the initial contents.
func NewEmptyCatalog() *Catalog {
	return &Catalog{
		models:  make(map[string]*Model),
		aliases: make(map[string]string),
	}
}

// Register adds a model to the catalog. Administrative operation — not
// called from the request path.
func (c *Catalog) Register(model *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models[ModelKey(string(model.Provider), model.ID)] = model

	for _, alias := range model.Aliases {
		c.aliases[strings.ToLower(alias)] = model.ID
	}
}

// Get retrieves a model by provider and ID or alias (getModel(providerType,
// modelId)).
func (c *Catalog) Get(provider Provider, id string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if model, ok := c.models[ModelKey(string(provider), id)]; ok {
		return model, true
	}

	if realID, ok := c.aliases[strings.ToLower(id)]; ok {
		if model, ok := c.models[ModelKey(string(provider), realID)]; ok {
			return model, true
		}
	}

	return nil, false
}

// GetAny retrieves a model by ID or alias regardless of provider, for callers
// that don't know the provider ahead of time (e.g. request-supplied model
// overrides).
func (c *Catalog) GetAny(id string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.models {
		if m.ID == id {
			return m, true
		}
	}
	if realID, ok := c.aliases[strings.ToLower(id)]; ok {
		for _, m := range c.models {
			if m.ID == realID {
				return m, true
			}
		}
	}
	return nil, false
}

// List returns all models matching filter, excluding deprecated/unavailable
// models unless the filter says otherwise (listModels(filter)).
func (c *Catalog) List(filter *Filter) []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*Model
	for _, model := range c.models {
		if filter == nil || filter.Matches(model) {
			result = append(result, model)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Provider != result[j].Provider {
			return result[i].Provider < result[j].Provider
		}
		if result[i].Category != result[j].Category {
			return categoryRank(result[i].Category) < categoryRank(result[j].Category)
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// ListByProvider returns all models for a provider.
func (c *Catalog) ListByProvider(provider Provider) []*Model {
	return c.List(&Filter{Providers: []Provider{provider}})
}

// ListByCapability returns models with a specific capability.
func (c *Catalog) ListByCapability(cap Capability) []*Model {
	return c.List(&Filter{RequiredCapabilities: []Capability{cap}})
}

// Filter for querying models.
type Filter struct {
	Providers            []Provider
	Categories           []Category
	RequiredCapabilities []Capability
	MinContextWindow     int
	IncludeDeprecated    bool
	IncludeUnavailable   bool
}

// Matches checks if a model matches the filter.
func (f *Filter) Matches(m *Model) bool {
	if f == nil {
		return true
	}

	if len(f.Providers) > 0 {
		found := false
		for _, p := range f.Providers {
			if p == m.Provider {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Categories) > 0 {
		found := false
		for _, cat := range f.Categories {
			if cat == m.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, cap := range f.RequiredCapabilities {
		if !m.HasCapability(cap) {
			return false
		}
	}

	if f.MinContextWindow > 0 && m.ContextWindow < f.MinContextWindow {
		return false
	}

	if !f.IncludeDeprecated && m.Deprecated {
		return false
	}

	if !f.IncludeUnavailable && !m.Available {
		return false
	}

	return true
}

func categoryRank(c Category) int {
	switch c {
	case CategoryReasoning:
		return 0
	case CategoryLarge:
		return 1
	case CategoryMedium:
		return 2
	case CategorySmall:
		return 3
	default:
		return 4
	}
}

func (c *Catalog) registerBuiltinModels() {
	c.Register(&Model{
		ID:              "claude-opus-4",
		Name:            "Claude Opus 4",
		Provider:        ProviderAnthropic,
		Category:        CategoryLarge,
		ContextWindow:   200000,
		MaxOutputTokens: 32000,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapCaching, CapPDFInput,
		},
		Aliases:     []string{"claude-opus-4-5-20251101", "opus"},
		ReleaseDate: "2025-11-01",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 15.0, OutputPer1M: 75.0},
		RateLimits:  RateLimits{RPM: 50, TPM: 400000, RPD: 5000, TPD: 5000000},
	})

	c.Register(&Model{
		ID:              "claude-3-5-sonnet-latest",
		Name:            "Claude 3.5 Sonnet",
		Provider:        ProviderAnthropic,
		Category:        CategoryMedium,
		ContextWindow:   200000,
		MaxOutputTokens: 8192,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapCaching, CapPDFInput,
		},
		Aliases:     []string{"claude-3-5-sonnet", "sonnet"},
		ReleaseDate: "2024-10-22",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 3.0, OutputPer1M: 15.0},
		RateLimits:  RateLimits{RPM: 100, TPM: 800000, RPD: 10000, TPD: 10000000},
	})

	c.Register(&Model{
		ID:              "claude-3-5-haiku-latest",
		Name:            "Claude 3.5 Haiku",
		Provider:        ProviderAnthropic,
		Category:        CategorySmall,
		ContextWindow:   200000,
		MaxOutputTokens: 8192,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapCaching,
		},
		Aliases:     []string{"claude-3-5-haiku", "haiku"},
		ReleaseDate: "2024-11-04",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 0.8, OutputPer1M: 4.0},
		RateLimits:  RateLimits{RPM: 150, TPM: 1000000, RPD: 20000, TPD: 20000000},
	})

	c.Register(&Model{
		ID:              "gpt-4o",
		Name:            "GPT-4o",
		Provider:        ProviderOpenAI,
		Category:        CategoryMedium,
		ContextWindow:   128000,
		MaxOutputTokens: 16384,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapAudio,
		},
		Aliases:     []string{"gpt-4o-2024-11-20"},
		ReleaseDate: "2024-05-13",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 2.5, OutputPer1M: 10.0},
		RateLimits:  RateLimits{RPM: 100, TPM: 800000, RPD: 10000, TPD: 10000000},
	})

	c.Register(&Model{
		ID:              "gpt-4o-mini",
		Name:            "GPT-4o Mini",
		Provider:        ProviderOpenAI,
		Category:        CategorySmall,
		ContextWindow:   128000,
		MaxOutputTokens: 16384,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext,
		},
		Aliases:     []string{"gpt-4o-mini-2024-07-18"},
		ReleaseDate: "2024-07-18",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 0.15, OutputPer1M: 0.6},
		RateLimits:  RateLimits{RPM: 500, TPM: 2000000, RPD: 50000, TPD: 50000000},
	})

	c.Register(&Model{
		ID:              "o1",
		Name:            "o1",
		Provider:        ProviderOpenAI,
		Category:        CategoryReasoning,
		ContextWindow:   200000,
		MaxOutputTokens: 100000,
		Capabilities: []Capability{
			CapVision, CapTools, CapReasoning, CapJSON, CapCode,
			CapLongContext,
		},
		Aliases:     []string{"o1-2024-12-17"},
		ReleaseDate: "2024-12-17",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 15.0, OutputPer1M: 60.0},
		RateLimits:  RateLimits{RPM: 30, TPM: 300000, RPD: 3000, TPD: 3000000},
	})

	c.Register(&Model{
		ID:              "o3-mini",
		Name:            "o3-mini",
		Provider:        ProviderOpenAI,
		Category:        CategoryReasoning,
		ContextWindow:   200000,
		MaxOutputTokens: 100000,
		Capabilities: []Capability{
			CapTools, CapReasoning, CapJSON, CapCode, CapLongContext,
		},
		Aliases:     []string{"o3-mini-2025-01-31"},
		ReleaseDate: "2025-01-31",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 1.1, OutputPer1M: 4.4},
		RateLimits:  RateLimits{RPM: 60, TPM: 400000, RPD: 5000, TPD: 5000000},
	})

	c.Register(&Model{
		ID:              "gemini-2.0-flash-exp",
		Name:            "Gemini 2.0 Flash",
		Provider:        ProviderGoogle,
		Category:        CategorySmall,
		ContextWindow:   1048576,
		MaxOutputTokens: 8192,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapAudio, CapVideo,
		},
		Aliases:     []string{"gemini-2.0-flash"},
		ReleaseDate: "2024-12-11",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 0.0, OutputPer1M: 0.0},
		RateLimits:  RateLimits{RPM: 200, TPM: 1000000, RPD: 0, TPD: 0},
	})

	c.Register(&Model{
		ID:              "gemini-1.5-pro-latest",
		Name:            "Gemini 1.5 Pro",
		Provider:        ProviderGoogle,
		Category:        CategoryMedium,
		ContextWindow:   2097152,
		MaxOutputTokens: 8192,
		Capabilities: []Capability{
			CapVision, CapTools, CapStreaming, CapJSON, CapCode,
			CapLongContext, CapAudio, CapVideo,
		},
		Aliases:     []string{"gemini-1.5-pro"},
		ReleaseDate: "2024-05-14",
		Available:   true,
		Pricing:     Pricing{InputPer1M: 1.25, OutputPer1M: 5.0},
		RateLimits:  RateLimits{RPM: 100, TPM: 500000, RPD: 0, TPD: 0},
	})
}

// DefaultCatalog is the global model catalog used when no catalog document is
// configured.
var DefaultCatalog = NewCatalog()

// Get retrieves a model from the default catalog.
func Get(provider Provider, id string) (*Model, bool) {
	return DefaultCatalog.Get(provider, id)
}

// List returns models from the default catalog.
func List(filter *Filter) []*Model {
	return DefaultCatalog.List(filter)
}

// ListByProvider returns models from the default catalog for a provider.
func ListByProvider(provider Provider) []*Model {
	return DefaultCatalog.ListByProvider(provider)
}

// ListByCapability returns models from the default catalog with a capability.
func ListByCapability(cap Capability) []*Model {
	return DefaultCatalog.ListByCapability(cap)
}
