package agent

import (
	"fmt"
	"sync"

	"github.com/nexuscore/gateway/internal/models"
)

// ProviderRegistry maps a catalog Provider identity to the LLMProvider
// implementation that talks to it. It is read-mostly after startup: one
// entry is registered per configured credential during initialization.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[models.Provider]LLMProvider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[models.Provider]LLMProvider)}
}

// Register associates a provider identity with its LLMProvider adapter.
func (r *ProviderRegistry) Register(provider models.Provider, impl LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider] = impl
}

// Get returns the adapter for provider, or an error if none is registered
// (e.g. no credentials were configured for it).
func (r *ProviderRegistry) Get(provider models.Provider) (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", provider)
	}
	return impl, nil
}
