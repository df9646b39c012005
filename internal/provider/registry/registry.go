package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/davidbz/voxrelay/internal/domain"
)

// Registry implements the ProviderRegistry interface.
// Model lookups ask providers in registration order and remember the answer.
type Registry struct {
	mu              sync.RWMutex
	providers       map[string]domain.ChatProvider
	order           []string
	modelToProvider map[string]string
	defaultProvider string
}

// NewRegistry creates a new provider registry. Models no provider claims
// are served by defaultProvider when it is registered.
func NewRegistry(defaultProvider string) *Registry {
	return &Registry{
		mu:              sync.RWMutex{},
		providers:       make(map[string]domain.ChatProvider),
		order:           nil,
		modelToProvider: make(map[string]string),
		defaultProvider: defaultProvider,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(_ context.Context, provider domain.ChatProvider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.providers[name] = provider
	r.order = append(r.order, name)

	// A new provider may claim models previously resolved elsewhere.
	clear(r.modelToProvider)

	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(_ context.Context, providerName string) (domain.ChatProvider, error) {
	if providerName == "" {
		return nil, errors.New("provider name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[providerName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerName)
	}

	return provider, nil
}

// List returns all available providers in registration order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names, nil
}

// GetByModel retrieves the provider that serves the given model, falling back
// to the default provider.
func (r *Registry) GetByModel(ctx context.Context, model string) (domain.ChatProvider, error) {
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	r.mu.RLock()
	providerName, cached := r.modelToProvider[model]
	if cached {
		provider := r.providers[providerName]
		r.mu.RUnlock()
		return provider, nil
	}
	r.mu.RUnlock()

	// Resolve and remember under one lock so a concurrent Register cannot
	// be overwritten by an answer computed before it.
	r.mu.Lock()
	defer r.mu.Unlock()

	if providerName, cached = r.modelToProvider[model]; cached {
		return r.providers[providerName], nil
	}

	var found domain.ChatProvider
	for _, name := range r.order {
		if r.providers[name].IsModelSupported(ctx, model) {
			found = r.providers[name]
			break
		}
	}
	if found == nil {
		found = r.providers[r.defaultProvider]
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no provider found for model: %s", domain.ErrProviderNotFound, model)
	}

	r.modelToProvider[model] = found.Name()
	return found, nil
}
