package payments

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

// Registry resolves payment providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[entities.ProviderType]interfaces.IPaymentProvider
	def       entities.ProviderType
}

var _ interfaces.IPaymentProviderRegistry = (*Registry)(nil)

func NewRegistry(def entities.ProviderType, providers ...interfaces.IPaymentProvider) *Registry {
	r := &Registry{providers: map[entities.ProviderType]interfaces.IPaymentProvider{}, def: def}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the provider under its own name.
func (r *Registry) Register(p interfaces.IPaymentProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name entities.ProviderType) (interfaces.IPaymentProvider, error) {
	name = entities.ProviderType(strings.ToLower(strings.TrimSpace(string(name))))
	if name == "" {
		name = r.def
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, errors.Wrapf(entities.ErrUnknownProvider, "provider %q", name)
	}
	return p, nil
}

func (r *Registry) Default() entities.ProviderType { return r.def }

// Names lists registered providers in a stable order.
func (r *Registry) Names() []entities.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.ProviderType, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
