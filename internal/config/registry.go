package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

// ErrTranslatorNotRegistered is returned by [Registry.CreateTranslator] when no
// factory has been registered under the requested backend name.
var ErrTranslatorNotRegistered = errors.New("config: translator not registered")

// Registry maps translator backend names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	translators map[string]func(ProviderEntry) (translate.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		translators: make(map[string]func(ProviderEntry) (translate.Provider, error)),
	}
}

// RegisterTranslator registers a translator factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTranslator(name string, factory func(ProviderEntry) (translate.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translators[name] = factory
}

// CreateTranslator instantiates a translator using the factory registered under
// entry.Name. Returns [ErrTranslatorNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateTranslator(entry ProviderEntry) (translate.Provider, error) {
	r.mu.RLock()
	factory, ok := r.translators[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTranslatorNotRegistered, entry.Name)
	}
	return factory(entry)
}
