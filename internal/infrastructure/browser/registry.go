package browser

import (
	"fmt"

	"PriceWatcher/internal/ports"
)

// Registry keeps a mapping from engine names to their implementations.
type Registry struct {
	engines map[string]ports.BrowserEngine
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: map[string]ports.BrowserEngine{}}
}

// Register adds or replaces an engine implementation.
func (r *Registry) Register(engine ports.BrowserEngine) {
	if r.engines == nil {
		r.engines = map[string]ports.BrowserEngine{}
	}
	r.engines[engine.Name()] = engine
}

// Resolve returns an engine by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.BrowserEngine, error) {
	if engine, ok := r.engines[name]; ok {
		return engine, nil
	}
	return nil, fmt.Errorf("browser engine %s is not registered", name)
}
