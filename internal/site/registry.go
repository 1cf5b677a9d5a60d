package site

import "fmt"

// Registry is the ordered, immutable set of tracked sites.
type Registry struct {
	sites []Config
}

// NewRegistry validates the site list and keeps its order.
func NewRegistry(sites []Config) (*Registry, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("no sites configured")
	}

	r := &Registry{sites: make([]Config, 0, len(sites))}
	seen := make(map[string]struct{}, len(sites))
	for _, cfg := range sites {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[cfg.Name]; dup {
			return nil, fmt.Errorf("site %s is configured twice", cfg.Name)
		}
		seen[cfg.Name] = struct{}{}
		r.sites = append(r.sites, cfg)
	}
	return r, nil
}

// Sites returns a copy of the configured sites in registry order.
func (r *Registry) Sites() []Config {
	out := make([]Config, len(r.sites))
	copy(out, r.sites)
	return out
}

// Len reports how many sites are tracked.
func (r *Registry) Len() int {
	return len(r.sites)
}
