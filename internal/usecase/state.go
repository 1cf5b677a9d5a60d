package usecase

import (
	"sync"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/site"
)

// StateCache keeps the latest SiteState of every site in registry order.
// The orchestrator is the only writer; readers always receive copies.
type StateCache struct {
	mu     sync.RWMutex
	states []domain.SiteState
	index  map[string]int
}

// NewStateCache seeds one zero-valued state per site.
func NewStateCache(sites []site.Config) *StateCache {
	c := &StateCache{
		states: make([]domain.SiteState, len(sites)),
		index:  make(map[string]int, len(sites)),
	}
	for i, s := range sites {
		c.states[i] = domain.SiteState{Name: s.Name, URL: s.URL}
		c.index[s.Name] = i
	}
	return c
}

// Update overwrites the state of st.Name and returns the value it replaced.
// Unknown sites are ignored and reported with ok=false.
func (c *StateCache) Update(st domain.SiteState) (prev domain.SiteState, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[st.Name]
	if !ok {
		return domain.SiteState{}, false
	}
	prev = c.states[i]
	c.states[i] = st
	return prev, true
}

// Snapshot copies every state in registry order.
func (c *StateCache) Snapshot() []domain.SiteState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.SiteState, len(c.states))
	copy(out, c.states)
	return out
}
