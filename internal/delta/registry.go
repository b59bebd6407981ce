// Package delta rates a candidate merge by comparing the merged community's
// score with its parents' scores. Strategies are looked up by name so the
// choice stays a configuration value.
package delta

import (
	"fmt"
	"sort"
	"sync"
)

// Inputs are the scores and sizes a strategy may use.
type Inputs struct {
	Merged      float64
	Anchor      float64
	Partner     float64
	AnchorSize  int
	PartnerSize int
}

// Strategy turns merge inputs into a score delta; higher is better.
type Strategy interface {
	// Name returns the key this strategy is registered under.
	Name() string
	Delta(in Inputs) float64
}

// Registry maps strategy names to strategies.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry holding the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Average{})
	r.Register(LargerParent{})
	return r
}

// Register adds a strategy. Panics on duplicate names to surface misconfiguration early.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[s.Name()]; exists {
		panic(fmt.Sprintf("delta registry: duplicate strategy %q", s.Name()))
	}
	r.strategies[s.Name()] = s
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("no delta strategy registered as %q", name)
	}
	return s, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
