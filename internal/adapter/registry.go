package adapter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/emrgen/mediahub/internal/source"
)

// Registry maps each source to its adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[source.Type]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[source.Type]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing any adapter for the same source.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Source()] = a
}

func (r *Registry) Get(src source.Type) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[src]
	if !ok {
		return nil, fmt.Errorf("no adapter for %q: %w", src, ErrUnsupported)
	}
	return a, nil
}

// Sources returns the registered sources in a stable order.
func (r *Registry) Sources() []source.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]source.Type, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Detect runs every adapter's DetectURI over text.
func (r *Registry) Detect(text string) []Match {
	var out []Match
	for _, src := range r.Sources() {
		a, err := r.Get(src)
		if err != nil {
			continue
		}
		for _, m := range a.DetectURI(text) {
			m.Source = src
			out = append(out, m)
		}
	}
	return out
}
