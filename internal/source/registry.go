package source

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Domenick1991/farehunter/internal/domain"
)

type Factory func() PriceSource

// Registry builds price sources by identifier. Every run gets fresh instances so
// Configure never races between runs.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	labels    map[string]string
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		labels:    make(map[string]string),
	}
}

func (r *Registry) Register(name, label string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = f
	r.labels[name] = label
}

// Names lists registered identifiers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Label(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if label, ok := r.labels[name]; ok {
		return label
	}
	return name
}

// Expand resolves "all" and drops duplicates, keeping first-seen order. An
// unknown identifier is a configuration error.
func (r *Registry) Expand(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, &domain.ValidationError{Field: "sources", Message: "at least one source is required"}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range names {
		if n == All {
			for _, known := range r.order {
				add(known)
			}
			continue
		}
		if _, ok := r.factories[n]; !ok {
			return nil, unknownSource(n, r.order)
		}
		add(n)
	}
	return out, nil
}

func (r *Registry) New(name string) (PriceSource, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	order := r.order
	r.mu.RUnlock()
	if !ok {
		return nil, unknownSource(name, order)
	}
	return f(), nil
}

func unknownSource(name string, known []string) error {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)
	return &domain.ValidationError{
		Field:   "sources",
		Message: fmt.Sprintf("%q (available: %v)", name, sorted),
		Err:     ErrUnknownSource,
	}
}
