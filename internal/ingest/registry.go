package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/neurod3/catalog-cli/internal/model"
)

// Registry maps source names to their implementations.
type Registry struct {
	sources map[model.Source]Source
	order   []model.Source // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with every upstream catalog.
func NewRegistry() *Registry {
	r := &Registry{
		sources: make(map[model.Source]Source),
	}

	r.Register(NewDANDI())
	r.Register(NewKaggle())
	r.Register(NewOpenNeuro())
	r.Register(NewPhysioNet())

	return r
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	name := s.Name()
	r.sources[name] = s
	r.order = append(r.order, name)
}

// Get returns a source by name.
func (r *Registry) Get(name model.Source) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Errorf("ingest: unknown source %q", name)
	}
	return s, nil
}

// Select returns the named sources, or all sources when names is empty.
func (r *Registry) Select(names []string) ([]Source, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	var result []Source
	for _, raw := range names {
		name, err := model.ParseSource(raw)
		if err != nil {
			return nil, err
		}
		s, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

// All returns all sources in registration order.
func (r *Registry) All() []Source {
	result := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.sources[name])
	}
	return result
}

// AllNames returns all registered source names in registration order.
func (r *Registry) AllNames() []model.Source {
	out := make([]model.Source, len(r.order))
	copy(out, r.order)
	return out
}
