package provider

import (
	"fmt"
	"sort"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/config"
)

// Factory builds the provider of one collection.
type Factory func(coll config.Collection, deps Deps) (CoverageProvider, error)

// Registry maps the provider name declared by a collection to its factory.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry knows the built-in providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("xarray-edr", newGrid)
	r.Register("netcdf", newGrid)
	return r
}

func newGrid(coll config.Collection, deps Deps) (CoverageProvider, error) {
	return NewGridProvider(coll, deps), nil
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

func (r *Registry) New(coll config.Collection, deps Deps) (CoverageProvider, error) {
	f, ok := r.factories[coll.Provider.Name]
	if !ok {
		return nil, fmt.Errorf("collection %s: no provider named %q (known: %v)", coll.ID, coll.Provider.Name, r.names())
	}
	return f(coll, deps)
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Build resolves a provider for every collection.
func (r *Registry) Build(colls *config.Collections, deps Deps) (map[string]CoverageProvider, error) {
	out := map[string]CoverageProvider{}
	for _, c := range colls.List() {
		p, err := r.New(c, deps)
		if err != nil {
			return nil, err
		}
		out[c.ID] = p
	}
	return out, nil
}
