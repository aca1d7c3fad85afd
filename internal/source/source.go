// Package source holds the upstream directory fetchers. Each fetcher
// pulls one site's full rink list and emits uniform name/address rows;
// per-source additions ride in the Extras field.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/skatetrax/ice-maker/internal/fetcher"
	"github.com/skatetrax/ice-maker/internal/model"
)

// Fetcher defines the interface each scraped source must implement.
type Fetcher interface {
	// Name returns the fetcher module name the sources registry table
	// references (e.g. "sk8stuff", "fandom_wiki").
	Name() string

	// Fetch retrieves every row the source currently publishes.
	Fetch(ctx context.Context) ([]model.FetchResult, error)
}

// Registry maps fetcher module names to their implementations.
type Registry struct {
	fetchers map[string]Fetcher
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with every scraping fetcher.
// The skatetrax seed source's module name (ice_time) is not registered:
// that source is fed by the ice-time sync, not the runner, and asking
// the runner to scrape it fails the Get lookup.
func NewRegistry(client *fetcher.Client) *Registry {
	r := &Registry{fetchers: make(map[string]Fetcher)}
	r.Register(NewSk8stuff(client))
	r.Register(NewArenaGuide(client))
	r.Register(NewLearnToSkate(client))
	r.Register(NewFandomWiki(client))
	return r
}

// Register adds a fetcher to the registry.
func (r *Registry) Register(f Fetcher) {
	name := f.Name()
	r.fetchers[name] = f
	r.order = append(r.order, name)
}

// Get returns a fetcher by module name. An unknown name means the
// sources table references a module this binary does not carry, which
// is a configuration error.
func (r *Registry) Get(name string) (Fetcher, error) {
	f, ok := r.fetchers[name]
	if !ok {
		return nil, eris.Errorf("source: unknown fetcher module %q", name)
	}
	return f, nil
}

// Names returns all registered module names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
