// Package pages holds the per-view page modules and the registry the
// router instantiates them from.
//
// A module may implement any of the capability interfaces below. A module
// implementing none of them is a plain template view.
package pages

import (
	"context"
	"slices"
	"sync"

	"github.com/Iron-Ham/feedview/internal/card"
	"github.com/Iron-Ham/feedview/internal/dom"
)

// Document is the part of the document a module works on.
type Document interface {
	Region(name string) *dom.Region
}

// Page is passed to Setup once the view's content is in place.
type Page struct {
	Path   string
	ViewID string
	Doc    Document
}

// Module is a page module instance. One is created per navigation.
type Module interface {
	Name() string
}

// Setupper is implemented by modules that populate the view after render.
type Setupper interface {
	Setup(ctx context.Context, page Page) error
}

// Teardowner is implemented by modules that hold timers, observers or
// subscriptions. Teardown runs before the next view's setup.
type Teardowner interface {
	Teardown() error
}

// Refresher is implemented by modules whose content can be reloaded in
// place.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Feeder is implemented by modules that show a paginated feed.
type Feeder interface {
	Feed() string
	LoadMore(ctx context.Context) ([]card.Card, error)
}

// Factory creates a module instance.
type Factory func() Module

// Registry maps view ids to module factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register sets the factory for viewID, replacing any previous one.
func (r *Registry) Register(viewID string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[viewID] = f
}

// New instantiates the module for viewID. It reports false when no module
// is registered for the view.
func (r *Registry) New(viewID string) (Module, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	f, ok := r.factories[viewID]
	r.mu.RUnlock()
	if !ok || f == nil {
		return nil, false
	}
	m := f()
	return m, m != nil
}

// Has reports whether a module is registered for viewID.
func (r *Registry) Has(viewID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[viewID]
	return ok
}

// Names returns the registered view ids in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// static is a module with no hooks.
type static struct{ name string }

func (s static) Name() string { return s.name }

// Static returns a factory for a plain template view.
func Static(name string) Factory {
	return func() Module { return static{name: name} }
}
