// Package nav holds the peripheral listeners that follow route changes:
// active-item highlighting, page titles and per-view visit counters. They
// observe the event bus and are never referenced by the router.
package nav

import (
	"maps"
	"sync"

	"github.com/Iron-Ham/feedview/internal/event"
	"github.com/Iron-Ham/feedview/internal/i18n"
)

// AppName suffixes page titles.
const AppName = "One World Feed"

// Highlighter tracks which navigation item is active.
type Highlighter struct {
	mu     sync.RWMutex
	path   string
	viewID string
}

// Attach subscribes h to route changes and returns the subscription id.
func (h *Highlighter) Attach(bus *event.Bus) string {
	return event.On(bus, func(e event.RouteChangedEvent) {
		h.mu.Lock()
		h.path, h.viewID = e.Path, e.ViewID
		h.mu.Unlock()
	})
}

// Active returns the active path and view id.
func (h *Highlighter) Active() (path, viewID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.path, h.viewID
}

// IsActive reports whether path is the active navigation item.
func (h *Highlighter) IsActive(path string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.path == path
}

// TitleSetter receives page titles.
type TitleSetter interface {
	SetTitle(title string)
}

// AttachTitles keeps the page title in step with the route.
func AttachTitles(bus *event.Bus, target TitleSetter) string {
	return event.On(bus, func(e event.RouteChangedEvent) {
		target.SetTitle(PageTitle(e.ViewID))
	})
}

// PageTitle is the document title for a view.
func PageTitle(viewID string) string {
	if viewID == "" {
		return AppName
	}
	return i18n.Title(viewID) + " | " + AppName
}

// Visits counts route changes per view. It feeds the badges view.
type Visits struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewVisits creates an empty counter.
func NewVisits() *Visits {
	return &Visits{counts: make(map[string]int)}
}

// Attach subscribes v to route changes.
func (v *Visits) Attach(bus *event.Bus) string {
	return event.On(bus, func(e event.RouteChangedEvent) {
		v.mu.Lock()
		v.counts[e.ViewID]++
		v.mu.Unlock()
	})
}

// Visits returns a copy of the counters.
func (v *Visits) Visits() map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return maps.Clone(v.counts)
}

// Count returns the visits for one view.
func (v *Visits) Count(viewID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counts[viewID]
}
