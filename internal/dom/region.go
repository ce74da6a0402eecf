package dom

import "sync"

// Region is a named list of items inside the document, optionally ending
// with a sentinel.
type Region struct {
	mu       sync.Mutex
	name     string
	doc      *Document
	items    []Item
	sentinel Sentinel
	detached bool
}

// Name returns the region's name.
func (r *Region) Name() string {
	return r.name
}

// Append adds items to the end of the region, before the sentinel.
func (r *Region) Append(items ...Item) {
	r.mu.Lock()
	if r.detached {
		r.mu.Unlock()
		return
	}
	r.items = append(r.items, items...)
	r.mu.Unlock()
	r.doc.changed()
}

// Set replaces the region's items.
func (r *Region) Set(items ...Item) {
	r.mu.Lock()
	if r.detached {
		r.mu.Unlock()
		return
	}
	r.items = append([]Item(nil), items...)
	r.mu.Unlock()
	r.doc.changed()
}

// Len returns the number of items.
func (r *Region) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// AttachSentinel places s after the last item. A region holds at most one
// sentinel; attaching another replaces it.
func (r *Region) AttachSentinel(s Sentinel) {
	r.mu.Lock()
	if r.detached {
		r.mu.Unlock()
		return
	}
	r.sentinel = s
	r.mu.Unlock()
	r.doc.changed()
}

// DetachSentinel removes s if it is the region's sentinel.
func (r *Region) DetachSentinel(s Sentinel) {
	r.mu.Lock()
	if r.sentinel == s {
		r.sentinel = nil
	}
	r.mu.Unlock()
}

// HasSentinel reports whether a sentinel is attached.
func (r *Region) HasSentinel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sentinel != nil
}

// Detached reports whether the region's content was replaced.
func (r *Region) Detached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detached
}

func (r *Region) snapshot() ([]Item, Sentinel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.items...), r.sentinel
}

func (r *Region) detach() {
	r.mu.Lock()
	r.detached = true
	r.sentinel = nil
	r.mu.Unlock()
}
