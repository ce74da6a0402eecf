// Package feed implements the cursor-paginated feed engine: named feeds,
// each backed by a loader callback, with at most one page load in flight
// per feed.
package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/event"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/metrics"
)

// Cursor is an opaque continuation token chosen by the loader. The store
// never inspects it; nil requests the first page.
type Cursor = any

// Page is one loader response.
type Page[T any] struct {
	Items      []T
	NextCursor Cursor
	HasMore    bool
}

// LoaderFunc fetches the page that starts at cursor.
type LoaderFunc[T any] func(ctx context.Context, cursor Cursor) (Page[T], error)

// Snapshot is a point-in-time view of a feed's pagination state.
type Snapshot struct {
	Name       string
	Count      int
	Cursor     Cursor
	Loading    bool
	HasMore    bool
	Generation uint64
}

type state[T any] struct {
	name       string
	loader     LoaderFunc[T]
	cursor     Cursor
	items      []T
	loading    bool
	hasMore    bool
	generation uint64
	cancel     context.CancelFunc
}

// reset returns the feed to its freshly registered state and abandons any
// in-flight load.
func (s *state[T]) reset() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.cursor = nil
	s.items = nil
	s.loading = false
	s.hasMore = true
}

// Store holds named feeds. It is safe for concurrent use.
type Store[T any] struct {
	mu     sync.Mutex
	feeds  map[string]*state[T]
	logger *logging.Logger
	bus    *event.Bus
}

// NewStore creates an empty store. bus may be nil.
func NewStore[T any](logger *logging.Logger, bus *event.Bus) *Store[T] {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store[T]{
		feeds:  make(map[string]*state[T]),
		logger: logger,
		bus:    bus,
	}
}

// Register creates or replaces the feed name. Replacing a feed discards
// its items and abandons any load in flight.
func (s *Store[T]) Register(name string, loader LoaderFunc[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.feeds[name]
	if !ok {
		st = &state[T]{name: name}
		s.feeds[name] = st
	}
	st.reset()
	st.loader = loader
}

// Unregister removes the feed and abandons any load in flight.
func (s *Store[T]) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.feeds[name]; ok {
		st.reset()
		delete(s.feeds, name)
	}
}

// Names returns the registered feed names in sorted order.
func (s *Store[T]) Names() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.feeds))
	for name := range s.feeds {
		names = append(names, name)
	}
	s.mu.Unlock()
	slices.Sort(names)
	return names
}

// LoadInitial resets the feed and loads its first page. A load already in
// flight is canceled and its result discarded.
func (s *Store[T]) LoadInitial(ctx context.Context, name string) ([]T, error) {
	s.mu.Lock()
	st, ok := s.feeds[name]
	if !ok {
		s.mu.Unlock()
		return nil, notRegistered(name)
	}
	st.reset()
	s.mu.Unlock()

	return s.load(ctx, name, "initial")
}

// LoadMore loads the page after the current cursor and returns only the
// new items. It returns (nil, nil) without calling the loader when a load
// is already in flight or the feed is exhausted.
func (s *Store[T]) LoadMore(ctx context.Context, name string) ([]T, error) {
	return s.load(ctx, name, "more")
}

func (s *Store[T]) load(ctx context.Context, name, kind string) ([]T, error) {
	s.mu.Lock()
	st, ok := s.feeds[name]
	if !ok {
		s.mu.Unlock()
		return nil, notRegistered(name)
	}
	if st.loading || !st.hasMore {
		s.mu.Unlock()
		return nil, nil
	}

	st.loading = true
	gen := st.generation
	cursor := st.cursor
	loader := st.loader
	loadCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	log := s.logger.WithFeed(name)
	start := time.Now()
	page, err := callLoader(loadCtx, loader, cursor)
	metrics.RecordFeedLoad(name, kind, time.Since(start), err)

	s.mu.Lock()
	if cur, ok := s.feeds[name]; !ok || cur != st || st.generation != gen {
		s.mu.Unlock()
		log.Debug("discarding stale page", "kind", kind)
		return nil, errors.ErrStaleLoad
	}
	st.cancel = nil

	if err != nil {
		st.loading = false
		s.mu.Unlock()

		loadErr := errors.NewFeedLoadError(name, err)
		log.Failure("feed load failed", loadErr, "kind", kind)
		s.publish(event.NewFeedFailedEvent(name, loadErr))
		return nil, loadErr
	}

	st.items = append(st.items, page.Items...)
	st.cursor = page.NextCursor
	st.hasMore = page.HasMore
	st.loading = false
	total := len(st.items)
	hasMore := st.hasMore
	s.mu.Unlock()

	log.Debug("page loaded", "kind", kind, "added", len(page.Items), "total", total, "has_more", hasMore)
	s.publish(event.NewFeedLoadedEvent(name, len(page.Items), total, hasMore))
	return slices.Clone(page.Items), nil
}

// callLoader runs loader and converts a panic into an error.
func callLoader[T any](ctx context.Context, loader LoaderFunc[T], cursor Cursor) (page Page[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r)
		}
	}()
	if loader == nil {
		return Page[T]{}, errors.New("no loader")
	}
	return loader(ctx, cursor)
}

// Items returns a copy of the feed's accumulated items, or nil for an
// unknown feed.
func (s *Store[T]) Items(name string) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.feeds[name]
	if !ok {
		return nil
	}
	return slices.Clone(st.items)
}

// Snapshot reports the feed's pagination state.
func (s *Store[T]) Snapshot(name string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.feeds[name]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Name:       st.name,
		Count:      len(st.items),
		Cursor:     st.cursor,
		Loading:    st.loading,
		HasMore:    st.hasMore,
		Generation: st.generation,
	}, true
}

func (s *Store[T]) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

func notRegistered(name string) error {
	return fmt.Errorf("%w: %s", errors.ErrFeedNotRegistered, name)
}
