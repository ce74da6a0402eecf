// Package scroll continues a feed when the end of its region scrolls into
// view.
package scroll

import (
	"context"
	"sync"

	"github.com/Iron-Ham/feedview/internal/dom"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/logging"
	"go.uber.org/atomic"
)

// MoreLoader is the slice of the feed store an observer needs.
type MoreLoader[T any] interface {
	LoadMore(ctx context.Context, name string) ([]T, error)
}

// Target is the region a sentinel is placed in.
type Target interface {
	AttachSentinel(s dom.Sentinel)
	DetachSentinel(s dom.Sentinel)
}

// Sentinel marks the end of a feed region. Whoever renders the region
// reports its visibility; every hidden-to-visible transition asks for the
// next page.
type Sentinel struct {
	visible *atomic.Bool
	fire    func()
}

// SetVisible records the sentinel's visibility. It never blocks.
func (s *Sentinel) SetVisible(visible bool) {
	if prev := s.visible.Swap(visible); visible && !prev {
		s.fire()
	}
}

// Visible reports the last recorded visibility.
func (s *Sentinel) Visible() bool {
	return s.visible.Load()
}

// Observer ties one feed to one region. Detach is mandatory when the owning
// view is torn down; after Detach returns the observer never calls
// LoadMore again.
type Observer[T any] struct {
	loader   MoreLoader[T]
	logger   *logging.Logger
	onLoaded func(items []T, err error)

	mu       sync.Mutex
	name     string
	target   Target
	sentinel *Sentinel
	ctx      context.Context
	cancel   context.CancelFunc
	detached *atomic.Bool
	inflight sync.WaitGroup
}

// New creates an unattached observer.
func New[T any](loader MoreLoader[T], logger *logging.Logger) *Observer[T] {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Observer[T]{
		loader:   loader,
		logger:   logger,
		detached: atomic.NewBool(false),
	}
}

// OnLoaded sets the callback that receives each observer-triggered page.
// It runs on a background goroutine and must not call Detach.
func (o *Observer[T]) OnLoaded(fn func(items []T, err error)) *Observer[T] {
	o.mu.Lock()
	o.onLoaded = fn
	o.mu.Unlock()
	return o
}

// Attach places a sentinel at the end of target and starts observing feed
// name. Loads run under ctx until Detach.
func (o *Observer[T]) Attach(ctx context.Context, name string, target Target) error {
	o.mu.Lock()
	if o.sentinel != nil {
		o.mu.Unlock()
		return errors.NewValidationError("observer already attached").WithField("feed").WithValue(o.name)
	}
	if o.detached.Load() {
		o.mu.Unlock()
		return errors.NewValidationError("observer was detached").WithField("feed").WithValue(name)
	}
	o.name = name
	o.target = target
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.sentinel = &Sentinel{visible: atomic.NewBool(false), fire: o.trigger}
	sentinel := o.sentinel
	o.mu.Unlock()

	target.AttachSentinel(sentinel)
	o.logger.WithFeed(name).Debug("scroll observer attached")
	return nil
}

// Sentinel returns the attached sentinel, or nil.
func (o *Observer[T]) Sentinel() *Sentinel {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sentinel
}

// trigger starts one LoadMore unless the observer is detached.
func (o *Observer[T]) trigger() {
	o.mu.Lock()
	if o.detached.Load() || o.sentinel == nil {
		o.mu.Unlock()
		return
	}
	o.inflight.Add(1)
	ctx, name, onLoaded := o.ctx, o.name, o.onLoaded
	o.mu.Unlock()

	go func() {
		defer o.inflight.Done()
		items, err := o.loader.LoadMore(ctx, name)
		if errors.Is(err, errors.ErrStaleLoad) || o.detached.Load() {
			return
		}
		if err != nil {
			o.logger.WithFeed(name).Failure("scroll load failed", err)
		}
		if onLoaded != nil && (len(items) > 0 || err != nil) {
			onLoaded(items, err)
		}
	}()
}

// Detach removes the sentinel, cancels any load it started and waits for
// that load to finish. Detach is idempotent.
func (o *Observer[T]) Detach() {
	o.mu.Lock()
	if !o.detached.CompareAndSwap(false, true) {
		o.mu.Unlock()
		return
	}
	target, sentinel, cancel, name := o.target, o.sentinel, o.cancel, o.name
	o.sentinel = nil
	o.mu.Unlock()

	if target != nil && sentinel != nil {
		target.DetachSentinel(sentinel)
	}
	if cancel != nil {
		cancel()
	}
	o.inflight.Wait()
	if name != "" {
		o.logger.WithFeed(name).Debug("scroll observer detached")
	}
}

// Detached reports whether Detach was called.
func (o *Observer[T]) Detached() bool {
	return o.detached.Load()
}
