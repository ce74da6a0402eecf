// Package router resolves navigation intents to views, keeps the history
// stack in step with the active path and runs each view's lifecycle.
//
// A transition moves Idle → Resolving → Rendering → Active:
//
//  1. the path resolves to a view id (unknown paths use the default route);
//  2. the current path is updated and RouteChanged is published;
//  3. the previous page module is torn down and the view content is
//     loaded, then swapped into the container, or an error panel is shown;
//  4. the view's page module is set up and the path handler runs;
//  5. the change is announced through the container's live region.
//
// A newer navigation cancels an older one. A view that arrives after a
// newer navigation began is discarded.
package router

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/event"
	"github.com/Iron-Ham/feedview/internal/history"
	"github.com/Iron-Ham/feedview/internal/i18n"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/metrics"
	"github.com/Iron-Ham/feedview/internal/pages"
	"github.com/google/uuid"
)

// State is the router's position in the transition state machine.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateRendering
	StateActive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateRendering:
		return "rendering"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// ViewLoader returns view content by id.
type ViewLoader interface {
	Load(ctx context.Context, viewID string) (string, error)
}

// Container is the document the router renders into.
type Container interface {
	pages.Document
	Replace(markup string)
	Announce(message string)
}

// Handler runs after a path's content is in place.
type Handler func(ctx context.Context, path string) error

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithModules sets the page module registry.
func WithModules(reg *pages.Registry) Option {
	return func(r *Router) { r.modules = reg }
}

// WithCatalog sets the catalog used for placeholders and announcements.
func WithCatalog(c *i18n.Catalog) Option {
	return func(r *Router) {
		if c != nil {
			r.catalog = c
		}
	}
}

// WithAnnounceDelay sets the debounce for live-region announcements. Zero
// announces synchronously.
func WithAnnounceDelay(d time.Duration) Option {
	return func(r *Router) { r.announceDelay = d }
}

// Router owns the navigation state. It is safe for concurrent use.
type Router struct {
	table         *Table
	loader        ViewLoader
	hist          history.History
	bus           *event.Bus
	modules       *pages.Registry
	catalog       *i18n.Catalog
	logger        *logging.Logger
	announceDelay time.Duration

	mu        sync.Mutex
	handlers  map[string]Handler
	container Container
	base      context.Context
	current   string
	viewID    string
	state     State
	seq       uint64
	failed    bool
	cancel    context.CancelFunc
	unlisten  func()
	announcer *time.Timer

	active     pages.Module
	pageCancel context.CancelFunc

	// renderMu serializes teardown, content swaps and setup.
	renderMu sync.Mutex
}

// New creates a router. bus may be nil.
func New(table *Table, loader ViewLoader, hist history.History, bus *event.Bus, opts ...Option) *Router {
	r := &Router{
		table:    table,
		loader:   loader,
		hist:     hist,
		bus:      bus,
		catalog:  i18n.Default(),
		logger:   logging.NopLogger(),
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register sets the post-render handler for path. A second registration
// for the same path replaces the first and is logged as a warning.
func (r *Router) Register(path string, h Handler) {
	p := Normalize(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[p]; dup {
		r.logger.WithRoute(p).Warn("duplicate route handler registration; last one wins")
	}
	r.handlers[p] = h
}

// Init binds the container, starts listening for history pops and performs
// the initial transition for the current history location. The initial
// entry is replaced, not pushed. ctx bounds page modules for the router's
// lifetime.
func (r *Router) Init(ctx context.Context, container Container) error {
	r.mu.Lock()
	if r.container != nil {
		r.mu.Unlock()
		return errors.NewValidationError("router already initialized")
	}
	r.container = container
	r.base = ctx
	r.mu.Unlock()

	unlisten := r.hist.Listen(r.onPop)
	r.mu.Lock()
	r.unlisten = unlisten
	r.mu.Unlock()

	return r.navigate(ctx, r.hist.Location(), modeReplace)
}

type historyMode int

const (
	modePush historyMode = iota
	modeReplace
	modePop
)

// Navigate pushes a history entry for path and transitions to it. It is a
// no-op when path resolves to the active path.
func (r *Router) Navigate(ctx context.Context, path string) error {
	return r.navigate(ctx, path, modePush)
}

// Replace is Navigate with the current history entry replaced.
func (r *Router) Replace(ctx context.Context, path string) error {
	return r.navigate(ctx, path, modeReplace)
}

// FollowLink routes internal links through Navigate and reports whether
// it handled href. External and relative links are left alone.
func (r *Router) FollowLink(ctx context.Context, href string) bool {
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return false
	}
	if err := r.Navigate(ctx, u.Path); err != nil && !errors.Is(err, errors.ErrStaleNavigation) {
		r.logger.WithRoute(u.Path).Warn("link navigation failed", "error", err)
	}
	return true
}

// Back moves back in history; the pop drives the transition.
func (r *Router) Back() bool { return r.hist.Back() }

// Forward moves forward in history; the pop drives the transition.
func (r *Router) Forward() bool { return r.hist.Forward() }

func (r *Router) onPop(path string) {
	r.mu.Lock()
	ctx := r.base
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.navigate(ctx, path, modePop); err != nil && !errors.Is(err, errors.ErrStaleNavigation) {
		r.logger.WithRoute(path).Warn("history navigation failed", "error", err)
	}
}

// transition carries one navigation through the state machine.
type transition struct {
	route Route
	seq   uint64
	ctx   context.Context
	log   *logging.Logger
}

func (r *Router) navigate(ctx context.Context, path string, mode historyMode) error {
	route, found := r.table.Resolve(path)

	r.mu.Lock()
	if r.container == nil {
		r.mu.Unlock()
		return errors.ErrNotInitialized
	}
	if route.Path == r.current {
		if !r.failed {
			r.mu.Unlock()
			r.logger.WithRoute(route.Path).Debug("already on route")
			return nil
		}
		// Retrying a failed view re-runs the transition in place.
		mode = modePop
	}

	switch mode {
	case modePush:
		r.hist.Push(route.Path)
	case modeReplace:
		r.hist.Replace(route.Path)
	}

	if r.cancel != nil {
		r.cancel()
	}
	// The outgoing page stops loading now; its teardown follows.
	if r.pageCancel != nil {
		r.pageCancel()
	}
	r.seq++
	tctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.current = route.Path
	r.viewID = route.ViewID
	r.failed = false
	r.state = StateResolving
	t := transition{
		route: route,
		seq:   r.seq,
		ctx:   tctx,
		log:   r.logger.WithNavigation(uuid.NewString()).WithRoute(route.Path).WithView(route.ViewID),
	}
	r.mu.Unlock()

	if !found {
		t.log.Debug("unresolved path, using default route", "requested", path)
	}
	return r.run(t)
}

func (r *Router) run(t transition) error {
	t.log.Debug("transition started")
	r.publish(event.NewRouteChangedEvent(t.route.Path, t.route.ViewID))

	if !r.beginRender(t) {
		return r.stale(t)
	}

	content, loadErr := r.loader.Load(t.ctx, t.route.ViewID)

	r.renderMu.Lock()
	if !r.isCurrent(t.seq) {
		r.renderMu.Unlock()
		return r.stale(t)
	}

	container := r.getContainer()
	if loadErr != nil {
		container.Replace(r.catalog.ErrorPanel(t.route.ViewID, loadErr))
		r.mu.Lock()
		r.failed = true
		r.mu.Unlock()
		r.renderMu.Unlock()

		t.log.Failure("view unavailable", loadErr)
		r.publish(event.NewViewFailedEvent(t.route.Path, t.route.ViewID, loadErr))
		r.finish(t, "failed")
		return loadErr
	}

	container.Replace(content)
	r.setupModule(t, container)
	r.renderMu.Unlock()

	r.publish(event.NewViewLoadedEvent(t.route.Path, t.route.ViewID))
	// The handler runs outside renderMu so it may navigate.
	if r.isCurrent(t.seq) {
		r.runHandler(t)
	}

	r.finish(t, "rendered")
	return nil
}

// beginRender tears down the previous module and shows the loading
// placeholder. It reports false when t is no longer current.
func (r *Router) beginRender(t transition) bool {
	r.renderMu.Lock()
	defer r.renderMu.Unlock()
	if !r.isCurrent(t.seq) {
		return false
	}
	r.teardownActive(t)
	r.getContainer().Replace(r.catalog.Loading(t.route.ViewID))
	r.setState(t.seq, StateRendering)
	return true
}

// teardownActive must be called with renderMu held.
func (r *Router) teardownActive(t transition) {
	r.mu.Lock()
	m, cancel := r.active, r.pageCancel
	r.active, r.pageCancel = nil, nil
	r.mu.Unlock()
	if m == nil {
		return
	}
	if td, ok := m.(pages.Teardowner); ok {
		if err := safeCall(func() error { return td.Teardown() }); err != nil {
			r.hookFailed(t, "teardown", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	t.log.Debug("page module torn down", "module", m.Name())
}

// setupModule must be called with renderMu held.
func (r *Router) setupModule(t transition, container Container) {
	m, ok := r.modules.New(t.route.ViewID)
	if !ok {
		return
	}
	r.mu.Lock()
	base := r.base
	if base == nil {
		base = context.Background()
	}
	pctx, cancel := context.WithCancel(base)
	r.active, r.pageCancel = m, cancel
	r.mu.Unlock()

	s, ok := m.(pages.Setupper)
	if !ok {
		return
	}
	page := pages.Page{Path: t.route.Path, ViewID: t.route.ViewID, Doc: container}
	if err := safeCall(func() error { return s.Setup(pctx, page) }); err != nil {
		r.hookFailed(t, "setup", err)
	}
}

func (r *Router) runHandler(t transition) {
	r.mu.Lock()
	h := r.handlers[t.route.Path]
	r.mu.Unlock()
	if h == nil {
		return
	}
	if err := safeCall(func() error { return h(t.ctx, t.route.Path) }); err != nil {
		r.hookFailed(t, "handler", err)
	}
}

func (r *Router) hookFailed(t transition, phase string, err error) {
	herr := errors.NewHandlerError(phase, err).WithPath(t.route.Path).WithViewID(t.route.ViewID)
	t.log.Failure("page hook failed", herr, "phase", phase)
	r.publish(event.NewHandlerFailedEvent(t.route.Path, t.route.ViewID, herr))
}

func (r *Router) finish(t transition, outcome string) {
	metrics.RecordTransition(outcome)
	t.log.Info("transition finished", "outcome", outcome)
	if !r.setState(t.seq, StateActive) {
		return
	}
	if outcome == "failed" {
		r.announce(r.catalog.Unavailable(t.route.ViewID))
		return
	}
	r.announce(r.catalog.Navigated(i18n.Title(t.route.ViewID)))
}

func (r *Router) stale(t transition) error {
	metrics.RecordTransition("stale")
	t.log.Debug("discarding superseded transition")
	return errors.ErrStaleNavigation
}

// announce updates the live region after the debounce delay. A newer
// announcement replaces a pending one.
func (r *Router) announce(message string) {
	r.mu.Lock()
	container := r.container
	if r.announcer != nil {
		r.announcer.Stop()
		r.announcer = nil
	}
	if r.announceDelay <= 0 {
		r.mu.Unlock()
		container.Announce(message)
		return
	}
	r.announcer = time.AfterFunc(r.announceDelay, func() { container.Announce(message) })
	r.mu.Unlock()
}

func (r *Router) isCurrent(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq == seq
}

// setState updates the state if seq is still current and reports whether
// it was.
func (r *Router) setState(seq uint64, s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq != seq {
		return false
	}
	r.state = s
	return true
}

func (r *Router) getContainer() Container {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.container
}

func (r *Router) publish(e event.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// State returns the transition state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns the active resolved path and its view id.
func (r *Router) Current() (path, viewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.viewID
}

// Active returns the page module of the rendered view, or nil.
func (r *Router) Active() pages.Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Routes returns the route table.
func (r *Router) Routes() []Route {
	return r.table.Routes()
}

// Close tears down the active module, stops listening to history and
// cancels the transition in flight.
func (r *Router) Close() {
	r.mu.Lock()
	unlisten, cancel, announcer := r.unlisten, r.cancel, r.announcer
	r.unlisten, r.cancel, r.announcer = nil, nil, nil
	r.seq++
	r.state = StateIdle
	r.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	if cancel != nil {
		cancel()
	}
	if announcer != nil {
		announcer.Stop()
	}

	r.renderMu.Lock()
	r.teardownActive(transition{log: r.logger})
	r.renderMu.Unlock()
}

// safeCall runs fn and converts a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Recovered(rec)
		}
	}()
	return fn()
}
