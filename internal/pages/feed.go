package pages

import (
	"context"
	"sync"

	"github.com/Iron-Ham/feedview/internal/card"
	"github.com/Iron-Ham/feedview/internal/dom"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/feed"
	"github.com/Iron-Ham/feedview/internal/i18n"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/scroll"
)

// SourceFunc returns the loader for a feed name.
type SourceFunc func(name string) feed.LoaderFunc[card.Card]

// Deps are the collaborators page modules share.
type Deps struct {
	Store   *feed.Store[card.Card]
	Source  SourceFunc
	Catalog *i18n.Catalog
	Logger  *logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Catalog == nil {
		d.Catalog = i18n.Default()
	}
	if d.Logger == nil {
		d.Logger = logging.NopLogger()
	}
	return d
}

// FeedModule fills the region named after its feed with cards and keeps
// it going with an infinite-scroll observer.
type FeedModule struct {
	name string
	deps Deps
	log  *logging.Logger

	mu       sync.Mutex
	region   *dom.Region
	observer *scroll.Observer[card.Card]
}

// NewFeedModule creates a module for the feed name.
func NewFeedModule(name string, deps Deps) *FeedModule {
	deps = deps.withDefaults()
	return &FeedModule{name: name, deps: deps, log: deps.Logger.WithFeed(name)}
}

// FeedFactory returns a factory for NewFeedModule.
func FeedFactory(name string, deps Deps) Factory {
	return func() Module { return NewFeedModule(name, deps) }
}

// Name implements Module.
func (m *FeedModule) Name() string { return m.name }

// Feed returns the feed name.
func (m *FeedModule) Feed() string { return m.name }

// Setup registers the feed, renders page one and attaches the observer.
// A failed first page is shown in the region; the observer stays attached
// so the next scroll retries it.
func (m *FeedModule) Setup(ctx context.Context, page Page) error {
	region := page.Doc.Region(m.name)
	if region == nil {
		return errors.NewValidationError("view declares no region for feed").
			WithField("feed").WithValue(m.name)
	}
	if m.deps.Store == nil || m.deps.Source == nil {
		return errors.NewValidationError("feed module has no store or source").WithValue(m.name)
	}

	m.deps.Store.Register(m.name, m.deps.Source(m.name))

	m.mu.Lock()
	m.region = region
	m.mu.Unlock()

	loadErr := m.reload(ctx)

	obs := scroll.New[card.Card](m.deps.Store, m.log).OnLoaded(m.appendPage)
	if err := obs.Attach(ctx, m.name, region); err != nil {
		return err
	}
	m.mu.Lock()
	m.observer = obs
	m.mu.Unlock()

	return loadErr
}

// Refresh reloads the feed from its first page. A retryable failure is
// retried once before it is shown.
func (m *FeedModule) Refresh(ctx context.Context) error {
	if !m.attached() {
		return errors.ErrNotInitialized
	}
	err := m.reload(ctx)
	if err != nil && errors.IsRetryable(err) && ctx.Err() == nil {
		m.log.Failure("feed refresh failed, retrying", err)
		err = m.reload(ctx)
	}
	return err
}

func (m *FeedModule) attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.region != nil
}

// LoadMore loads the next page directly and appends it, as a scroll to the
// end of the region would.
func (m *FeedModule) LoadMore(ctx context.Context) ([]card.Card, error) {
	if !m.attached() {
		return nil, errors.ErrNotInitialized
	}
	items, err := m.deps.Store.LoadMore(ctx, m.name)
	if errors.Is(err, errors.ErrStaleLoad) || m.tornDown(err) {
		return nil, nil
	}
	if err != nil || len(items) > 0 {
		m.appendPage(items, err)
	}
	return items, err
}

// reload loads page one into the region. A teardown during the load leaves
// nothing to render into; the result is dropped.
func (m *FeedModule) reload(ctx context.Context) error {
	items, err := m.deps.Store.LoadInitial(ctx, m.name)
	if errors.Is(err, errors.ErrStaleLoad) || m.tornDown(err) {
		return nil
	}

	m.mu.Lock()
	region := m.region
	m.mu.Unlock()
	if region == nil {
		return nil
	}

	if err != nil {
		m.log.Failure("feed page failed", err)
		region.Set(dom.Text(m.deps.Catalog.T(i18n.MsgFeedFailed, map[string]any{"Error": err.Error()})))
		return err
	}
	region.Set(asItems(items)...)
	m.markEnd(region)
	return nil
}

// tornDown reports whether err comes from a feed this module already
// unregistered.
func (m *FeedModule) tornDown(err error) bool {
	return errors.Is(err, errors.ErrFeedNotRegistered) && !m.attached()
}

func (m *FeedModule) appendPage(items []card.Card, err error) {
	m.mu.Lock()
	region := m.region
	m.mu.Unlock()
	if region == nil {
		return
	}
	if err != nil {
		m.log.Failure("feed page failed", err)
		region.Append(dom.Text(m.deps.Catalog.T(i18n.MsgFeedFailed, map[string]any{"Error": err.Error()})))
		return
	}
	region.Append(asItems(items)...)
	m.markEnd(region)
}

func (m *FeedModule) markEnd(region *dom.Region) {
	if snap, ok := m.deps.Store.Snapshot(m.name); ok && !snap.HasMore {
		region.Append(dom.Text(m.deps.Catalog.T(i18n.MsgEndOfFeed, nil)))
	}
}

// Teardown detaches the observer and drops the feed.
func (m *FeedModule) Teardown() error {
	m.mu.Lock()
	obs := m.observer
	m.observer = nil
	m.region = nil
	m.mu.Unlock()

	if obs != nil {
		obs.Detach()
	}
	if m.deps.Store != nil {
		m.deps.Store.Unregister(m.name)
	}
	return nil
}

func asItems(cards []card.Card) []dom.Item {
	out := make([]dom.Item, len(cards))
	for i, c := range cards {
		out[i] = c
	}
	return out
}
