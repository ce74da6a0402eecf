// Package app assembles the client: one view cache, one feed store and one
// event bus, owned by a Context and shared by the router and page modules.
package app

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Iron-Ham/feedview/internal/card"
	"github.com/Iron-Ham/feedview/internal/config"
	"github.com/Iron-Ham/feedview/internal/content"
	"github.com/Iron-Ham/feedview/internal/dom"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/event"
	"github.com/Iron-Ham/feedview/internal/feed"
	"github.com/Iron-Ham/feedview/internal/fetch"
	"github.com/Iron-Ham/feedview/internal/history"
	"github.com/Iron-Ham/feedview/internal/i18n"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/nav"
	"github.com/Iron-Ham/feedview/internal/pages"
	"github.com/Iron-Ham/feedview/internal/panel"
	"github.com/Iron-Ham/feedview/internal/router"
	"github.com/Iron-Ham/feedview/internal/view"
)

// Context owns the client's shared state.
type Context struct {
	Config  *config.Config
	Logger  *logging.Logger
	Bus     *event.Bus
	Cache   *view.Cache
	Loader  *view.Loader
	Store   *feed.Store[card.Card]
	History *history.Memory
	Doc     *dom.Document
	Modules *pages.Registry
	Router  *router.Router
	Catalog *i18n.Catalog

	Highlighter *nav.Highlighter
	Visits      *nav.Visits

	fetcher fetch.Fetcher
	subs    []string
}

type options struct {
	fetcher fetch.Fetcher
	start   string
}

// Option configures New.
type Option func(*options)

// WithFetcher overrides the fetcher derived from the server config.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithStart sets the initial history location.
func WithStart(path string) Option {
	return func(o *options) { o.start = path }
}

// New builds a Context from cfg. Nothing is fetched until Start.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Context, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	o := options{start: cfg.RoutesDefault}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := newFetcher(cfg, o.fetcher)
	if err != nil {
		return nil, err
	}

	catalog, err := i18n.New(cfg.UI.Locale)
	if err != nil {
		return nil, errors.Wrap(err, "load messages")
	}

	routes := make([]router.Route, len(cfg.Routes))
	for i, r := range cfg.Routes {
		routes[i] = router.Route{Path: r.Path, ViewID: r.View}
	}
	table, err := router.NewTable(routes, cfg.RoutesDefault)
	if err != nil {
		return nil, err
	}

	c := &Context{
		Config:      cfg,
		Logger:      logger,
		Bus:         event.NewBus(logger),
		Cache:       view.NewCache(),
		History:     history.NewMemory(o.start),
		Doc:         dom.New(),
		Catalog:     catalog,
		Highlighter: &nav.Highlighter{},
		Visits:      nav.NewVisits(),
		fetcher:     f,
	}
	c.Loader = view.NewLoader(f, c.Cache, view.Options{
		Retries:      cfg.Views.Retries,
		Timeout:      cfg.Views.Timeout(),
		Backoff:      cfg.Views.Backoff(),
		PathTemplate: cfg.Views.PathTemplate,
		Prefetch:     cfg.Views.Prefetch,
	}, logger)
	c.Store = feed.NewStore[card.Card](logger, c.Bus)
	c.Modules = pages.Defaults(pages.Deps{
		Store:   c.Store,
		Source:  c.Source,
		Catalog: catalog,
		Logger:  logger,
	}, pages.Options{
		LiveRefresh: cfg.Feeds.LiveRefresh(),
		Visits:      c.Visits,
	})
	c.Router = router.New(table, c.Loader, c.History, c.Bus,
		router.WithLogger(logger),
		router.WithModules(c.Modules),
		router.WithCatalog(catalog),
		router.WithAnnounceDelay(cfg.UI.AnnounceDelay()),
	)

	for _, r := range c.Router.Routes() {
		c.Router.Register(r.Path, c.hydrate)
	}

	c.subs = append(c.subs,
		c.Highlighter.Attach(c.Bus),
		c.Visits.Attach(c.Bus),
		nav.AttachTitles(c.Bus, c.Doc),
		c.Bus.SubscribeAll(func(e event.Event) {
			logger.Debug("event published", "type", e.EventType().String())
		}),
	)
	return c, nil
}

func newFetcher(cfg *config.Config, override fetch.Fetcher) (fetch.Fetcher, error) {
	if override != nil {
		return override, nil
	}
	if cfg.Server.BaseURL != "" {
		return fetch.NewHTTP(cfg.Server.BaseURL, nil)
	}
	if cfg.Feeds.Mode == config.FeedModeRemote {
		return nil, errors.NewValidationError("remote feeds need server.base_url").
			WithField("feeds.mode").WithValue(cfg.Feeds.Mode)
	}
	return fetch.NewFS(content.Dir(cfg.Server.ContentDir), "/"), nil
}

// Fetcher returns the fetcher views and feeds are read through.
func (c *Context) Fetcher() fetch.Fetcher {
	return c.fetcher
}

// Source returns the loader for a feed according to feeds.mode.
func (c *Context) Source(name string) feed.LoaderFunc[card.Card] {
	size := c.Config.Feeds.PageSize
	if c.Config.Feeds.Mode == config.FeedModeRemote {
		return feed.NewRemoteSource[card.Card](c.fetcher, "", name, size, card.Decode).Loader()
	}
	resource := strings.ReplaceAll(c.Config.Feeds.DataPathTemplate, "{feed}", url.PathEscape(name))
	return feed.NewJSONSource[card.Card](c.fetcher, resource, "items", size, card.Decode).Loader()
}

// Start renders the initial route into the document. With views.prefetch
// set, every routed view is fetched into the cache first.
func (c *Context) Start(ctx context.Context) error {
	if c.Config.Views.Prefetch > 0 {
		if err := c.Loader.Prefetch(ctx, c.viewIDs()...); err != nil {
			c.Logger.Warn("view prefetch incomplete", "error", err)
		}
	}
	return c.Router.Init(ctx, c.Doc)
}

func (c *Context) viewIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range c.Router.Routes() {
		if !seen[r.ViewID] {
			seen[r.ViewID] = true
			ids = append(ids, r.ViewID)
		}
	}
	return ids
}

// ActiveFeed returns the module of the rendered view when it shows a feed.
func (c *Context) ActiveFeed() (pages.Feeder, bool) {
	f, ok := c.Router.Active().(pages.Feeder)
	return f, ok
}

// Refresh reloads the active view's content in place.
func (c *Context) Refresh(ctx context.Context) error {
	r, ok := c.Router.Active().(pages.Refresher)
	if !ok {
		return nil
	}
	return r.Refresh(ctx)
}

// PanelFeed is the feed the side panel is built from.
const PanelFeed = "home"

// hydrate fills the side panel when the rendered view declares one.
func (c *Context) hydrate(ctx context.Context, _ string) error {
	region := c.Doc.Region(panel.RegionName)
	if region == nil {
		return nil
	}
	cards := c.Store.Items(PanelFeed)
	if len(cards) == 0 {
		page, err := c.Source(PanelFeed)(ctx, nil)
		if err != nil {
			return errors.NewFeedLoadError(PanelFeed, err)
		}
		cards = page.Items
	}
	p, err := panel.Build(cards, &panel.DefaultSpotlight, panel.DefaultCities, time.Now())
	region.Set(p)
	return err
}

// Close tears down the router and drops the bus subscriptions.
func (c *Context) Close() {
	c.Router.Close()
	for _, id := range c.subs {
		c.Bus.Unsubscribe(id)
	}
	c.subs = nil
}
