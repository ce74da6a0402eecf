package app

import (
	"context"
	"strings"
	"testing"

	"github.com/Iron-Ham/feedview/internal/config"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/fetch"
	"github.com/Iron-Ham/feedview/internal/panel"
	"github.com/Iron-Ham/feedview/internal/router"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Feeds.LiveRefreshSeconds = 0
	cfg.UI.AnnounceDelayMs = 0
	return cfg
}

func startApp(t *testing.T, cfg *config.Config, opts ...Option) *Context {
	t.Helper()
	c, err := New(cfg, nil, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c
}

func TestStart_RendersHomeWithFirstPage(t *testing.T) {
	c := startApp(t, testConfig())

	if path, view := c.Router.Current(); path != "/" || view != "home" {
		t.Fatalf("Current() = %q, %q", path, view)
	}
	if c.Router.State() != router.StateActive {
		t.Errorf("State() = %v, want active", c.Router.State())
	}
	region := c.Doc.Region("home")
	if region == nil {
		t.Fatal("home region not declared")
	}
	if region.Len() != c.Config.Feeds.PageSize {
		t.Errorf("home region has %d items, want %d", region.Len(), c.Config.Feeds.PageSize)
	}
	if got := c.Doc.Title(); got != "Home | One World Feed" {
		t.Errorf("Title() = %q", got)
	}
	if entries, _ := c.History.Entries(); len(entries) != 1 {
		t.Errorf("history = %v, want the initial entry only", entries)
	}
}

func TestNavigate_LoadMoreUntilExhausted(t *testing.T) {
	c := startApp(t, testConfig())
	ctx := context.Background()

	if err := c.Router.Navigate(ctx, "/news"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	f, ok := c.ActiveFeed()
	if !ok || f.Feed() != "news" {
		t.Fatalf("ActiveFeed() = %v, %v", f, ok)
	}

	items, err := f.LoadMore(ctx)
	if err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if len(items) != 4 {
		t.Errorf("second page has %d items, want 4", len(items))
	}
	snap, _ := c.Store.Snapshot("news")
	if snap.HasMore || snap.Count != 14 {
		t.Errorf("snapshot = %+v", snap)
	}

	items, err = f.LoadMore(ctx)
	if err != nil || len(items) != 0 {
		t.Errorf("LoadMore() past the end = %d items, %v", len(items), err)
	}
	if !strings.Contains(c.Doc.Render(80).Text, "You're all caught up") {
		t.Error("end of feed not marked")
	}
}

func TestNavigate_TracksVisitsAndHighlight(t *testing.T) {
	c := startApp(t, testConfig())
	ctx := context.Background()

	for _, p := range []string{"/news", "/social", "/news"} {
		if err := c.Router.Navigate(ctx, p); err != nil {
			t.Fatalf("Navigate(%q) error = %v", p, err)
		}
	}
	if got := c.Visits.Count("news"); got != 2 {
		t.Errorf("news visits = %d, want 2", got)
	}
	if !c.Highlighter.IsActive("/news") {
		t.Error("/news not highlighted")
	}
	if got := c.Doc.Title(); got != "News | One World Feed" {
		t.Errorf("Title() = %q", got)
	}

	if !c.Router.Back() {
		t.Fatal("Back() = false")
	}
	if path, _ := c.Router.Current(); path != "/social" {
		t.Errorf("after Back() path = %q", path)
	}
}

func TestRefresh(t *testing.T) {
	c := startApp(t, testConfig())
	ctx := context.Background()

	if err := c.Router.Navigate(ctx, "/discover"); err != nil {
		t.Fatal(err)
	}
	f, _ := c.ActiveFeed()
	if _, err := f.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := c.Doc.Region("discover").Len(); got != c.Config.Feeds.PageSize {
		t.Errorf("region after refresh has %d items", got)
	}

	if err := c.Router.Navigate(ctx, "/settings"); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Errorf("Refresh() on a plain view = %v", err)
	}
}

func TestStart_ViewUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Views.Retries = 0
	failing := fetch.Func(func(ctx context.Context, resource string) (string, error) {
		return "", &fetch.StatusError{Resource: resource, Code: 503}
	})

	c, err := New(cfg, nil, WithFetcher(failing))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() succeeded with a failing fetcher")
	}
	if !strings.Contains(c.Doc.Content(), "Page not available") {
		t.Errorf("content = %q", c.Doc.Content())
	}
	if _, ok := c.ActiveFeed(); ok {
		t.Error("a failed view has no active feed")
	}
}

func TestNew_RemoteModeNeedsBaseURL(t *testing.T) {
	cfg := testConfig()
	cfg.Feeds.Mode = config.FeedModeRemote

	_, err := New(cfg, nil)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("New() error = %v, want ValidationError", err)
	}
}

func TestNew_WithStart(t *testing.T) {
	c := startApp(t, testConfig(), WithStart("/profile"))
	if _, view := c.Router.Current(); view != "profile" {
		t.Errorf("view = %q, want profile", view)
	}
	if !strings.Contains(c.Doc.Render(80).Text, "@worldcitizen") {
		t.Errorf("profile region = %q", c.Doc.Render(80).Text)
	}
}

func TestClose_UnregistersFeed(t *testing.T) {
	c, err := New(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Store.Snapshot("home"); !ok {
		t.Fatal("home feed not registered")
	}
	c.Close()
	if _, ok := c.Store.Snapshot("home"); ok {
		t.Error("home feed still registered after Close")
	}
}

func TestStart_HydratesSidePanel(t *testing.T) {
	c := startApp(t, testConfig())

	region := c.Doc.Region(panel.RegionName)
	if region == nil {
		t.Fatal("panel region not declared")
	}
	if region.Len() != 1 {
		t.Fatalf("panel region has %d items, want 1", region.Len())
	}
	text := c.Doc.Render(100).Text
	for _, want := range []string{"Trending", "Global Moments", "New York", "London", "Tokyo", "A morning in Lagos"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered home missing %q", want)
		}
	}

	if err := c.Router.Navigate(context.Background(), "/news"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if c.Doc.Region(panel.RegionName) != nil {
		t.Error("news should not declare a panel region")
	}
}

func TestHydrate_LoadsFeedWhenStoreIsEmpty(t *testing.T) {
	c, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)

	c.Doc.Replace("Sidebar\n[[feed:panel]]")
	if err := c.hydrate(context.Background(), "/sidebar"); err != nil {
		t.Fatalf("hydrate() error = %v", err)
	}
	if !strings.Contains(c.Doc.Render(100).Text, "A morning in Lagos") {
		t.Error("panel not built from the first page of the home feed")
	}

	c.Doc.Replace("No panel here")
	if err := c.hydrate(context.Background(), "/plain"); err != nil {
		t.Errorf("hydrate() without a panel region error = %v", err)
	}
}
