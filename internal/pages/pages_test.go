package pages

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/feedview/internal/card"
	"github.com/Iron-Ham/feedview/internal/dom"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/feed"
)

func cards(prefix string, n int, kind card.Kind) []card.Card {
	out := make([]card.Card, n)
	for i := range out {
		out[i] = card.Card{
			ID:      fmt.Sprintf("%s-%d", prefix, i),
			Kind:    kind,
			Title:   fmt.Sprintf("%s %d", prefix, i),
			Viewers: 100,
		}
	}
	return out
}

func testDeps(data map[string][]card.Card, pageSize int) Deps {
	return Deps{
		Store: feed.NewStore[card.Card](nil, nil),
		Source: func(name string) feed.LoaderFunc[card.Card] {
			return feed.SliceLoader(data[name], pageSize)
		},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("ai", Static("ai"))
	r.Register("home", Static("home-v1"))
	r.Register("home", Static("home-v2"))

	m, ok := r.New("home")
	if !ok || m.Name() != "home-v2" {
		t.Errorf("New(home) = %v, %v", m, ok)
	}
	if _, ok := r.New("missing"); ok {
		t.Error("New(missing) should report false")
	}
	if got := strings.Join(r.Names(), ","); got != "ai,home" {
		t.Errorf("Names() = %s", got)
	}

	if _, ok := m.(Setupper); ok {
		t.Error("static module should not implement Setupper")
	}
	var nilRegistry *Registry
	if _, ok := nilRegistry.New("home"); ok {
		t.Error("nil registry returned a module")
	}
}

func TestDefaults_CoversStockViews(t *testing.T) {
	r := Defaults(testDeps(nil, 2), Options{})
	for _, view := range []string{"home", "discover", "news", "social", "live", "music", "podcasts", "profile", "badges", "settings", "ai"} {
		if !r.Has(view) {
			t.Errorf("no module for %s", view)
		}
	}
}

func TestFeedModule_SetupScrollTeardown(t *testing.T) {
	deps := testDeps(map[string][]card.Card{"home": cards("home", 5, card.KindText)}, 2)
	doc := dom.New()
	doc.Replace("Home\n[[feed:home]]")

	m := NewFeedModule("home", deps)
	if err := m.Setup(context.Background(), Page{Path: "/", ViewID: "home", Doc: doc}); err != nil {
		t.Fatal(err)
	}
	region := doc.Region("home")
	if region.Len() != 2 || !region.HasSentinel() {
		t.Fatalf("after setup: len=%d sentinel=%v", region.Len(), region.HasSentinel())
	}

	// Scroll to the bottom until the feed is exhausted.
	deadline := time.Now().Add(2 * time.Second)
	for {
		layout := doc.Render(80)
		layout.Reveal(layout.Lines, 10)
		layout.Reveal(0, 1)
		if strings.Contains(doc.Render(80).Text, "You're all caught up") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("feed never exhausted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := len(deps.Store.Items("home")); n != 5 {
		t.Errorf("items = %d, want 5", n)
	}

	if err := m.Teardown(); err != nil {
		t.Fatal(err)
	}
	if region.HasSentinel() {
		t.Error("sentinel left behind")
	}
	if _, ok := deps.Store.Snapshot("home"); ok {
		t.Error("feed still registered after teardown")
	}
}

func TestFeedModule_MissingRegion(t *testing.T) {
	deps := testDeps(nil, 2)
	doc := dom.New()
	doc.Replace("no regions")

	err := NewFeedModule("home", deps).Setup(context.Background(), Page{Doc: doc})
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Setup() error = %v", err)
	}
}

func TestFeedModule_FailedFirstPageThenRefresh(t *testing.T) {
	var calls atomic.Int32
	deps := Deps{
		Store: feed.NewStore[card.Card](nil, nil),
		Source: func(string) feed.LoaderFunc[card.Card] {
			return func(_ context.Context, cursor feed.Cursor) (feed.Page[card.Card], error) {
				if calls.Add(1) == 1 {
					return feed.Page[card.Card]{}, errors.New("offline")
				}
				return feed.Page[card.Card]{Items: cards("news", 1, card.KindNews)}, nil
			}
		},
	}
	doc := dom.New()
	doc.Replace("[[feed:news]]")

	m := NewFeedModule("news", deps)
	err := m.Setup(context.Background(), Page{Doc: doc})
	if !errors.Is(err, errors.ErrFeedLoadFailed) {
		t.Fatalf("Setup() error = %v", err)
	}
	defer m.Teardown()
	if !strings.Contains(doc.Render(80).Text, "offline") {
		t.Error("failure not shown in region")
	}

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}
	if n := len(deps.Store.Items("news")); n != 1 {
		t.Errorf("items after refresh = %d", n)
	}
}

func TestLiveModule_Counter(t *testing.T) {
	data := map[string][]card.Card{"live": append(cards("live", 3, card.KindLive), cards("clip", 1, card.KindMoment)...)}
	deps := testDeps(data, 10)
	doc := dom.New()
	doc.Replace("[[feed:live-watching]]\n[[feed:live]]")

	m := NewLiveModule("live", 0, deps)
	if err := m.Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}
	defer m.Teardown()

	if m.Watching() != 300 {
		t.Errorf("Watching() = %d, want 300", m.Watching())
	}
	if !strings.Contains(doc.Render(80).Text, "300 watching") {
		t.Error("counter not rendered")
	}
}

func TestLiveModule_TeardownStopsSchedule(t *testing.T) {
	deps := testDeps(map[string][]card.Card{"live": cards("live", 1, card.KindLive)}, 10)
	doc := dom.New()
	doc.Replace("[[feed:live]]")

	m := NewLiveModule("live", time.Second, deps)
	if err := m.Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		_ = m.Teardown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Teardown blocked")
	}
	if m.sched != nil {
		t.Error("schedule not cleared")
	}
}

func TestMusicModule_RendersGenres(t *testing.T) {
	deps := testDeps(map[string][]card.Card{"music": cards("track", 1, card.KindMusic)}, 10)
	doc := dom.New()
	doc.Replace("[[feed:music-genres]]\n[[feed:music]]")

	m, _ := Defaults(deps, Options{}).New("music")
	if err := m.(Setupper).Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}
	defer m.(Teardowner).Teardown()

	out := doc.Render(120).Text
	if !strings.Contains(out, "[All]") || !strings.Contains(out, "Afrobeats") {
		t.Errorf("genres missing from %q", out)
	}
}

type fixedVisits map[string]int

func (f fixedVisits) Visits() map[string]int { return f }

func TestBadgesAndProfile(t *testing.T) {
	doc := dom.New()
	doc.Replace("[[feed:profile]]\n[[feed:badges]]")

	if err := (ProfileModule{Profile: DefaultProfile}).Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}
	badges := BadgesModule{Counter: fixedVisits{"news": 3, "home": 1}}
	if err := badges.Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}

	out := doc.Render(80).Text
	for _, want := range []string{"WC  World Citizen", "1.2K followers", "Home", "1 visit", "3 visits"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{92, "92"},
		{1204, "1.2K"},
		{2_500_000, "2.5M"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n); got != tt.want {
			t.Errorf("FormatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
	if Initials("") != "WC" || Initials("ada lovelace byron") != "AL" {
		t.Error("Initials mismatch")
	}
}

func TestFeedModule_LoadMoreAppends(t *testing.T) {
	deps := testDeps(map[string][]card.Card{"news": cards("news", 3, card.KindNews)}, 2)
	doc := dom.New()
	doc.Replace("[[feed:news]]")

	var m Feeder = NewFeedModule("news", deps)
	if _, err := m.LoadMore(context.Background()); !errors.Is(err, errors.ErrNotInitialized) {
		t.Errorf("LoadMore before Setup = %v", err)
	}
	fm := m.(*FeedModule)
	if err := fm.Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}
	defer fm.Teardown()

	items, err := m.LoadMore(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("LoadMore() = %d items, %v", len(items), err)
	}
	if doc.Region("news").Len() != 4 {
		t.Errorf("region len = %d, want 3 cards + end marker", doc.Region("news").Len())
	}
	if items, _ := m.LoadMore(context.Background()); len(items) != 0 {
		t.Error("exhausted feed returned items")
	}
}

func TestFeedModule_RefreshDuringTeardown(t *testing.T) {
	moreStarted := make(chan struct{})
	moreGate := make(chan struct{})
	refreshStarted := make(chan struct{})
	refreshGate := make(chan struct{})
	var initial atomic.Int32

	deps := Deps{
		Store: feed.NewStore[card.Card](nil, nil),
		Source: func(string) feed.LoaderFunc[card.Card] {
			return func(_ context.Context, cursor feed.Cursor) (feed.Page[card.Card], error) {
				if cursor != nil {
					close(moreStarted)
					<-moreGate
					return feed.Page[card.Card]{Items: cards("more", 2, card.KindNews)}, nil
				}
				if initial.Add(1) > 1 {
					close(refreshStarted)
					<-refreshGate
				}
				return feed.Page[card.Card]{Items: cards("news", 2, card.KindNews), NextCursor: 2, HasMore: true}, nil
			}
		},
	}
	doc := dom.New()
	doc.Replace("[[feed:news]]")

	m := NewFeedModule("news", deps)
	if err := m.Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}

	// Scroll the sentinel into view; its load stays in flight.
	layout := doc.Render(80)
	layout.Reveal(layout.Lines, 10)
	waitFor(t, moreStarted, "observer load")

	refreshed := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				refreshed <- fmt.Errorf("panic: %v", r)
			}
		}()
		refreshed <- m.Refresh(context.Background())
	}()
	waitFor(t, refreshStarted, "refresh load")

	tornDown := make(chan struct{})
	go func() {
		_ = m.Teardown()
		close(tornDown)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for m.attached() {
		if time.Now().After(deadline) {
			t.Fatal("teardown never detached the region")
		}
		time.Sleep(time.Millisecond)
	}

	close(refreshGate)
	select {
	case err := <-refreshed:
		if err != nil {
			t.Errorf("Refresh() after teardown = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Refresh never returned")
	}

	close(moreGate)
	waitFor(t, tornDown, "teardown")

	if _, err := m.LoadMore(context.Background()); !errors.Is(err, errors.ErrNotInitialized) {
		t.Errorf("LoadMore after teardown = %v", err)
	}
}

func TestFeedModule_RefreshRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	deps := Deps{
		Store: feed.NewStore[card.Card](nil, nil),
		Source: func(string) feed.LoaderFunc[card.Card] {
			return func(_ context.Context, _ feed.Cursor) (feed.Page[card.Card], error) {
				// Setup succeeds, the first refresh attempt fails.
				if calls.Add(1) == 2 {
					return feed.Page[card.Card]{}, errors.New("connection reset")
				}
				return feed.Page[card.Card]{Items: cards("social", 3, card.KindText)}, nil
			}
		},
	}
	doc := dom.New()
	doc.Replace("[[feed:social]]")

	m := NewFeedModule("social", deps)
	if err := m.Setup(context.Background(), Page{Doc: doc}); err != nil {
		t.Fatal(err)
	}
	defer m.Teardown()

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("loader calls = %d, want setup + failed attempt + retry", got)
	}
	if text := doc.Render(80).Text; strings.Contains(text, "connection reset") {
		t.Errorf("recovered failure still shown:\n%s", text)
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
