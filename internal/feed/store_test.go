package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/event"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingLoader serves pages of pageSize ints for pages pages, then
// declares the feed exhausted.
type countingLoader struct {
	calls    atomic.Int32
	pageSize int
	pages    int
}

func (c *countingLoader) load(_ context.Context, cursor Cursor) (Page[int], error) {
	c.calls.Add(1)
	page := 0
	if cursor != nil {
		page = cursor.(int)
	}
	items := make([]int, c.pageSize)
	for i := range items {
		items[i] = page*c.pageSize + i
	}
	return Page[int]{Items: items, NextCursor: page + 1, HasMore: page+1 < c.pages}, nil
}

func TestStore_PaginatesToExhaustion(t *testing.T) {
	ctx := context.Background()
	s := NewStore[int](nil, nil)
	loader := &countingLoader{pageSize: 2, pages: 3}
	s.Register("home", loader.load)

	first, err := s.LoadInitial(ctx, "home")
	if err != nil {
		t.Fatalf("LoadInitial() error = %v", err)
	}
	if len(first) != 2 {
		t.Errorf("first page = %v", first)
	}

	for i := range 2 {
		more, err := s.LoadMore(ctx, "home")
		if err != nil {
			t.Fatalf("LoadMore() #%d error = %v", i, err)
		}
		if len(more) != 2 {
			t.Errorf("LoadMore() #%d returned %d items, want only the new 2", i, len(more))
		}
	}

	items := s.Items("home")
	if len(items) != 6 {
		t.Fatalf("accumulated %d items, want 6", len(items))
	}
	for i, v := range items {
		if v != i {
			t.Errorf("items[%d] = %d, order broken", i, v)
		}
	}

	calls := loader.calls.Load()
	more, err := s.LoadMore(ctx, "home")
	if err != nil || more != nil {
		t.Errorf("LoadMore() on exhausted feed = %v, %v", more, err)
	}
	if loader.calls.Load() != calls {
		t.Error("loader invoked on exhausted feed")
	}
}

func TestStore_LoadMoreNoopWhenExhausted(t *testing.T) {
	ctx := context.Background()
	s := NewStore[int](nil, nil)
	loader := &countingLoader{pageSize: 3, pages: 1}
	s.Register("news", loader.load)

	if _, err := s.LoadInitial(ctx, "news"); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Snapshot("news")
	if before.HasMore {
		t.Fatal("feed should be exhausted after one page")
	}

	for range 3 {
		if items, err := s.LoadMore(ctx, "news"); items != nil || err != nil {
			t.Errorf("LoadMore() = %v, %v", items, err)
		}
	}

	after, _ := s.Snapshot("news")
	if after != before {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
	if loader.calls.Load() != 1 {
		t.Errorf("loader calls = %d, want 1", loader.calls.Load())
	}
}

func TestStore_OneLoadInFlight(t *testing.T) {
	ctx := context.Background()
	s := NewStore[int](nil, nil)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls atomic.Int32
	s.Register("home", func(ctx context.Context, _ Cursor) (Page[int], error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return Page[int]{Items: []int{1}, NextCursor: 1, HasMore: true}, nil
	})

	var wg sync.WaitGroup
	var first []int
	wg.Go(func() {
		first, _ = s.LoadMore(ctx, "home")
	})
	<-started

	snap, _ := s.Snapshot("home")
	if !snap.Loading {
		t.Error("Snapshot should report loading")
	}

	second, err := s.LoadMore(ctx, "home")
	if second != nil || err != nil {
		t.Errorf("second LoadMore() = %v, %v, want no-op", second, err)
	}

	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("loader calls = %d, want 1", calls.Load())
	}
	if len(first) != 1 {
		t.Errorf("first LoadMore() = %v", first)
	}
	if snap, _ := s.Snapshot("home"); snap.Loading {
		t.Error("loading flag left set")
	}
}

func TestStore_LoadInitialResets(t *testing.T) {
	ctx := context.Background()
	s := NewStore[int](nil, nil)

	var cursors []Cursor
	s.Register("home", func(_ context.Context, cursor Cursor) (Page[int], error) {
		cursors = append(cursors, cursor)
		n := 0
		if cursor != nil {
			n = cursor.(int)
		}
		return Page[int]{Items: []int{n}, NextCursor: n + 1, HasMore: true}, nil
	})

	if _, err := s.LoadInitial(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadMore(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if len(s.Items("home")) != 2 {
		t.Fatalf("items = %v", s.Items("home"))
	}

	items, err := s.LoadInitial(ctx, "home")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0] != 0 {
		t.Errorf("LoadInitial() = %v, want first page", items)
	}
	if got := s.Items("home"); len(got) != 1 {
		t.Errorf("items after reset = %v, want one page", got)
	}
	if cursors[2] != nil {
		t.Errorf("LoadInitial used cursor %v, want nil", cursors[2])
	}
}

func TestStore_LoadInitialResetsExhaustedFeed(t *testing.T) {
	ctx := context.Background()
	s := NewStore[int](nil, nil)
	loader := &countingLoader{pageSize: 1, pages: 1}
	s.Register("home", loader.load)

	if _, err := s.LoadInitial(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadInitial(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if loader.calls.Load() != 2 {
		t.Errorf("loader calls = %d, want exhaustion cleared by LoadInitial", loader.calls.Load())
	}
}

func TestStore_UnknownFeed(t *testing.T) {
	ctx := context.Background()
	s := NewStore[int](nil, nil)

	if _, err := s.LoadInitial(ctx, "nope"); !errors.Is(err, errors.ErrFeedNotRegistered) {
		t.Errorf("LoadInitial() error = %v", err)
	}
	if _, err := s.LoadMore(ctx, "nope"); !errors.Is(err, errors.ErrFeedNotRegistered) {
		t.Errorf("LoadMore() error = %v", err)
	}
	if items := s.Items("nope"); items != nil {
		t.Errorf("Items() = %v", items)
	}
	if _, ok := s.Snapshot("nope"); ok {
		t.Error("Snapshot() reported an unknown feed")
	}
}

func TestStore_LoaderFailureClearsLoadingOnly(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus(nil)
	var failed []event.FeedFailedEvent
	event.On(bus, func(e event.FeedFailedEvent) { failed = append(failed, e) })

	s := NewStore[int](nil, bus)

	fail := true
	var cursors []Cursor
	s.Register("home", func(_ context.Context, cursor Cursor) (Page[int], error) {
		cursors = append(cursors, cursor)
		if cursor != nil && fail {
			return Page[int]{}, fmt.Errorf("network down")
		}
		return Page[int]{Items: []int{len(cursors)}, NextCursor: "p2", HasMore: true}, nil
	})

	if _, err := s.LoadInitial(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Snapshot("home")

	_, err := s.LoadMore(ctx, "home")
	var fe *errors.FeedLoadError
	if !errors.As(err, &fe) || fe.Feed != "home" {
		t.Fatalf("error = %v, want *FeedLoadError", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("feed load failures should be retryable")
	}

	after, _ := s.Snapshot("home")
	if after.Loading {
		t.Error("loading left set after failure")
	}
	if after.Cursor != before.Cursor || after.HasMore != before.HasMore || after.Count != before.Count {
		t.Errorf("state changed on failure: before %+v after %+v", before, after)
	}
	if len(failed) != 1 || failed[0].Feed != "home" {
		t.Errorf("FeedFailed events = %+v", failed)
	}

	fail = false
	if _, err := s.LoadMore(ctx, "home"); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if cursors[1] != "p2" || cursors[2] != "p2" {
		t.Errorf("cursors = %v, retry should reissue the same page", cursors)
	}
}

func TestStore_LoaderPanicIsContained(t *testing.T) {
	s := NewStore[int](nil, nil)
	s.Register("home", func(context.Context, Cursor) (Page[int], error) {
		panic("bad loader")
	})

	_, err := s.LoadInitial(context.Background(), "home")
	if !errors.Is(err, errors.ErrHandlerPanic) {
		t.Errorf("error = %v, want recovered panic", err)
	}
	if snap, _ := s.Snapshot("home"); snap.Loading {
		t.Error("loading left set after panic")
	}
}

func TestStore_FeedsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewStore[string](nil, nil)

	mk := func(prefix string, delay time.Duration) LoaderFunc[string] {
		return func(_ context.Context, cursor Cursor) (Page[string], error) {
			time.Sleep(delay)
			n := 0
			if cursor != nil {
				n = cursor.(int)
			}
			return Page[string]{
				Items:      []string{fmt.Sprintf("%s-%d", prefix, n)},
				NextCursor: n + 1,
				HasMore:    n < 4,
			}, nil
		}
	}
	s.Register("home", mk("home", 5*time.Millisecond))
	s.Register("news", mk("news", time.Millisecond))

	var wg sync.WaitGroup
	for _, name := range []string{"home", "news"} {
		wg.Go(func() {
			if _, err := s.LoadInitial(ctx, name); err != nil {
				t.Errorf("LoadInitial(%s) error = %v", name, err)
			}
			for range 2 {
				if _, err := s.LoadMore(ctx, name); err != nil {
					t.Errorf("LoadMore(%s) error = %v", name, err)
				}
			}
		})
	}
	wg.Wait()

	for _, name := range []string{"home", "news"} {
		items := s.Items(name)
		want := []string{name + "-0", name + "-1", name + "-2"}
		if fmt.Sprint(items) != fmt.Sprint(want) {
			t.Errorf("%s items = %v, want %v", name, items, want)
		}
		snap, _ := s.Snapshot(name)
		if snap.Cursor != 3 {
			t.Errorf("%s cursor = %v, want 3", name, snap.Cursor)
		}
	}
}

func TestStore_LoadInitialDiscardsInFlightPage(t *testing.T) {
	ctx := context.Background()
	s := NewStore[string](nil, nil)

	started := make(chan struct{})
	var calls atomic.Int32
	s.Register("live", func(ctx context.Context, cursor Cursor) (Page[string], error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return Page[string]{Items: []string{"stale"}, HasMore: true, NextCursor: 1}, nil
		}
		return Page[string]{Items: []string{"fresh"}, HasMore: false}, nil
	})

	var wg sync.WaitGroup
	var staleErr error
	wg.Go(func() {
		_, staleErr = s.LoadMore(ctx, "live")
	})
	<-started

	items, err := s.LoadInitial(ctx, "live")
	wg.Wait()

	if err != nil {
		t.Fatalf("LoadInitial() error = %v", err)
	}
	if len(items) != 1 || items[0] != "fresh" {
		t.Errorf("LoadInitial() = %v", items)
	}
	if !errors.Is(staleErr, errors.ErrStaleLoad) {
		t.Errorf("stale load error = %v, want ErrStaleLoad", staleErr)
	}
	if got := s.Items("live"); len(got) != 1 || got[0] != "fresh" {
		t.Errorf("items = %v, stale page leaked", got)
	}
}

func TestStore_ItemsIsACopy(t *testing.T) {
	s := NewStore[int](nil, nil)
	s.Register("home", SliceLoader([]int{1, 2, 3}, 3))
	if _, err := s.LoadInitial(context.Background(), "home"); err != nil {
		t.Fatal(err)
	}

	items := s.Items("home")
	items[0] = 99
	if s.Items("home")[0] != 1 {
		t.Error("Items() exposed internal storage")
	}
}

func TestStore_RegisterAndUnregister(t *testing.T) {
	s := NewStore[int](nil, nil)
	s.Register("b", SliceLoader([]int{1}, 1))
	s.Register("a", SliceLoader([]int{1}, 1))

	if names := s.Names(); fmt.Sprint(names) != "[a b]" {
		t.Errorf("Names() = %v", names)
	}

	if _, err := s.LoadInitial(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	s.Register("a", SliceLoader([]int{5, 6}, 1))
	snap, _ := s.Snapshot("a")
	if snap.Count != 0 || !snap.HasMore || snap.Cursor != nil {
		t.Errorf("re-register should reset state, got %+v", snap)
	}

	s.Unregister("a")
	if _, ok := s.Snapshot("a"); ok {
		t.Error("feed still present after Unregister")
	}
}

func TestStore_PublishesFeedLoaded(t *testing.T) {
	bus := event.NewBus(nil)
	var got []event.FeedLoadedEvent
	event.On(bus, func(e event.FeedLoadedEvent) { got = append(got, e) })

	s := NewStore[int](nil, bus)
	s.Register("home", SliceLoader([]int{1, 2, 3}, 2))
	ctx := context.Background()
	if _, err := s.LoadInitial(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadMore(ctx, "home"); err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[1].Added != 1 || got[1].Total != 3 || got[1].HasMore {
		t.Errorf("second event = %+v", got[1])
	}
}
