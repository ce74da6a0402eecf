package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/feedview/internal/card"
	"github.com/Iron-Ham/feedview/internal/feed"
	"github.com/Iron-Ham/feedview/internal/fetch"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) PageResponse {
	t.Helper()
	var page PageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func TestServer_ServesContent(t *testing.T) {
	s := New(Options{}, nil)

	tests := []struct {
		name        string
		target      string
		status      int
		contentType string
	}{
		{name: "view", target: "/views/home.txt", status: http.StatusOK, contentType: "text/plain; charset=utf-8"},
		{name: "data", target: "/data/news.json", status: http.StatusOK, contentType: "application/json"},
		{name: "health", target: "/healthz", status: http.StatusOK, contentType: "application/json"},
		{name: "missing view", target: "/views/nope.txt", status: http.StatusNotFound, contentType: "application/json"},
		{name: "missing data", target: "/data/nope.json", status: http.StatusNotFound, contentType: "application/json"},
		{name: "unrouted", target: "/elsewhere", status: http.StatusNotFound, contentType: "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
		})
	}

	rec := get(t, s, "/views/home.txt")
	assert.Contains(t, rec.Body.String(), "[[feed:home]]")
}

func TestServer_FeedPages(t *testing.T) {
	s := New(Options{PageSize: 5}, nil)

	first := decodePage(t, get(t, s, "/api/feeds/news"))
	assert.Len(t, first.Items, 5)
	assert.True(t, first.HasMore)
	assert.Equal(t, "5", first.NextCursor)

	last := decodePage(t, get(t, s, "/api/feeds/news?cursor=10&limit=10"))
	assert.Len(t, last.Items, 4)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)

	past := decodePage(t, get(t, s, "/api/feeds/news?cursor=99"))
	assert.Empty(t, past.Items)
	assert.False(t, past.HasMore)

	huge := get(t, s, "/api/feeds/news?cursor=1&limit=9223372036854775807")
	require.Equal(t, http.StatusOK, huge.Code)
	rest := decodePage(t, huge)
	assert.Len(t, rest.Items, 13)
	assert.False(t, rest.HasMore)
}

func TestIndex_PageLimitLargerThanFeed(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/data/a.json", []byte(`{"items":[{"id":"1"},{"id":"2"},{"id":"3"}]}`), 0o644))
	x := NewIndex(fsys, "/data")

	for _, cursor := range []string{"", "1", "2", "3"} {
		page, err := x.Page("a", cursor, math.MaxInt)
		require.NoError(t, err, "cursor %q", cursor)
		assert.False(t, page.HasMore, "cursor %q", cursor)
		assert.Empty(t, page.NextCursor, "cursor %q", cursor)
	}

	page, err := x.Page("a", "1", math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestServer_FeedPageErrors(t *testing.T) {
	s := New(Options{}, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/api/feeds/news?cursor=abc", http.StatusBadRequest},
		{"/api/feeds/news?cursor=-1", http.StatusBadRequest},
		{"/api/feeds/news?limit=x", http.StatusBadRequest},
		{"/api/feeds/news?limit=0", http.StatusBadRequest},
		{"/api/feeds/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.status, get(t, s, tt.target).Code)
		})
	}
}

func TestServer_ListFeeds(t *testing.T) {
	rec := get(t, New(Options{}, nil), "/api/feeds")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Feeds []string `json:"feeds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"discover", "home", "live", "music", "news", "podcasts", "social"}, body.Feeds)
}

func TestServer_RateLimit(t *testing.T) {
	s := New(Options{RateLimit: 1, Burst: 2}, nil)

	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, s, "/healthz").Code)

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code, "clients have separate budgets")
	assert.Equal(t, 2, s.limiter.Clients())
}

func TestServer_Metrics(t *testing.T) {
	s := New(Options{}, nil)
	get(t, s, "/views/news.txt")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `feedview_http_requests_total{method="GET",route="/views/{view:[A-Za-z0-9_-]+}.txt",status="200"}`)
}

func TestRemoteSource_PagesThroughServer(t *testing.T) {
	ts := httptest.NewServer(New(Options{}, nil))
	t.Cleanup(ts.Close)

	f, err := fetch.NewHTTP(ts.URL, nil)
	require.NoError(t, err)

	store := feed.NewStore[card.Card](nil, nil)
	store.Register("podcasts", feed.NewRemoteSource[card.Card](f, "", "podcasts", 4, card.Decode).Loader())

	ctx := context.Background()
	items, err := store.LoadInitial(ctx, "podcasts")
	require.NoError(t, err)
	assert.Len(t, items, 4)

	for range 5 {
		if _, err := store.LoadMore(ctx, "podcasts"); err != nil {
			t.Fatalf("LoadMore() error = %v", err)
		}
	}
	snap, ok := store.Snapshot("podcasts")
	require.True(t, ok)
	assert.Equal(t, 10, snap.Count)
	assert.False(t, snap.HasMore)
}

func TestIndex_CachesUntilInvalidated(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/data/a.json", []byte(`{"items":[{"id":"1"}]}`), 0o644))
	x := NewIndex(fsys, "/data")

	items, err := x.Items("a")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.True(t, x.Cached("a"))

	require.NoError(t, afero.WriteFile(fsys, "/data/a.json", []byte(`{"items":[{"id":"1"},{"id":"2"}]}`), 0o644))
	items, _ = x.Items("a")
	assert.Len(t, items, 1, "served from cache")

	x.Invalidate("a")
	items, err = x.Items("a")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, afero.WriteFile(fsys, "/data/bad.json", []byte(`{"entries":[]}`), 0o644))
	_, err = x.Items("bad")
	assert.Error(t, err)
}

func TestWatcher_InvalidatesChangedDocuments(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	doc := filepath.Join(dataDir, "a.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"items":[{"id":"1"}]}`), 0o644))

	s := New(Options{Dir: dir}, nil)
	_, err := s.Index().Items("a")
	require.NoError(t, err)

	w, err := NewWatcher(dataDir, s.Index(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, os.WriteFile(doc, []byte(`{"items":[{"id":"1"},{"id":"2"}]}`), 0o644))
	require.Eventually(t, func() bool { return !s.Index().Cached("a") }, 2*time.Second, 10*time.Millisecond)

	items, err := s.Index().Items("a")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
