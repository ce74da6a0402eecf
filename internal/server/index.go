package server

import (
	"encoding/json"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/Iron-Ham/feedview/internal/errors"
)

// PageResponse is the body of a feed page request.
type PageResponse struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
	HasMore    bool              `json:"hasMore"`
}

// Index caches the item arrays of the feed documents under a directory.
// Entries are parsed on first use and dropped by Invalidate.
type Index struct {
	fs   afero.Fs
	root string

	mu    sync.RWMutex
	feeds map[string][]json.RawMessage
}

// NewIndex creates an index over root/<feed>.json in fsys.
func NewIndex(fsys afero.Fs, root string) *Index {
	return &Index{fs: fsys, root: root, feeds: make(map[string][]json.RawMessage)}
}

// Items returns the raw items of a feed document.
func (x *Index) Items(name string) ([]json.RawMessage, error) {
	x.mu.RLock()
	items, ok := x.feeds[name]
	x.mu.RUnlock()
	if ok {
		return items, nil
	}

	data, err := afero.ReadFile(x.fs, path.Join(x.root, name+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewNotFoundError("feed", name).WithCause(err)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read feed %s", name)
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.NewValidationError("feed document is not JSON").WithField(name)
	}
	arr := gjson.GetBytes(data, "items")
	if !arr.IsArray() {
		return nil, errors.NewValidationError("feed document has no items array").WithField(name)
	}

	elems := arr.Array()
	items = make([]json.RawMessage, len(elems))
	for i, el := range elems {
		items[i] = json.RawMessage(el.Raw)
	}

	x.mu.Lock()
	x.feeds[name] = items
	x.mu.Unlock()
	return items, nil
}

// Page returns up to limit items starting at cursor. An empty cursor is
// the first page; any other cursor is an offset handed out by an earlier
// page.
func (x *Index) Page(name, cursor string, limit int) (PageResponse, error) {
	if limit <= 0 {
		return PageResponse{}, errors.NewValidationError("limit must be positive").
			WithField("limit").WithValue(limit)
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return PageResponse{}, errors.NewValidationError("malformed cursor").
				WithField("cursor").WithValue(cursor)
		}
		start = n
	}

	items, err := x.Items(name)
	if err != nil {
		return PageResponse{}, err
	}

	resp := PageResponse{Items: []json.RawMessage{}}
	if start >= len(items) {
		return resp, nil
	}
	end := start + min(limit, len(items)-start)
	resp.Items = items[start:end]
	if end < len(items) {
		resp.HasMore = true
		resp.NextCursor = strconv.Itoa(end)
	}
	return resp, nil
}

// Invalidate drops one cached feed.
func (x *Index) Invalidate(name string) {
	x.mu.Lock()
	delete(x.feeds, name)
	x.mu.Unlock()
}

// InvalidateAll drops every cached feed.
func (x *Index) InvalidateAll() {
	x.mu.Lock()
	clear(x.feeds)
	x.mu.Unlock()
}

// Cached reports whether a feed is currently cached.
func (x *Index) Cached(name string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.feeds[name]
	return ok
}

// Names lists the feeds with a document under the root.
func (x *Index) Names() ([]string, error) {
	entries, err := afero.ReadDir(x.fs, x.root)
	if err != nil {
		return nil, errors.Wrap(err, "list feeds")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	slices.Sort(names)
	return names, nil
}
