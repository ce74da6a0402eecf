package feed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/fetch"
	"github.com/tidwall/gjson"
)

// Decoder converts one JSON element into a feed item.
type Decoder[T any] func(gjson.Result) (T, error)

// SliceLoader pages a fixed dataset. Cursors are int offsets.
func SliceLoader[T any](items []T, pageSize int) LoaderFunc[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	return func(_ context.Context, cursor Cursor) (Page[T], error) {
		start, err := offset(cursor)
		if err != nil {
			return Page[T]{}, err
		}
		return pageOf(items, start, pageSize), nil
	}
}

func pageOf[T any](items []T, start, size int) Page[T] {
	if start >= len(items) {
		return Page[T]{}
	}
	end := min(start+size, len(items))
	page := Page[T]{Items: items[start:end:end], HasMore: end < len(items)}
	if page.HasMore {
		page.NextCursor = end
	}
	return page
}

func offset(cursor Cursor) (int, error) {
	switch c := cursor.(type) {
	case nil:
		return 0, nil
	case int:
		if c < 0 {
			return 0, errors.NewValidationError("negative cursor").WithValue(c)
		}
		return c, nil
	default:
		return 0, errors.NewValidationError("cursor is not an offset").WithValue(cursor)
	}
}

// JSONSource serves a feed from a static JSON document such as
// /data/home.json. The document is fetched for the first page and reused
// for later pages, so LoadInitial always sees fresh data.
type JSONSource[T any] struct {
	fetcher  fetch.Fetcher
	resource string
	path     string
	pageSize int
	decode   Decoder[T]

	mu    sync.Mutex
	items []T
}

// NewJSONSource creates a source reading resource and selecting the item
// array with the gjson path (for example "items" or "feed.posts"). An empty
// path means the document itself is the array.
func NewJSONSource[T any](f fetch.Fetcher, resource, path string, pageSize int, decode Decoder[T]) *JSONSource[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &JSONSource[T]{
		fetcher:  f,
		resource: resource,
		path:     path,
		pageSize: pageSize,
		decode:   decode,
	}
}

// Load implements LoaderFunc.
func (s *JSONSource[T]) Load(ctx context.Context, cursor Cursor) (Page[T], error) {
	start, err := offset(cursor)
	if err != nil {
		return Page[T]{}, err
	}

	s.mu.Lock()
	items := s.items
	s.mu.Unlock()

	if cursor == nil || items == nil {
		doc, err := s.fetcher.Fetch(ctx, s.resource)
		if err != nil {
			return Page[T]{}, err
		}
		items, err = decodeArray(doc, s.path, s.decode)
		if err != nil {
			return Page[T]{}, errors.Wrapf(err, "decode %s", s.resource)
		}
		s.mu.Lock()
		s.items = items
		s.mu.Unlock()
	}

	return pageOf(items, start, s.pageSize), nil
}

// Loader returns s.Load as a LoaderFunc.
func (s *JSONSource[T]) Loader() LoaderFunc[T] {
	return s.Load
}

// RemoteSource asks the content server for each page:
//
//	GET {prefix}/{name}?cursor=<c>&limit=<n>
//	{"items": [...], "nextCursor": "...", "hasMore": true}
//
// Cursors are the server's strings.
type RemoteSource[T any] struct {
	fetcher  fetch.Fetcher
	prefix   string
	name     string
	pageSize int
	decode   Decoder[T]
}

// NewRemoteSource creates a server-paginated source. prefix defaults to
// "/api/feeds".
func NewRemoteSource[T any](f fetch.Fetcher, prefix, name string, pageSize int, decode Decoder[T]) *RemoteSource[T] {
	if prefix == "" {
		prefix = "/api/feeds"
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return &RemoteSource[T]{
		fetcher:  f,
		prefix:   strings.TrimRight(prefix, "/"),
		name:     name,
		pageSize: pageSize,
		decode:   decode,
	}
}

// Resource returns the request path for the page at cursor.
func (s *RemoteSource[T]) Resource(cursor Cursor) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(s.pageSize))
	if cursor != nil {
		q.Set("cursor", fmt.Sprint(cursor))
	}
	return s.prefix + "/" + url.PathEscape(s.name) + "?" + q.Encode()
}

// Load implements LoaderFunc.
func (s *RemoteSource[T]) Load(ctx context.Context, cursor Cursor) (Page[T], error) {
	body, err := s.fetcher.Fetch(ctx, s.Resource(cursor))
	if err != nil {
		return Page[T]{}, err
	}
	if !gjson.Valid(body) {
		return Page[T]{}, errors.NewValidationError("feed response is not JSON").WithField(s.name)
	}

	items, err := decodeArray(body, "items", s.decode)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: items, HasMore: gjson.Get(body, "hasMore").Bool()}
	if next := gjson.Get(body, "nextCursor"); next.Exists() && next.Type != gjson.Null && next.String() != "" {
		page.NextCursor = next.String()
	}
	if page.HasMore && page.NextCursor == nil {
		return Page[T]{}, errors.NewValidationError("hasMore without nextCursor").WithField(s.name)
	}
	return page, nil
}

// Loader returns s.Load as a LoaderFunc.
func (s *RemoteSource[T]) Loader() LoaderFunc[T] {
	return s.Load
}

func decodeArray[T any](doc, path string, decode Decoder[T]) ([]T, error) {
	if !gjson.Valid(doc) {
		return nil, errors.NewValidationError("document is not valid JSON")
	}
	arr := gjson.Parse(doc)
	if path != "" {
		arr = arr.Get(path)
	}
	if !arr.IsArray() {
		return nil, errors.NewValidationError("item path does not select an array").WithField(path)
	}

	elems := arr.Array()
	items := make([]T, 0, len(elems))
	for i, el := range elems {
		item, err := decode(el)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		items = append(items, item)
	}
	return items, nil
}
