// Package fetch retrieves text resources (view templates and feed data) by
// path, either from a content server over HTTP or from a filesystem.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/spf13/afero"
)

// maxBodyBytes caps a single resource body.
const maxBodyBytes = 8 << 20

// Fetcher retrieves the body of a resource identified by an absolute path
// such as "/views/home.txt". Implementations must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) (string, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, resource string) (string, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, resource string) (string, error) {
	return f(ctx, resource)
}

// StatusError reports a response outside the 2xx range.
// It matches errors.ErrBadStatus.
type StatusError struct {
	Resource string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.Resource, e.Code)
}

// Is reports whether target is errors.ErrBadStatus.
func (e *StatusError) Is(target error) bool {
	return target == errors.ErrBadStatus
}

// StatusCode returns the status carried by err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// HTTP fetches resources relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP creates an HTTP fetcher rooted at baseURL. A nil client uses a
// client with a 30s overall timeout; per-request deadlines come from ctx.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.NewValidationError("invalid base url").WithField("server.base_url").WithValue(baseURL).WithCause(err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.NewValidationError("base url must be absolute").WithField("server.base_url").WithValue(baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{base: u, client: client}, nil
}

// Fetch performs a GET and returns the body of a 2xx response.
func (h *HTTP) Fetch(ctx context.Context, resource string) (string, error) {
	ref, err := url.Parse(resource)
	if err != nil {
		return "", errors.NewValidationError("invalid resource").WithValue(resource).WithCause(err)
	}
	target := h.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", errors.Wrapf(err, "build request for %s", resource)
	}
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", contextErr(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", &StatusError{Resource: resource, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", contextErr(ctx, err)
	}
	return string(body), nil
}

// FS reads resources from a filesystem; "/views/home.txt" maps to
// root/views/home.txt. Missing files report a 404 StatusError so callers
// treat both fetchers alike.
type FS struct {
	fs   afero.Fs
	root string
}

// NewFS creates a filesystem fetcher.
func NewFS(fs afero.Fs, root string) *FS {
	return &FS{fs: fs, root: root}
}

// Fetch reads the file backing resource.
func (f *FS) Fetch(ctx context.Context, resource string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", contextErr(ctx, err)
	}
	if strings.ContainsAny(resource, "?#") {
		return "", errors.NewValidationError("filesystem resources take no query").WithValue(resource)
	}

	clean := path.Clean("/" + resource)
	name := path.Join(f.root, clean)

	data, err := afero.ReadFile(f.fs, name)
	if err != nil {
		exists, _ := afero.Exists(f.fs, name)
		if !exists {
			return "", &StatusError{Resource: resource, Code: http.StatusNotFound}
		}
		return "", errors.Wrapf(err, "read %s", resource)
	}
	if len(data) > maxBodyBytes {
		data = data[:maxBodyBytes]
	}
	return string(data), nil
}

// contextErr maps a transport error caused by ctx into the matching
// sentinel so callers can tell timeouts from cancellation.
func contextErr(ctx context.Context, err error) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return fmt.Errorf("%w: %w", errors.ErrTimeout, err)
	case context.Canceled:
		return fmt.Errorf("%w: %w", errors.ErrCanceled, err)
	default:
		return err
	}
}
