package router

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Iron-Ham/feedview/internal/errors"
)

// Route maps a path to a view id.
type Route struct {
	Path   string
	ViewID string
}

// Table is the static route table. Unknown paths resolve to the default
// route.
type Table struct {
	routes      []Route
	byPath      map[string]string
	defaultPath string
}

// NewTable builds a table. defaultPath must be one of the routes.
func NewTable(routes []Route, defaultPath string) (*Table, error) {
	t := &Table{byPath: make(map[string]string, len(routes))}
	for _, r := range routes {
		p := Normalize(r.Path)
		if _, dup := t.byPath[p]; dup {
			return nil, errors.NewValidationError("duplicate route").WithField("path").WithValue(p)
		}
		if r.ViewID == "" {
			return nil, errors.NewValidationError("route has no view").WithField("path").WithValue(p)
		}
		t.byPath[p] = r.ViewID
		t.routes = append(t.routes, Route{Path: p, ViewID: r.ViewID})
	}
	def := Normalize(defaultPath)
	if _, ok := t.byPath[def]; !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("default route %q is not in the table", def)).
			WithField("default").WithValue(def)
	}
	t.defaultPath = def
	return t, nil
}

// Resolve returns the route for p. ok is false when p fell back to the
// default route.
func (t *Table) Resolve(p string) (route Route, ok bool) {
	n := Normalize(p)
	if view, found := t.byPath[n]; found {
		return Route{Path: n, ViewID: view}, true
	}
	return Route{Path: t.defaultPath, ViewID: t.byPath[t.defaultPath]}, false
}

// Routes returns the table in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Default returns the default route.
func (t *Table) Default() Route {
	return Route{Path: t.defaultPath, ViewID: t.byPath[t.defaultPath]}
}

// Normalize strips the query and fragment, cleans the path and removes a
// trailing slash.
func Normalize(p string) string {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
