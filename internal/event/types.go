package event

import "time"

// Type identifies an event kind. The set is closed: every value is declared here.
type Type int

const (
	// TypeAll is the wildcard used by SubscribeAll. It is never published.
	TypeAll Type = iota
	// RouteChanged is published when the router commits to a new path,
	// before the view content is swapped in.
	RouteChanged
	// ViewLoaded is published after a view's content is in place.
	ViewLoaded
	// ViewFailed is published when a view could not be retrieved.
	ViewFailed
	// FeedLoaded is published after a page of a feed was appended.
	FeedLoaded
	// FeedFailed is published when a feed loader returned an error.
	FeedFailed
	// HandlerFailed is published when a page hook or route handler failed.
	HandlerFailed
)

// String returns the dotted name used in logs.
func (t Type) String() string {
	switch t {
	case TypeAll:
		return "*"
	case RouteChanged:
		return "route.changed"
	case ViewLoaded:
		return "view.loaded"
	case ViewFailed:
		return "view.failed"
	case FeedLoaded:
		return "feed.loaded"
	case FeedFailed:
		return "feed.failed"
	case HandlerFailed:
		return "handler.failed"
	default:
		return "unknown"
	}
}

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns the event's kind. It must not depend on field
	// values so that a zero value reports the right type.
	EventType() Type

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// At carries the event time; embed it in concrete events.
type At struct {
	At time.Time
}

// Timestamp returns when the event occurred.
func (a At) Timestamp() time.Time { return a.At }

func now() At { return At{At: time.Now()} }

// RouteChangedEvent is the route-change notification consumed by nav
// highlighting, titles and counters.
type RouteChangedEvent struct {
	At
	Path   string
	ViewID string
}

// EventType implements Event.
func (RouteChangedEvent) EventType() Type { return RouteChanged }

// NewRouteChangedEvent creates a RouteChangedEvent.
func NewRouteChangedEvent(path, viewID string) RouteChangedEvent {
	return RouteChangedEvent{At: now(), Path: path, ViewID: viewID}
}

// ViewLoadedEvent reports a view whose content was swapped in.
type ViewLoadedEvent struct {
	At
	Path   string
	ViewID string
}

// EventType implements Event.
func (ViewLoadedEvent) EventType() Type { return ViewLoaded }

// NewViewLoadedEvent creates a ViewLoadedEvent.
func NewViewLoadedEvent(path, viewID string) ViewLoadedEvent {
	return ViewLoadedEvent{At: now(), Path: path, ViewID: viewID}
}

// ViewFailedEvent reports a view that could not be retrieved.
type ViewFailedEvent struct {
	At
	Path   string
	ViewID string
	Err    error
}

// EventType implements Event.
func (ViewFailedEvent) EventType() Type { return ViewFailed }

// NewViewFailedEvent creates a ViewFailedEvent.
func NewViewFailedEvent(path, viewID string, err error) ViewFailedEvent {
	return ViewFailedEvent{At: now(), Path: path, ViewID: viewID, Err: err}
}

// FeedLoadedEvent reports an appended feed page.
type FeedLoadedEvent struct {
	At
	Feed    string
	Added   int
	Total   int
	HasMore bool
}

// EventType implements Event.
func (FeedLoadedEvent) EventType() Type { return FeedLoaded }

// NewFeedLoadedEvent creates a FeedLoadedEvent.
func NewFeedLoadedEvent(feed string, added, total int, hasMore bool) FeedLoadedEvent {
	return FeedLoadedEvent{At: now(), Feed: feed, Added: added, Total: total, HasMore: hasMore}
}

// FeedFailedEvent reports a failed feed loader call.
type FeedFailedEvent struct {
	At
	Feed string
	Err  error
}

// EventType implements Event.
func (FeedFailedEvent) EventType() Type { return FeedFailed }

// NewFeedFailedEvent creates a FeedFailedEvent.
func NewFeedFailedEvent(feed string, err error) FeedFailedEvent {
	return FeedFailedEvent{At: now(), Feed: feed, Err: err}
}

// HandlerFailedEvent reports a failed page hook or route handler.
type HandlerFailedEvent struct {
	At
	Path   string
	ViewID string
	Err    error
}

// EventType implements Event.
func (HandlerFailedEvent) EventType() Type { return HandlerFailed }

// NewHandlerFailedEvent creates a HandlerFailedEvent.
func NewHandlerFailedEvent(path, viewID string, err error) HandlerFailedEvent {
	return HandlerFailedEvent{At: now(), Path: path, ViewID: viewID, Err: err}
}
