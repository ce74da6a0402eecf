package pages

import "time"

// FeedViews are the views backed by a feed of the same name.
var FeedViews = []string{"home", "discover", "news", "social", "podcasts"}

// Options configures Defaults.
type Options struct {
	LiveRefresh time.Duration
	Visits      VisitCounter
}

// Defaults returns the registry for the stock views.
func Defaults(deps Deps, opts Options) *Registry {
	deps = deps.withDefaults()
	r := NewRegistry()
	for _, name := range FeedViews {
		r.Register(name, FeedFactory(name, deps))
	}
	r.Register("music", func() Module {
		return &MusicModule{FeedModule: NewFeedModule("music", deps)}
	})
	r.Register("live", func() Module {
		return NewLiveModule("live", opts.LiveRefresh, deps)
	})
	r.Register("profile", func() Module {
		return ProfileModule{Profile: DefaultProfile}
	})
	r.Register("badges", func() Module {
		return BadgesModule{Counter: opts.Visits, Catalog: deps.Catalog}
	})
	r.Register("settings", Static("settings"))
	r.Register("ai", Static("ai"))
	return r
}
