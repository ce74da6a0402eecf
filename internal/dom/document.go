// Package dom is the long-lived document views render into. Its content is
// replaced wholesale on each navigation; named regions inside the content
// hold feed items and the sentinels that drive infinite scroll.
//
// A view template is plain text. A line of the form
//
//	[[feed:home]]
//
// declares a region named "home" at that position.
package dom

import (
	"regexp"
	"strings"
	"sync"
)

var regionMarker = regexp.MustCompile(`^\s*\[\[feed:([A-Za-z0-9_-]+)\]\]\s*$`)

// Item is anything a region can render.
type Item interface {
	Render(width int) string
}

// Text is a plain-text Item.
type Text string

// Render implements Item.
func (t Text) Render(int) string { return string(t) }

// Sentinel is notified when its position in the document scrolls into or
// out of view.
type Sentinel interface {
	SetVisible(visible bool)
}

// Document holds the current view content, its regions, the page title and
// the live-region announcement.
type Document struct {
	mu           sync.Mutex
	content      string
	regions      map[string]*Region
	title        string
	announcement string
	version      uint64
	onChange     func()
}

// New creates an empty document.
func New() *Document {
	return &Document{regions: make(map[string]*Region)}
}

// OnChange registers fn to run after every mutation. fn runs on the
// mutating goroutine and must not block.
func (d *Document) OnChange(fn func()) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Replace swaps in new content. Regions declared by the old content are
// detached, so their sentinels never fire again.
func (d *Document) Replace(markup string) {
	d.mu.Lock()
	for _, r := range d.regions {
		r.detach()
	}
	d.content = markup
	d.regions = make(map[string]*Region)
	for _, line := range strings.Split(markup, "\n") {
		if m := regionMarker.FindStringSubmatch(line); m != nil {
			d.regions[m[1]] = &Region{name: m[1], doc: d}
		}
	}
	d.version++
	d.mu.Unlock()
	d.changed()
}

// Content returns the raw markup last passed to Replace.
func (d *Document) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

// Version increments on every Replace.
func (d *Document) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Region returns the region declared by the current content, or nil.
func (d *Document) Region(name string) *Region {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regions[name]
}

// Announce sets the live-region text.
func (d *Document) Announce(message string) {
	d.mu.Lock()
	d.announcement = message
	d.mu.Unlock()
	d.changed()
}

// Announcement returns the live-region text.
func (d *Document) Announcement() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.announcement
}

// SetTitle sets the page title.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
	d.changed()
}

// Title returns the page title.
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title
}

func (d *Document) changed() {
	d.mu.Lock()
	fn := d.onChange
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Layout is a rendered document plus the line of every attached sentinel.
type Layout struct {
	Text      string
	Lines     int
	sentinels []placedSentinel
}

type placedSentinel struct {
	line int
	s    Sentinel
}

// Render lays the document out for a given width.
func (d *Document) Render(width int) Layout {
	d.mu.Lock()
	content := d.content
	regions := make(map[string]*Region, len(d.regions))
	for k, v := range d.regions {
		regions[k] = v
	}
	d.mu.Unlock()

	var (
		out       []string
		sentinels []placedSentinel
	)
	for _, line := range strings.Split(content, "\n") {
		m := regionMarker.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		r := regions[m[1]]
		if r == nil {
			continue
		}
		items, sentinel := r.snapshot()
		for _, item := range items {
			out = append(out, strings.Split(item.Render(width), "\n")...)
		}
		if sentinel != nil {
			sentinels = append(sentinels, placedSentinel{line: len(out), s: sentinel})
		}
	}

	text := strings.Join(out, "\n")
	return Layout{Text: text, Lines: len(out), sentinels: sentinels}
}

// Reveal tells every sentinel whether it lies within the visible window of
// height lines starting at top. A sentinel just past the last item counts
// as visible when that line is inside the window or the window reaches the
// end of the document.
func (l Layout) Reveal(top, height int) {
	bottom := top + height
	for _, p := range l.sentinels {
		visible := p.line >= top && (p.line < bottom || bottom >= l.Lines)
		p.s.SetVisible(visible)
	}
}

// Sentinels returns the number of sentinels placed in the layout.
func (l Layout) Sentinels() int {
	return len(l.sentinels)
}
