package pages

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/feedview/internal/dom"
	"github.com/Iron-Ham/feedview/internal/i18n"
)

// Genres are the filters shown above the music feed.
var Genres = []string{"All", "Afrobeats", "Pop", "Hip-Hop", "Electronic", "Classical", "Jazz", "Rock"}

// MusicModule is the music feed plus its genre filter line.
type MusicModule struct {
	*FeedModule
}

// Setup renders the genre filter, then the feed.
func (m *MusicModule) Setup(ctx context.Context, page Page) error {
	if r := page.Doc.Region("music-genres"); r != nil {
		labels := make([]string, len(Genres))
		for i, g := range Genres {
			labels[i] = g
			if i == 0 {
				labels[i] = "[" + g + "]"
			}
		}
		r.Set(dom.Text(strings.Join(labels, "  ")))
	}
	return m.FeedModule.Setup(ctx, page)
}

// Profile is the data shown on the profile view.
type Profile struct {
	DisplayName string
	Handle      string
	Bio         string
	Location    string
	Followers   int
	Following   int
	Posts       int
}

// DefaultProfile is shown until a profile source exists.
var DefaultProfile = Profile{
	DisplayName: "World Citizen",
	Handle:      "worldcitizen",
	Bio:         "Exploring One World Feed from every corner of the globe.",
	Location:    "Earth",
	Followers:   1204,
	Following:   348,
	Posts:       92,
}

// ProfileModule renders a Profile into the "profile" region.
type ProfileModule struct {
	Profile Profile
}

// Name implements Module.
func (ProfileModule) Name() string { return "profile" }

// Setup implements Setupper.
func (m ProfileModule) Setup(_ context.Context, page Page) error {
	r := page.Doc.Region("profile")
	if r == nil {
		return nil
	}
	p := m.Profile
	r.Set(
		dom.Text(fmt.Sprintf("%s  %s", Initials(p.DisplayName), p.DisplayName)),
		dom.Text("@"+p.Handle),
		dom.Text(p.Bio),
		dom.Text(fmt.Sprintf("%s followers · %s following · %s posts",
			FormatCount(p.Followers), FormatCount(p.Following), FormatCount(p.Posts))),
		dom.Text(p.Location),
	)
	return nil
}

// Initials returns up to two upper-case initials, "WC" for an empty name.
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "WC"
	}
	var b strings.Builder
	for _, w := range words[:min(2, len(words))] {
		b.WriteString(strings.ToUpper(string([]rune(w)[0])))
	}
	return b.String()
}

// FormatCount abbreviates large counts: 1204 is "1.2K".
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprint(n)
	}
}

// VisitCounter reports how often each view was visited.
type VisitCounter interface {
	Visits() map[string]int
}

// BadgesModule lists visit counts per view. Badge criteria are evaluated
// elsewhere; this module only shows the counters they read.
type BadgesModule struct {
	Counter VisitCounter
	Catalog *i18n.Catalog
}

// Name implements Module.
func (BadgesModule) Name() string { return "badges" }

// Setup implements Setupper.
func (m BadgesModule) Setup(_ context.Context, page Page) error {
	r := page.Doc.Region("badges")
	if r == nil || m.Counter == nil {
		return nil
	}
	catalog := m.Catalog
	if catalog == nil {
		catalog = i18n.Default()
	}
	visits := m.Counter.Visits()
	views := make([]string, 0, len(visits))
	for v := range visits {
		views = append(views, v)
	}
	slices.Sort(views)

	items := make([]dom.Item, 0, len(views))
	for _, v := range views {
		items = append(items, dom.Text(fmt.Sprintf("%-10s %s", i18n.Title(v), catalog.N(i18n.MsgVisits, visits[v]))))
	}
	r.Set(items...)
	return nil
}
