// Package panel builds the side panel shown next to the home feed: a
// spotlight card, trending tags, city clocks and the first few feed cards
// as "Global Moments".
package panel

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata" // city clocks must not depend on the host zoneinfo

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/feedview/internal/card"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/tui/styles"
)

// RegionName is the document region the panel renders into.
const RegionName = "panel"

// Limits on each section.
const (
	MaxTrending = 5
	MaxCities   = 3
	MaxMoments  = 3
)

// Spotlight is the featured card at the top of the panel.
type Spotlight struct {
	Title    string
	Subtitle string
	Image    string
}

// City is a clock row. Temp is shown as-is; empty shows "--".
type City struct {
	Name     string
	Timezone string
	Temp     string
}

// DefaultSpotlight is featured until a spotlight source exists.
var DefaultSpotlight = Spotlight{
	Title:    "Festival of Lights",
	Subtitle: "Lanterns across Chiang Mai tonight",
	Image:    "/img/spotlight.jpg",
}

// DefaultCities are the clock rows.
var DefaultCities = []City{
	{Name: "New York", Timezone: "America/New_York", Temp: "18"},
	{Name: "London", Timezone: "Europe/London", Temp: "12"},
	{Name: "Tokyo", Timezone: "Asia/Tokyo", Temp: "22"},
}

// TagCount is one trending tag.
type TagCount struct {
	Tag   string
	Count int
}

// Clock is a city row resolved to a local time.
type Clock struct {
	City  string
	Local string
	Temp  string
}

// Moment is a feed card shown in the Global Moments strip.
type Moment struct {
	Label string
	Image string
}

// Panel is the built panel. It implements dom.Item.
type Panel struct {
	Spotlight *Spotlight
	Trending  []TagCount
	Clocks    []Clock
	Moments   []Moment
}

// Build assembles a panel from the feed's cards. A city whose timezone
// does not load is skipped and reported in the returned error; the rest
// of the panel is still built.
func Build(cards []card.Card, spot *Spotlight, cities []City, now time.Time) (Panel, error) {
	p := Panel{
		Spotlight: spot,
		Trending:  Trending(cards, MaxTrending),
		Moments:   Moments(cards, MaxMoments),
	}
	var errs []error
	for _, c := range cities[:min(MaxCities, len(cities))] {
		clock, err := LocalClock(c, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Clocks = append(p.Clocks, clock)
	}
	return p, errors.Join(errs...)
}

// Trending counts tags across cards and returns the n most used. Ties go
// to the tag seen first.
func Trending(cards []card.Card, n int) []TagCount {
	counts := make(map[string]int)
	var order []string
	for _, c := range cards {
		for _, tag := range c.Tags {
			tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
			if tag == "" {
				continue
			}
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	out := make([]TagCount, len(order))
	for i, tag := range order {
		out[i] = TagCount{Tag: tag, Count: counts[tag]}
	}
	slices.SortStableFunc(out, func(a, b TagCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out[:min(n, len(out))]
}

// LocalClock resolves a city's wall clock at now, e.g. "9:05 AM".
func LocalClock(c City, now time.Time) (Clock, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return Clock{}, errors.NewValidationError("unknown timezone").
			WithField(c.Name).WithValue(c.Timezone)
	}
	temp := c.Temp
	if temp == "" {
		temp = "--"
	}
	return Clock{City: c.Name, Local: now.In(loc).Format("3:04 PM"), Temp: temp}, nil
}

// Moments returns the first n cards as moments labelled by title, or by
// summary when a card has no title.
func Moments(cards []card.Card, n int) []Moment {
	out := make([]Moment, 0, min(n, len(cards)))
	for _, c := range cards[:min(n, len(cards))] {
		label := c.Title
		if label == "" {
			label = c.Summary
		}
		out = append(out, Moment{Label: label, Image: c.Image})
	}
	return out
}

var (
	sectionTitle = styles.Subtitle.Bold(true)
	tagStyle     = styles.Primary
	tempStyle    = styles.Secondary
)

// Render implements dom.Item.
func (p Panel) Render(width int) string {
	width = max(width, 16)
	inner := width - styles.Card.GetHorizontalFrameSize()
	var blocks []string

	if s := p.Spotlight; s != nil {
		body := lipgloss.JoinVertical(lipgloss.Left,
			styles.CardTitle.Render(card.Truncate(s.Title, inner)),
			styles.CardMeta.Render(card.Truncate(s.Subtitle, inner)),
		)
		blocks = append(blocks, styles.Card.Width(width-styles.Card.GetHorizontalBorderSize()).Render(body))
	}

	lines := []string{sectionTitle.Render("Trending")}
	for _, t := range p.Trending {
		lines = append(lines, row(tagStyle.Render("#"+t.Tag), fmt.Sprint(t.Count), width))
	}
	blocks = append(blocks, strings.Join(lines, "\n"))

	if len(p.Clocks) > 0 {
		lines = lines[:0]
		for _, c := range p.Clocks {
			lines = append(lines, row(c.City+"  "+styles.Muted.Render(c.Local), tempStyle.Render(c.Temp+"°"), width))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	lines = []string{sectionTitle.Render("Global Moments")}
	for _, m := range p.Moments {
		lines = append(lines, "▣ "+card.Truncate(m.Label, width-2))
	}
	blocks = append(blocks, strings.Join(lines, "\n"))

	return strings.Join(blocks, "\n\n")
}

// row places left and right at opposite ends of width columns.
func row(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	return left + strings.Repeat(" ", max(gap, 1)) + right
}
