// Package card defines the feed item model and renders items as terminal
// cards.
package card

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/tidwall/gjson"
)

// Kind names a card layout.
type Kind string

// Card kinds understood by Render.
const (
	KindHero      Kind = "hero"
	KindMoment    Kind = "moment"
	KindText      Kind = "text"
	KindImageText Kind = "image_text"
	KindNews      Kind = "news"
	KindMusic     Kind = "music"
	KindWeather   Kind = "weather"
	KindLive      Kind = "live"
	KindTrending  Kind = "trending"
	KindHeadline  Kind = "headline"
)

// Kinds returns every known kind.
func Kinds() []Kind {
	return []Kind{
		KindHero, KindMoment, KindText, KindImageText, KindNews,
		KindMusic, KindWeather, KindLive, KindTrending, KindHeadline,
	}
}

// Known reports whether k has a dedicated layout.
func (k Kind) Known() bool {
	return slices.Contains(Kinds(), k)
}

// Card is one feed item.
type Card struct {
	ID      string
	Kind    Kind
	Source  string
	Time    string
	Title   string
	Summary string
	Image   string
	Avatar  string
	Tags    []string
	// Viewers is the audience size for live cards.
	Viewers int
	// Temperature is set on weather cards.
	Temperature string
}

// Decode builds a Card from one JSON object. The "type" field selects the
// kind; "text" is accepted as an alias of "summary".
func Decode(r gjson.Result) (Card, error) {
	if !r.IsObject() {
		return Card{}, errors.NewValidationError("card must be a JSON object").WithValue(r.Raw)
	}

	c := Card{
		ID:          r.Get("id").String(),
		Kind:        Kind(r.Get("type").String()),
		Source:      r.Get("source").String(),
		Time:        r.Get("time").String(),
		Title:       r.Get("title").String(),
		Summary:     r.Get("summary").String(),
		Image:       r.Get("image").String(),
		Avatar:      r.Get("avatar").String(),
		Viewers:     int(r.Get("viewers").Int()),
		Temperature: r.Get("temperature").String(),
	}
	if c.Kind == "" {
		c.Kind = KindText
	}
	if c.Summary == "" {
		c.Summary = r.Get("text").String()
	}
	for _, tag := range r.Get("tags").Array() {
		c.Tags = append(c.Tags, tag.String())
	}
	if c.Title == "" && c.Summary == "" {
		return Card{}, errors.NewValidationError("card has neither title nor text").WithField("id").WithValue(c.ID)
	}
	return c, nil
}

// Render draws the card in at most width columns.
func (c Card) Render(width int) string {
	if width < 12 {
		width = 12
	}
	box := width - styles.Card.GetHorizontalBorderSize()
	inner := width - styles.Card.GetHorizontalFrameSize()

	if !c.Kind.Known() {
		body := styles.CardMeta.Render(Truncate(fmt.Sprintf("Unknown card type: %s", c.Kind), inner))
		return styles.Card.Width(box).Render(body)
	}

	var lines []string
	lines = append(lines, c.header(inner))
	if c.Title != "" {
		title := styles.CardTitle
		if c.Kind == KindHero || c.Kind == KindHeadline {
			title = title.Foreground(styles.KindColor(string(c.Kind)))
		}
		lines = append(lines, title.Render(Truncate(c.Title, inner)))
	}
	if c.Summary != "" && c.Kind != KindHeadline {
		lines = append(lines, lipgloss.NewStyle().Width(inner).Render(c.Summary))
	}
	if c.Image != "" && (c.Kind == KindImageText || c.Kind == KindHero || c.Kind == KindMoment) {
		lines = append(lines, styles.CardMeta.Render(Truncate("[image] "+c.Image, inner)))
	}
	if extra := c.footer(); extra != "" {
		lines = append(lines, extra)
	}

	return styles.Card.
		BorderForeground(styles.KindColor(string(c.Kind))).
		Width(box).
		Render(strings.Join(lines, "\n"))
}

func (c Card) header(width int) string {
	source := c.Source
	if source == "" {
		source = "Global Source"
	}
	when := c.Time
	if when == "" {
		when = "Just now"
	}
	icon := lipgloss.NewStyle().Foreground(styles.KindColor(string(c.Kind))).Render(styles.KindIcon(string(c.Kind)))
	return icon + " " + styles.CardMeta.Render(Truncate(source+" · "+when, width-2))
}

func (c Card) footer() string {
	switch c.Kind {
	case KindLive:
		badge := styles.CardBadge.Background(styles.LiveColor).Render("LIVE")
		return badge + " " + styles.CardMeta.Render(fmt.Sprintf("%d watching", c.Viewers))
	case KindWeather:
		if c.Temperature != "" {
			return styles.Warning.Render(c.Temperature)
		}
	case KindTrending, KindNews:
		if len(c.Tags) > 0 {
			return styles.CardMeta.Render("#" + strings.Join(c.Tags, " #"))
		}
	}
	return ""
}

// RenderAll renders cards one after another.
func RenderAll(cards []Card, width int) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		parts = append(parts, c.Render(width))
	}
	return strings.Join(parts, "\n")
}

// Truncate shortens s to maxWidth visual columns, adding "…" when cut.
// ANSI escape sequences and wide characters are measured correctly.
func Truncate(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 1 {
		return "…"
	}
	return ansi.Truncate(s, maxWidth, "…")
}
