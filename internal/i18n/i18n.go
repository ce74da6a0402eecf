// Package i18n holds the user-visible strings the router and page modules
// render: loading placeholders, the view error panel and live-region
// announcements.
package i18n

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// Message ids.
const (
	MsgLoading              = "Loading"
	MsgViewUnavailableTitle = "ViewUnavailableTitle"
	MsgViewUnavailable      = "ViewUnavailable"
	MsgErrorDetail          = "ErrorDetail"
	MsgNavigated            = "Navigated"
	MsgUnknownCard          = "UnknownCard"
	MsgWatching             = "Watching"
	MsgEndOfFeed            = "EndOfFeed"
	MsgFeedFailed           = "FeedFailed"
	MsgVisits               = "Visits"
	MsgSomethingWrong       = "SomethingWrong"
)

// Catalog localizes messages for one locale, falling back to English.
type Catalog struct {
	tag       language.Tag
	localizer *goi18n.Localizer
}

var (
	bundleOnce sync.Once
	bundle     *goi18n.Bundle
	bundleErr  error
)

func loadBundle() (*goi18n.Bundle, error) {
	bundleOnce.Do(func() {
		b := goi18n.NewBundle(language.English)
		b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
		files, err := fs.Glob(locales, "locales/*.toml")
		if err != nil {
			bundleErr = err
			return
		}
		for _, f := range files {
			if _, err := b.LoadMessageFileFS(locales, f); err != nil {
				bundleErr = err
				return
			}
		}
		bundle = b
	})
	return bundle, bundleErr
}

// New returns a catalog for locale. Unknown locales fall back to English.
func New(locale string) (*Catalog, error) {
	b, err := loadBundle()
	if err != nil {
		return nil, err
	}
	tag, _ := language.MatchStrings(language.NewMatcher(b.LanguageTags()), locale)
	base, _ := tag.Base()
	return &Catalog{
		tag:       language.Make(base.String()),
		localizer: goi18n.NewLocalizer(b, locale, language.English.String()),
	}, nil
}

// Default returns the English catalog.
func Default() *Catalog {
	c, err := New("en")
	if err != nil {
		// The catalog is embedded; failing to parse it is a build defect.
		panic(err)
	}
	return c
}

// Locales lists the embedded locales.
func Locales() []string {
	files, _ := fs.Glob(locales, "locales/*.toml")
	out := make([]string, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".toml")
		out = append(out, strings.TrimPrefix(name, "active."))
	}
	sort.Strings(out)
	return out
}

// Tag returns the matched language.
func (c *Catalog) Tag() language.Tag {
	return c.tag
}

// T localizes id with data. A missing message returns id.
func (c *Catalog) T(id string, data map[string]any) string {
	s, err := c.localizer.Localize(&goi18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return s
}

// N localizes a plural message for count.
func (c *Catalog) N(id string, count int) string {
	s, err := c.localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: map[string]any{"Count": count},
		PluralCount:  count,
	})
	if err != nil {
		return id
	}
	return s
}

// Loading is the placeholder shown while a view is fetched.
func (c *Catalog) Loading(viewID string) string {
	return c.T(MsgLoading, map[string]any{"View": viewID})
}

// ErrorPanel is the inline panel shown when a view cannot be loaded.
func (c *Catalog) ErrorPanel(viewID string, err error) string {
	lines := []string{
		c.T(MsgViewUnavailableTitle, nil),
		c.T(MsgViewUnavailable, map[string]any{"View": viewID}),
	}
	if err != nil {
		lines = append(lines, c.T(MsgErrorDetail, map[string]any{"Error": err.Error()}))
	}
	return strings.Join(lines, "\n")
}

// Unavailable is the live-region announcement for a view that could not
// be loaded. It carries the error panel's heading and summary.
func (c *Catalog) Unavailable(viewID string) string {
	return c.T(MsgViewUnavailableTitle, nil) + ". " + c.T(MsgViewUnavailable, map[string]any{"View": viewID})
}

// Navigated is the live-region announcement after a route change.
func (c *Catalog) Navigated(title string) string {
	return c.T(MsgNavigated, map[string]any{"Title": title})
}

// Title turns a view id into a page title.
func Title(viewID string) string {
	if viewID == "" {
		return ""
	}
	words := strings.FieldsFunc(viewID, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "ai" {
			words[i] = "AI"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
