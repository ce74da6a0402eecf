package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete feedview configuration
type Config struct {
	Server        ServerConfig  `mapstructure:"server" yaml:"server"`
	Views         ViewsConfig   `mapstructure:"views" yaml:"views"`
	Routes        []RouteConfig `mapstructure:"routes" yaml:"routes"`
	RoutesDefault string        `mapstructure:"routes_default" yaml:"routes_default"`
	Feeds         FeedsConfig   `mapstructure:"feeds" yaml:"feeds"`
	UI            UIConfig      `mapstructure:"ui" yaml:"ui"`
	Serve         ServeConfig   `mapstructure:"serve" yaml:"serve"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig tells the client where view templates and feed data live.
type ServerConfig struct {
	// BaseURL is the content server root. Empty means read ContentDir directly.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// ContentDir is a directory with views/ and data/ subdirectories.
	// Empty means the content embedded in the binary.
	ContentDir string `mapstructure:"content_dir" yaml:"content_dir"`
}

// ViewsConfig controls view retrieval
type ViewsConfig struct {
	// Retries is the number of retries after the first attempt (default: 2)
	Retries int `mapstructure:"retries" yaml:"retries"`
	// TimeoutMs bounds each attempt (default: 5000)
	TimeoutMs int `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	// BackoffMs is the initial wait between attempts (default: 200)
	BackoffMs int `mapstructure:"backoff_ms" yaml:"backoff_ms"`
	// PathTemplate maps a view id to a resource path; {view} is replaced
	PathTemplate string `mapstructure:"path_template" yaml:"path_template"`
	// Prefetch is the number of concurrent prefetches at startup (0 = disabled)
	Prefetch int `mapstructure:"prefetch" yaml:"prefetch"`
}

// RouteConfig is one entry of the static route table
type RouteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	View string `mapstructure:"view" yaml:"view"`
}

// FeedsConfig controls feed loading
type FeedsConfig struct {
	// PageSize is the number of items requested per page (default: 10)
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
	// Mode selects the loader: "static" pages a JSON document client-side,
	// "remote" asks the server for each page.
	Mode string `mapstructure:"mode" yaml:"mode"`
	// DataPathTemplate maps a feed name to its JSON document; {feed} is replaced
	DataPathTemplate string `mapstructure:"data_path_template" yaml:"data_path_template"`
	// LiveRefreshSeconds is the live view refresh period (0 = disabled)
	LiveRefreshSeconds int `mapstructure:"live_refresh_seconds" yaml:"live_refresh_seconds"`
}

// UIConfig controls the terminal UI
type UIConfig struct {
	// Locale selects the message catalog (default: "en")
	Locale string `mapstructure:"locale" yaml:"locale"`
	// SidebarWidth is the width of the navigation sidebar in columns
	SidebarWidth int `mapstructure:"sidebar_width" yaml:"sidebar_width"`
	// AnnounceDelayMs debounces route announcements (default: 150)
	AnnounceDelayMs int `mapstructure:"announce_delay_ms" yaml:"announce_delay_ms"`
}

// ServeConfig controls the development content server
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// RateLimit is requests per second per client (0 = unlimited)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
	// Watch reloads data files when they change on disk
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where browse sessions write their log file.
	// Empty means StateDir().
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Feed loader modes
const (
	FeedModeStatic = "static"
	FeedModeRemote = "remote"
)

// DefaultRoutes returns the built-in route table.
func DefaultRoutes() []RouteConfig {
	return []RouteConfig{
		{Path: "/", View: "home"},
		{Path: "/home", View: "home"},
		{Path: "/discover", View: "discover"},
		{Path: "/news", View: "news"},
		{Path: "/social", View: "social"},
		{Path: "/live", View: "live"},
		{Path: "/music", View: "music"},
		{Path: "/podcasts", View: "podcasts"},
		{Path: "/profile", View: "profile"},
		{Path: "/badges", View: "badges"},
		{Path: "/ai", View: "ai"},
		{Path: "/settings", View: "settings"},
	}
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{},
		Views: ViewsConfig{
			Retries:      2,
			TimeoutMs:    5000,
			BackoffMs:    200,
			PathTemplate: "/views/{view}.txt",
			Prefetch:     0,
		},
		Routes:        DefaultRoutes(),
		RoutesDefault: "/",
		Feeds: FeedsConfig{
			PageSize:           10,
			Mode:               FeedModeStatic,
			DataPathTemplate:   "/data/{feed}.json",
			LiveRefreshSeconds: 30,
		},
		UI: UIConfig{
			Locale:          "en",
			SidebarWidth:    18,
			AnnounceDelayMs: 150,
		},
		Serve: ServeConfig{
			Addr:      "127.0.0.1:8080",
			RateLimit: 20,
			Burst:     40,
			Watch:     true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Timeout returns the per-attempt timeout as a time.Duration
func (c *ViewsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Backoff returns the initial retry interval as a time.Duration
func (c *ViewsConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}

// Attempts returns the total number of attempts per view
func (c *ViewsConfig) Attempts() int {
	return c.Retries + 1
}

// LiveRefresh returns the live refresh period (0 means disabled)
func (c *FeedsConfig) LiveRefresh() time.Duration {
	return time.Duration(c.LiveRefreshSeconds) * time.Second
}

// AnnounceDelay returns the announcement debounce as a time.Duration
func (c *UIConfig) AnnounceDelay() time.Duration {
	return time.Duration(c.AnnounceDelayMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaultsOn(viper.GetViper())
}

func setDefaultsOn(v *viper.Viper) {
	defaults := Default()

	// Server defaults
	v.SetDefault("server.base_url", defaults.Server.BaseURL)
	v.SetDefault("server.content_dir", defaults.Server.ContentDir)

	// View defaults
	v.SetDefault("views.retries", defaults.Views.Retries)
	v.SetDefault("views.timeout_ms", defaults.Views.TimeoutMs)
	v.SetDefault("views.backoff_ms", defaults.Views.BackoffMs)
	v.SetDefault("views.path_template", defaults.Views.PathTemplate)
	v.SetDefault("views.prefetch", defaults.Views.Prefetch)

	// Route defaults
	v.SetDefault("routes", defaults.Routes)
	v.SetDefault("routes_default", defaults.RoutesDefault)

	// Feed defaults
	v.SetDefault("feeds.page_size", defaults.Feeds.PageSize)
	v.SetDefault("feeds.mode", defaults.Feeds.Mode)
	v.SetDefault("feeds.data_path_template", defaults.Feeds.DataPathTemplate)
	v.SetDefault("feeds.live_refresh_seconds", defaults.Feeds.LiveRefreshSeconds)

	// UI defaults
	v.SetDefault("ui.locale", defaults.UI.Locale)
	v.SetDefault("ui.sidebar_width", defaults.UI.SidebarWidth)
	v.SetDefault("ui.announce_delay_ms", defaults.UI.AnnounceDelayMs)

	// Serve defaults
	v.SetDefault("serve.addr", defaults.Serve.Addr)
	v.SetDefault("serve.rate_limit", defaults.Serve.RateLimit)
	v.SetDefault("serve.burst", defaults.Serve.Burst)
	v.SetDefault("serve.watch", defaults.Serve.Watch)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v and validates it
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "feedview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".feedview"
	}
	return filepath.Join(home, ".config", "feedview")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns where browse sessions keep their log file
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "feedview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".feedview"
	}
	return filepath.Join(home, ".local", "state", "feedview")
}

// ValidFeedModes returns the list of valid feed loader modes
func ValidFeedModes() []string {
	return []string{FeedModeStatic, FeedModeRemote}
}
