package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{
			name:      "relative base url",
			mutate:    func(c *Config) { c.Server.BaseURL = "localhost:8080" },
			wantField: "server.base_url",
		},
		{
			name:      "negative retries",
			mutate:    func(c *Config) { c.Views.Retries = -1 },
			wantField: "views.retries",
		},
		{
			name:      "too many retries",
			mutate:    func(c *Config) { c.Views.Retries = 11 },
			wantField: "views.retries",
		},
		{
			name:      "zero timeout",
			mutate:    func(c *Config) { c.Views.TimeoutMs = 0 },
			wantField: "views.timeout_ms",
		},
		{
			name:      "negative backoff",
			mutate:    func(c *Config) { c.Views.BackoffMs = -5 },
			wantField: "views.backoff_ms",
		},
		{
			name:      "path template without placeholder",
			mutate:    func(c *Config) { c.Views.PathTemplate = "/views/home.txt" },
			wantField: "views.path_template",
		},
		{
			name:      "route without leading slash",
			mutate:    func(c *Config) { c.Routes = append(c.Routes, RouteConfig{Path: "dm", View: "dm"}) },
			wantField: "path",
		},
		{
			name:      "route with empty view",
			mutate:    func(c *Config) { c.Routes = append(c.Routes, RouteConfig{Path: "/dm"}) },
			wantField: "view",
		},
		{
			name:      "duplicate route path",
			mutate:    func(c *Config) { c.Routes = append(c.Routes, RouteConfig{Path: "/news", View: "other"}) },
			wantField: "path",
		},
		{
			name:      "no routes",
			mutate:    func(c *Config) { c.Routes = nil },
			wantField: "routes",
		},
		{
			name:      "default not in table",
			mutate:    func(c *Config) { c.RoutesDefault = "/nowhere" },
			wantField: "routes_default",
		},
		{
			name:      "page size zero",
			mutate:    func(c *Config) { c.Feeds.PageSize = 0 },
			wantField: "feeds.page_size",
		},
		{
			name:      "unknown feed mode",
			mutate:    func(c *Config) { c.Feeds.Mode = "websocket" },
			wantField: "feeds.mode",
		},
		{
			name:      "static mode without feed placeholder",
			mutate:    func(c *Config) { c.Feeds.DataPathTemplate = "/data/all.json" },
			wantField: "feeds.data_path_template",
		},
		{
			name:      "narrow sidebar",
			mutate:    func(c *Config) { c.UI.SidebarWidth = 5 },
			wantField: "ui.sidebar_width",
		},
		{
			name:      "empty locale",
			mutate:    func(c *Config) { c.UI.Locale = "" },
			wantField: "ui.locale",
		},
		{
			name:      "rate limit without burst",
			mutate:    func(c *Config) { c.Serve.Burst = 0 },
			wantField: "serve.burst",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Logging.Level = "trace" },
			wantField: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if strings.HasSuffix(e.Field, tt.wantField) {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidate_RemoteModeIgnoresDataTemplate(t *testing.T) {
	cfg := Default()
	cfg.Feeds.Mode = FeedModeRemote
	cfg.Feeds.DataPathTemplate = ""

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := ValidationErrors(nil).Error(); got != "" {
			t.Errorf("Error() = %q, want empty", got)
		}
	})

	t.Run("single", func(t *testing.T) {
		errs := ValidationErrors{{Field: "views.retries", Value: -1, Message: "must be between 0 and 10"}}
		want := "views.retries: must be between 0 and 10 (got: -1)"
		if got := errs.Error(); got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("multiple", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "a", Value: 1, Message: "bad"},
			{Field: "b", Value: 2, Message: "worse"},
		}
		got := errs.Error()
		if !strings.HasPrefix(got, "2 validation errors:") {
			t.Errorf("Error() = %q", got)
		}
		if !strings.Contains(got, "1. a: bad") || !strings.Contains(got, "2. b: worse") {
			t.Errorf("Error() = %q", got)
		}
	})
}
