package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "views.retries")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateViews()...)
	errors = append(errors, c.validateRoutes()...)
	errors = append(errors, c.validateFeeds()...)
	errors = append(errors, c.validateUI()...)
	errors = append(errors, c.validateServe()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "server.base_url",
				Value:   c.Server.BaseURL,
				Message: "must be an absolute http or https URL",
			})
		}
	}

	if strings.ContainsRune(c.Server.ContentDir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "server.content_dir",
			Value:   c.Server.ContentDir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateViews validates the ViewsConfig
func (c *Config) validateViews() []ValidationError {
	var errors []ValidationError

	const maxRetries = 10
	if c.Views.Retries < 0 || c.Views.Retries > maxRetries {
		errors = append(errors, ValidationError{
			Field:   "views.retries",
			Value:   c.Views.Retries,
			Message: fmt.Sprintf("must be between 0 and %d", maxRetries),
		})
	}

	if c.Views.TimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "views.timeout_ms",
			Value:   c.Views.TimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Views.BackoffMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "views.backoff_ms",
			Value:   c.Views.BackoffMs,
			Message: "must be non-negative",
		})
	}

	if !strings.Contains(c.Views.PathTemplate, "{view}") {
		errors = append(errors, ValidationError{
			Field:   "views.path_template",
			Value:   c.Views.PathTemplate,
			Message: "must contain the {view} placeholder",
		})
	}

	if c.Views.Prefetch < 0 {
		errors = append(errors, ValidationError{
			Field:   "views.prefetch",
			Value:   c.Views.Prefetch,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateRoutes validates the route table and its default
func (c *Config) validateRoutes() []ValidationError {
	var errors []ValidationError

	if len(c.Routes) == 0 {
		errors = append(errors, ValidationError{
			Field:   "routes",
			Value:   c.Routes,
			Message: "at least one route is required",
		})
		return errors
	}

	known := make(map[string]bool, len(c.Routes))
	for i, r := range c.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if !strings.HasPrefix(r.Path, "/") {
			errors = append(errors, ValidationError{
				Field:   field + ".path",
				Value:   r.Path,
				Message: "must start with /",
			})
		}
		if r.View == "" || strings.ContainsAny(r.View, "/\\ ") {
			errors = append(errors, ValidationError{
				Field:   field + ".view",
				Value:   r.View,
				Message: "must be a non-empty identifier without slashes or spaces",
			})
		}
		if known[r.Path] {
			errors = append(errors, ValidationError{
				Field:   field + ".path",
				Value:   r.Path,
				Message: "duplicate route path",
			})
		}
		known[r.Path] = true
	}

	if !known[c.RoutesDefault] {
		errors = append(errors, ValidationError{
			Field:   "routes_default",
			Value:   c.RoutesDefault,
			Message: "must name a path in routes",
		})
	}

	return errors
}

// validateFeeds validates the FeedsConfig
func (c *Config) validateFeeds() []ValidationError {
	var errors []ValidationError

	const maxPageSize = 200
	if c.Feeds.PageSize < 1 || c.Feeds.PageSize > maxPageSize {
		errors = append(errors, ValidationError{
			Field:   "feeds.page_size",
			Value:   c.Feeds.PageSize,
			Message: fmt.Sprintf("must be between 1 and %d", maxPageSize),
		})
	}

	if !slices.Contains(ValidFeedModes(), c.Feeds.Mode) {
		errors = append(errors, ValidationError{
			Field:   "feeds.mode",
			Value:   c.Feeds.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFeedModes(), ", ")),
		})
	}

	if c.Feeds.Mode == FeedModeStatic && !strings.Contains(c.Feeds.DataPathTemplate, "{feed}") {
		errors = append(errors, ValidationError{
			Field:   "feeds.data_path_template",
			Value:   c.Feeds.DataPathTemplate,
			Message: "must contain the {feed} placeholder",
		})
	}

	if c.Feeds.LiveRefreshSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "feeds.live_refresh_seconds",
			Value:   c.Feeds.LiveRefreshSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateUI validates the UIConfig
func (c *Config) validateUI() []ValidationError {
	var errors []ValidationError

	if c.UI.Locale == "" {
		errors = append(errors, ValidationError{
			Field:   "ui.locale",
			Value:   c.UI.Locale,
			Message: "must not be empty",
		})
	}

	const minSidebar, maxSidebar = 10, 60
	if c.UI.SidebarWidth < minSidebar || c.UI.SidebarWidth > maxSidebar {
		errors = append(errors, ValidationError{
			Field:   "ui.sidebar_width",
			Value:   c.UI.SidebarWidth,
			Message: fmt.Sprintf("must be between %d and %d", minSidebar, maxSidebar),
		})
	}

	if c.UI.AnnounceDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "ui.announce_delay_ms",
			Value:   c.UI.AnnounceDelayMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateServe validates the ServeConfig
func (c *Config) validateServe() []ValidationError {
	var errors []ValidationError

	if c.Serve.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "serve.addr",
			Value:   c.Serve.Addr,
			Message: "must not be empty",
		})
	}

	if c.Serve.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "serve.rate_limit",
			Value:   c.Serve.RateLimit,
			Message: "must be non-negative",
		})
	}

	if c.Serve.RateLimit > 0 && c.Serve.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "serve.burst",
			Value:   c.Serve.Burst,
			Message: "must be at least 1 when rate_limit is set",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
