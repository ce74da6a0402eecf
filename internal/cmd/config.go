package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/feedview/internal/config"
	"github.com/Iron-Ham/feedview/internal/i18n"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify feedview configuration",
	Long: `View or modify feedview configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  feedview config set feeds.page_size 20
  feedview config set server.base_url http://127.0.0.1:8080
  feedview config set ui.locale es

Valid keys:
  server.base_url            - Content server URL (empty = local content)
  server.content_dir         - Content directory (empty = built-in content)
  views.retries              - Retries after the first view fetch attempt
  views.timeout_ms           - Per-attempt view fetch timeout
  views.prefetch             - Concurrent view prefetches at startup (0 = off)
  feeds.page_size            - Items per feed page
  feeds.mode                 - Feed loader: static, remote
  feeds.live_refresh_seconds - Live view refresh period (0 = off)
  ui.locale                  - Message language: en, es
  ui.sidebar_width           - Sidebar width in columns
  ui.announce_delay_ms       - Route announcement debounce
  serve.addr                 - Address for "feedview serve"
  serve.watch                - Reload changed feed documents (true/false)
  logging.level              - debug, info, warn, error`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/feedview/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// settableKeys maps each settable key to its value kind.
var settableKeys = map[string]string{
	"server.base_url":            "string",
	"server.content_dir":         "string",
	"views.retries":              "int",
	"views.timeout_ms":           "int",
	"views.prefetch":             "int",
	"feeds.page_size":            "int",
	"feeds.mode":                 "string",
	"feeds.live_refresh_seconds": "int",
	"ui.locale":                  "string",
	"ui.sidebar_width":           "int",
	"ui.announce_delay_ms":       "int",
	"serve.addr":                 "string",
	"serve.watch":                "bool",
	"logging.level":              "string",
}

// parseSetting validates value for key and returns it typed.
func parseSetting(key, value string) (any, error) {
	kind, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'feedview config set --help' to see valid keys", key)
	}

	switch kind {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return n, nil
	}

	switch key {
	case "feeds.mode":
		if !slices.Contains(config.ValidFeedModes(), value) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidFeedModes(), ", "))
		}
	case "ui.locale":
		if !slices.Contains(i18n.Locales(), value) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(i18n.Locales(), ", "))
		}
	case "logging.level":
		if !slices.Contains(config.ValidLogLevels(), strings.ToLower(value)) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		value = strings.ToLower(value)
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	key := args[0]

	typedValue, err := parseSetting(key, args[1])
	if err != nil {
		return err
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

const configTemplate = `# feedview configuration

# Where view templates and feed data come from
server:
  # Content server URL; empty reads content_dir or the built-in content
  base_url: ""
  # Directory with views/ and data/ subdirectories
  content_dir: ""

# View retrieval
views:
  # Retries after the first attempt
  retries: 2
  # Per-attempt timeout in milliseconds
  timeout_ms: 5000
  # Initial wait between attempts in milliseconds
  backoff_ms: 200
  # Resource path for a view; {view} is replaced with the view id
  path_template: /views/{view}.txt
  # Concurrent view prefetches at startup (0 = disabled)
  prefetch: 0

# Path that unknown paths fall back to
routes_default: /

# Feed loading
feeds:
  # Items per page
  page_size: 10
  # static pages a JSON document client-side; remote asks the server per page
  mode: static
  # Resource path for a feed document; {feed} is replaced with the feed name
  data_path_template: /data/{feed}.json
  # Live view refresh period in seconds (0 = disabled)
  live_refresh_seconds: 30

# Terminal UI
ui:
  # Message language: en, es
  locale: en
  sidebar_width: 18
  # Debounce for route announcements in milliseconds
  announce_delay_ms: 150

# Development content server ("feedview serve")
serve:
  addr: 127.0.0.1:8080
  # Requests per second per client (0 = unlimited)
  rate_limit: 20
  burst: 40
  # Reload feed documents when they change on disk
  watch: true

logging:
  # debug, info, warn, error
  level: info
  # Directory for feedview.log; empty uses the state directory
  dir: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'feedview config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize feedview's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: FEEDVIEW_* (e.g., FEEDVIEW_FEEDS_PAGE_SIZE)")

	return nil
}
