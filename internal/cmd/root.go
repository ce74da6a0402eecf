package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/feedview/internal/config"
	"github.com/Iron-Ham/feedview/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "feedview",
	Short: "Terminal client for the One World feed",
	Long: `feedview renders the One World feed in the terminal: a sidebar of views,
cards that load as you scroll, and back/forward history.

View templates and feed data come from a content server (server.base_url),
a content directory (server.content_dir), or the content built into the
binary. "feedview serve" runs a content server for development.`,
	SilenceUsage: true,
}

// Execute runs the root command under ctx
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/feedview/config.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "content server URL (overrides server.base_url)")
	rootCmd.PersistentFlags().String("content-dir", "", "content directory (overrides server.content_dir)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("server.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("server.content_dir", rootCmd.PersistentFlags().Lookup("content-dir"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FEEDVIEW")
	// Replace dots with underscores for nested keys in env vars
	// e.g., FEEDVIEW_FEEDS_PAGE_SIZE for feeds.page_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig returns the validated configuration.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// logDir is where browse writes feedview.log.
func logDir(cfg *config.Config) string {
	if cfg.Logging.Dir != "" {
		return cfg.Logging.Dir
	}
	return config.StateDir()
}

// newLogger returns a file logger in logDir for interactive commands and
// a stderr logger otherwise.
func newLogger(cfg *config.Config, toFile bool) (*logging.Logger, error) {
	if toFile {
		return logging.NewLogger(logDir(cfg), cfg.Logging.Level)
	}
	return logging.NewLogger("", cfg.Logging.Level)
}
