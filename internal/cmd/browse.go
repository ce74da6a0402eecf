package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/feedview/internal/app"
	"github.com/Iron-Ham/feedview/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse [path]",
	Short: "Browse the feed interactively",
	Long: `Browse the feed in a full-screen terminal UI, starting at path (default: "/").

Logs go to feedview.log in logging.dir; see "feedview logs".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("browse needs a terminal; use 'feedview open' to print a view")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	start := cfg.RoutesDefault
	if len(args) == 1 {
		start = args[0]
	}

	c, err := app.New(cfg, logger, app.WithStart(start))
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("browse started", "start", start, "base_url", cfg.Server.BaseURL, "feeds_mode", cfg.Feeds.Mode)
	err = tui.New(cmd.Context(), c).Run()
	logger.Info("browse finished", "visits", c.Visits.Visits())
	return err
}
