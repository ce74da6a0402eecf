package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/feedview/internal/app"
	"github.com/Iron-Ham/feedview/internal/metrics"
	"github.com/Iron-Ham/feedview/internal/tui/styles"
)

const defaultOpenWidth = 80

var openCmd = &cobra.Command{
	Use:   "open [path]",
	Short: "Render a view once and print it",
	Long: `Navigate to path (default: "/"), optionally load more pages of its feed,
print the rendered document and exit.

Examples:
  # Print the news view
  feedview open /news

  # Print discover with two extra pages
  feedview open /discover --pages 2

  # Include fetch and transition counters
  feedview open /live --metrics`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOpen,
}

var (
	openPages   int
	openWidth   int
	openMetrics bool
)

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().IntVarP(&openPages, "pages", "p", 0, "Extra feed pages to load after the first")
	openCmd.Flags().IntVarP(&openWidth, "width", "w", 0, "Render width (default: terminal width, or 80)")
	openCmd.Flags().BoolVar(&openMetrics, "metrics", false, "Print client metrics after the document")
}

func runOpen(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// A one-shot render announces synchronously and never refreshes.
	cfg.UI.AnnounceDelayMs = 0
	cfg.Feeds.LiveRefreshSeconds = 0

	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}

	start := cfg.RoutesDefault
	if len(args) == 1 {
		start = args[0]
	}

	c, err := app.New(cfg, logger, app.WithStart(start))
	if err != nil {
		return err
	}
	defer c.Close()

	startErr := c.Start(ctx)
	if startErr == nil {
		loadPages(cmd, c, openPages)
	}

	fmt.Fprintln(out, styles.Title.Render(c.Doc.Title()))
	fmt.Fprintln(out, c.Doc.Render(renderWidth()).Text)
	if a := c.Doc.Announcement(); a != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, styles.Announcement.Render(a))
	}
	if openMetrics {
		if err := writeMetrics(out); err != nil {
			return err
		}
	}
	return startErr
}

// writeMetrics dumps the client registry in the Prometheus text format.
func writeMetrics(out io.Writer) error {
	families, err := metrics.Registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(out)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}

// loadPages loads up to n more pages of the active feed, stopping at the
// end of the feed or the first failure.
func loadPages(cmd *cobra.Command, c *app.Context, n int) {
	f, ok := c.ActiveFeed()
	if !ok {
		return
	}
	for range n {
		items, err := f.LoadMore(cmd.Context())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "load more %s: %v\n", f.Feed(), err)
			return
		}
		if len(items) == 0 {
			return
		}
	}
}

func renderWidth() int {
	if openWidth > 0 {
		return openWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultOpenWidth
}
