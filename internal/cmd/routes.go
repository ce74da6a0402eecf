package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/feedview/internal/app"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/pages"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the route table",
	Long:  `List each routed path, the view it renders and the feed its page module shows.`,
	Args:  cobra.NoArgs,
	RunE:  runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := app.New(cfg, logging.NopLogger())
	if err != nil {
		return err
	}
	defer c.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tVIEW\tFEED\t")
	for _, r := range c.Router.Routes() {
		feed := "-"
		if m, ok := c.Modules.New(r.ViewID); ok {
			if f, ok := m.(pages.Feeder); ok {
				feed = f.Feed()
			}
		}
		path := r.Path
		if path == cfg.RoutesDefault {
			path += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", path, r.ViewID, feed)
	}
	return w.Flush()
}
