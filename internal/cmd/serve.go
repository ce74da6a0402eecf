package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development content server",
	Long: `Serve view templates and feed data over HTTP.

Content comes from --content-dir, or the content built into the binary.
Clients use it with server.base_url; with feeds.mode=remote they page
feeds through /api/feeds/{name}. Prometheus metrics are at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides serve.addr)")
	serveCmd.Flags().Bool("watch", true, "reload feed documents when they change on disk")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.watch", serveCmd.Flags().Lookup("watch"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), cfg.Logging.Level, true)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := server.New(server.Options{
		Addr:      cfg.Serve.Addr,
		Dir:       cfg.Server.ContentDir,
		RateLimit: cfg.Serve.RateLimit,
		Burst:     cfg.Serve.Burst,
		Watch:     cfg.Serve.Watch,
		PageSize:  cfg.Feeds.PageSize,
	}, logger)
	return s.Run(ctx)
}
