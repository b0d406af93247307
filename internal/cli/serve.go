package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"facilityops/internal/server"
)

func serveCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the customer provisioning HTTP API until interrupted.

Examples:
  # Serve on the configured address
  facilityops serve

  # Serve on a specific address
  facilityops serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config and PORT)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, addr string) error {
	a, logger, err := opts.openApp(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer a.Close()

	cfg := a.Config()
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if !opts.verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	h := server.NewHandler(a, server.Options{
		RequestTimeout: cfg.Server.RequestTimeoutDuration(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, logger)
	return server.Run(ctx, addr, h.Router(), cfg.Server.ShutdownTimeoutDuration(), logger)
}
