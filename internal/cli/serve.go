package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lesys-monitor/lesys/internal/config"
	"github.com/lesys-monitor/lesys/internal/errors"
	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/stream"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live snapshots over WebSocket and HTTP",
	Long: `Run the samplers and expose their output on a local HTTP server.

Endpoints:
  /ws          pushes {"type":"system"|"processes","data":...} on every tick
  /snapshot    the latest system snapshot
  /processes   process groups, e.g. /processes?sort=cpu&dir=desc&expand=chrome
  /processes/NAME  one group with its members, e.g. /processes/chrome

Examples:
  lesys serve
  lesys serve --addr 127.0.0.1:9000
  lesys serve --mock`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8787)")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, newSources(cfg, mockMode))
}

// serve runs the samplers and the stream server until ctx is cancelled or
// either of them fails.
func serve(ctx context.Context, cfg *config.Config, src sources) error {
	e := newEngine(ctx, cfg, src)
	srv := stream.NewServer(e.systemSlot, e.processSlot, stream.Options{
		DisplayLimit: cfg.DisplayLimit,
	}, logger.NewEnvLogger("[stream]"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.run(ctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(ctx, cfg.Serve.Addr); err != nil {
			return errors.WrapWithCode(err, errors.ErrServe,
				"Failed to serve on "+cfg.Serve.Addr,
				"Check the address is free, or pick another with --addr")
		}
		return nil
	})
	return g.Wait()
}
