package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/narsim-bridge/internal/api"
	"github.com/yegors/narsim-bridge/internal/bridge"
	"github.com/yegors/narsim-bridge/internal/transport"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// NewRunCommand creates the run command
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to NARSIM and bridge traffic until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd.Context(), rootOpts)
		},
	}
}

func runBridge(ctx context.Context, opts *RootOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.close()

	conn := transport.NewClient(cfg.Narsim.Address(), cfg.Narsim.DialTimeout(), cfg.Narsim.ReadBufferBytes, log)
	if err := conn.Dial(ctx); err != nil {
		return err
	}
	defer conn.Close()

	service := bridge.NewService(conn, p.engine, p.sequencer, bridgeConfig(cfg), log)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return service.Run(egCtx)
	})

	if cfg.Feeder.Enabled {
		own := newFeeder(cfg.Feeder, conn, 0, log)
		eg.Go(func() error {
			return own.Run(egCtx)
		})
	}

	if cfg.Server.Enabled {
		var events api.EventStore
		if p.journal != nil {
			events = p.journal
		}
		router := api.NewRouter(p.engine, service, events, cfg, log)
		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		eg.Go(func() error {
			log.Info("Status API listening", logger.String("addr", cfg.Server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status API failed: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := eg.Wait(); err != nil {
		log.Error("Bridge exited with error", logger.Error(err))
		return err
	}
	log.Info("Bridge exited")
	return nil
}
