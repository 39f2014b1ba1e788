package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yegors/narsim-bridge/internal/config"
	"github.com/yegors/narsim-bridge/internal/feeder"
	"github.com/yegors/narsim-bridge/internal/narsim"
	"github.com/yegors/narsim-bridge/internal/transport"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// FeedOptions holds flags for the feed command
type FeedOptions struct {
	*RootOptions
	Count int
}

// NewFeedCommand creates the feed command
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Send the own-ship to NARSIM as truth reports",
		Long: `Feed connects to NARSIM and sends the own-ship configured in the [feeder]
section as a truth report at the feeder update frequency. The position is
dead-reckoned from the configured start along course and ground speed.

Examples:
  narsim-bridge feed --config bridge.toml
  narsim-bridge feed --config bridge.toml --count 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 0, "stop after this many reports (0 runs until interrupted)")

	return cmd
}

func runFeed(ctx context.Context, opts *FeedOptions) error {
	if opts.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", opts.Count)
	}
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Feeder.Callsign) == "" {
		return fmt.Errorf("feeder.callsign is required")
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := transport.NewClient(cfg.Narsim.Address(), cfg.Narsim.DialTimeout(), cfg.Narsim.ReadBufferBytes, log)
	if err := conn.Dial(ctx); err != nil {
		return err
	}
	defer conn.Close()

	return newFeeder(cfg.Feeder, conn, opts.Count, log).Run(ctx)
}

func newFeeder(cfg config.FeederConfig, sink feeder.Sink, limit int, log *logger.Logger) *feeder.Feeder {
	start := narsim.TruthReport{
		Latitude:     cfg.StartLatitude,
		Longitude:    cfg.StartLongitude,
		Altitude:     cfg.StartAltitudeFt,
		Height:       cfg.StartAltitudeFt,
		GroundSpeed:  cfg.GroundSpeedKts,
		Course:       cfg.CourseDeg,
		VerticalRate: cfg.VerticalRateMs,
	}
	return feeder.New(feeder.NewDeadReckoning(start, time.Now()), sink, feeder.Config{
		Callsign:       cfg.Callsign,
		IdentifierCode: cfg.IdentifierCode,
		Interval:       cfg.Interval(),
		Limit:          limit,
	}, log)
}
