package feeder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yegors/narsim-bridge/internal/narsim"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// Sink receives encoded documents bound for the range system
type Sink interface {
	Write(p []byte) (int, error)
}

// Config controls the own-ship feed
type Config struct {
	Callsign       string
	IdentifierCode string
	Interval       time.Duration
	// Limit stops Run after this many reports. Zero means unlimited.
	Limit int
}

// Feeder publishes the own-ship as truth documents so the range system can
// track it alongside its own traffic
type Feeder struct {
	telemetry Telemetry
	sink      Sink
	config    Config
	now       func() time.Time
	sent      atomic.Uint64
	logger    *logger.Logger
}

// New creates a feeder
func New(telemetry Telemetry, sink Sink, config Config, logger *logger.Logger) *Feeder {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	return &Feeder{
		telemetry: telemetry,
		sink:      sink,
		config:    config,
		now:       time.Now,
		logger:    logger.Named("feeder").WithCallsign(config.Callsign),
	}
}

// Sent returns the number of documents written so far
func (f *Feeder) Sent() uint64 {
	return f.sent.Load()
}

// FeedOnce samples the telemetry and writes one truth document
func (f *Feeder) FeedOnce(now time.Time) error {
	report, err := f.telemetry.Sample(now)
	if err != nil {
		return fmt.Errorf("failed to sample own-ship telemetry: %w", err)
	}
	report.Callsign = f.config.Callsign
	if f.config.IdentifierCode != "" {
		report.IdentifierCode = f.config.IdentifierCode
	}

	doc, err := narsim.EncodeTruth(report, narsim.OutboundRoot)
	if err != nil {
		return fmt.Errorf("failed to encode own-ship truth: %w", err)
	}
	if _, err := f.sink.Write(doc); err != nil {
		return fmt.Errorf("failed to send own-ship truth: %w", err)
	}

	f.sent.Add(1)
	f.logger.Debug("Sent own-ship truth",
		logger.Float64("latitude", report.Latitude),
		logger.Float64("longitude", report.Longitude),
		logger.Float64("altitude_ft", report.Altitude))
	return nil
}

// Run feeds immediately and then every Interval until ctx is canceled, the
// limit is reached or a write fails. A canceled context returns nil.
func (f *Feeder) Run(ctx context.Context) error {
	f.logger.Info("Starting own-ship feed",
		logger.Duration("interval", f.config.Interval),
		logger.Int("limit", f.config.Limit))

	ticker := time.NewTicker(f.config.Interval)
	defer ticker.Stop()

	for {
		if err := f.FeedOnce(f.now()); err != nil {
			f.logger.Error("Own-ship feed stopped", logger.Error(err))
			return err
		}
		if f.config.Limit > 0 && f.Sent() >= uint64(f.config.Limit) {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			f.logger.Info("Own-ship feed stopped", logger.Int64("sent", int64(f.Sent())))
			return nil
		}
	}

	f.logger.Info("Own-ship feed finished", logger.Int64("sent", int64(f.Sent())))
	return nil
}
