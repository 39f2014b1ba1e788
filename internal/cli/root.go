package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yegors/narsim-bridge/internal/bridge"
	"github.com/yegors/narsim-bridge/internal/config"
	"github.com/yegors/narsim-bridge/internal/flights"
	"github.com/yegors/narsim-bridge/internal/proxy"
	"github.com/yegors/narsim-bridge/internal/storage/sqlite"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "narsim-bridge",
		Short: "Mirror NARSIM air traffic into a flight simulator",
		Long: `narsim-bridge reads the NARSIM truth stream, tracks every reported
flight and keeps one simulated aircraft object per flight in step with it.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to TOML config (defaults apply when empty)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewFeedCommand(opts))
	cmd.AddCommand(NewCheckConfigCommand(opts))

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default config: %w", err)
		}
		return &cfg, nil
	}
	return config.Load(path)
}

func newLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// pipeline is the engine and sequencer shared by run and replay
type pipeline struct {
	engine    *flights.Engine
	memory    *proxy.Memory
	sequencer *proxy.Sequencer
	journal   *sqlite.LifecycleStorage
	close     func()
}

func newPipeline(cfg *config.Config, log *logger.Logger) (*pipeline, error) {
	p := &pipeline{close: func() {}}

	var journal proxy.Journal
	if cfg.Storage.SQLitePath != "" {
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		storage, err := sqlite.NewLifecycleStorage(db, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		p.journal = storage
		p.close = func() { db.Close() }
		journal = journalAdapter{storage: storage}
		log.Info("Lifecycle journal enabled", logger.String("path", cfg.Storage.SQLitePath))
	}

	p.engine = flights.NewEngine(flights.Config{
		StaleTimeout:   cfg.Bridge.StaleTimeout(),
		PendingUpdates: flights.PendingPolicy(cfg.Bridge.PendingUpdates),
	}, log)
	p.memory = proxy.NewMemory()
	p.sequencer = proxy.NewSequencer(p.memory, p.engine, journal, proxy.Config{
		DefaultModel:        cfg.Proxy.DefaultModel,
		CallTimeout:         cfg.Proxy.CallTimeout(),
		OnGroundMaxSpeedKts: cfg.Proxy.OnGroundMaxSpeedKts,
		OnGroundMaxHeightFt: cfg.Proxy.OnGroundMaxHeightFt,
	}, log)

	return p, nil
}

func bridgeConfig(cfg *config.Config) bridge.Config {
	bc := bridge.Config{
		CycleInterval:    cfg.Bridge.CycleInterval(),
		ReadTimeout:      cfg.Narsim.ReadTimeout(),
		MaxReadsPerCycle: cfg.Narsim.MaxReadsPerCycle,
		MaxPartialBytes:  cfg.Narsim.MaxPartialBytes,
	}
	if cfg.Feeder.Enabled {
		bc.IgnoreCallsigns = []string{cfg.Feeder.Callsign}
	}
	return bc
}

// journalAdapter stores sequencer events as lifecycle records
type journalAdapter struct {
	storage *sqlite.LifecycleStorage
}

func (j journalAdapter) RecordEvent(event proxy.Event) error {
	record := &sqlite.LifecycleRecord{
		SessionID: event.SessionID,
		Callsign:  event.Callsign,
		Intent:    event.Intent,
		Outcome:   event.Outcome,
		Error:     event.Error,
		Latitude:  event.Latitude,
		Longitude: event.Longitude,
		Altitude:  event.AltitudeFt,
		Timestamp: event.Timestamp,
	}
	if event.ProxyID != nil {
		id := int64(*event.ProxyID)
		record.ProxyID = &id
	}
	_, err := j.storage.StoreEvent(record)
	return err
}
