package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yegors/narsim-bridge/internal/flights"
	"github.com/yegors/narsim-bridge/internal/narsim"
	"github.com/yegors/narsim-bridge/internal/proxy"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// Source yields raw stream bytes. An empty chunk with a nil error means
// nothing arrived before the timeout; any error ends the stream.
type Source interface {
	ReadChunk(timeout time.Duration) ([]byte, error)
}

// Config controls the cycle loop
type Config struct {
	CycleInterval    time.Duration
	ReadTimeout      time.Duration
	MaxReadsPerCycle int
	MaxPartialBytes  int
	// IgnoreCallsigns are reports never mirrored, such as the own-ship
	// this process feeds back to the range system
	IgnoreCallsigns []string
}

// Service drives the framer, decoder, engine and sequencer for one
// connection. The partial buffer belongs to the service and lives as long as
// the connection.
type Service struct {
	source    Source
	engine    *flights.Engine
	sequencer *proxy.Sequencer
	framer    narsim.Framer
	config    Config
	sessionID string
	partial   []byte
	now       func() time.Time
	stats     Stats
	mu        sync.RWMutex
	logger    *logger.Logger
}

// NewService creates a new bridge service with a fresh session id
func NewService(source Source, engine *flights.Engine, sequencer *proxy.Sequencer, config Config, logger *logger.Logger) *Service {
	if config.MaxReadsPerCycle <= 0 {
		config.MaxReadsPerCycle = 64
	}
	if config.CycleInterval <= 0 {
		config.CycleInterval = time.Second
	}
	sessionID := uuid.NewString()
	sequencer.SetSession(sessionID)

	return &Service{
		source:    source,
		engine:    engine,
		sequencer: sequencer,
		framer:    narsim.Framer{MaxPartial: config.MaxPartialBytes},
		config:    config,
		sessionID: sessionID,
		now:       time.Now,
		stats:     Stats{SessionID: sessionID},
		logger:    logger.Named("bridge").WithSession(sessionID),
	}
}

// SessionID returns the id tagging this connection's journal rows
func (s *Service) SessionID() string {
	return s.sessionID
}

// Run executes cycles every CycleInterval until ctx is canceled or the
// stream fails. Every tracked flight is evicted before Run returns. A
// canceled context is a clean stop and returns nil.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("Starting bridge",
		logger.Duration("cycle_interval", s.config.CycleInterval),
		logger.Int("max_reads_per_cycle", s.config.MaxReadsPerCycle))
	s.setRunning(true)
	defer s.setRunning(false)

	ticker := time.NewTicker(s.config.CycleInterval)
	defer ticker.Stop()

	var runErr error
	for runErr == nil {
		if err := s.RunCycle(ctx); err != nil {
			runErr = err
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			runErr = ctx.Err()
		}
	}

	s.Shutdown(ctx)

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		s.logger.Info("Bridge stopped")
		return nil
	}
	s.logger.Error("Bridge stopped on stream error", logger.Error(runErr))
	return runErr
}

// Shutdown evicts every tracked flight. Proxy calls still run when ctx is
// already canceled; each stays bounded by the call timeout.
func (s *Service) Shutdown(ctx context.Context) proxy.Result {
	intents := s.engine.EvictAll()
	if len(intents) == 0 {
		return proxy.Result{}
	}
	result := s.sequencer.Apply(context.WithoutCancel(ctx), intents)
	s.recordResult(result, intents)
	s.logger.Info("Evicted all flights on shutdown",
		logger.Int("evicted", result.Evicted),
		logger.Int("skipped", result.Skipped),
		logger.Int("errors", len(result.Errors)))
	return result
}

// RunCycle drains the source, frames and decodes what arrived, reconciles
// the reports and executes the resulting intents. Framing and read errors
// are returned after the bytes already received have been processed.
func (s *Service) RunCycle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, readErr := s.drain()

	result, frameErr := s.framer.Frame(s.partial, data)
	s.partial = result.Partial

	reports, tally := s.decode(result.Records)

	intents := s.engine.Reconcile(reports, s.now())
	applied := s.sequencer.Apply(ctx, intents)

	s.mu.Lock()
	s.stats.Cycles++
	s.stats.BytesRead += uint64(len(data))
	s.stats.RecordsFramed += uint64(len(result.Records))
	s.stats.SeparatorBytes += uint64(result.Separators)
	s.stats.TruthReports += uint64(len(reports))
	s.stats.DecodeFailures += tally.total
	s.stats.FlightPlansSkipped += tally.flightPlans
	s.stats.UnrecognizedSkipped += tally.unrecognized
	s.stats.IgnoredReports += tally.ignored
	s.stats.PartialBytes = len(s.partial)
	s.stats.LastCycle = s.now()
	s.mu.Unlock()
	s.recordResult(applied, intents)

	if len(result.Records) > 0 || len(intents) > 0 {
		s.logger.Debug("Cycle complete",
			logger.Int("bytes", len(data)),
			logger.Int("records", len(result.Records)),
			logger.Int("reports", len(reports)),
			logger.Int("intents", len(intents)),
			logger.Int("tracked", s.engine.Len()))
	}

	if frameErr != nil {
		s.setLastError(frameErr)
		return fmt.Errorf("stream framing failed: %w", frameErr)
	}
	if readErr != nil {
		s.setLastError(readErr)
		return fmt.Errorf("stream read failed: %w", readErr)
	}
	return nil
}

// drain reads until an empty chunk, an error or the per-cycle cap
func (s *Service) drain() ([]byte, error) {
	var data []byte
	for i := 0; i < s.config.MaxReadsPerCycle; i++ {
		chunk, err := s.source.ReadChunk(s.config.ReadTimeout)
		if err != nil {
			return data, err
		}
		if len(chunk) == 0 {
			break
		}
		data = append(data, chunk...)
	}
	return data, nil
}

type decodeTally struct {
	total        uint64
	flightPlans  uint64
	unrecognized uint64
	ignored      uint64
}

func (s *Service) decode(records []narsim.RawRecord) ([]narsim.TruthReport, decodeTally) {
	var tally decodeTally
	reports := make([]narsim.TruthReport, 0, len(records))
	for _, record := range records {
		report, err := narsim.Decode(record)
		if err != nil {
			tally.total++
			switch {
			case errors.Is(err, narsim.ErrUnsupportedRecordKind):
				tally.flightPlans++
			case errors.Is(err, narsim.ErrUnrecognizedRecordKind):
				tally.unrecognized++
			}
			s.logger.Warn("Skipping record",
				logger.String("kind", narsim.KindOf(record).String()),
				logger.Int("bytes", len(record)),
				logger.Error(err))
			continue
		}
		if s.ignored(report.Callsign) {
			tally.ignored++
			continue
		}
		reports = append(reports, report)
	}
	return reports, tally
}

func (s *Service) ignored(callsign string) bool {
	for _, c := range s.config.IgnoreCallsigns {
		if strings.EqualFold(c, callsign) {
			return true
		}
	}
	return false
}

func (s *Service) recordResult(result proxy.Result, intents []flights.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, intent := range intents {
		switch intent.Kind {
		case flights.IntentCreate:
			s.stats.CreateIntents++
		case flights.IntentUpdate:
			s.stats.UpdateIntents++
		case flights.IntentEvict:
			s.stats.EvictIntents++
		}
	}
	s.stats.ProxiesCreated += uint64(result.Created)
	s.stats.ProxiesUpdated += uint64(result.Updated)
	s.stats.ProxiesRemoved += uint64(result.Evicted)
	s.stats.ProxyErrors += uint64(len(result.Errors))
	if n := len(result.Errors); n > 0 {
		s.stats.LastError = result.Errors[n-1].Error()
	}
}

func (s *Service) setRunning(running bool) {
	s.mu.Lock()
	s.stats.Running = running
	s.mu.Unlock()
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	s.stats.LastError = err.Error()
	s.mu.Unlock()
}

// Stats returns a copy of the counters
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := s.stats
	stats.TrackedFlights = s.engine.Len()
	return stats
}
