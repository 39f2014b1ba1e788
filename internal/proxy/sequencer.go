package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/narsim-bridge/internal/flights"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// Sequencer executes lifecycle intents against a proxy Client, one call per
// intent and in order. It is the only component that learns proxy ids.
type Sequencer struct {
	client    Client
	registry  Registry
	journal   Journal
	config    Config
	sessionID string
	logger    *logger.Logger
}

// NewSequencer creates a new sequencer. journal may be nil.
func NewSequencer(client Client, registry Registry, journal Journal, config Config, logger *logger.Logger) *Sequencer {
	return &Sequencer{
		client:   client,
		registry: registry,
		journal:  journal,
		config:   config,
		logger:   logger.Named("proxy-sequencer"),
	}
}

// SetSession tags subsequent journal records with the connection session id
func (s *Sequencer) SetSession(sessionID string) {
	s.sessionID = sessionID
}

// Apply executes intents in order. Boundary failures are logged, collected
// in the result and never stop the remaining intents.
func (s *Sequencer) Apply(ctx context.Context, intents []flights.Intent) Result {
	var result Result
	for _, intent := range intents {
		switch intent.Kind {
		case flights.IntentCreate:
			s.create(ctx, intent, &result)
		case flights.IntentUpdate:
			s.update(ctx, intent, &result)
		case flights.IntentEvict:
			s.evict(ctx, intent, &result)
		default:
			s.logger.Warn("Ignoring intent of unknown kind",
				logger.String("callsign", intent.Callsign),
				logger.Int("kind", int(intent.Kind)))
			result.Skipped++
		}
	}
	return result
}

func (s *Sequencer) create(ctx context.Context, intent flights.Intent, result *Result) {
	pose := PoseFromTruth(intent.Report, s.config)

	callCtx, cancel := s.callContext(ctx)
	id, err := s.client.Create(callCtx, pose, s.config.DefaultModel)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrProxyCreateFailed, intent.Callsign, err)
		s.logger.Error("Failed to create proxy",
			logger.String("callsign", intent.Callsign),
			logger.Error(err))
		result.Errors = append(result.Errors, err)
		s.record(intent, nil, pose, err)
		return
	}

	pending, err := s.registry.ConfirmCreate(intent.Callsign, id)
	if err != nil {
		// The flight left the table (or already has a proxy) while the create
		// was in flight; the new object has no owner.
		s.logger.Warn("Proxy created for untracked flight, removing it",
			logger.String("callsign", intent.Callsign),
			logger.Uint32("proxy_id", uint32(id)),
			logger.Error(err))
		s.removeOrphan(ctx, intent.Callsign, id, result)
		result.Errors = append(result.Errors, err)
		s.record(intent, &id, pose, err)
		return
	}

	s.logger.Info("Proxy created",
		logger.String("callsign", intent.Callsign),
		logger.Uint32("proxy_id", uint32(id)),
		logger.Bool("on_ground", pose.OnGround))
	result.Created++
	s.record(intent, &id, pose, nil)

	if pending != nil {
		s.update(ctx, *pending, result)
	}
}

func (s *Sequencer) update(ctx context.Context, intent flights.Intent, result *Result) {
	if !intent.HasProxy {
		result.Skipped++
		return
	}
	pose := PoseFromTruth(intent.Report, s.config)

	callCtx, cancel := s.callContext(ctx)
	err := s.client.SetPose(callCtx, intent.ProxyID, pose)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrProxyUpdateFailed, intent.Callsign, err)
		s.logger.Warn("Failed to update proxy",
			logger.String("callsign", intent.Callsign),
			logger.Uint32("proxy_id", uint32(intent.ProxyID)),
			logger.Error(err))
		result.Errors = append(result.Errors, err)
		s.record(intent, &intent.ProxyID, pose, err)
		return
	}

	result.Updated++
	s.record(intent, &intent.ProxyID, pose, nil)
}

func (s *Sequencer) evict(ctx context.Context, intent flights.Intent, result *Result) {
	if !intent.HasProxy {
		s.logger.Debug("Evicted flight never had a proxy",
			logger.String("callsign", intent.Callsign))
		result.Skipped++
		s.record(intent, nil, Pose{}, nil)
		return
	}

	callCtx, cancel := s.callContext(ctx)
	err := s.client.Remove(callCtx, intent.ProxyID)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrProxyRemoveFailed, intent.Callsign, err)
		s.logger.Error("Failed to remove proxy",
			logger.String("callsign", intent.Callsign),
			logger.Uint32("proxy_id", uint32(intent.ProxyID)),
			logger.Error(err))
		result.Errors = append(result.Errors, err)
		s.record(intent, &intent.ProxyID, Pose{}, err)
		return
	}

	s.logger.Info("Proxy removed",
		logger.String("callsign", intent.Callsign),
		logger.Uint32("proxy_id", uint32(intent.ProxyID)))
	result.Evicted++
	s.record(intent, &intent.ProxyID, Pose{}, nil)
}

func (s *Sequencer) removeOrphan(ctx context.Context, callsign string, id flights.ProxyID, result *Result) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.client.Remove(callCtx, id); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrProxyRemoveFailed, callsign, err)
		s.logger.Error("Failed to remove orphaned proxy",
			logger.String("callsign", callsign),
			logger.Uint32("proxy_id", uint32(id)),
			logger.Error(err))
		result.Errors = append(result.Errors, err)
	}
}

func (s *Sequencer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.CallTimeout)
}

// record writes one journal row. Journal failures are logged only.
func (s *Sequencer) record(intent flights.Intent, id *flights.ProxyID, pose Pose, callErr error) {
	if s.journal == nil {
		return
	}

	event := Event{
		SessionID:  s.sessionID,
		Callsign:   intent.Callsign,
		Intent:     intent.Kind.String(),
		Outcome:    OutcomeOK,
		Latitude:   pose.Latitude,
		Longitude:  pose.Longitude,
		AltitudeFt: pose.AltitudeFt,
		Timestamp:  time.Now().UTC(),
	}
	if id != nil {
		v := *id
		event.ProxyID = &v
	}
	switch {
	case callErr != nil:
		event.Outcome = OutcomeFailed
		event.Error = callErr.Error()
	case intent.Kind == flights.IntentEvict && !intent.HasProxy:
		event.Outcome = OutcomeSkipped
	}

	if err := s.journal.RecordEvent(event); err != nil {
		s.logger.Warn("Failed to journal lifecycle event",
			logger.String("callsign", intent.Callsign),
			logger.Error(err))
	}
}
