package flights

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yegors/narsim-bridge/internal/narsim"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// Engine owns the table of tracked flights and turns batches of truth
// reports into lifecycle intents. It performs no I/O. The reconciliation
// cycle is the only writer; readers get copies through Snapshot and Get.
type Engine struct {
	config   Config
	entities map[string]*Entity
	mu       sync.RWMutex
	logger   *logger.Logger
}

// NewEngine creates a new reconciliation engine
func NewEngine(config Config, logger *logger.Logger) *Engine {
	if config.PendingUpdates == "" {
		config.PendingUpdates = PendingBuffer
	}
	return &Engine{
		config:   config,
		entities: make(map[string]*Entity),
		logger:   logger.Named("flights"),
	}
}

// Reconcile applies one batch of reports observed at now. Intents for the
// reports come first, in batch order, followed by evictions from the
// staleness sweep ordered by callsign.
func (e *Engine) Reconcile(reports []narsim.TruthReport, now time.Time) []Intent {
	e.mu.Lock()
	defer e.mu.Unlock()

	intents := make([]Intent, 0, len(reports))
	for _, report := range reports {
		if intent, ok := e.apply(report, now); ok {
			intents = append(intents, intent)
		}
	}
	return append(intents, e.sweep(now)...)
}

func (e *Engine) apply(report narsim.TruthReport, now time.Time) (Intent, bool) {
	entity, exists := e.entities[report.Callsign]
	if !exists {
		e.entities[report.Callsign] = &Entity{
			Callsign:    report.Callsign,
			LastTruth:   report,
			FirstSeen:   now,
			LastUpdate:  now,
			ReportCount: 1,
		}
		e.logger.Info("New flight tracked", logger.String("callsign", report.Callsign))
		return Intent{Kind: IntentCreate, Callsign: report.Callsign, Report: report}, true
	}

	entity.LastTruth = report
	entity.LastUpdate = now
	entity.ReportCount++

	if !entity.HasProxy {
		switch e.config.PendingUpdates {
		case PendingDrop:
			e.logger.Debug("Dropping update for flight without proxy",
				logger.String("callsign", report.Callsign))
		default:
			pending := report
			entity.pending = &pending
			entity.HasPending = true
		}
		return Intent{}, false
	}

	return Intent{
		Kind:     IntentUpdate,
		Callsign: report.Callsign,
		Report:   report,
		ProxyID:  entity.ProxyID,
		HasProxy: true,
	}, true
}

// sweep evicts every flight not refreshed within the stale timeout
func (e *Engine) sweep(now time.Time) []Intent {
	var stale []string
	for callsign, entity := range e.entities {
		if now.Sub(entity.LastUpdate) > e.config.StaleTimeout {
			stale = append(stale, callsign)
		}
	}
	sort.Strings(stale)

	intents := make([]Intent, 0, len(stale))
	for _, callsign := range stale {
		entity := e.entities[callsign]
		e.logger.Info("Flight stale, evicting",
			logger.String("callsign", callsign),
			logger.Duration("since_last_update", now.Sub(entity.LastUpdate)),
			logger.Bool("has_proxy", entity.HasProxy))
		intents = append(intents, evictIntent(entity))
		delete(e.entities, callsign)
	}
	return intents
}

// EvictAll empties the table and returns an eviction for every flight. A
// second call only covers flights added since the first.
func (e *Engine) EvictAll() []Intent {
	e.mu.Lock()
	defer e.mu.Unlock()

	callsigns := make([]string, 0, len(e.entities))
	for callsign := range e.entities {
		callsigns = append(callsigns, callsign)
	}
	sort.Strings(callsigns)

	intents := make([]Intent, 0, len(callsigns))
	for _, callsign := range callsigns {
		intents = append(intents, evictIntent(e.entities[callsign]))
		delete(e.entities, callsign)
	}
	if len(intents) > 0 {
		e.logger.Info("Evicting all flights", logger.Int("count", len(intents)))
	}
	return intents
}

func evictIntent(entity *Entity) Intent {
	return Intent{
		Kind:     IntentEvict,
		Callsign: entity.Callsign,
		ProxyID:  entity.ProxyID,
		HasProxy: entity.HasProxy,
	}
}

// ConfirmCreate records the proxy created for a flight. When an update was
// buffered while the create was in flight it is returned for execution.
func (e *Engine) ConfirmCreate(callsign string, id ProxyID) (*Intent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.entities[callsign]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlight, callsign)
	}
	if entity.HasProxy {
		return nil, fmt.Errorf("%w: %s has proxy %d", ErrProxyAlreadyAssigned, callsign, entity.ProxyID)
	}

	entity.ProxyID = id
	entity.HasProxy = true

	if entity.pending == nil {
		return nil, nil
	}
	intent := &Intent{
		Kind:     IntentUpdate,
		Callsign: callsign,
		Report:   *entity.pending,
		ProxyID:  id,
		HasProxy: true,
	}
	entity.pending = nil
	entity.HasPending = false
	return intent, nil
}

// Get returns a copy of one tracked flight
func (e *Engine) Get(callsign string) (Entity, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entity, ok := e.entities[callsign]
	if !ok {
		return Entity{}, false
	}
	return copyEntity(entity), true
}

// Snapshot returns copies of all tracked flights ordered by callsign
func (e *Engine) Snapshot() []Entity {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Entity, 0, len(e.entities))
	for _, entity := range e.entities {
		out = append(out, copyEntity(entity))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Callsign < out[j].Callsign })
	return out
}

// Len returns the number of tracked flights
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entities)
}

func copyEntity(entity *Entity) Entity {
	out := *entity
	out.pending = nil
	return out
}
