package flights

import (
	"errors"
	"time"

	"github.com/yegors/narsim-bridge/internal/narsim"
)

var (
	// ErrUnknownFlight is returned when a proxy is confirmed for a callsign the
	// table no longer tracks
	ErrUnknownFlight = errors.New("flights: callsign not tracked")
	// ErrProxyAlreadyAssigned is returned when a second proxy is confirmed for
	// the same flight
	ErrProxyAlreadyAssigned = errors.New("flights: proxy already assigned")
)

// ProxyID identifies a simulated aircraft object on the simulator side
type ProxyID uint32

// IntentKind is the lifecycle change a flight needs on the proxy side
type IntentKind int

const (
	IntentCreate IntentKind = iota + 1
	IntentUpdate
	IntentEvict
)

func (k IntentKind) String() string {
	switch k {
	case IntentCreate:
		return "create"
	case IntentUpdate:
		return "update"
	case IntentEvict:
		return "evict"
	default:
		return "unknown"
	}
}

// Intent is one lifecycle change produced by the engine
type Intent struct {
	Kind     IntentKind
	Callsign string
	Report   narsim.TruthReport // empty for evictions
	ProxyID  ProxyID
	HasProxy bool
}

// PendingPolicy decides what happens to a report for a flight whose proxy
// has not been confirmed yet
type PendingPolicy string

const (
	// PendingBuffer keeps the latest report and emits it once the proxy exists
	PendingBuffer PendingPolicy = "buffer"
	// PendingDrop discards the report
	PendingDrop PendingPolicy = "drop"
)

// Config controls the reconciliation engine
type Config struct {
	StaleTimeout   time.Duration
	PendingUpdates PendingPolicy
}

// Entity is the engine's state for one tracked flight
type Entity struct {
	Callsign    string             `json:"callsign"`
	LastTruth   narsim.TruthReport `json:"last_truth"`
	ProxyID     ProxyID            `json:"proxy_id"`
	HasProxy    bool               `json:"has_proxy"`
	FirstSeen   time.Time          `json:"first_seen"`
	LastUpdate  time.Time          `json:"last_update"`
	ReportCount int                `json:"report_count"`
	HasPending  bool               `json:"has_pending"`

	pending *narsim.TruthReport
}
