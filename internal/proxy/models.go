package proxy

import (
	"context"
	"errors"
	"time"

	"github.com/yegors/narsim-bridge/internal/flights"
)

var (
	ErrProxyCreateFailed = errors.New("proxy: create failed")
	ErrProxyUpdateFailed = errors.New("proxy: update failed")
	ErrProxyRemoveFailed = errors.New("proxy: remove failed")
)

// Pose is the placement of a simulated aircraft object
type Pose struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AltitudeFt  float64 `json:"altitude_ft"`
	Pitch       float64 `json:"pitch"`
	Bank        float64 `json:"bank"`
	Heading     float64 `json:"heading"`
	AirspeedKts float64 `json:"airspeed_kts"`
	OnGround    bool    `json:"on_ground"`
}

// Client creates, moves and removes simulated aircraft objects
type Client interface {
	Create(ctx context.Context, pose Pose, model string) (flights.ProxyID, error)
	SetPose(ctx context.Context, id flights.ProxyID, pose Pose) error
	Remove(ctx context.Context, id flights.ProxyID) error
}

// Registry receives the proxy ids of successful creates
type Registry interface {
	ConfirmCreate(callsign string, id flights.ProxyID) (*flights.Intent, error)
}

// Outcome values of a journaled intent
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Event is one executed intent as handed to the Journal
type Event struct {
	SessionID  string
	Callsign   string
	Intent     string
	ProxyID    *flights.ProxyID
	Outcome    string
	Error      string
	Latitude   float64
	Longitude  float64
	AltitudeFt float64
	Timestamp  time.Time
}

// Journal records every executed intent
type Journal interface {
	RecordEvent(event Event) error
}

// Config controls the sequencer
type Config struct {
	DefaultModel        string
	CallTimeout         time.Duration
	OnGroundMaxSpeedKts float64
	OnGroundMaxHeightFt float64
}

// Result summarizes one Apply call
type Result struct {
	Created int
	Updated int
	Evicted int
	Skipped int
	Errors  []error
}
