package sqlite

import "time"

// LifecycleRecord represents one proxy command executed for a flight
type LifecycleRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Callsign  string    `json:"callsign"`
	Intent    string    `json:"intent"` // "create", "update" or "evict"
	ProxyID   *int64    `json:"proxy_id,omitempty"`
	Outcome   string    `json:"outcome"` // "ok", "failed" or "skipped"
	Error     string    `json:"error,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// OutcomeCount is the number of records per intent and outcome
type OutcomeCount struct {
	Intent  string `json:"intent"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}
