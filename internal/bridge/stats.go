package bridge

import "time"

// Stats are cumulative counters for one connection
type Stats struct {
	SessionID string    `json:"session_id"`
	Running   bool      `json:"running"`
	Cycles    uint64    `json:"cycles"`
	LastCycle time.Time `json:"last_cycle"`

	BytesRead      uint64 `json:"bytes_read"`
	RecordsFramed  uint64 `json:"records_framed"`
	SeparatorBytes uint64 `json:"separator_bytes"`
	PartialBytes   int    `json:"partial_bytes"`

	TruthReports        uint64 `json:"truth_reports"`
	DecodeFailures      uint64 `json:"decode_failures"`
	FlightPlansSkipped  uint64 `json:"flight_plans_skipped"`
	UnrecognizedSkipped uint64 `json:"unrecognized_skipped"`
	IgnoredReports      uint64 `json:"ignored_reports"`

	CreateIntents uint64 `json:"create_intents"`
	UpdateIntents uint64 `json:"update_intents"`
	EvictIntents  uint64 `json:"evict_intents"`

	ProxiesCreated uint64 `json:"proxies_created"`
	ProxiesUpdated uint64 `json:"proxies_updated"`
	ProxiesRemoved uint64 `json:"proxies_removed"`
	ProxyErrors    uint64 `json:"proxy_errors"`

	TrackedFlights int    `json:"tracked_flights"`
	LastError      string `json:"last_error,omitempty"`
}
