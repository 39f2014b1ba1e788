package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/narsim-bridge/internal/bridge"
	"github.com/yegors/narsim-bridge/internal/flights"
	"github.com/yegors/narsim-bridge/internal/storage/sqlite"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// FlightSource exposes the tracked flight table
type FlightSource interface {
	Snapshot() []flights.Entity
	Get(callsign string) (flights.Entity, bool)
}

// StatsSource exposes the bridge cycle counters
type StatsSource interface {
	Stats() bridge.Stats
}

// EventStore exposes the lifecycle journal
type EventStore interface {
	GetEventsByCallsign(callsign string, limit int) ([]*sqlite.LifecycleRecord, error)
	GetRecentEvents(limit int) ([]*sqlite.LifecycleRecord, error)
	GetEventsByTimeRange(startTime, endTime time.Time) ([]*sqlite.LifecycleRecord, error)
	CountByOutcome(sessionID string) ([]sqlite.OutcomeCount, error)
}

// Handler serves the status API
type Handler struct {
	flights     FlightSource
	stats       StatsSource
	events      EventStore
	eventsLimit int
	startedAt   time.Time
	logger      *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(flights FlightSource, stats StatsSource, events EventStore, eventsLimit int, logger *logger.Logger) *Handler {
	if eventsLimit <= 0 {
		eventsLimit = 100
	}
	return &Handler{
		flights:     flights,
		stats:       stats,
		events:      events,
		eventsLimit: eventsLimit,
		startedAt:   time.Now(),
		logger:      logger.Named("api-handler"),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string       `json:"status"`
	Uptime  string       `json:"uptime"`
	Journal bool         `json:"journal"`
	Bridge  bridge.Stats `json:"bridge"`
	// Outcomes counts this session's journal rows per intent and outcome
	Outcomes []sqlite.OutcomeCount `json:"outcomes,omitempty"`
}

// FlightsResponse is the body of GET /flights
type FlightsResponse struct {
	Flights []flights.Entity `json:"flights"`
	Count   int              `json:"count"`
}

// EventsResponse is the body of the journal endpoints
type EventsResponse struct {
	Events []*sqlite.LifecycleRecord `json:"events"`
	Count  int                       `json:"count"`
}

// GetHealth reports whether the bridge loop is running
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.Stats()
	status := "ok"
	if !stats.Running {
		status = "degraded"
	}

	resp := HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		Journal: h.events != nil,
		Bridge:  stats,
	}
	if h.events != nil && stats.SessionID != "" {
		counts, err := h.events.CountByOutcome(stats.SessionID)
		if err != nil {
			h.logger.Warn("Failed to count lifecycle events", logger.Error(err))
		}
		resp.Outcomes = counts
	}
	if status != "ok" {
		h.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetAllFlights returns every tracked flight ordered by callsign
func (h *Handler) GetAllFlights(w http.ResponseWriter, r *http.Request) {
	snapshot := h.flights.Snapshot()
	h.writeJSON(w, http.StatusOK, FlightsResponse{Flights: snapshot, Count: len(snapshot)})
}

// GetFlight returns one tracked flight
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	callsign := strings.ToUpper(chi.URLParam(r, "callsign"))

	entity, ok := h.flights.Get(callsign)
	if !ok {
		h.writeError(w, http.StatusNotFound, "flight not tracked: "+callsign)
		return
	}
	h.writeJSON(w, http.StatusOK, entity)
}

// GetFlightEvents returns the journal rows of one flight, newest first
func (h *Handler) GetFlightEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeError(w, http.StatusNotFound, "lifecycle journal is disabled")
		return
	}
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	callsign := strings.ToUpper(chi.URLParam(r, "callsign"))

	events, err := h.events.GetEventsByCallsign(callsign, limit)
	if err != nil {
		h.logger.Error("Failed to query lifecycle events",
			logger.String("callsign", callsign),
			logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to query lifecycle events")
		return
	}
	h.writeEvents(w, events)
}

// GetRecentEvents returns the latest journal rows across flights. With
// ?from= or ?to= (RFC 3339) it returns the rows inside that window instead.
func (h *Handler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeError(w, http.StatusNotFound, "lifecycle journal is disabled")
		return
	}
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	if query.Has("from") || query.Has("to") {
		from, err := parseTimeParam(query.Get("from"), time.Time{})
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
			return
		}
		to, err := parseTimeParam(query.Get("to"), time.Now())
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
			return
		}
		if to.Before(from) {
			h.writeError(w, http.StatusBadRequest, "to must not be before from")
			return
		}

		events, err := h.events.GetEventsByTimeRange(from, to)
		if err != nil {
			h.logger.Error("Failed to query lifecycle events by time range", logger.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to query lifecycle events")
			return
		}
		if len(events) > limit {
			events = events[:limit]
		}
		h.writeEvents(w, events)
		return
	}

	events, err := h.events.GetRecentEvents(limit)
	if err != nil {
		h.logger.Error("Failed to query recent lifecycle events", logger.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to query lifecycle events")
		return
	}
	h.writeEvents(w, events)
}

func parseTimeParam(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// limit parses ?limit=N, capped at the configured maximum
func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.eventsLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(n, h.eventsLimit), true
}

func (h *Handler) writeEvents(w http.ResponseWriter, events []*sqlite.LifecycleRecord) {
	if events == nil {
		events = []*sqlite.LifecycleRecord{}
	}
	h.writeJSON(w, http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", logger.Error(err))
	}
}
