package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/narsim-bridge/internal/config"
	"github.com/yegors/narsim-bridge/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router. events may be nil when the journal is
// disabled.
func NewRouter(flights FlightSource, stats StatsSource, events EventStore, config *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(flights, stats, events, config.Server.EventsLimit, logger),
		middleware: NewMiddleware(logger),
		config:     config,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", r.handler.GetHealth)

		// Tracked flights
		router.Get("/flights", r.handler.GetAllFlights)
		router.Get("/flights/{callsign}", r.handler.GetFlight)
		router.Get("/flights/{callsign}/events", r.handler.GetFlightEvents)

		// Lifecycle journal
		router.Get("/events", r.handler.GetRecentEvents)
	})

	return router
}
