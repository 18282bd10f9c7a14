/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in log lines
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. AccessLog:  One zerolog line per request
  4. CORS:       Cross-origin requests, origins from config (cors.origins)

ROUTE GROUPS:
  /api/leases/*           Leases, tariffs, provisions, revisions, settlements
  /api/regularizations/*  Payment tracking
  /api/readings           Meter readings
  /api/loans/*            Loans and schedules
  /api/buildings/*        Buildings, charges reference data, summaries
  /healthz                Liveness probe

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/leasectl/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// DefaultOrigins are the CORS origins allowed when none are configured.
var DefaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = DefaultOrigins
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Lease routes
		r.Route("/leases", func(r chi.Router) {
			r.Get("/", h.ListLeases)
			r.Post("/", h.CreateLease)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetLease)
				r.Get("/tariffs", h.ListTariffs)
				r.Post("/tariffs", h.CreateTariff)
				r.Get("/tariffs/at", h.GetTariffAt)
				r.Get("/continuity", h.GetContinuity)
				r.Get("/provisions", h.GetProvisions)
				r.Get("/due", h.GetAmountDue)
				r.Post("/exit", h.GetExitStatement)
				r.Post("/revisions/preview", h.PreviewRevision)
				r.Post("/revisions", h.ApplyRevision)
				r.Post("/adjustments", h.CreateAdjustment)
				r.Get("/regularizations", h.ListRegularizations)
				r.Post("/regularizations", h.SettleLease)
			})
		})

		// Regularization routes
		r.Post("/regularizations/{id}/payment", h.PayRegularization)
		r.Post("/readings", h.CreateReading)

		// Loan routes
		r.Route("/loans", func(r chi.Router) {
			r.Post("/", h.CreateLoan)
			r.Get("/{id}", h.GetLoan)
			r.Get("/{id}/schedule", h.GetSchedule)
			r.Post("/{id}/schedule", h.RegenerateSchedule)
			r.Get("/{id}/capital-remaining", h.GetCapitalRemaining)
		})

		// Building routes
		r.Route("/buildings", func(r chi.Router) {
			r.Post("/", h.CreateBuilding)
			r.Get("/{id}/summary", h.GetBuildingSummary)
			r.Post("/{id}/keys", h.CreateKey)
			r.Post("/{id}/shares", h.CreateShare)
			r.Post("/{id}/expenses", h.CreateExpense)
		})
	})

	return r
}

// AccessLog logs one line per request with its status and duration.
func AccessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
