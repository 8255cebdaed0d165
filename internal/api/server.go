// Package api provides the HTTP surface of the ledger daemon: mutation
// endpoints backed by the in-memory engine and query endpoints served from
// whichever ledger backend is configured (local engine or chain relay).
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadfive-network/leadfive/internal/domain"
	"github.com/leadfive-network/leadfive/internal/engine"
	"github.com/leadfive-network/leadfive/internal/infra/observability"
)

// EventStore serves event-log queries. Implemented by the sqlite store.
type EventStore interface {
	RecentEvents(limit int) ([]domain.Event, error)
	EventsByUser(addr domain.Address, limit int) ([]domain.Event, error)
}

// Server is the ledger HTTP API server.
type Server struct {
	engine  *engine.Engine // nil in relay (read-only) mode
	backend domain.LedgerBackend
	events  EventStore // nil disables event queries

	metricsEnabled bool
	now            func() time.Time
}

// NewServer creates an API server. The engine may be nil, in which case all
// mutation endpoints answer 503 and queries are served from the backend.
func NewServer(eng *engine.Engine, backend domain.LedgerBackend) *Server {
	return &Server{
		engine:  eng,
		backend: backend,
		now:     time.Now,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetEventStore sets the store backing the event-log query endpoints.
func (s *Server) SetEventStore(es EventStore) { s.events = es }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)
	r.Use(requestMetrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", s.handleRegister)
		r.Get("/users/{addr}", s.handleUserInfo)
		r.Get("/users/{addr}/earnings", s.handleEarnings)
		r.Get("/users/{addr}/downline", s.handleDownline)
		r.Get("/users/{addr}/events", s.handleUserEvents)
		r.Post("/users/{addr}/upgrade", s.handleUpgrade)
		r.Post("/users/{addr}/withdraw", s.handleWithdraw)
		r.Post("/users/{addr}/deactivate", s.handleDeactivate)

		r.Get("/pools", s.handlePools)
		r.Post("/pools/{name}/distribute", s.handleDistribute)

		r.Post("/roles/{role}/transfer", s.handleRoleTransfer)

		r.Get("/events", s.handleEvents)
		r.Get("/withdrawals", s.handleWithdrawals)
		r.Get("/stats", s.handleStats)
		r.Get("/plan", s.handlePlan)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a domain error to an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrUnknownPool):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrPoolEmpty),
		errors.Is(err, domain.ErrNotEligiblePeriod),
		errors.Is(err, domain.ErrNoEligibleUsers):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSponsor),
		errors.Is(err, domain.ErrInvalidPackage),
		errors.Is(err, domain.ErrInvalidUpgrade),
		errors.Is(err, domain.ErrBelowMinimum):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientWithdrawable),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrChainUnavailable),
		errors.Is(err, domain.ErrReadOnlyBackend):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRoleDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// corsMiddleware adds CORS headers for browser dashboards.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Caller-Address")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestMetrics records per-route request counters.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		observability.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}
