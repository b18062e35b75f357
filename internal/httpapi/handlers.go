// Package httpapi is the HTTP surface of the service: REST routes for
// intakes, generation attempts and review, JWT-authenticated, with SSE
// progress streaming.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"pactly.app/api/spec"
	"pactly.app/internal/auth"
	"pactly.app/internal/clauses"
	"pactly.app/internal/draft"
	"pactly.app/internal/intake"
	"pactly.app/internal/obs"
	"pactly.app/internal/stream"
)

// ReadyProbe checks backing-store readiness for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	intakes intake.Service
	drafts  *draft.Service
	auth    *auth.Service
	events  *stream.Stream

	maxBody    int64
	rateBurst  int
	ratePerSec int
}

// Option tunes transport limits.
type Option func(*API)

// WithRateLimit sets the per-IP token bucket parameters.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSec = perSecond
	}
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) { a.maxBody = n }
}

func New(rp ReadyProbe, version string, intakes intake.Service, drafts *draft.Service, authSvc *auth.Service, events *stream.Stream, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		intakes:    intakes,
		drafts:     drafts,
		auth:       authSvc,
		events:     events,
		maxBody:    1 << 20,
		rateBurst:  20,
		ratePerSec: 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/token", a.handleToken)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)

	// intakes and generation
	a.mux.HandleFunc("/v1/intakes", a.handleIntakesCollection)
	a.mux.HandleFunc("/v1/intakes/", a.handleIntakeResource)
	a.mux.HandleFunc("/v1/attempts/", a.handleAttemptResource)
	a.mux.HandleFunc("/v1/sections/", a.handleSectionResource)

	// SSE progress
	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = Logging(h)
	h = RequestID(h)
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	return SecurityHeaders(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "pactly-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":          "pactly-api",
		"time":          time.Now().UTC().Format(time.RFC3339),
		"version":       a.version,
		"jurisdictions": clauses.Codes(),
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
