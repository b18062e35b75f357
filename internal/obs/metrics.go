package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	draftAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_attempts_total",
			Help: "Generation attempts by terminal status.",
		},
		[]string{"status"},
	)

	tokensMaskedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pii_tokens_masked_total",
			Help: "Placeholder tokens minted during masking, by category.",
		},
		[]string{"category"},
	)

	tokensUnresolvedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pii_tokens_unresolved_total",
		Help: "Token occurrences left unresolved after unmasking.",
	})

	provisionsLeakWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pii_provisions_leak_warnings_total",
		Help: "Intakes whose unmasked provisions text contained a party name.",
	})
)

// Init registers all service metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		draftAttemptsTotal, tokensMaskedTotal, tokensUnresolvedTotal,
		provisionsLeakWarnings,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAttempt records a generation attempt reaching a terminal status.
func ObserveAttempt(status string) {
	draftAttemptsTotal.WithLabelValues(status).Inc()
}

// ObserveMaskedTokens records tokens minted for one category during a masking pass.
func ObserveMaskedTokens(category string, n int) {
	if n > 0 {
		tokensMaskedTotal.WithLabelValues(category).Add(float64(n))
	}
}

// ObserveUnresolvedTokens records token occurrences the unmasker could not resolve.
func ObserveUnresolvedTokens(n int) {
	if n > 0 {
		tokensUnresolvedTotal.Add(float64(n))
	}
}

// ObserveProvisionsLeakWarning records a provisions-text leak warning.
func ObserveProvisionsLeakWarning() {
	provisionsLeakWarnings.Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric label cardinality
// stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(p, "/")
	canon := func(prefix []string, rest ...string) string {
		return strings.Join(append(prefix, rest...), "/")
	}
	switch {
	case len(parts) >= 3 && parts[1] == "v1" && parts[2] == "intakes" && len(parts) >= 4 && parts[3] != "":
		tail := parts[4:]
		return canon([]string{"", "v1", "intakes", ":id"}, tail...)
	case len(parts) >= 3 && parts[1] == "v1" && parts[2] == "attempts" && len(parts) >= 4 && parts[3] != "":
		tail := parts[4:]
		return canon([]string{"", "v1", "attempts", ":id"}, tail...)
	case len(parts) >= 3 && parts[1] == "v1" && parts[2] == "sections" && len(parts) >= 4 && parts[3] != "":
		tail := parts[4:]
		return canon([]string{"", "v1", "sections", ":id"}, tail...)
	}
	return p
}

// statusWriter captures the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
