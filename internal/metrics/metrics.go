// Package metrics provides Prometheus instrumentation for the UPIGuard service.
package metrics

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "upiguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "upiguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// URLScansTotal counts URL scans by verdict category.
	URLScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "upiguard",
			Name:      "url_scans_total",
			Help:      "Total URL scans by risk category.",
		},
		[]string{"category"},
	)

	// URLCacheHitsTotal counts URL verdicts served from cache.
	URLCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upiguard",
		Name:      "url_cache_hits_total",
		Help:      "Total URL verdicts served from cache.",
	})

	// TransactionAnalysesTotal counts transaction analyses by risk level.
	TransactionAnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "upiguard",
			Name:      "transaction_analyses_total",
			Help:      "Total transaction analyses by risk level.",
		},
		[]string{"level"},
	)

	// TransactionRiskScore observes the distribution of transaction scores.
	TransactionRiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "upiguard",
		Name:      "transaction_risk_score",
		Help:      "Distribution of transaction risk scores.",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	// DependencyFailuresTotal counts failed collaborator reads and writes.
	DependencyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "upiguard",
			Name:      "dependency_failures_total",
			Help:      "Total failed dependency calls by dependency name.",
		},
		[]string{"dependency"},
	)

	// BreakerState tracks circuit breaker state (0 closed, 1 half-open, 2 open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "upiguard",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0: closed, 1: half-open, 2: open).",
		},
		[]string{"name"},
	)

	// BlacklistReportsTotal counts community blacklist reports.
	BlacklistReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upiguard",
		Name:      "blacklist_reports_total",
		Help:      "Total blacklist reports received.",
	})

	// ActiveWebSocketClients tracks connected alert consoles.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "upiguard",
		Name:      "active_websocket_clients",
		Help:      "Number of currently connected WebSocket clients.",
	})

	DBTotalConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "upiguard", Name: "db_total_connections",
		Help: "Number of connections in the pool.",
	})
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "upiguard", Name: "db_idle_connections",
		Help: "Number of idle pool connections.",
	})
	DBAcquiredConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "upiguard", Name: "db_acquired_connections",
		Help: "Number of connections currently in use.",
	})
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "upiguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		URLScansTotal,
		URLCacheHitsTotal,
		TransactionAnalysesTotal,
		TransactionRiskScore,
		DependencyFailuresTotal,
		BreakerState,
		BlacklistReportsTotal,
		ActiveWebSocketClients,
		DBTotalConnections,
		DBIdleConnections,
		DBAcquiredConnections,
		GoroutineCount,
	)
}

// StartPoolStatsCollector samples pgxpool stats and the goroutine count into
// gauges until ctx is done. A nil pool only samples goroutines.
func StartPoolStatsCollector(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pool != nil {
				stats := pool.Stat()
				DBTotalConnections.Set(float64(stats.TotalConns()))
				DBIdleConnections.Set(float64(stats.IdleConns()))
				DBAcquiredConnections.Set(float64(stats.AcquiredConns()))
			}
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware records request metrics labelled by chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// route pattern, not the raw path, to bound label cardinality
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, statusBucket(status)).Inc()
	})
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusBucket groups HTTP status codes into 1xx..5xx
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
