package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ctxKey string

const (
	routeLabelKey   ctxKey = "metrics_route"
	requestIDCtxKey ctxKey = "metrics_request_id"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedassist_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedassist_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedassist_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedassist_db_latency_seconds",
		Help:    "Histogram of database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	planningRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedassist_planning_runs_total",
		Help: "Total number of planning runs, by outcome.",
	}, []string{"status"})

	breaksDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedassist_breaks_dropped_total",
		Help: "Break events generated but not placeable inside the working day.",
	})

	eventPartsPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedassist_event_parts_per_run",
		Help:    "Event parts submitted to the solver per planning run.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	externalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedassist_external_call_duration_seconds",
		Help:    "Histogram of latencies for solver and classifier calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target", "status"})
)

// Middleware records request metrics and enriches the context with labels for downstream instrumentation.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routePattern(r)
			reqID := middleware.GetReqID(r.Context())

			ctx := context.WithValue(r.Context(), routeLabelKey, route)
			if reqID != "" {
				ctx = context.WithValue(ctx, requestIDCtxKey, reqID)
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			method := r.Method
			duration := time.Since(start).Seconds()
			statusCode := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(method, route).Inc()
			httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)
			if status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(method, route, statusCode).Inc()
			}
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDBLatency records database latency for a given operation, associating it with request labels when available.
func ObserveDBLatency(ctx context.Context, operation string, start time.Time) {
	route := routeFromContext(ctx)
	dbLatency.WithLabelValues(operation, route).Observe(time.Since(start).Seconds())
}

// CountPlanningRun records the outcome of one planning run.
func CountPlanningRun(status string) {
	planningRunsTotal.WithLabelValues(status).Inc()
}

// CountDroppedBreaks records breaks that could not be placed.
func CountDroppedBreaks(n int) {
	if n > 0 {
		breaksDroppedTotal.Add(float64(n))
	}
}

// ObserveEventParts records the size of a solver submission.
func ObserveEventParts(n int) {
	eventPartsPerRun.Observe(float64(n))
}

// ObserveExternalCall records latency of a solver or classifier call.
func ObserveExternalCall(target, status string, elapsed time.Duration) {
	externalCallDuration.WithLabelValues(target, status).Observe(elapsed.Seconds())
}

// RequestIDFromContext extracts the request ID stored by the metrics middleware.
func RequestIDFromContext(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return reqID
	}
	return ""
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeLabelKey).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
