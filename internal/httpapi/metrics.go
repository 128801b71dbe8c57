package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"subtitld/internal/jobs"
	"subtitld/internal/manager"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subtitld",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subtitld",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "subtitld",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"path"},
	)

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subtitld",
			Subsystem: "http",
			Name:      "backpressure_total",
			Help:      "Total submissions rejected because the worker queue was full",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, backpressureTotal)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		method := r.Method
		httpInflight.WithLabelValues(path).Inc()
		defer httpInflight.WithLabelValues(path).Dec()

		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		statusLabel := itoa(sr.status)
		dur := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(path, method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, method, statusLabel).Observe(dur)
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// IncrementBackpressure is called when rejecting a submission.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}

// newDomainCollectors exposes job registry and model cache state as live
// collectors. Each mux gets its own registry, keyed to its own collaborators,
// so several servers can coexist in one process without colliding on the
// default registerer.
func newDomainCollectors(registry *jobs.Registry, cache *manager.Manager) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	for _, status := range []jobs.Status{jobs.StatusPending, jobs.StatusProcessing, jobs.StatusCompleted, jobs.StatusFailed} {
		status := status // per-iteration copy; required under the Go 1.21 loopvar rules
		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   "subtitld",
				Subsystem:   "jobs",
				Name:        "tracked",
				Help:        "Jobs currently tracked, by status",
				ConstLabels: prometheus.Labels{"status": string(status)},
			},
			func() float64 { return float64(registry.Counts()[string(status)]) },
		))
	}

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "subtitld",
			Subsystem: "model_cache",
			Name:      "entries",
			Help:      "Models currently resident in the cache",
		},
		func() float64 { return float64(cache.Stats().Count) },
	))
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "subtitld",
			Subsystem: "model_cache",
			Name:      "vram_megabytes",
			Help:      "Measured VRAM held by cached models",
		},
		func() float64 { return cache.Stats().TotalVRAMMB },
	))

	counters := []struct {
		name  string
		help  string
		value func(manager.Stats) uint64
	}{
		{"hits_total", "Cache lookups served by a resident model", func(s manager.Stats) uint64 { return s.Hits }},
		{"misses_total", "Cache lookups that required a load", func(s manager.Stats) uint64 { return s.Misses }},
		{"loads_total", "Model loads completed", func(s manager.Stats) uint64 { return s.Loads }},
		{"evictions_total", "Models evicted from the cache", func(s manager.Stats) uint64 { return s.Evictions }},
	}
	for _, c := range counters {
		c := c // per-iteration copy; required under the Go 1.21 loopvar rules
		reg.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "subtitld",
				Subsystem: "model_cache",
				Name:      c.name,
				Help:      c.help,
			},
			func() float64 { return float64(c.value(cache.Stats())) },
		))
	}
	return reg
}

// fast integer to ascii for small set of status codes
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
