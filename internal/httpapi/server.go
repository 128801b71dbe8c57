// Package httpapi exposes the job submission and polling surface over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subtitld/internal/gpu"
	"subtitld/internal/jobs"
	"subtitld/internal/manager"
	"subtitld/pkg/types"
)

// Deps wires the collaborators behind the HTTP surface. Runner, Jobs and
// Cache are required; the rest have working zero values.
type Deps struct {
	Runner  *jobs.Runner
	Jobs    *jobs.Registry
	Cache   *manager.Manager
	Monitor gpu.Monitor
	Presets []types.Preset

	// Request defaults applied when a submission omits them.
	DefaultEngine    string
	DefaultModelSize string

	// MaxUploadBytes caps the request body on POST /subtitle. Zero means
	// the 500 MiB default.
	MaxUploadBytes int64
	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string

	Log zerolog.Logger
}

type server struct {
	deps    Deps
	started time.Time
}

// NewMux builds the HTTP handler with all routes and middleware mounted.
func NewMux(deps Deps) http.Handler {
	if deps.Monitor == nil {
		deps.Monitor = gpu.Disabled{}
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	s := &server{deps: deps, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/subtitle", s.handleSubmit)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{id}", s.handleGetJob)
	r.Get("/status", s.handleStatus)
	r.Get("/gpu", s.handleGPU)
	r.Get("/presets", s.handlePresets)
	r.Delete("/cache", s.handleClearCache)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)

	// Prometheus metrics endpoint; domain collectors ride alongside the
	// process-wide HTTP metrics.
	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if deps.Jobs != nil && deps.Cache != nil {
		gatherer = prometheus.Gatherers{
			prometheus.DefaultGatherer,
			newDomainCollectors(deps.Jobs, deps.Cache),
		}
	}
	r.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	MountSwagger(r)
	return r
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.deps.Jobs.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "job not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(j))
}

func (s *server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list := s.deps.Jobs.List()
	out := types.JobsResponse{Jobs: make([]types.JobSummary, 0, len(list))}
	for _, j := range list {
		out.Jobs = append(out.Jobs, types.JobSummary{
			JobID:     j.ID,
			Status:    string(j.Status),
			Progress:  j.Progress,
			Format:    j.Format,
			Filename:  j.Filename,
			CreatedAt: j.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.deps.Cache.Stats()
	now := time.Now()
	writeJSON(w, http.StatusOK, types.StatusResponse{
		Cache: types.CacheStats{
			Count:       stats.Count,
			Keys:        stats.Keys,
			TotalVRAMMB: stats.TotalVRAMMB,
			Hits:        stats.Hits,
			Misses:      stats.Misses,
			Loads:       stats.Loads,
			Evictions:   stats.Evictions,
		},
		Jobs:           s.deps.Jobs.Counts(),
		Workers:        s.deps.Runner.Workers(),
		GPU:            s.gpuInfo(),
		UptimeSeconds:  int64(now.Sub(s.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	})
}

func (s *server) handleGPU(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gpuInfo())
}

func (s *server) gpuInfo() types.GPUInfo {
	mon := s.deps.Monitor
	if !mon.Available() {
		return types.GPUInfo{Available: false}
	}
	mem, err := mon.Usage()
	if err != nil {
		s.deps.Log.Debug().Err(err).Msg("gpu usage query failed")
		return types.GPUInfo{Available: true, DeviceName: mon.DeviceName()}
	}
	return types.GPUInfo{
		Available:    true,
		DeviceName:   mon.DeviceName(),
		TotalMB:      mem.TotalMB,
		UsedMB:       mem.UsedMB,
		FreeMB:       mem.FreeMB,
		UsagePercent: mem.UsagePercent,
	}
}

func (s *server) handlePresets(w http.ResponseWriter, r *http.Request) {
	list := s.deps.Presets
	if list == nil {
		list = []types.Preset{}
	}
	writeJSON(w, http.StatusOK, types.PresetsResponse{Presets: list})
}

func (s *server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.deps.Cache.Clear()
	stats := s.deps.Cache.Stats()
	s.deps.Log.Info().Msg("model cache cleared via api")
	writeJSON(w, http.StatusOK, types.CacheStats{
		Count:       stats.Count,
		Keys:        stats.Keys,
		TotalVRAMMB: stats.TotalVRAMMB,
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		Loads:       stats.Loads,
		Evictions:   stats.Evictions,
	})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready once the worker pool exists; model loads happen lazily.
	if s.deps.Runner != nil {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("starting"))
}

func toJobResponse(j jobs.Job) types.JobResponse {
	return types.JobResponse{
		JobID:    j.ID,
		Status:   string(j.Status),
		Progress: j.Progress,
		Result:   j.Result,
		Error:    j.Error,
	}
}
