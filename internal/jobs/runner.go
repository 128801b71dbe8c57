package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subtitld/internal/engine"
	"subtitld/internal/gpu"
	"subtitld/internal/manager"
	"subtitld/internal/srt"
	"subtitld/pkg/types"
)

const (
	defaultWorkers    = 2
	defaultQueueDepth = 64
)

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("runner stopped")

// ErrQueueFull is returned by Submit when every worker is busy and the
// backlog is at capacity. The job is created and marked failed before
// Submit returns, so pollers still get a terminal answer.
var ErrQueueFull = errors.New("worker queue full")

// Work describes one transcription request handed to Submit. AudioPath
// points at a staged temporary file; the runner removes it when the job
// finishes, successfully or not.
type Work struct {
	AudioPath string
	Filename  string
	// Format selects the result payload: "srt" or "json".
	Format string

	Engine     string
	ModelSize  string
	Load       engine.LoadConfig
	Transcribe engine.TranscribeConfig
	Subtitle   srt.Options
}

// RunnerConfig wires a Runner's collaborators.
type RunnerConfig struct {
	Registry *Registry
	Cache    *manager.Manager
	Monitor  gpu.Monitor
	// Workers is the pool size. Zero means 2.
	Workers int
	// QueueDepth bounds the submission backlog. Zero means 64.
	QueueDepth int
	Log        zerolog.Logger
}

// Runner executes submitted work on a fixed pool of workers. Submission
// never blocks on inference: Submit enqueues and returns immediately while
// a worker drives the job through the model cache and the engine.
type Runner struct {
	registry *Registry
	cache    *manager.Manager
	monitor  gpu.Monitor
	workers  int
	log      zerolog.Logger

	tasks chan task
	wg    sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

type task struct {
	jobID string
	work  Work
}

// NewRunner builds a Runner. Call Start to launch the pool.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if cfg.Monitor == nil {
		cfg.Monitor = gpu.Disabled{}
	}
	return &Runner{
		registry: cfg.Registry,
		cache:    cfg.Cache,
		monitor:  cfg.Monitor,
		workers:  cfg.Workers,
		log:      cfg.Log,
		tasks:    make(chan task, cfg.QueueDepth),
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for t := range r.tasks {
				r.process(t)
			}
		}()
	}
	r.log.Info().Int("workers", r.workers).Msg("worker pool started")
}

// Stop rejects further submissions and waits for in-flight jobs to drain,
// up to the context deadline.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.tasks)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Workers returns the pool size.
func (r *Runner) Workers() int { return r.workers }

// Submit creates a pending job for w, enqueues it and returns the job id
// without waiting for execution. If the backlog is full the job is marked
// failed and ErrQueueFull is returned alongside the id.
func (r *Runner) Submit(w Work) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return "", ErrStopped
	}

	job := r.registry.Create(w.Format, w.Filename)
	select {
	case r.tasks <- task{jobID: job.ID, work: w}:
		return job.ID, nil
	default:
		r.fail(job.ID, ErrQueueFull)
		return job.ID, ErrQueueFull
	}
}

// process drives one job to a terminal state. Failures at any stage become
// a failed job; nothing propagates out of the worker.
func (r *Runner) process(t task) {
	w := t.work
	start := time.Now()

	defer func() {
		if w.AudioPath == "" {
			return
		}
		if err := os.Remove(w.AudioPath); err != nil && !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("path", w.AudioPath).Msg("failed to remove staged audio")
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(t.jobID, fmt.Errorf("worker panic: %v", rec))
		}
	}()

	ctx := context.Background()
	r.update(t.jobID, Update{Status: ptr(StatusProcessing), Progress: ptr(10)})

	r.update(t.jobID, Update{Progress: ptr(20)})
	acquireStart := time.Now()
	eng, err := r.cache.Acquire(ctx, w.Engine, w.ModelSize, w.Load)
	if err != nil {
		r.fail(t.jobID, err)
		return
	}
	acquireMs := float64(time.Since(acquireStart).Microseconds()) / 1000

	r.update(t.jobID, Update{Progress: ptr(30)})
	inferenceStart := time.Now()
	res, err := eng.Transcribe(ctx, w.AudioPath, w.Transcribe)
	if err != nil {
		r.fail(t.jobID, err)
		return
	}
	inferenceMs := float64(time.Since(inferenceStart).Microseconds()) / 1000

	r.update(t.jobID, Update{Progress: ptr(80)})

	totalMs := float64(time.Since(start).Microseconds()) / 1000
	meta := types.ResultMetadata{
		Engine:          w.Engine,
		ModelSize:       w.ModelSize,
		Language:        res.Language,
		InferenceTimeMs: inferenceMs,
		AcquireTimeMs:   acquireMs,
		TotalTimeMs:     totalMs,
	}
	if n := len(res.Segments); n > 0 {
		meta.AudioDurationS = res.Segments[n-1].End
	}
	if meta.AudioDurationS > 0 {
		meta.RealTimeFactor = (totalMs / 1000) / meta.AudioDurationS
	}
	if r.monitor.Available() {
		if mem, err := r.monitor.Usage(); err == nil {
			meta.VRAMUsedMB = mem.UsedMB
		}
	}

	result := r.buildResult(w, res, meta)
	r.update(t.jobID, Update{
		Status:   ptr(StatusCompleted),
		Progress: ptr(100),
		Result:   result,
	})
	r.log.Info().
		Str("job_id", t.jobID).
		Float64("total_ms", totalMs).
		Float64("rtf", meta.RealTimeFactor).
		Msg("job completed")
}

func (r *Runner) buildResult(w Work, res types.TranscriptionResult, meta types.ResultMetadata) *types.JobResult {
	if w.Format == "json" {
		return &types.JobResult{
			Type:       "json",
			Transcript: &res,
			Metadata:   meta,
		}
	}
	return &types.JobResult{
		Type:     "srt",
		Content:  srt.New(w.Subtitle).Format(res.Segments),
		Filename: subtitleName(w.Filename),
		Metadata: meta,
	}
}

func (r *Runner) update(id string, u Update) {
	if _, ok := r.registry.Update(id, u); !ok {
		r.log.Warn().Str("job_id", id).Msg("update for unknown job")
	}
}

func (r *Runner) fail(id string, err error) {
	r.log.Error().Err(err).Str("job_id", id).Msg("job failed")
	r.registry.Update(id, Update{
		Status: ptr(StatusFailed),
		Error:  ptr(err.Error()),
	})
}

// subtitleName swaps the submitted filename's extension for .srt.
func subtitleName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "subtitles.srt"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".srt"
}
