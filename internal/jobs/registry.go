package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultMaxJobs = 100

// Registry is an in-memory job store. All records are lost on restart.
// A single mutex guards the map; every public operation holds it for its
// full duration, so reads after a completed update always observe it.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	maxJobs int
	log     zerolog.Logger
	now     func() time.Time
}

// NewRegistry builds an empty registry. maxJobs <= 0 selects the default
// capacity of 100 tracked jobs.
func NewRegistry(maxJobs int, log zerolog.Logger) *Registry {
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobs
	}
	return &Registry{
		jobs:    make(map[string]*Job),
		maxJobs: maxJobs,
		log:     log,
		now:     time.Now,
	}
}

// Create inserts a new pending job and returns its snapshot. When the
// registry is at capacity the cleanup sweep runs first, so in-flight jobs
// are never displaced by new submissions.
func (r *Registry) Create(format, filename string) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.jobs) >= r.maxJobs {
		r.cleanupLocked()
	}

	id := shortID()
	for _, taken := r.jobs[id]; taken; _, taken = r.jobs[id] {
		id = shortID()
	}

	j := &Job{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: r.now(),
		Format:    format,
		Filename:  filename,
	}
	r.jobs[id] = j
	r.log.Info().Str("job_id", id).Str("format", format).Msg("created job")
	return *j
}

// Get returns a snapshot of the job, or false if the id is unknown.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Update applies the non-nil fields of u to the job and returns the
// updated snapshot. Setting status to processing for the first time stamps
// StartedAt; setting a terminal status stamps CompletedAt. Updates to a
// job that is already terminal are applied as-is; callers are expected not
// to issue them.
func (r *Registry) Update(id string, u Update) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}

	if u.Status != nil {
		j.Status = *u.Status
		switch {
		case *u.Status == StatusProcessing && j.StartedAt.IsZero():
			j.StartedAt = r.now()
		case u.Status.Terminal():
			j.CompletedAt = r.now()
		}
	}
	if u.Progress != nil {
		j.Progress = *u.Progress
	}
	if u.Result != nil {
		j.Result = u.Result
	}
	if u.Error != nil {
		j.Error = *u.Error
	}
	return *j, true
}

// List returns snapshots of every tracked job, newest first.
func (r *Registry) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out
}

// Counts returns the number of jobs per status.
func (r *Registry) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, 4)
	for _, j := range r.jobs {
		counts[string(j.Status)]++
	}
	return counts
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// cleanupLocked removes the oldest half of the terminal jobs, ordered by
// completion time. Pending and processing jobs are never touched.
func (r *Registry) cleanupLocked() {
	var terminal []*Job
	for _, j := range r.jobs {
		if j.Status.Terminal() {
			terminal = append(terminal, j)
		}
	}
	// ID breaks ties so the sweep is deterministic on coarse clocks.
	sort.Slice(terminal, func(i, k int) bool {
		if terminal[i].CompletedAt.Equal(terminal[k].CompletedAt) {
			return terminal[i].ID < terminal[k].ID
		}
		return terminal[i].CompletedAt.Before(terminal[k].CompletedAt)
	})

	for _, j := range terminal[:len(terminal)/2] {
		delete(r.jobs, j.ID)
		r.log.Debug().Str("job_id", j.ID).Msg("cleaned up old job")
	}
}

// shortID returns an 8-character identifier. Uniqueness within the
// registry is enforced by the caller under the lock.
func shortID() string {
	return uuid.NewString()[:8]
}
