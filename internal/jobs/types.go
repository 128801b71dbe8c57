// Package jobs tracks asynchronous transcription work: a registry holding
// job records through a fixed state machine, and a worker-pool runner that
// executes submitted work against the model cache.
//
// Files by concern:
//   - types.go: Job record, Status state machine, partial Update
//   - registry.go: thread-safe job store with overflow cleanup
//   - runner.go: fixed worker pool driving jobs to completion
package jobs

import (
	"time"

	"subtitld/pkg/types"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition out of s occurs.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one unit of submitted work. The Registry owns the authoritative
// copy; callers always receive value snapshots. Result is written once at
// completion and treated as immutable afterwards, so sharing the pointer
// across snapshots is safe.
type Job struct {
	ID       string
	Status   Status
	Progress int

	CreatedAt time.Time
	// StartedAt is zero until the first transition into processing.
	StartedAt time.Time
	// CompletedAt is zero until the job reaches a terminal status.
	CompletedAt time.Time

	Result *types.JobResult
	Error  string

	// Submission metadata, immutable after Create.
	Format   string
	Filename string
}

// Update is a partial mutation applied by Registry.Update. Nil fields are
// left untouched.
type Update struct {
	Status   *Status
	Progress *int
	Result   *types.JobResult
	Error    *string
}

func ptr[T any](v T) *T { return &v }
