package store

import (
	"context"
	"errors"
	"time"
)

// ErrNoJob is returned by Next when nothing is pending and by Get for
// unknown ids.
var ErrNoJob = errors.New("no render job")

// JobStatus is the lifecycle of a render job.
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// RenderJob is one Ready timeline handed to the external renderer.
type RenderJob struct {
	ID        string
	Status    JobStatus
	Payload   []byte // timeline JSON
	Total     float64
	Segments  int
	Output    string
	Error     string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RenderQueue hands timelines to the renderer. Next claims the oldest
// pending job; each job is handed out once until it is requeued.
type RenderQueue interface {
	Enqueue(ctx context.Context, job *RenderJob) error
	Next(ctx context.Context) (*RenderJob, error)
	MarkDone(ctx context.Context, id, output string) error
	MarkFailed(ctx context.Context, id, reason string) error
	Get(ctx context.Context, id string) (*RenderJob, error)
}

// QueueMaintenance is used at startup to recover from a crashed renderer.
type QueueMaintenance interface {
	RequeueRunning(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[JobStatus]int, error)
}
