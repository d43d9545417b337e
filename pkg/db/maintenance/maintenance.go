package maintenance

import (
	"context"
	"log/slog"
	"time"

	"riddlecut/pkg/db"
	"riddlecut/pkg/store"
)

// DefaultRetention is how long finished render jobs are kept.
const DefaultRetention = 14 * 24 * time.Hour

// Run recovers jobs abandoned by a crashed renderer and prunes old finished
// jobs. Failures are logged, never fatal. It blocks until completion.
func Run(ctx context.Context, q store.QueueMaintenance, d *db.DB, retention time.Duration) error {
	slog.Info("Starting render queue maintenance...")

	if n, err := q.RequeueRunning(ctx); err != nil {
		slog.Error("Requeue of running jobs failed", "error", err)
	} else if n > 0 {
		slog.Warn("Requeued jobs left running by a previous renderer", "count", n)
	}

	if retention <= 0 {
		retention = DefaultRetention
	}
	if n, err := d.PruneJobs(retention); err != nil {
		slog.Error("Job pruning failed", "error", err)
	} else {
		slog.Info("Job pruning completed", "removed", n)
	}

	counts, err := q.CountByStatus(ctx)
	if err != nil {
		return err
	}
	slog.Info("Render queue",
		"pending", counts[store.StatusPending],
		"done", counts[store.StatusDone],
		"failed", counts[store.StatusFailed])
	return nil
}
