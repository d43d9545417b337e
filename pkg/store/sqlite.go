package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"riddlecut/pkg/db"
)

// SQLiteStore implements RenderQueue on the render_jobs table.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NewJob builds a pending job whose payload is v encoded as JSON.
func NewJob(id string, v any, total float64, segments int) (*RenderJob, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}
	return &RenderJob{ID: id, Status: StatusPending, Payload: payload, Total: total, Segments: segments}, nil
}

// Decode unmarshals the job payload into v.
func (j *RenderJob) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// --- RenderQueue ---

func (s *SQLiteStore) Enqueue(ctx context.Context, job *RenderJob) error {
	if job.ID == "" {
		return errors.New("render job has no id")
	}
	payload, err := compress(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to compress payload: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, status, payload, total_seconds, segments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, StatusPending, payload, job.Total, job.Segments, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	job.Status = StatusPending
	job.CreatedAt, job.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) Next(ctx context.Context) (*RenderJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM render_jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1", StatusPending).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoJob
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE render_jobs SET status = ?, attempts = attempts + 1, updated_at = ? WHERE id = ?",
		StatusRunning, time.Now().UnixMilli(), id); err != nil {
		return nil, err
	}
	job, err := scanJob(tx.QueryRowContext(ctx, selectJob+" WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SQLiteStore) MarkDone(ctx context.Context, id, output string) error {
	return s.finish(ctx, id, StatusDone, output, "")
}

func (s *SQLiteStore) MarkFailed(ctx context.Context, id, reason string) error {
	return s.finish(ctx, id, StatusFailed, "", reason)
}

func (s *SQLiteStore) finish(ctx context.Context, id string, status JobStatus, output, reason string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE render_jobs SET status = ?, output = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?",
		status, output, reason, time.Now().UnixMilli(), id, StatusRunning)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s is not running: %w", id, ErrNoJob)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*RenderJob, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, selectJob+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoJob
	}
	return job, err
}

// --- QueueMaintenance ---

// RequeueRunning returns jobs left running by a crashed renderer to pending.
func (s *SQLiteStore) RequeueRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE render_jobs SET status = ?, updated_at = ? WHERE status = ?",
		StatusPending, time.Now().UnixMilli(), StatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, count(*) FROM render_jobs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[JobStatus]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[JobStatus(st)] = n
	}
	return out, rows.Err()
}

const selectJob = `SELECT id, status, payload, total_seconds, segments, output, error, attempts, created_at, updated_at FROM render_jobs`

func scanJob(row *sql.Row) (*RenderJob, error) {
	var (
		j                RenderJob
		status           string
		payload          []byte
		total            sql.NullFloat64
		segments         sql.NullInt64
		output, reason   sql.NullString
		created, updated int64
	)
	if err := row.Scan(&j.ID, &status, &payload, &total, &segments, &output, &reason, &j.Attempts, &created, &updated); err != nil {
		return nil, err
	}
	data, err := decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("job %s: corrupt payload: %w", j.ID, err)
	}
	j.Status = JobStatus(status)
	j.Payload = data
	j.Total = total.Float64
	j.Segments = int(segments.Int64)
	j.Output = output.String
	j.Error = reason.String
	j.CreatedAt = time.UnixMilli(created)
	j.UpdatedAt = time.UnixMilli(updated)
	return &j, nil
}

// --- Compression Pooling ---

var (
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// decompress returns data unchanged when it is not gzip encoded.
func decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
