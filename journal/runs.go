package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go_enhance/enhance"
)

// RunRecord is one row of run history.
type RunRecord struct {
	RunID              string
	Kind               string
	Profile            string
	Success            bool
	Cancelled          bool
	Delegate           string
	FallbackCause      string
	Duration           time.Duration
	TilesTotal         int
	SeamMaxDelta       float32
	AcceleratorRetries int
	CreatedAt          time.Time
}

// RecordFromTelemetry flattens run telemetry into a history row.
func RecordFromTelemetry(t enhance.RunTelemetry) RunRecord {
	cause := enhance.CauseNone
	if t.FallbackUsed {
		cause = t.FallbackCause
	}
	return RunRecord{
		RunID:              t.RunID,
		Kind:               t.Kind,
		Profile:            t.Profile.String(),
		Success:            t.Success,
		Cancelled:          t.Cancelled,
		Delegate:           t.Delegate.String(),
		FallbackCause:      cause.String(),
		Duration:           t.Total,
		TilesTotal:         t.Tiles.Total,
		SeamMaxDelta:       t.Tiles.SeamMaxDelta,
		AcceleratorRetries: t.AcceleratorRetries,
		CreatedAt:          time.Now(),
	}
}

// RecordRun queues t for storage without blocking. It returns false if the
// queue is full or the journal is closing.
func (j *Journal) RecordRun(t enhance.RunTelemetry) bool {
	ok := j.runs.write(RecordFromTelemetry(t))
	if !ok {
		j.logger.Warn("run history queue full, dropping record", zap.String("run_id", t.RunID))
	}
	return ok
}

func (j *Journal) insertRunItem(item any) error {
	rec, ok := item.(RunRecord)
	if !ok {
		return fmt.Errorf("journal: unexpected run item %T", item)
	}
	if err := j.insertRun(context.Background(), rec); err != nil {
		j.logger.Error("failed to store run", zap.String("run_id", rec.RunID), zap.Error(err))
		return err
	}
	return nil
}

func (j *Journal) insertRun(ctx context.Context, r RunRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, kind, profile, success, cancelled, delegate, fallback_cause,
		   duration_ms, tiles_total, seam_max_delta, accelerator_retries, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Kind, r.Profile, r.Success, r.Cancelled, r.Delegate, r.FallbackCause,
		r.Duration.Milliseconds(), r.TilesTotal, r.SeamMaxDelta, r.AcceleratorRetries, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("journal: insert run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, kind, profile, success, cancelled, delegate, fallback_cause,
		   duration_ms, tiles_total, seam_max_delta, accelerator_retries, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var ms int64
		var created string
		if err := rows.Scan(&r.RunID, &r.Kind, &r.Profile, &r.Success, &r.Cancelled, &r.Delegate,
			&r.FallbackCause, &ms, &r.TilesTotal, &r.SeamMaxDelta, &r.AcceleratorRetries, &created); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}
