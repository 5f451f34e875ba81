package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Marker is the in-flight run left behind by a process that did not finish.
type Marker struct {
	Input     string
	Kind      string
	StartedAt time.Time
}

// MarkRunning records that a run over input is in progress. A marker that
// survives to the next start means the process died mid-run.
func (j *Journal) MarkRunning(ctx context.Context, input, kind string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO run_marker (id, input, kind, started_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET input = excluded.input, kind = excluded.kind, started_at = excluded.started_at`,
		input, kind, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("journal: mark running: %w", err)
	}
	return nil
}

// ClearRunning removes the in-flight marker.
func (j *Journal) ClearRunning(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM run_marker`); err != nil {
		return fmt.Errorf("journal: clear running: %w", err)
	}
	return nil
}

// RecoverCrash checks for a marker left by an earlier process. If one is
// found it is moved into the crash history and returned.
func (j *Journal) RecoverCrash(ctx context.Context) (*Marker, error) {
	var m Marker
	var started string
	err := j.db.QueryRowContext(ctx,
		`SELECT input, kind, started_at FROM run_marker WHERE id = 1`).
		Scan(&m.Input, &m.Kind, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: read marker: %w", err)
	}
	m.StartedAt = parseTime(started)

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO crash_events (input, kind, started_at, detected_at) VALUES (?, ?, ?, ?)`,
		m.Input, m.Kind, started, formatTime(time.Now())); err != nil {
		return nil, fmt.Errorf("journal: record crash: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_marker`); err != nil {
		return nil, fmt.Errorf("journal: clear marker: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("journal: commit: %w", err)
	}

	j.logger.Warn("previous run did not finish",
		zap.String("input", m.Input),
		zap.String("kind", m.Kind),
		zap.Time("started_at", m.StartedAt),
	)
	return &m, nil
}

// CrashCount returns the number of crashes detected within window of now.
func (j *Journal) CrashCount(ctx context.Context, window time.Duration) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM crash_events WHERE detected_at >= ?`,
		formatTime(time.Now().Add(-window))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal: count crashes: %w", err)
	}
	return n, nil
}

// CrashLoopSuspected reports whether at least threshold crashes were seen
// within window. A threshold of zero disables detection.
func (j *Journal) CrashLoopSuspected(ctx context.Context, threshold int, window time.Duration) (bool, error) {
	if threshold <= 0 {
		return false, nil
	}
	n, err := j.CrashCount(ctx, window)
	if err != nil {
		return false, err
	}
	return n >= threshold, nil
}

// ResetCrashes forgets the crash history, for example after a successful
// accelerated run.
func (j *Journal) ResetCrashes(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM crash_events`); err != nil {
		return fmt.Errorf("journal: reset crashes: %w", err)
	}
	return nil
}
