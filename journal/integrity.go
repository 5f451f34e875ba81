package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go_enhance/integrity"
)

// IntegrityEvent is a stored digest mismatch.
type IntegrityEvent struct {
	integrity.Failure
	CreatedAt time.Time
}

// Report stores f. It satisfies integrity.Reporter; storage errors are logged
// since the gate has no way to act on them.
func (j *Journal) Report(f integrity.Failure) {
	if err := j.RecordIntegrityFailure(context.Background(), f); err != nil {
		j.logger.Error("failed to store integrity failure", zap.Error(err))
	}
}

// RecordIntegrityFailure stores a digest mismatch.
func (j *Journal) RecordIntegrityFailure(ctx context.Context, f integrity.Failure) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO integrity_failures (file_path, expected_digest, actual_digest, created_at) VALUES (?, ?, ?, ?)`,
		f.FilePath, f.ExpectedDigest, f.ActualDigest, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("journal: insert integrity failure: %w", err)
	}
	return nil
}

// IntegrityFailures returns up to limit failures, newest first.
func (j *Journal) IntegrityFailures(ctx context.Context, limit int) ([]IntegrityEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT file_path, expected_digest, actual_digest, created_at
		 FROM integrity_failures ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query integrity failures: %w", err)
	}
	defer rows.Close()

	var events []IntegrityEvent
	for rows.Next() {
		var ev IntegrityEvent
		var created string
		if err := rows.Scan(&ev.FilePath, &ev.ExpectedDigest, &ev.ActualDigest, &created); err != nil {
			return nil, fmt.Errorf("journal: scan integrity failure: %w", err)
		}
		ev.CreatedAt = parseTime(created)
		events = append(events, ev)
	}
	return events, rows.Err()
}
