package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PruneResult counts rows removed by Prune.
type PruneResult struct {
	Runs              int64
	IntegrityFailures int64
	Crashes           int64
}

// Total is the number of rows removed.
func (r PruneResult) Total() int64 { return r.Runs + r.IntegrityFailures + r.Crashes }

// Prune deletes history older than retention in one transaction. A zero
// retention keeps everything.
func (j *Journal) Prune(ctx context.Context, retention time.Duration) (PruneResult, error) {
	var res PruneResult
	if retention < 0 {
		return res, fmt.Errorf("journal: negative retention %v", retention)
	}
	if retention == 0 {
		return res, nil
	}
	cutoff := formatTime(time.Now().Add(-retention))

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range []struct {
		query string
		n     *int64
	}{
		{`DELETE FROM runs WHERE created_at < ?`, &res.Runs},
		{`DELETE FROM integrity_failures WHERE created_at < ?`, &res.IntegrityFailures},
		{`DELETE FROM crash_events WHERE detected_at < ?`, &res.Crashes},
	} {
		r, err := tx.ExecContext(ctx, t.query, cutoff)
		if err != nil {
			return PruneResult{}, fmt.Errorf("journal: prune: %w", err)
		}
		if *t.n, err = r.RowsAffected(); err != nil {
			return PruneResult{}, fmt.Errorf("journal: prune: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return PruneResult{}, fmt.Errorf("journal: commit: %w", err)
	}

	if res.Total() > 0 {
		j.logger.Info("journal pruned",
			zap.Int64("runs", res.Runs),
			zap.Int64("integrity_failures", res.IntegrityFailures),
			zap.Int64("crashes", res.Crashes),
		)
	}
	return res, nil
}
