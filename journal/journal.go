// Package journal keeps a small SQLite record of enhancement runs: the
// in-flight marker used for crash-loop detection, integrity failures and a
// history of finished runs.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"go_enhance/logging"
)

// Journal is safe for concurrent use.
type Journal struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
	runs   *asyncWriter
}

// Open creates the database file if needed, applies migrations and starts
// the background run writer.
func Open(path string, logger *logging.Logger) (*Journal, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}
	if err := migrateUp(path); err != nil {
		return nil, err
	}
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		db:     db,
		path:   path,
		logger: logger.Named("journal"),
	}
	j.runs = newAsyncWriter(j.insertRunItem, DefaultQueueCapacity, DefaultDrainTimeout)
	j.runs.start()
	j.logger.Debug("journal opened", zap.String("path", path))
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Close drains queued run records and closes the database.
func (j *Journal) Close() error {
	if !j.runs.stop() {
		j.logger.Warn("run history not fully drained before close")
	}
	if n := j.runs.droppedCount(); n > 0 {
		j.logger.Warn("run records dropped", zap.Int("count", n))
	}
	return j.db.Close()
}

// Ping checks the connection.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02 15:04:05.000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
