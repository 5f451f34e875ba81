// Package logging wraps zap with the console and rotating-file setup shared by
// the engine, the journal and the command line tool.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures a Logger.
type Options struct {
	// Development selects the coloured console encoder and debug level.
	Development bool

	// Level overrides the level implied by Development when non-nil.
	Level *zapcore.Level

	// FilePath is the rotating JSON log file. Empty disables file output.
	FilePath string

	// Rotation tunes the file writer. Zero fields use defaults.
	Rotation RotationConfig

	// Console receives human-readable output. Nil means os.Stderr.
	Console io.Writer
}

// Logger is a thin wrapper over *zap.Logger. A nil *Logger discards everything.
type Logger struct {
	zap      *zap.Logger
	filePath string
}

// New builds a Logger that tees console output with an optional JSON file.
//
// Example:
//
//	logger, err := logging.New(logging.Options{Development: true, FilePath: "enhance.log"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Development {
		level = zapcore.DebugLevel
	}
	if opts.Level != nil {
		level = *opts.Level
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var file zapcore.WriteSyncer
	if opts.FilePath != "" {
		if err := ensureWritable(opts.FilePath); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = NewRotatingWriter(opts.FilePath, opts.Rotation)
	}

	core := newTeeCore(level, zapcore.AddSync(console), file, opts.Development)
	return &Logger{
		zap:      zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		filePath: opts.FilePath,
	}, nil
}

// NewNop returns a Logger that writes nothing.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// NewFromZap wraps an existing zap logger, typically an observer in tests.
func NewFromZap(z *zap.Logger) *Logger {
	if z == nil {
		return NewNop()
	}
	return &Logger{zap: z}
}

func ensureWritable(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if l != nil {
		l.zap.Debug(msg, fields...)
	}
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	if l != nil {
		l.zap.Info(msg, fields...)
	}
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if l != nil {
		l.zap.Warn(msg, fields...)
	}
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	if l != nil {
		l.zap.Error(msg, fields...)
	}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zap: l.zap.With(fields...), filePath: l.filePath}
}

// Named appends a segment to the logger name, shown as "source" in output.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zap: l.zap.Named(name), filePath: l.filePath}
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.zap
}

// FilePath returns the log file path, or "" when logging to console only.
func (l *Logger) FilePath() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}
