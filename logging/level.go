package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a zap level, returning def for anything
// unrecognised.
func ParseLevel(s string, def zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return def
	}
}

// LevelFromEnv reads a level name from the environment variable key.
func LevelFromEnv(key string, def zapcore.Level) zapcore.Level {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return ParseLevel(v, def)
}
