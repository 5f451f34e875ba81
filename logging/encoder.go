package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Keys used in JSON log entries.
const (
	KeyTime    = "ts"
	KeyLevel   = "level"
	KeyLogger  = "source"
	KeyCaller  = "caller"
	KeyMessage = "msg"
	KeyStack   = "stack"
)

// JSONEncoderConfig is used for the log file and for non-development consoles.
func JSONEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        KeyTime,
		LevelKey:       KeyLevel,
		NameKey:        KeyLogger,
		CallerKey:      KeyCaller,
		MessageKey:     KeyMessage,
		StacktraceKey:  KeyStack,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// ConsoleEncoderConfig renders coloured levels and a clock-only timestamp.
func ConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := JSONEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05.000"))
	}
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}
