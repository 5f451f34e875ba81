package logging

import "go.uber.org/zap/zapcore"

// newTeeCore writes JSON to file (when non-nil) and a console rendition to
// console. Development consoles get the coloured encoder, otherwise JSON.
func newTeeCore(level zapcore.Level, console, file zapcore.WriteSyncer, development bool) zapcore.Core {
	var consoleEncoder zapcore.Encoder
	if development {
		consoleEncoder = zapcore.NewConsoleEncoder(ConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(JSONEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, console, level)
	if file == nil {
		return consoleCore
	}

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(JSONEncoderConfig()), file, level)
	return zapcore.NewTee(consoleCore, fileCore)
}
