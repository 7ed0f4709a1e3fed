// Package logger builds the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds a zap logger with the given encoding ("console" or "json")
// and level. Unknown levels fall back to info. Logs go to stderr so they
// never mix with command output on stdout.
func Init(format string, logLevel string) (*zap.Logger, error) {
	return InitTo(format, logLevel, "stderr")
}

// InitTo is Init writing to path, a file or "stderr"/"stdout".
func InitTo(format, logLevel, path string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level, err := zapcore.ParseLevel(logLevel); err == nil {
		lvl = level
	}
	if format != "json" {
		format = "console"
	}

	cfg := &zap.Config{
		Level:    zap.NewAtomicLevelAt(lvl),
		Encoding: format,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "severity",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	}

	return cfg.Build(zap.AddStacktrace(zap.DPanicLevel))
}

// Install builds a logger with Init and makes it the zap global.
// The returned func flushes and restores the previous globals.
func Install(format, logLevel string) (func(), error) {
	return InstallTo(format, logLevel, "stderr")
}

// InstallTo is Install writing to path.
func InstallTo(format, logLevel, path string) (func(), error) {
	l, err := InitTo(format, logLevel, path)
	if err != nil {
		return nil, err
	}
	restore := zap.ReplaceGlobals(l)
	return func() {
		_ = l.Sync()
		restore()
	}, nil
}
