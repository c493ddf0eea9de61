// Package logging wires up the process-wide structured logger.
//
// It generalizes the teacher's hand-rolled structuredLog/logJSON helper
// (services/event_listener.go in the source repo) onto zap, so call
// sites keep the same "level, message, fields" shape.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields is a shorthand for structured log fields, matching the
// map[string]interface{} shape the teacher's logJSON helper used.
type Fields map[string]interface{}

// New builds a zap.SugaredLogger honoring LOG_LEVEL (debug, info, warn, error).
// Defaults to info. Output is JSON to stdout, matching the teacher's
// log.Println(jsonBytes) habit but through a real logging library.
func New(levelStr string) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if levelStr != "" {
		_ = level.Set(levelStr)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a basic logger rather than crash the process over
		// a logging misconfiguration.
		logger = zap.NewExample()
		logger.Sugar().Warnw("falling back to example logger", "error", err)
	}

	return logger.Sugar()
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Named returns a child logger tagged with the given service/component name,
// mirroring the teacher's per-service "service": "event-listener" field.
func Named(base *zap.SugaredLogger, service string) *zap.SugaredLogger {
	return base.With("service", service)
}

// LevelFromEnv reads LOG_LEVEL with an empty default.
func LevelFromEnv() string {
	return os.Getenv("LOG_LEVEL")
}
