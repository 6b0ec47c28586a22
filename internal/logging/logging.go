// Package logging builds the process-wide zap logger and hands out tagged
// children, one per subsystem, mirroring the per-file loggers the dashboard
// stack uses on its side.
package logging

import (
	"regexp"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	base = zap.NewNop()
)

// Init replaces the process logger. Level is one of debug, info, warn, error;
// anything unrecognized falls back to info.
func Init(level string) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	base = logger
	mu.Unlock()
	return nil
}

// Tagged returns a named child logger for one subsystem.
func Tagged(tag string) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.Named(tag)
}

var apiKeyPattern = regexp.MustCompile(`"api_key"\s*:\s*"[^"]*"`)

// Redact scrubs API keys from raw frames before they reach a log line.
func Redact(message string) string {
	return apiKeyPattern.ReplaceAllString(message, `"api_key":"[REDACTED]"`)
}
