// Package telemetry builds the structured logger used throughout the
// replay engine. A single *zap.Logger is constructed once and threaded
// through constructors explicitly -- nothing here reaches for a package
// level global.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style zap logger. When debug is true the encoder
// switches to a human-readable console format and the level is lowered to
// Debug; otherwise it emits JSON at Info level, suitable for log shipping.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Noop returns a logger that discards everything, for use in tests that do
// not care about log output.
func Noop() *zap.Logger {
	return zap.NewNop()
}
