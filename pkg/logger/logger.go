package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// The process-wide logger. Packages obtain child loggers through
// WithModule instead of holding their own zap configuration.
var global atomic.Pointer[zap.Logger]

func init() {
	// A no-op logger until Init runs, so early WithModule calls are safe.
	global.Store(zap.NewNop())
}

// Init builds the global production logger at the requested level.
// Unrecognised level strings fall back to info.
func Init(level string) error {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	global.Store(built)
	return nil
}

// Logger returns the current global logger.
func Logger() *zap.Logger {
	return global.Load()
}

// WithModule returns a child logger tagged with the owning module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Sync flushes buffered log entries.
func Sync() error {
	return Logger().Sync()
}
