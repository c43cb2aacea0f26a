package reactive

import (
	"log/slog"
	"sync/atomic"
)

// DebugConfig controls debugging output of the engine.
type DebugConfig struct {
	// LogEffectRuns logs each effect run with its duration and dependency
	// count at debug level.
	// Default: false.
	LogEffectRuns bool
}

// DefaultDebugConfig returns a DebugConfig with all debugging disabled.
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		LogEffectRuns: false,
	}
}

// Debug is the global debug configuration.
// Modify this at application startup, before any effect runs.
var Debug = DefaultDebugConfig()

// pkgLogger receives the engine's diagnostics. nil means slog.Default().
var pkgLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used for diagnostics such as rejected readonly
// writes. Passing nil restores slog.Default().
func SetLogger(l *slog.Logger) {
	pkgLogger.Store(l)
}

// logger returns the configured logger.
func logger() *slog.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}
