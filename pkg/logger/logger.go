// Package logger provides the structured, levelled loggers for vayu, built
// on log/slog.
//
// Three named loggers exist, mirroring the server's traffic split:
//
//	logger.L      — "vayu.error"  — server lifecycle and errors (stderr)
//	logger.Access — "vayu.access" — one line per handled request (stdout)
//	logger.ASGI   — "vayu.asgi"   — protocol message tracing (stdout)
//
// Logging state is process-wide. Configure() applies a configuration
// payload exactly once; later calls are no-ops, so library code can call it
// defensively without clobbering the embedder's setup.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// LevelTrace is the most verbose level, below slog.LevelDebug. Protocol
// message tracing only activates at or below this level.
const LevelTrace slog.Level = slog.Level(-8)

var (
	mu         sync.Mutex
	configured bool

	errLevel    slog.LevelVar
	accessLevel slog.LevelVar
	asgiLevel   slog.LevelVar

	// L is the error/lifecycle logger.
	L *slog.Logger
	// Access is the per-request logger.
	Access *slog.Logger
	// ASGI is the protocol trace logger.
	ASGI *slog.Logger
)

func init() {
	applyConfig(DefaultConfig())
}

// Configure applies a logging configuration payload. The first call wins;
// subsequent calls return immediately.
func Configure(cfg *Config) error {
	mu.Lock()
	defer mu.Unlock()
	if configured {
		return nil
	}
	configured = true
	if cfg == nil {
		return nil
	}
	return applyConfig(cfg)
}

// ConfigureFile loads a configuration file (.json, .yaml/.yml, or INI-style
// for any other extension) and applies it as with Configure.
func ConfigureFile(path string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	return Configure(cfg)
}

func applyConfig(cfg *Config) error {
	for name, lv := range cfg.Levels {
		level, err := ParseLevel(lv)
		if err != nil {
			return err
		}
		switch name {
		case "vayu.error":
			errLevel.Set(level)
		case "vayu.access":
			accessLevel.Set(level)
		case "vayu.asgi":
			asgiLevel.Set(level)
		}
	}

	defaultFmt := cfg.Formatters["default"]
	accessFmt := cfg.Formatters["access"]

	L = slog.New(newHandler(os.Stderr, defaultFmt, &errLevel)).With("logger", "vayu.error")
	Access = slog.New(newHandler(os.Stdout, accessFmt, &accessLevel)).With("logger", "vayu.access")
	ASGI = slog.New(newHandler(os.Stdout, defaultFmt, &asgiLevel)).With("logger", "vayu.asgi")
	slog.SetDefault(L)
	return nil
}

// SetLevel overrides the level of all three loggers. Called after Configure
// when an explicit log level was requested.
func SetLevel(level slog.Level) {
	errLevel.Set(level)
	accessLevel.Set(level)
	asgiLevel.Set(level)
}

// DisableAccess silences the access logger entirely.
func DisableAccess() {
	mu.Lock()
	defer mu.Unlock()
	Access = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TraceEnabled reports whether the error logger would emit TRACE records.
func TraceEnabled() bool {
	return L.Enabled(context.Background(), LevelTrace)
}

// ─── Short-hand helpers (error logger) ────────────────────────────────────────

// Trace logs at TRACE level.
func Trace(msg string, args ...any) { L.Log(context.Background(), LevelTrace, msg, args...) }

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
