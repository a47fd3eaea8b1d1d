package softmask

import (
	"context"
	"log/slog"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// packageLogger is the default logger for contexts created without
// Options.Logger. No atomics: softmask is single-threaded.
var packageLogger = newNopLogger()

// SetLogger configures the default logger used by every Context that was
// created without its own Options.Logger. By default softmask produces no log
// output. Pass nil to restore the silent default.
//
// Log levels used by softmask:
//   - [slog.LevelDebug]: buffer (re)allocation, render passes
//   - [slog.LevelWarn]: material cache working set above Options.CacheWarnSize
//   - [slog.LevelError]: consistency errors (unknown cache key, missing geometry)
//
// Example:
//
//	softmask.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	packageLogger = l
}

// Logger returns the current default logger.
func Logger() *slog.Logger {
	return packageLogger
}
