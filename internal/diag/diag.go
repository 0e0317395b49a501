// Package diag provides opt-in trace logging for the core components.
//
// Centralizes opt-in debug output into a single Logger that every
// component takes an (optional) reference to: nil by default, so the
// hot path never pays for a log call, and a single *log.Logger
// underneath when a caller wants a trace.
package diag

import (
	"log"
	"os"
)

// Logger is the trace sink passed to CPU/PPU/APU/Mapper components.
// A nil *Logger is valid and disables tracing entirely.
type Logger struct {
	out     *log.Logger
	enabled bool
}

// New creates a Logger writing to os.Stderr, disabled by default.
func New() *Logger {
	return &Logger{out: log.New(os.Stderr, "", log.LstdFlags)}
}

// Enable turns tracing on or off.
func (l *Logger) Enable(on bool) {
	if l == nil {
		return
	}
	l.enabled = on
}

// Enabled reports whether tracing is currently on. Safe on a nil Logger.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Tracef logs a formatted trace line if tracing is enabled.
func (l *Logger) Tracef(format string, args ...any) {
	if l == nil || !l.enabled {
		return
	}
	l.out.Printf(format, args...)
}
