// Package monitoring routes diagnostic output into three streams: ops for
// actionable warnings and lifecycle events, diag for day-to-day tuning
// context, and trace for per-sample chatter. Each stream can be sent to its
// own writer or switched off.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   = newLogger(os.Stderr)
	diagLogger  = newLogger(os.Stderr)
	traceLogger *log.Logger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger(w.Ops)
	diagLogger = newLogger(w.Diag)
	traceLogger = newLogger(w.Trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}

func emit(l *log.Logger, prefix, format string, args []interface{}) {
	if l == nil {
		return
	}
	l.Output(3, prefix+fmt.Sprintf(format, args...))
}

// Logger tags lines from one component. The zero value logs untagged.
type Logger struct {
	prefix string
}

// For returns a Logger that prefixes every line with "[component] ".
func For(component string) Logger {
	return Logger{prefix: "[" + component + "] "}
}

// Opsf logs to the ops stream (actionable warnings, errors, lifecycle events).
func (l Logger) Opsf(format string, args ...interface{}) {
	mu.RLock()
	o := opsLogger
	mu.RUnlock()
	emit(o, l.prefix, format, args)
}

// Diagf logs to the diag stream (day-to-day diagnostics, tuning context).
func (l Logger) Diagf(format string, args ...interface{}) {
	mu.RLock()
	d := diagLogger
	mu.RUnlock()
	emit(d, l.prefix, format, args)
}

// Tracef logs to the trace stream (high-frequency per-sample telemetry).
func (l Logger) Tracef(format string, args ...interface{}) {
	mu.RLock()
	t := traceLogger
	mu.RUnlock()
	emit(t, l.prefix, format, args)
}

// Logf is the package-level diagnostic logger. It writes to the ops stream
// by default but may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = Logger{}.Opsf

// SetLogger replaces Logf. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
