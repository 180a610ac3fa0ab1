// Package logger provides the component loggers used across datapipe.
package logger

import "fmt"

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component. The output format is
// selected via the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}

// Recorder is a Logger that keeps every formatted line in memory. Tests use
// it to assert on log output.
type Recorder struct {
	Lines []string
}

func (r *Recorder) add(level, format string, args ...any) {
	r.Lines = append(r.Lines, level+" "+fmt.Sprintf(format, args...))
}

func (r *Recorder) Debugf(format string, args ...any) { r.add("DEBUG", format, args...) }
func (r *Recorder) Debugw(msg string, fields map[string]any) {
	r.add("DEBUG", "%s %v", msg, fields)
}
func (r *Recorder) Infof(format string, args ...any)  { r.add("INFO", format, args...) }
func (r *Recorder) Warnf(format string, args ...any)  { r.add("WARN", format, args...) }
func (r *Recorder) Errorf(format string, args ...any) { r.add("ERROR", format, args...) }
