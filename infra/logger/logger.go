// Package logger provides the zerolog backed implementation of the core
// logging interface.
package logger

import corelogger "github.com/alphapile/pilesched/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component using the output configured
// by Setup.
func New(component string) Logger {
	return NewZerologLogger(component)
}
