// Package reactor's logging is a thin façade over
// github.com/joeycumines/logiface, a structured-logging package with
// github.com/joeycumines/stumpy as its JSON backend.
//
// Logger is scoped per Reactor rather than a package-level global: a
// process hosting two independent nodes should not have their log
// streams interleave through one global.
package reactor

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type used throughout this module.
// E is fixed to *stumpy.Event, logiface's own JSON backend.
type Logger = logiface.Logger[*stumpy.Event]

// NewLogger constructs a default Logger writing newline-delimited JSON
// to os.Stderr via stumpy.
func NewLogger() *Logger {
	return stumpy.L.New(stumpy.L.WithStumpy())
}

// nopLogger is used internally whenever a Reactor/Wheel/service is
// configured with a nil logger, so call sites never need a nil check.
func nopLogger() *Logger {
	return logiface.New[*stumpy.Event]()
}
