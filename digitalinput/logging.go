package digitalinput

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type used throughout this package,
// the same logiface/stumpy pairing reactor.Logger uses (see
// reactor/logging.go) — each service owns its own instance rather than
// sharing a package global.
type Logger = logiface.Logger[*stumpy.Event]

func nopLogger() *Logger {
	return logiface.New[*stumpy.Event]()
}
