package reactor

import (
	"github.com/embeddedfw/pneumareactor/hal"
)

// config holds configuration resolved from Option values.
type config struct {
	maxHandlers int
	arenaBytes  int
	arenaGuard  int
	logger      *Logger
	watchdog    hal.WatchdogKicker
}

// Option configures a Reactor at construction.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithMaxHandlers sets the maximum number of handlers that may be
// registered. Exceeding it returns ErrHandlerCapacityExceeded. n must
// not exceed 64, the width of the notified bitset; New rejects larger
// values with ErrMaxHandlersTooLarge.
func WithMaxHandlers(n int) Option {
	return optionFunc(func(c *config) { c.maxHandlers = n })
}

// WithArena sizes the budget (bytes) and trailing guard band charged
// against handler registration, via Reserve, as handler records and
// FIFOs are registered.
func WithArena(bytes, guard int) Option {
	return optionFunc(func(c *config) { c.arenaBytes, c.arenaGuard = bytes, guard })
}

// WithLogger attaches a structured logger. A nil logger (the default)
// disables logging entirely.
func WithLogger(l *Logger) Option {
	return optionFunc(func(c *config) { c.logger = l })
}

// WithWatchdog attaches a hal.WatchdogKicker, kicked once per
// dispatched payload.
func WithWatchdog(w hal.WatchdogKicker) Option {
	return optionFunc(func(c *config) { c.watchdog = w })
}

const (
	defaultMaxHandlers = 32
	defaultArenaBytes  = 64 * 1024
	defaultArenaGuard  = 256
)

func resolveOptions(opts []Option) *config {
	c := &config{
		maxHandlers: defaultMaxHandlers,
		arenaBytes:  defaultArenaBytes,
		arenaGuard:  defaultArenaGuard,
		watchdog:    hal.NoopWatchdog{},
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.apply(c)
	}
	return c
}
