package reactor

import "errors"

// Sentinel errors so callers can match with errors.Is rather than
// parsing strings.
var (
	// ErrAlreadyRunning is returned by Register when called after Run
	// has started; registering a new handler mid-flight would require
	// rebuilding the dispatch order, so this package surfaces it as an
	// error instead of silently ignoring it.
	ErrAlreadyRunning = errors.New("reactor: register called after run has started")

	// ErrNotRunning reports an operation on a reactor whose Run loop is
	// not active. No function in this package currently returns it.
	ErrNotRunning = errors.New("reactor: reactor is not running")

	// ErrHandlerCapacityExceeded is returned by Register once the
	// configured maximum number of handlers has been registered.
	ErrHandlerCapacityExceeded = errors.New("reactor: handler capacity exceeded")

	// ErrUnknownHandle is returned by Notify when given a Handle this
	// Reactor did not issue.
	ErrUnknownHandle = errors.New("reactor: unknown handler handle")

	// ErrEmptyQueueInvariant guards against a notification bit set with
	// no corresponding payload, meaning the bitset and the per-handler
	// FIFO have diverged.
	ErrEmptyQueueInvariant = errors.New("reactor: invariant violation: notification bit set but queue empty")

	// ErrMaxHandlersTooLarge is returned by New when the configured
	// maximum handler count exceeds the width of the notified bitset.
	ErrMaxHandlersTooLarge = errors.New("reactor: maxHandlers exceeds the 64-bit notification bitset width")
)
