// Package timer implements a software timer wheel driven by a 1 ms
// monotonic tick: arm one-shot or repeating futures against a
// [github.com/embeddedfw/pneumareactor/reactor.Reactor] handler, and
// have them dispatched in deadline order even as the tick counter
// wraps.
//
// Tick is meant to be called from whatever stands in for the hardware
// millisecond interrupt (a real timer peripheral, or a goroutine in
// simulation); every call both advances the monotonic counter and
// notifies the wheel's own reactor handler, so the actual firing of
// due futures always happens on the reactor's dispatch loop rather
// than on the tick source's own call stack.
package timer
