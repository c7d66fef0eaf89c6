// Package halsim implements the hal interfaces entirely in memory, so
// the reactor/timer/digital-IO stack can run and be tested without
// real hardware: one narrow interface, one concrete backing
// implementation, swappable per target.
//
// Interrupt sources are modeled as ordinary goroutines that call
// Port.Drive (followed by the consumer's port-change handler) or
// advance the tick, the same way a real ISR would mutate shared state
// before handing off to the reactor.
package halsim

import "sync"

// CriticalSection is a mutex-backed hal.CriticalSection.
type CriticalSection struct {
	mu sync.Mutex
}

// Enter locks the section and returns the matching unlock.
func (c *CriticalSection) Enter() (exit func()) {
	c.mu.Lock()
	return c.mu.Unlock
}

// Watchdog is a counting hal.WatchdogKicker for test assertions.
type Watchdog struct {
	mu    sync.Mutex
	kicks int
}

// Kick increments the kick counter.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	w.kicks++
	w.mu.Unlock()
}

// Kicks returns the number of times Kick has been called.
func (w *Watchdog) Kicks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.kicks
}
