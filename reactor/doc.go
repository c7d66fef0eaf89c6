// Package reactor implements a cooperative, single-threaded event
// dispatcher for the two-node pneumatic control firmware: a fixed-size
// handler registry, a priority- and round-robin-fair main loop, and an
// interrupt-safe notification path suitable for being called from both
// ordinary code and ISR context.
//
// # Registration and notification
//
// Handlers are registered with [Reactor.Register] before [Reactor.Run]
// starts; each gets its own FIFO and an arbitrary integer priority, with
// its memory footprint charged against the reactor's configured arena
// budget. [Reactor.Notify] is safe to call from any context — it sets
// a notification bit and ring-pushes a payload, both inside a
// [github.com/embeddedfw/pneumareactor/hal.CriticalSection], overwriting
// the oldest queued payload if the handler's FIFO is already full.
//
// # Dispatch
//
// Run freezes the registration table, sorts handlers by descending
// priority (ties broken by registration order), and then repeatedly:
// finds the highest-priority set notification bit, pops one payload
// from that handler's FIFO, invokes the handler, and resumes the next
// scan just after the bit it dispatched. A strictly higher-priority bit
// always preempts regardless of where the scan resumes, so a saturated
// high-priority handler can still starve lower-priority ones, but two
// or more handlers at the same priority are serviced in rotation — one
// payload each per pass — rather than one draining its queue before the
// next is touched at all.
//
// # Idle
//
// When no bit is set, Run transitions to StateSleeping and blocks on an
// internal wake channel rather than busy-polling. Notify's wake signal
// uses a CAS-guarded pending flag so a notification that lands in the
// window between the empty check and the channel receive is never
// lost.
//
// # Usage
//
//	rx, err := reactor.New(cs, reactor.WithMaxHandlers(8))
//	h, err := rx.Register(onEvent, 10, 4)
//	go rx.Run(ctx)
//	rx.Notify(h, somePayload)
package reactor
