package reactor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/embeddedfw/pneumareactor/arena"
	"github.com/embeddedfw/pneumareactor/hal"
	"github.com/embeddedfw/pneumareactor/queue"
)

// maxNotifiedBits is the width of the notified bitset: one uint64, so
// at most 64 handlers can be tracked.
const maxNotifiedBits = 64

// Payload is the opaque value carried by a notification. Handlers
// receive typed payloads without an unsafe cast at every call site.
type Payload = any

// HandlerFunc is invoked by the main loop with the payload popped from
// its FIFO. It runs with interrupts enabled, outside any critical
// section.
type HandlerFunc func(Payload)

// Handle identifies a registered handler. It is an index into the
// registration-order table, stable for the life of the Reactor — bit
// positions are reassigned at Run, but Handle is not.
type Handle int

const invalidHandle Handle = -1

// handlerRecord is the state for one registered handler: its callback,
// its priority, its FIFO, and (once Run has started) its assigned bit
// position. It is ordinary Go-allocated memory — fn is a closure and
// fifo is a pointer, both of which the garbage collector must be able
// to trace, so this cannot be carved out of arena bytes.
type handlerRecord struct {
	handle   Handle
	fn       HandlerFunc
	priority int
	regOrder int
	fifo     *queue.Ring[Payload]
	bit      int // assigned at Run; index into notified/handlers
}

// Reactor is an asynchronous cooperative event dispatcher: a handler
// registry, a bitset of pending notifications, and a priority- and
// fairness-respecting main loop.
type Reactor struct {
	cs     hal.CriticalSection
	arena  *arena.Arena
	logger *Logger
	wd     hal.WatchdogKicker

	maxHandlers int

	mu       sync.Mutex // guards registration bookkeeping before Run
	handlers []*handlerRecord

	// order is the Run-time dispatch table: handlers sorted by
	// descending priority, ties by registration order. order[i]'s
	// handlerRecord.bit == i.
	order []*handlerRecord

	// notified is the notification bitset, one bit per entry in order.
	// Mutated only inside a critical section.
	notified uint64

	// cursor is the bit position last dispatched, used by
	// nextDispatchBit to rotate fairly among equal-priority handlers.
	// -1 before the first dispatch.
	cursor int

	state *atomicState

	wakeCh            chan struct{}
	wakeSignalPending atomic.Bool
	stopCh            chan struct{}
}

// New constructs a Reactor. The hal.CriticalSection stands in for
// "disable interrupts" / "restore interrupts" throughout; on real
// hardware it is a single global interrupt mask, here it is whatever
// the caller supplies (halsim.CriticalSection for simulation, a mutex,
// or a real platform-specific implementation).
func New(cs hal.CriticalSection, opts ...Option) (*Reactor, error) {
	cfg := resolveOptions(opts)

	if cfg.maxHandlers > maxNotifiedBits {
		return nil, fmt.Errorf("%w: got %d", ErrMaxHandlersTooLarge, cfg.maxHandlers)
	}

	a := arena.New(cfg.arenaBytes, cfg.arenaGuard)

	logger := cfg.logger
	if logger == nil {
		logger = nopLogger()
	}

	r := &Reactor{
		cs:          cs,
		arena:       a,
		logger:      logger,
		wd:          cfg.watchdog,
		maxHandlers: cfg.maxHandlers,
		cursor:      -1,
		state:       newAtomicState(),
		wakeCh:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
	}
	return r, nil
}

// Register adds a handler to the registration table. It must only be
// called before Run; calling it afterward returns ErrAlreadyRunning.
// Priorities are arbitrary small integers, larger meaning higher
// priority; ties are broken by registration order.
//
// The handler record and its FIFO are ordinary Go-allocated values —
// fn is a closure and the FIFO holds arbitrary Payload interface
// values, both of which the garbage collector must be able to trace —
// but their size is still charged against the arena's configured
// budget via Reserve, so the arena's poison/guard accounting remains
// meaningful for callers who use it to bound total handler memory.
func (r *Reactor) Register(fn HandlerFunc, priority int, queueCapacity int) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Load() != StateBuilt {
		return invalidHandle, ErrAlreadyRunning
	}
	if len(r.handlers) >= r.maxHandlers {
		return invalidHandle, ErrHandlerCapacityExceeded
	}

	var payloadZero Payload
	cost := int(unsafe.Sizeof(handlerRecord{})) + queueCapacity*int(unsafe.Sizeof(payloadZero))
	if err := r.arena.Reserve(cost); err != nil {
		return invalidHandle, fmt.Errorf("reactor: charging handler budget: %w", err)
	}

	h := Handle(len(r.handlers))
	rec := &handlerRecord{
		handle:   h,
		fn:       fn,
		priority: priority,
		regOrder: len(r.handlers),
		fifo:     queue.New[Payload](queueCapacity),
	}
	r.handlers = append(r.handlers, rec)

	r.logger.Info().Log("handler registered")
	return h, nil
}

// Notify is safe to call from any context, including an interrupt
// handler. It ring-pushes payload into handle's FIFO, silently
// overwriting the oldest entry on overflow (the newest event is
// considered the most relevant), and sets the handler's notification
// bit, waking the main loop if it is asleep.
func (r *Reactor) Notify(h Handle, payload Payload) error {
	if h < 0 || int(h) >= len(r.handlers) {
		return ErrUnknownHandle
	}

	exit := r.cs.Enter()
	rec := r.handlers[h]
	rec.fifo.PushTailRing(payload)
	r.notified |= uint64(1) << uint(rec.bit)
	exit()

	r.wake()
	return nil
}

// wake is the missed-wakeup-safe signal used to rouse Run from its
// idle sleep: the pending flag is CAS-set before the channel send, so
// a Notify landing between the loop's empty-bitset check and its
// channel receive still results in a wakeup instead of silently
// vanishing into a channel nobody is listening on yet.
func (r *Reactor) wake() {
	if r.wakeSignalPending.CompareAndSwap(false, true) {
		select {
		case r.wakeCh <- struct{}{}:
		default:
		}
	}
}

// Run freezes registration, sorts handlers into final dispatch order,
// and then loops: find the highest-priority notified handler, pop one
// payload, invoke its callback, and resume the next scan just after the
// dispatched bit — the round-robin fairness rule among equal
// priorities (see nextDispatchBit). Run blocks until ctx is cancelled or
// Stop is called.
func (r *Reactor) Run(ctx context.Context) error {
	if !r.state.TryTransition(StateBuilt, StateRunning) {
		return ErrAlreadyRunning
	}

	r.freeze()

	for {
		select {
		case <-ctx.Done():
			r.state.Store(StateStopped)
			return ctx.Err()
		case <-r.stopCh:
			r.state.Store(StateStopped)
			return nil
		default:
		}

		rec, payload, ok := r.popHighestPriority()
		if !ok {
			if !r.state.TryTransition(StateRunning, StateSleeping) {
				continue
			}
			select {
			case <-r.wakeCh:
				r.wakeSignalPending.Store(false)
			case <-ctx.Done():
				r.state.Store(StateStopped)
				return ctx.Err()
			case <-r.stopCh:
				r.state.Store(StateStopped)
				return nil
			}
			r.state.TryTransition(StateSleeping, StateRunning)
			continue
		}

		r.wd.Kick()
		rec.fn(payload)
	}
}

// Stop ends a running Run loop at its next iteration. It is safe to
// call from a goroutine other than the one running Run.
func (r *Reactor) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// freeze sorts handlers by descending priority (ties by registration
// order), assigns each its final bit position, and remaps any
// notification bits already set under the pre-freeze ordering. It
// runs once, with interrupts disabled for the whole reshuffle, before
// the first iteration of the dispatch loop.
func (r *Reactor) freeze() {
	defer r.cs.Enter()()

	order := make([]*handlerRecord, len(r.handlers))
	copy(order, r.handlers)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].priority > order[j].priority
	})

	// Before Run every handler's bit is still its zero value, so a
	// Notify issued before Run sets bit 0 whichever handler it targets.
	// The bitset is therefore rebuilt from FIFO occupancy under the new
	// bit positions rather than carried over.
	r.notified = 0
	for i, rec := range order {
		rec.bit = i
		if !rec.fifo.IsEmpty() {
			r.notified |= uint64(1) << uint(i)
		}
	}
	r.order = order
}

// popHighestPriority finds the next notification bit due for dispatch
// (see nextDispatchBit), pops one payload from that handler's FIFO,
// and clears the bit if the FIFO is now empty — all inside one
// critical section. ok is false if no bit is set.
func (r *Reactor) popHighestPriority() (rec *handlerRecord, payload Payload, ok bool) {
	defer r.cs.Enter()()

	if r.notified == 0 {
		return nil, nil, false
	}
	bit := r.nextDispatchBit()
	rec = r.order[bit]
	r.cursor = bit

	payload, popped := rec.fifo.PopHead()
	if !popped {
		panic(fmt.Errorf("%w: handler %d", ErrEmptyQueueInvariant, rec.handle))
	}
	if rec.fifo.IsEmpty() {
		r.notified &^= uint64(1) << uint(bit)
	}
	return rec, payload, true
}

// nextDispatchBit scans notified bits starting just after cursor and
// wrapping around, returning the highest-priority ready handler. A
// strictly higher-priority bit always preempts regardless of its
// distance from cursor; among equal-priority bits the one nearest
// after cursor wins, which gives every equal-priority handler one
// dispatch per rotation instead of letting the lowest bit starve the
// rest.
func (r *Reactor) nextDispatchBit() int {
	n := len(r.order)
	best := -1
	bestPriority := 0
	for k := 0; k < n; k++ {
		i := (r.cursor + 1 + k) % n
		if r.notified&(uint64(1)<<uint(i)) == 0 {
			continue
		}
		if best == -1 || r.order[i].priority > bestPriority {
			best = i
			bestPriority = r.order[i].priority
		}
	}
	return best
}
