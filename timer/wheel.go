package timer

import (
	"sort"
	"sync"

	"github.com/embeddedfw/pneumareactor/reactor"
)

// future is one pending arm: a target handler, a payload to deliver,
// and the deadline/repeat pair governing when and how often it fires.
type future struct {
	instance uint64
	deadline uint32
	repeat   uint32
	target   reactor.Handle
	payload  reactor.Payload
}

// Wheel is a software timer wheel: a monotonic 1 ms counter and a
// capacity-bounded list of futures kept sorted by signed distance from
// "now", so insertion and cancellation are O(N) over a small N rather
// than O(log N) over an unbounded heap, trading a dynamic heap for a
// small flat array sized for this firmware's bounded timer count.
//
// Wheel is safe for concurrent use: Tick, Arm, and Cancel may be called
// from different goroutines (standing in for an ISR and ordinary
// code), all guarded by one mutex the same way the reactor guards its
// own state with a hal.CriticalSection.
type Wheel struct {
	mu sync.Mutex

	now      uint32
	futures  []future
	nextID   uint64
	capacity int

	rx     *reactor.Reactor
	handle reactor.Handle
}

// New constructs a Wheel bound to rx, registering its own dispatch
// callback as a single internal reactor handler, normally registered
// at very high priority so due timers are dispatched ahead of other
// work. capacity bounds the number of simultaneously pending futures.
func New(rx *reactor.Reactor, capacity int, dispatchPriority int) (*Wheel, error) {
	w := &Wheel{
		rx:       rx,
		capacity: capacity,
	}
	h, err := rx.Register(w.dispatch, dispatchPriority, 1)
	if err != nil {
		return nil, err
	}
	w.handle = h
	return w, nil
}

// Now returns the current tick count. Wheel satisfies hal.Clock.
func (w *Wheel) Now() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

// Tick advances the monotonic counter by one millisecond and notifies
// the wheel's reactor handler, standing in for the hardware tick
// interrupt that drives the wheel on real silicon.
func (w *Wheel) Tick() error {
	w.mu.Lock()
	w.now++
	w.mu.Unlock()
	return w.rx.Notify(w.handle, nil)
}

// signedDistance treats deadline-now as a signed 32-bit quantity, so a
// deadline just past a counter wraparound still compares as "after"
// now rather than as a huge unsigned gap.
func signedDistance(deadline, now uint32) int32 {
	return int32(deadline - now)
}

// Arm inserts a future at the position that keeps the wheel sorted by
// signed distance from now, assigns it a new monotonically increasing
// instance id, and returns that id. Two futures armed with the same
// deadline fire in arm order.
func (w *Wheel) Arm(target reactor.Handle, deadline uint32, repeat uint32, payload reactor.Payload) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.futures) >= w.capacity {
		return 0, ErrWheelFull
	}

	id := w.nextID
	w.nextID++

	w.insertLocked(future{
		instance: id,
		deadline: deadline,
		repeat:   repeat,
		target:   target,
		payload:  payload,
	})
	return id, nil
}

// insertLocked inserts f at the position that keeps w.futures sorted
// ascending by signed distance from w.now, placing it after any
// existing entries at the same distance to preserve arm-order FIFO
// among ties.
func (w *Wheel) insertLocked(f future) {
	now := w.now
	idx := sort.Search(len(w.futures), func(i int) bool {
		return signedDistance(w.futures[i].deadline, now) > signedDistance(f.deadline, now)
	})
	w.futures = append(w.futures, future{})
	copy(w.futures[idx+1:], w.futures[idx:])
	w.futures[idx] = f
}

// Cancel scans for the future matching instance and removes it,
// shifting subsequent entries left. It returns false if the instance
// is unknown (already fired, or never armed); callers holding a stale
// id must either re-check state when their callback eventually runs,
// or treat Cancel as purely best-effort.
func (w *Wheel) Cancel(instance uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, f := range w.futures {
		if f.instance == instance {
			w.futures = append(w.futures[:i], w.futures[i+1:]...)
			return true
		}
	}
	return false
}

// dispatch is the wheel's own reactor handler, invoked once per Tick
// notification. It pops every future whose deadline is no later than
// now, re-arms the repeating ones at deadline+repeat (relative to
// their own previous deadline, not to wall-clock wake time, so a
// period stays stable across dispatch jitter), and then notifies each
// due future's target handler — outside the lock, so the wheel's mutex
// is never held across a call into the reactor.
func (w *Wheel) dispatch(reactor.Payload) {
	w.mu.Lock()
	now := w.now

	i := 0
	for i < len(w.futures) && signedDistance(w.futures[i].deadline, now) <= 0 {
		i++
	}
	due := append([]future(nil), w.futures[:i]...)
	w.futures = w.futures[i:]

	for _, f := range due {
		if f.repeat > 0 {
			f.deadline += f.repeat
			w.insertLocked(f)
		}
	}
	w.mu.Unlock()

	for _, f := range due {
		_ = w.rx.Notify(f.target, f.payload)
	}
}
