// Package queue implements a fixed-capacity ring buffer of opaque
// payloads, the bounded FIFO the reactor uses for each handler's
// pending-notification queue.
//
// The indexing scheme (a head cursor, explicit length, modular
// arithmetic over the capacity) is the same shape as the sliding-window ring
// buffer github.com/joeycumines/go-catrate uses for its rate-limit
// windows, simplified for this package's contract: that ring keeps its
// elements sorted and supports arbitrary-index insertion (it stores a
// sliding window of timestamps); this ring only ever pushes/pops at
// the two ends, so no Insert/Search is needed.
//
// Ring is not safe for concurrent use — callers (the reactor) bracket
// every mutation in a critical section standing in for "interrupts
// disabled".
package queue

// Ring is a fixed-capacity double-ended queue of T.
type Ring[T any] struct {
	buf  []T
	head int
	len  int
}

// New constructs a Ring with the given fixed capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// NewFromBuf constructs a Ring using a caller-provided, arena-allocated
// backing slice as its storage, rather than allocating its own.
func NewFromBuf[T any](buf []T) *Ring[T] {
	return &Ring[T]{buf: buf}
}

// Cap returns the fixed capacity of the ring.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len returns the number of elements currently queued.
func (r *Ring[T]) Len() int { return r.len }

// IsEmpty reports whether the ring holds no elements.
func (r *Ring[T]) IsEmpty() bool { return r.len == 0 }

// IsFull reports whether the ring is at capacity.
func (r *Ring[T]) IsFull() bool { return r.len == len(r.buf) }

func (r *Ring[T]) index(i int) int {
	n := len(r.buf)
	if n == 0 {
		return 0
	}
	return (r.head + i) % n
}

// PushTail appends x at the tail. Returns false without modifying the
// ring if it is already full.
func (r *Ring[T]) PushTail(x T) bool {
	if len(r.buf) == 0 || r.IsFull() {
		return false
	}
	r.buf[r.index(r.len)] = x
	r.len++
	return true
}

// PushHead prepends x at the head. Returns false without modifying the
// ring if it is already full.
func (r *Ring[T]) PushHead(x T) bool {
	if len(r.buf) == 0 || r.IsFull() {
		return false
	}
	n := len(r.buf)
	r.head = (r.head - 1 + n) % n
	r.buf[r.head] = x
	r.len++
	return true
}

// PopHead removes and returns the element at the head. ok is false,
// and the ring is left unmodified, if it was empty.
func (r *Ring[T]) PopHead() (x T, ok bool) {
	if r.len == 0 {
		return x, false
	}
	x = r.buf[r.head]
	var zero T
	r.buf[r.head] = zero
	r.head = r.index(1)
	r.len--
	return x, true
}

// PopTail removes and returns the element at the tail. ok is false,
// and the ring is left unmodified, if it was empty.
func (r *Ring[T]) PopTail() (x T, ok bool) {
	if r.len == 0 {
		return x, false
	}
	tail := r.index(r.len - 1)
	x = r.buf[tail]
	var zero T
	r.buf[tail] = zero
	r.len--
	return x, true
}

// PushTailRing appends x at the tail. If the ring is full, the oldest
// element (the head) is silently overwritten and the head cursor
// advances. This never fails: the newest event is considered the most
// relevant on notification overflow.
func (r *Ring[T]) PushTailRing(x T) {
	if len(r.buf) == 0 {
		return
	}
	if r.IsFull() {
		r.buf[r.head] = x
		r.head = r.index(1)
		return
	}
	r.buf[r.index(r.len)] = x
	r.len++
}

// Peek returns the element at the head without removing it.
func (r *Ring[T]) Peek() (x T, ok bool) {
	if r.len == 0 {
		return x, false
	}
	return r.buf[r.head], true
}

// Slice returns a newly allocated slice of the ring's contents in
// head-to-tail order, for diagnostics and tests. It is not on any
// invariant-critical path.
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.len)
	for i := 0; i < r.len; i++ {
		out[i] = r.buf[r.index(i)]
	}
	return out
}
