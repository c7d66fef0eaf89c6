package reactor

import "sync/atomic"

// State is the current lifecycle stage of a Reactor, an atomic
// CAS-based state machine. The reactor never tears down its handler
// registry, so there is no Terminating/Terminated pair — only a
// Stopped state reachable via Stop, which exists purely so tests and
// the demo binary can end a goroutine running Run.
//
//	Built (0) → Running (1)     [Run()]
//	Running (1) → Sleeping (2)  [idle branch, CAS]
//	Sleeping (2) → Running (1)  [woken, CAS]
//	Running/Sleeping → Stopped  [Stop()]
type State uint32

const (
	// StateBuilt indicates the reactor has been constructed but Run has
	// not yet been called; registration is open.
	StateBuilt State = iota
	// StateRunning indicates the main loop is actively dispatching.
	StateRunning
	// StateSleeping indicates the main loop found no pending
	// notifications and is blocked waiting to be woken.
	StateSleeping
	// StateStopped indicates Stop was called; Run has returned or is
	// about to.
	StateStopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateBuilt:
		return "Built"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// atomicState is a lock-free state machine: CAS for the reversible
// Running/Sleeping transitions, plain Store for the irreversible
// Stopped transition.
type atomicState struct {
	v atomic.Uint32
}

func newAtomicState() *atomicState {
	s := &atomicState{}
	s.v.Store(uint32(StateBuilt))
	return s
}

func (s *atomicState) Load() State {
	return State(s.v.Load())
}

func (s *atomicState) Store(state State) {
	s.v.Store(uint32(state))
}

func (s *atomicState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

func (s *atomicState) IsRunning() bool {
	switch s.Load() {
	case StateRunning, StateSleeping:
		return true
	default:
		return false
	}
}
