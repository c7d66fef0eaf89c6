package digitalinput

import (
	"unsafe"

	"github.com/embeddedfw/pneumareactor/arena"
	"github.com/embeddedfw/pneumareactor/hal"
	"github.com/embeddedfw/pneumareactor/reactor"
	"github.com/embeddedfw/pneumareactor/timer"
)

// sampledRecord holds an hal.Pin interface value and a Handler
// closure, so records live in an ordinary Go slice rather than arena
// bytes; the arena instead tracks the registry's configured budget via
// Reserve.
type sampledRecord struct {
	declared  bool
	pin       hal.Pin
	handler   Handler
	threshold uint32
	integral  uint32
	reported  bool
}

// Sampled is the integrator-based input registry: one periodic
// reactor handler walks every declared input, nudging a per-input
// integrator toward whichever rail the pin currently reads, and
// reports a level change only once the integrator saturates.
type Sampled struct {
	rx     *reactor.Reactor
	wdog   *timer.Wheel
	period uint32 // sample period, in ticks

	arena   *arena.Arena
	records []sampledRecord

	samplerHandle reactor.Handle
}

// NewSampled constructs a Sampled registry of the given capacity and
// starts its periodic sampler immediately, armed at period ticks
// (typically a few milliseconds, expressed in whatever tick unit the
// caller's timer.Wheel uses).
func NewSampled(rx *reactor.Reactor, w *timer.Wheel, capacity int, period uint32, priority int, arenaBytes int) (*Sampled, error) {
	a := arena.New(arenaBytes, 0)
	var recordZero sampledRecord
	if err := a.Reserve(capacity * int(unsafe.Sizeof(recordZero))); err != nil {
		return nil, err
	}
	records := make([]sampledRecord, capacity)

	s := &Sampled{
		rx:      rx,
		wdog:    w,
		period:  period,
		arena:   a,
		records: records,
	}

	h, err := rx.Register(s.sample, priority, 1)
	if err != nil {
		return nil, err
	}
	s.samplerHandle = h

	if _, err := w.Arm(h, w.Now()+period, period, nil); err != nil {
		return nil, err
	}

	return s, nil
}

// Declare allocates a sampled-input slot. threshold is derived from
// filterTicks divided by the sample period, clamped to at least 1 so
// a nonzero filter always requires at least one sample to confirm.
func (s *Sampled) Declare(pin hal.Pin, handler Handler, filterTicks uint32) (Handle, error) {
	threshold := filterTicks / s.period
	if threshold == 0 {
		threshold = 1
	}

	for i := range s.records {
		if !s.records[i].declared {
			s.records[i] = sampledRecord{
				declared:  true,
				pin:       pin,
				handler:   handler,
				threshold: threshold,
			}
			return Handle(i), nil
		}
	}
	return invalidHandle, ErrSampledCapacityExceeded
}

// Read returns the last reported level for a sampled input.
func (s *Sampled) Read(h Handle) (bool, error) {
	if h < 0 || int(h) >= len(s.records) || !s.records[h].declared {
		return false, ErrUnknownInput
	}
	return s.records[h].reported, nil
}

// sample is the periodic reactor handler: for each declared input, nudge
// its integrator toward the rail the pin currently reads, reporting a
// transition exactly when the integrator reaches its threshold (rising)
// or zero (falling).
func (s *Sampled) sample(reactor.Payload) {
	for i := range s.records {
		rec := &s.records[i]
		if !rec.declared {
			continue
		}

		var transitioned bool
		var newLevel bool

		if rec.pin.Read() {
			if rec.integral < rec.threshold {
				rec.integral++
				if rec.integral == rec.threshold {
					transitioned, newLevel = true, true
				}
			}
		} else {
			if rec.integral > 0 {
				rec.integral--
				if rec.integral == 0 {
					transitioned, newLevel = true, false
				}
			}
		}

		if transitioned && newLevel != rec.reported {
			rec.reported = newLevel
			if rec.handler != nil {
				rec.handler(rec.pin.ID(), newLevel)
			}
		}
	}
}
