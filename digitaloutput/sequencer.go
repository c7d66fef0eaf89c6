package digitaloutput

import (
	"unsafe"

	"github.com/embeddedfw/pneumareactor/arena"
	"github.com/embeddedfw/pneumareactor/hal"
	"github.com/embeddedfw/pneumareactor/reactor"
	"github.com/embeddedfw/pneumareactor/timer"
)

// Handle identifies a declared output.
type Handle int

const invalidHandle Handle = -1

// outputRecord holds an hal.Pin interface value and a sequence string
// (itself a pointer to its backing bytes), so records live in an
// ordinary Go slice rather than arena bytes; the arena instead tracks
// the table's configured budget via Reserve.
type outputRecord struct {
	declared bool
	pin      hal.Pin

	sequence string
	pos      int
	exponent int
	period   uint32
	repeat   bool

	armed    bool
	instance uint64
}

// Sequencer is the digital output service: a fixed-capacity,
// budget-tracked table of declared pins, each optionally running a
// sequence played back one step at a time through a timer.Wheel.
type Sequencer struct {
	rx   *reactor.Reactor
	wdog *timer.Wheel

	arena   *arena.Arena
	records []outputRecord

	playHandle reactor.Handle
}

// New constructs a Sequencer of the given capacity, registering the
// single dedicated reactor handler that plays every declared output's
// sequence.
func New(rx *reactor.Reactor, w *timer.Wheel, capacity int, priority int, arenaBytes int) (*Sequencer, error) {
	a := arena.New(arenaBytes, 0)
	var recordZero outputRecord
	if err := a.Reserve(capacity * int(unsafe.Sizeof(recordZero))); err != nil {
		return nil, err
	}
	records := make([]outputRecord, capacity)

	s := &Sequencer{rx: rx, wdog: w, arena: a, records: records}

	h, err := rx.Register(s.play, priority, capacity)
	if err != nil {
		return nil, err
	}
	s.playHandle = h

	return s, nil
}

// Declare allocates output state for pin without touching it.
func (s *Sequencer) Declare(pin hal.Pin) (Handle, error) {
	for i := range s.records {
		if !s.records[i].declared {
			s.records[i] = outputRecord{declared: true, pin: pin}
			return Handle(i), nil
		}
	}
	return invalidHandle, ErrCapacityExceeded
}

func (s *Sequencer) recordFor(h Handle) (*outputRecord, error) {
	if h < 0 || int(h) >= len(s.records) || !s.records[h].declared {
		return nil, ErrUnknownOutput
	}
	return &s.records[h], nil
}

// cancelRunning cancels rec's previously armed playback timer, if any.
// Arming races are prevented by cancelling the previous timer on every
// state-changing call.
func (s *Sequencer) cancelRunning(rec *outputRecord) {
	if rec.armed {
		s.wdog.Cancel(rec.instance)
		rec.armed = false
	}
}

// Set cancels any running sequence and drives the pin to level.
func (s *Sequencer) Set(h Handle, level bool) error {
	rec, err := s.recordFor(h)
	if err != nil {
		return err
	}
	s.cancelRunning(rec)
	rec.sequence = ""
	rec.pin.Write(level)
	return nil
}

// Toggle cancels any running sequence and toggles the pin.
func (s *Sequencer) Toggle(h Handle) error {
	rec, err := s.recordFor(h)
	if err != nil {
		return err
	}
	s.cancelRunning(rec)
	rec.sequence = ""
	rec.pin.Write(!rec.pin.Read())
	return nil
}

// StartSequence cancels any running sequence, records sequence and
// referencePeriod, and fires the first step immediately. sequence must
// outlive playback: no copy is taken.
func (s *Sequencer) StartSequence(h Handle, referencePeriod uint32, sequence string, repeat bool) error {
	rec, err := s.recordFor(h)
	if err != nil {
		return err
	}
	s.cancelRunning(rec)
	rec.sequence = sequence
	rec.period = referencePeriod
	rec.repeat = repeat
	rec.pos = 0
	rec.exponent = 0
	s.step(h)
	return nil
}

// play is the dedicated reactor handler driving every output's
// playback; it is notified with the Handle of the output whose step
// timer just fired.
func (s *Sequencer) play(p reactor.Payload) {
	s.step(p.(Handle))
}

// step parses the next actionable token from h's sequence, applies it
// to the pin, and arms the next step's timer. Malformed tokens and
// whitespace are skipped silently; a pass that exhausts the whole
// sequence without finding an actionable token stops rather than
// spinning forever.
func (s *Sequencer) step(h Handle) {
	rec, err := s.recordFor(h)
	if err != nil || len(rec.sequence) == 0 {
		return
	}

	limit := 2*len(rec.sequence) + 1
	for iter := 0; iter < limit; iter++ {
		if rec.pos >= len(rec.sequence) {
			if !rec.repeat {
				return
			}
			rec.pos = 0
		}

		tok := rec.sequence[rec.pos]
		rec.pos++

		switch tok {
		case '+':
			rec.pin.Write(true)
		case '-':
			rec.pin.Write(false)
		case 'X', 'x':
			rec.pin.Write(!rec.pin.Read())
		case ' ', '\t', '\n', '\r':
			continue
		default:
			continue // malformed token: skipped silently
		}

		if rec.pos < len(rec.sequence) {
			if d := rec.sequence[rec.pos]; d >= '0' && d <= '8' {
				rec.exponent = int(d - '0')
				rec.pos++
			}
		}

		duration := rec.period >> uint(rec.exponent)
		instance, err := s.wdog.Arm(s.playHandle, s.wdog.Now()+duration, 0, h)
		if err == nil {
			rec.armed = true
			rec.instance = instance
		}
		return
	}
}
