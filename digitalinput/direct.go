package digitalinput

import (
	"math/bits"
	"unsafe"

	"github.com/joeycumines/go-catrate"

	"github.com/embeddedfw/pneumareactor/arena"
	"github.com/embeddedfw/pneumareactor/hal"
	"github.com/embeddedfw/pneumareactor/reactor"
	"github.com/embeddedfw/pneumareactor/timer"
)

// Handler receives a pin identifier and its new level.
type Handler func(pin uint32, level bool)

// Handle identifies a declared input.
type Handle int

const invalidHandle Handle = -1

// pinEvent is the (port bit index, level) pair carried from the
// port-change ISR to the dispatch handler. Payload already carries
// arbitrary Go values, so there is nothing to gain from packing this
// into a single integer.
type pinEvent struct {
	bit   uint32
	level bool
}

// directRecord holds an hal.Pin interface value and a Handler closure,
// both of which the garbage collector must trace, so records live in
// an ordinary Go slice rather than arena bytes; the arena instead
// tracks the registry's configured budget via Reserve.
type directRecord struct {
	declared    bool
	pin         hal.Pin
	bit         uint32
	sense       hal.Sense
	filterTicks uint32
	handler     Handler
}

// Direct is the edge-triggered input registry: pins configured for
// hardware sense, dispatched through a per-port pending-acknowledge
// mask that suppresses storms from a bouncing contact until the prior
// edge's filter timer has re-enabled sense.
type Direct struct {
	cs   hal.CriticalSection
	port hal.Port
	rx   *reactor.Reactor
	wdog *timer.Wheel

	arena   *arena.Arena
	records []directRecord

	pendingAck uint32

	dispatchHandle reactor.Handle
	ackHandle      reactor.Handle

	logger *Logger
	storm  *catrate.Limiter
}

// DirectOption configures optional Direct behavior.
type DirectOption func(*directConfig)

type directConfig struct {
	logger *Logger
	storm  *catrate.Limiter
}

// WithDirectLogger attaches a structured logger.
func WithDirectLogger(l *Logger) DirectOption {
	return func(c *directConfig) { c.logger = l }
}

// WithStormLimiter attaches a github.com/joeycumines/go-catrate Limiter
// used purely as a diagnostic: edges suppressed by the pending-ack
// mask are counted against it, and a Warn log line is emitted whenever
// a pin's suppression rate trips the configured windows. This never
// alters delivery semantics — suppression happens unconditionally
// regardless of whether a limiter is attached.
func WithStormLimiter(l *catrate.Limiter) DirectOption {
	return func(c *directConfig) { c.storm = l }
}

// NewDirect constructs a Direct registry of the given capacity, bound
// to one hal.Port (the shared interrupt-flag register group) and one
// reactor.Reactor. It registers two internal reactor handlers: one
// that runs the user-facing dispatch and one that performs the
// deferred acknowledge once a filter timer fires.
func NewDirect(cs hal.CriticalSection, port hal.Port, rx *reactor.Reactor, w *timer.Wheel, capacity int, priority int, arenaBytes int, opts ...DirectOption) (*Direct, error) {
	cfg := &directConfig{}
	for _, o := range opts {
		o(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = nopLogger()
	}

	a := arena.New(arenaBytes, 0)
	var recordZero directRecord
	if err := a.Reserve(capacity * int(unsafe.Sizeof(recordZero))); err != nil {
		return nil, err
	}
	records := make([]directRecord, capacity)

	d := &Direct{
		cs:      cs,
		port:    port,
		rx:      rx,
		wdog:    w,
		arena:   a,
		records: records,
		logger:  logger,
		storm:   cfg.storm,
	}

	dh, err := rx.Register(d.dispatch, priority, capacity)
	if err != nil {
		return nil, err
	}
	d.dispatchHandle = dh

	ah, err := rx.Register(d.acknowledgeHandler, priority, capacity)
	if err != nil {
		return nil, err
	}
	d.ackHandle = ah

	return d, nil
}

// Declare allocates a direct-input slot, configures the pin's hardware
// sense, and returns a handle. It must be called before the port's
// PortChanged starts being driven: wiring happens at declaration time,
// with no dynamic registration afterward.
func (d *Direct) Declare(pin hal.Pin, bit uint32, handler Handler, sense hal.Sense, filterTicks uint32) (Handle, error) {
	for i := range d.records {
		if !d.records[i].declared {
			d.records[i] = directRecord{
				declared:    true,
				pin:         pin,
				bit:         bit,
				sense:       sense,
				filterTicks: filterTicks,
				handler:     handler,
			}
			pin.ConfigureSense(sense)
			return Handle(i), nil
		}
	}
	return invalidHandle, ErrDirectCapacityExceeded
}

func (d *Direct) findByBit(bit uint32) *directRecord {
	for i := range d.records {
		if d.records[i].declared && d.records[i].bit == bit {
			return &d.records[i]
		}
	}
	return nil
}

// PortChanged runs the port-change interrupt handler: suppress bits
// already awaiting acknowledgement, latch and disable sense for the
// rest while queueing their dispatch, then clear the hardware flag
// register. It must be called from whatever stands in for that
// interrupt (a real ISR, or a simulated stimulus goroutine in
// halsim), and is the only place pendingAck bits are ever set.
func (d *Direct) PortChanged() {
	exit := d.cs.Enter()

	pending := d.port.PendingMask()
	value := d.port.Value()

	// Step 2: suppress bits whose acknowledgement is still outstanding.
	toProcess := pending &^ d.pendingAck
	suppressed := pending & d.pendingAck

	// Step 3: latch pending-ack and disable sense for every remaining
	// bit, queueing its dispatch.
	d.pendingAck |= toProcess
	var toNotify []pinEvent
	for bit := toProcess; bit != 0; {
		i := uint32(bits.TrailingZeros32(bit))
		bit &^= 1 << i
		if rec := d.findByBit(i); rec != nil {
			rec.pin.ConfigureSense(hal.SenseDisabled)
			toNotify = append(toNotify, pinEvent{bit: i, level: value&(1<<i) != 0})
		}
	}

	// Step 4: clear the hardware interrupt-flag register.
	d.port.ClearFlags(pending)

	exit()

	for _, ev := range toNotify {
		_ = d.rx.Notify(d.dispatchHandle, ev)
	}

	d.recordStorm(suppressed)
}

func (d *Direct) recordStorm(suppressed uint32) {
	if d.storm == nil || suppressed == 0 {
		return
	}
	for bit := suppressed; bit != 0; {
		i := uint32(bits.TrailingZeros32(bit))
		bit &^= 1 << i
		if _, ok := d.storm.Allow(i); !ok {
			d.logger.Warning().Int("pin_bit", int(i)).Log("direct input suppression rate exceeded")
		}
	}
}

// dispatch runs in main-loop context: it finds the owning record,
// invokes the user handler, and schedules the deferred acknowledge.
func (d *Direct) dispatch(p reactor.Payload) {
	ev := p.(pinEvent)
	rec := d.findByBit(ev.bit)
	if rec == nil {
		return
	}

	if rec.handler != nil {
		rec.handler(rec.pin.ID(), ev.level)
	}

	if rec.filterTicks > 0 {
		if _, err := d.wdog.Arm(d.ackHandle, d.wdog.Now()+rec.filterTicks, 0, ev.bit); err != nil {
			d.logger.Err().Err(err).Log("failed to arm acknowledge timer")
		}
	} else {
		d.acknowledge(ev.bit)
	}
}

func (d *Direct) acknowledgeHandler(p reactor.Payload) {
	d.acknowledge(p.(uint32))
}

// acknowledge re-enables a pin's sense and clears its pending-ack bit,
// atomically with respect to the port-change ISR.
func (d *Direct) acknowledge(bit uint32) {
	exit := d.cs.Enter()
	defer exit()

	d.pendingAck &^= 1 << bit
	if rec := d.findByBit(bit); rec != nil {
		rec.pin.ConfigureSense(rec.sense)
	}
}
