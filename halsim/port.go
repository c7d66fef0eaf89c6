package halsim

import (
	"sync"

	"github.com/embeddedfw/pneumareactor/hal"
)

// Port is a simulated group of up to 32 pins sharing one interrupt-flag
// register, modeling a port-change ISR.
type Port struct {
	mu sync.Mutex

	value   uint32 // current logic level, one bit per pin index
	pending uint32 // latched interrupt-flag bits not yet cleared
	sense   [32]hal.Sense
}

// NewPort constructs an empty simulated Port.
func NewPort() *Port {
	return &Port{}
}

// ConfigureSense sets the sense mode for pin index i (0..31).
func (p *Port) ConfigureSense(i uint, s hal.Sense) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sense[i] = s
}

// SenseOf returns the currently configured sense for pin index i.
func (p *Port) SenseOf(i uint) hal.Sense {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sense[i]
}

// Value implements hal.Port.
func (p *Port) Value() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// PendingMask implements hal.Port.
func (p *Port) PendingMask() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// ClearFlags implements hal.Port. It performs a plain AND-NOT rather
// than literally replicating a "REG |= REG" write-1-to-clear idiom —
// that shape belongs to the platform's own documented clear operation,
// not to a simulated register.
func (p *Port) ClearFlags(mask uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending &^= mask
}

// PortPin adapts one bit of a Port to the standalone hal.Pin interface,
// for code (like digitalinput.Direct) that configures sense and reads
// level per pin rather than per port.
type PortPin struct {
	port *Port
	bit  uint32
	id   uint32
}

// NewPortPin constructs a hal.Pin view over bit index bit of port,
// reporting id as its stable identifier.
func NewPortPin(port *Port, bit uint32, id uint32) *PortPin {
	return &PortPin{port: port, bit: bit, id: id}
}

// ID implements hal.Pin.
func (p *PortPin) ID() uint32 { return p.id }

// Read implements hal.Pin.
func (p *PortPin) Read() bool {
	return p.port.Value()&(uint32(1)<<p.bit) != 0
}

// Write implements hal.Pin. Input pins ignore writes; use Port.Drive to
// simulate an external stimulus instead.
func (p *PortPin) Write(bool) {}

// ConfigureSense implements hal.Pin, forwarding to the owning Port's
// per-bit sense configuration.
func (p *PortPin) ConfigureSense(s hal.Sense) {
	p.port.ConfigureSense(uint(p.bit), s)
}

// Drive sets pin index i to level, simulating an external stimulus
// (a button press, a sensor transition). If the new level produces an
// edge matching the pin's configured sense, the corresponding bit of
// the interrupt-flag register is latched — this is the only path that
// sets PendingMask bits, mirroring real port hardware.
func (p *Port) Drive(i uint, level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bit := uint32(1) << i
	was := p.value&bit != 0
	p.value = (p.value &^ bit)
	if level {
		p.value |= bit
	}
	if was == level {
		return
	}

	switch p.sense[i] {
	case hal.SenseRising:
		if level {
			p.pending |= bit
		}
	case hal.SenseFalling:
		if !level {
			p.pending |= bit
		}
	case hal.SenseBoth, hal.SenseLevel:
		p.pending |= bit
	case hal.SenseDisabled:
		// suppressed: sense is off, no flag latches. This is exactly the
		// window the pending-ack mask exploits to prevent re-interrupt
		// while an edge's ack is outstanding.
	}
}
