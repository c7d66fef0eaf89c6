package halsim

import (
	"sync"

	"github.com/embeddedfw/pneumareactor/hal"
)

// Pin is a simulated standalone digital I/O line (not part of a Port
// group), sufficient for digitaloutput's single-pin sequences.
type Pin struct {
	id uint32

	mu    sync.Mutex
	level bool
	sense hal.Sense
}

// NewPin constructs a simulated Pin with the given stable id.
func NewPin(id uint32) *Pin {
	return &Pin{id: id}
}

// ID implements hal.Pin.
func (p *Pin) ID() uint32 { return p.id }

// Read implements hal.Pin.
func (p *Pin) Read() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Write implements hal.Pin.
func (p *Pin) Write(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

// Toggle flips the pin's level and returns the new value.
func (p *Pin) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = !p.level
	return p.level
}

// ConfigureSense implements hal.Pin.
func (p *Pin) ConfigureSense(s hal.Sense) {
	p.mu.Lock()
	p.sense = s
	p.mu.Unlock()
}

// Sense returns the currently configured sense mode, for tests.
func (p *Pin) Sense() hal.Sense {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sense
}
