package digitalinput

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedfw/pneumareactor/hal"
	"github.com/embeddedfw/pneumareactor/halsim"
	"github.com/embeddedfw/pneumareactor/reactor"
	"github.com/embeddedfw/pneumareactor/timer"
)

func newDirectRig(t *testing.T) (*reactor.Reactor, *timer.Wheel, *halsim.Port, *Direct) {
	t.Helper()

	cs := &halsim.CriticalSection{}
	rx, err := reactor.New(cs)
	require.NoError(t, err)

	w, err := timer.New(rx, 16, 100)
	require.NoError(t, err)

	port := halsim.NewPort()
	d, err := NewDirect(cs, port, rx, w, 4, 50, 4*1024)
	require.NoError(t, err)

	return rx, w, port, d
}

func runReactor(t *testing.T, rx *reactor.Reactor) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go rx.Run(ctx)
	return cancel
}

func TestDirect_EdgeFiresOnce(t *testing.T) {
	rx, _, port, d := newDirectRig(t)
	defer runReactor(t, rx)()

	fired := make(chan bool, 4)
	pin := halsim.NewPortPin(port, 0, 1)
	_, err := d.Declare(pin, 0, func(p uint32, level bool) {
		fired <- level
	}, hal.SenseRising, 0)
	require.NoError(t, err)

	port.Drive(0, true)
	d.PortChanged()

	select {
	case level := <-fired:
		assert.True(t, level)
	case <-time.After(time.Second):
		t.Fatal("handler never fired for a configured rising edge")
	}
}

func TestDirect_PendingAckSuppressesStorm(t *testing.T) {
	rx, _, port, d := newDirectRig(t)
	defer runReactor(t, rx)()

	var fireCount int
	done := make(chan struct{}, 1)
	pin := halsim.NewPortPin(port, 0, 1)
	_, err := d.Declare(pin, 0, func(uint32, bool) {
		fireCount++
		select {
		case done <- struct{}{}:
		default:
		}
	}, hal.SenseBoth, 5)
	require.NoError(t, err)

	port.Drive(0, true)
	d.PortChanged()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first edge never dispatched")
	}

	// Sense was disabled by PortChanged when it latched the first edge; bouncing the pin
	// further must not latch a new interrupt flag, let alone fire again,
	// until the filter timer re-enables sense.
	port.Drive(0, false)
	port.Drive(0, true)
	d.PortChanged()

	assert.Equal(t, uint32(0), port.PendingMask(), "sense disabled: bouncing must not re-latch a flag")
	assert.Equal(t, 1, fireCount)
}

func TestDirect_AcknowledgeReenablesSenseAfterFilter(t *testing.T) {
	rx, w, port, d := newDirectRig(t)
	defer runReactor(t, rx)()

	pin := halsim.NewPortPin(port, 0, 1)
	dispatched := make(chan struct{}, 4)
	_, err := d.Declare(pin, 0, func(uint32, bool) {
		dispatched <- struct{}{}
	}, hal.SenseRising, 3)
	require.NoError(t, err)

	port.Drive(0, true)
	d.PortChanged()
	<-dispatched

	assert.Equal(t, hal.SenseDisabled, port.SenseOf(0))

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Tick())
	}

	require.Eventually(t, func() bool {
		return port.SenseOf(0) == hal.SenseRising
	}, time.Second, time.Millisecond, "sense must be re-enabled once the filter timer fires")

	// A fresh edge after re-enable dispatches again.
	port.Drive(0, false)
	port.Drive(0, true)
	d.PortChanged()
	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("edge after acknowledge never redispatched")
	}
}

func TestDirect_ZeroFilterAcknowledgesImmediately(t *testing.T) {
	rx, _, port, d := newDirectRig(t)
	defer runReactor(t, rx)()

	pin := halsim.NewPortPin(port, 0, 1)
	dispatched := make(chan struct{}, 1)
	_, err := d.Declare(pin, 0, func(uint32, bool) {
		dispatched <- struct{}{}
	}, hal.SenseRising, 0)
	require.NoError(t, err)

	port.Drive(0, true)
	d.PortChanged()
	<-dispatched

	require.Eventually(t, func() bool {
		return port.SenseOf(0) == hal.SenseRising
	}, time.Second, time.Millisecond, "zero filter must reacknowledge without waiting for a tick")
}

func TestDirect_CapacityExceeded(t *testing.T) {
	cs := &halsim.CriticalSection{}
	rx, err := reactor.New(cs)
	require.NoError(t, err)
	w, err := timer.New(rx, 4, 50)
	require.NoError(t, err)
	port := halsim.NewPort()
	d, err := NewDirect(cs, port, rx, w, 1, 50, 1024)
	require.NoError(t, err)

	_, err = d.Declare(halsim.NewPortPin(port, 0, 1), 0, nil, hal.SenseBoth, 0)
	require.NoError(t, err)

	_, err = d.Declare(halsim.NewPortPin(port, 1, 2), 1, nil, hal.SenseBoth, 0)
	assert.ErrorIs(t, err, ErrDirectCapacityExceeded)
}
