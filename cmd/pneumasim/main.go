// Command pneumasim is a small demo wiring halsim, reactor, timer,
// digitalinput, and digitaloutput together: one direct (edge-ISR)
// pushbutton starts an output blink sequence, one sampled
// (integrator) pushbutton toggles the same output, and everything is
// logged to stderr. It is an application-layer stand-in — the actual
// door/valve control logic this firmware would run in production is
// out of scope for the core packages it exercises here.
//
// Run with: go run ./cmd/pneumasim
package main

import (
	"context"
	"time"

	"github.com/embeddedfw/pneumareactor/digitalinput"
	"github.com/embeddedfw/pneumareactor/digitaloutput"
	"github.com/embeddedfw/pneumareactor/hal"
	"github.com/embeddedfw/pneumareactor/halsim"
	"github.com/embeddedfw/pneumareactor/reactor"
	"github.com/embeddedfw/pneumareactor/timer"
)

const (
	tickDispatchPriority    = 1000
	directDispatchPriority  = 500
	sampledDispatchPriority = 400
	sequencerPriority       = 300

	samplePeriodTicks = 5
)

func main() {
	logger := reactor.NewLogger()

	cs := &halsim.CriticalSection{}
	watchdog := &halsim.Watchdog{}

	rx, err := reactor.New(cs,
		reactor.WithMaxHandlers(16),
		reactor.WithLogger(logger),
		reactor.WithWatchdog(watchdog),
	)
	if err != nil {
		panic(err)
	}

	wheel, err := timer.New(rx, 32, tickDispatchPriority)
	if err != nil {
		panic(err)
	}

	port := halsim.NewPort()
	direct, err := digitalinput.NewDirect(cs, port, rx, wheel, 4, directDispatchPriority, 8*1024,
		digitalinput.WithDirectLogger(logger),
	)
	if err != nil {
		panic(err)
	}

	sampled, err := digitalinput.NewSampled(rx, wheel, 4, samplePeriodTicks, sampledDispatchPriority, 4*1024)
	if err != nil {
		panic(err)
	}

	seq, err := digitaloutput.New(rx, wheel, 4, sequencerPriority, 4*1024)
	if err != nil {
		panic(err)
	}

	lamp := halsim.NewPin(10)
	lampHandle, err := seq.Declare(lamp)
	if err != nil {
		panic(err)
	}

	// Button A: direct edge-triggered input, debounced for 10 ticks,
	// starts a repeating blink on rising edge.
	buttonAPin := halsim.NewPortPin(port, 0, 1)
	_, err = direct.Declare(buttonAPin, 0, func(pin uint32, level bool) {
		logger.Info().Uint64("pin", uint64(pin)).Bool("level", level).Log("button a edge")
		if level {
			_ = seq.StartSequence(lampHandle, 40, "+2-2+2-2", true)
		}
	}, hal.SenseRising, 10)
	if err != nil {
		panic(err)
	}

	// Button B: sampled/integrator input, debounced for 15 ticks at a
	// 5-tick sample period (threshold 3), toggles the lamp.
	buttonBPin := halsim.NewPin(2)
	_, err = sampled.Declare(buttonBPin, func(pin uint32, level bool) {
		logger.Info().Uint64("pin", uint64(pin)).Bool("level", level).Log("button b settled")
		if level {
			_ = seq.Toggle(lampHandle)
		}
	}, 15)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go rx.Run(ctx)

	// Simulated 1ms hardware tick source.
	go func() {
		t := time.NewTicker(time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = wheel.Tick()
			}
		}
	}()

	// Simulated external stimuli: press button A once, then hold
	// button B down long enough for its integrator to settle.
	go func() {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return
		}
		port.Drive(0, true)
		direct.PortChanged()

		select {
		case <-time.After(600 * time.Millisecond):
		case <-ctx.Done():
			return
		}
		buttonBPin.Write(true)

		select {
		case <-time.After(300 * time.Millisecond):
		case <-ctx.Done():
			return
		}
		buttonBPin.Write(false)
	}()

	<-ctx.Done()
	rx.Stop()
	logger.Info().Int("watchdog_kicks", watchdog.Kicks()).Log("simulation complete")
}
