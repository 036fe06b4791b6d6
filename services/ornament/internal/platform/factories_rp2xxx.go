// services/ornament/internal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/delay"

	"ornament-go/services/ornament/internal/hw"
	"ornament-go/services/ornament/internal/sched"
)

// MaxGPIO is the last RP2 user GPIO (GP28).
const MaxGPIO = 28

// DefaultPinFactory maps logical numbers directly to machine.Pin(n). This
// matches Pico/Pico 2 GP numbering.
func DefaultPinFactory() hw.PinFactory { return rp2PinFactory{} }

// DefaultDelay busy-waits on the cycle counter; latch and settle waits are
// far below the scheduler tick.
func DefaultDelay() hw.Delay {
	return func(d time.Duration) { delay.Sleep(d) }
}

// DefaultModes returns the RP2 mode setter. The runtime idles the core in
// WFI while the loop is blocked, so Stop and Run differ only in whether the
// core is expected back before the next timer compare.
func DefaultModes() sched.ModeSetter { return &rp2Modes{} }

type rp2Modes struct{ last sched.Mode }

func (m *rp2Modes) EnterMode(mode sched.Mode) { m.last = mode }

// ---- GPIO implementation (includes IRQ support) ----

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (hw.GPIOPin, bool) {
	if n < 0 || n > MaxGPIO {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull hw.Pull) error {
	var mode machine.PinMode
	switch pull {
	case hw.PullUp:
		mode = machine.PinInputPullup
	case hw.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Set(initial)
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

func (r *rp2Pin) SetIRQ(edge hw.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e hw.Edge) machine.PinChange {
	switch e {
	case hw.EdgeRising:
		return machine.PinRising
	case hw.EdgeFalling:
		return machine.PinFalling
	case hw.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}
