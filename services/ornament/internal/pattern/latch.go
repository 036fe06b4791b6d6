package pattern

import (
	"time"

	"ornament-go/services/ornament/internal/hw"
)

// Latch is one bank of D flip-flops: three data inputs sharing a clock,
// with optional active-low async preset and clear. Q outputs hold the LEDs
// once clocked, with no processor involvement.
type Latch struct {
	Data    [3]hw.Line
	Clock   hw.Line
	PresetN hw.Line // optional
	ClearN  hw.Line // optional
}

type Timing struct {
	Setup time.Duration // data stable before the rising clock edge
	Pulse time.Duration // clock high time
}

func (l *Latch) configure() error {
	for _, d := range l.Data {
		if err := d.Configure(false); err != nil {
			return err
		}
	}
	if err := l.Clock.Configure(false); err != nil {
		return err
	}
	// Preset/clear are released (held high) for clocked operation.
	for _, a := range [...]hw.Line{l.PresetN, l.ClearN} {
		if !a.Valid() {
			continue
		}
		if err := a.Configure(true); err != nil {
			return err
		}
	}
	return nil
}

// write asserts mask on the data lines and latches it on a clock pulse.
func (l *Latch) write(mask uint8, t Timing, delay hw.Delay) {
	for i, d := range l.Data {
		d.Set(mask&(1<<i) != 0)
	}
	delay(t.Setup)
	l.Clock.On()
	delay(t.Pulse)
	l.Clock.Off()
}
