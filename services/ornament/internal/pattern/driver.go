package pattern

import "ornament-go/services/ornament/internal/hw"

// Driver owns AnimationPhase and the two latches. All of its work happens
// inside a wake window; nothing waits on visible timing.
type Driver struct {
	red, green Latch
	timing     Timing
	delay      hw.Delay

	phase   Phase
	last    DisplayPattern
	updates uint32
	halted  bool
}

// New builds a driver starting at seed. Two drivers seeded alike produce
// the same sequence, so a restart can resume from a saved phase.
func New(red, green Latch, timing Timing, delay hw.Delay, seed Phase) *Driver {
	if seed > Phase(CycleLen) {
		seed = PhaseReset
	}
	return &Driver{red: red, green: green, timing: timing, delay: delay, phase: seed}
}

// Reset configures the latch lines and clocks in the seed phase's pattern
// (all off for PhaseReset).
func (d *Driver) Reset() error {
	if err := d.red.configure(); err != nil {
		return err
	}
	if err := d.green.configure(); err != nil {
		return err
	}
	d.show(d.phase.Pattern())
	return nil
}

// Advance moves one animation step and latches the new pattern. After
// Halt it does nothing and reports false.
func (d *Driver) Advance() (DisplayPattern, bool) {
	if d.halted {
		return d.last, false
	}
	d.phase = d.phase.Next()
	p := d.phase.Pattern()
	d.show(p)
	d.updates++
	return p, true
}

// Halt stops animation for good (both rails exhausted).
func (d *Driver) Halt() { d.halted = true }

func (d *Driver) Halted() bool         { return d.halted }
func (d *Driver) Phase() Phase         { return d.phase }
func (d *Driver) Last() DisplayPattern { return d.last }
func (d *Driver) Updates() uint32      { return d.updates }

// show serializes red then green: data, setup, clock pulse.
func (d *Driver) show(p DisplayPattern) {
	d.red.write(p.Red, d.timing, d.delay)
	d.green.write(p.Green, d.timing, d.delay)
	d.last = p
}
