// services/ornament/internal/waketimer/timer.go
package waketimer

import (
	"sync/atomic"
	"time"

	"ornament-go/x/mathx"
)

// Counter is a free-running tick counter clocked from the low-frequency
// crystal. It keeps counting in deep sleep and wraps at its width.
type Counter interface {
	Now() uint32
}

// Alarm is the counter's single compare register. SetAlarm replaces any
// previous compare; fire runs in interrupt context.
type Alarm interface {
	SetAlarm(tick uint32, fire func())
	ClearAlarm()
}

type Config struct {
	Hz   uint32 // counter frequency
	Bits uint8  // counter width, 16..32
}

// Timer holds at most one pending deadline. Arm, Cancel and Expire belong
// to the scheduler loop; only the compare callback runs in ISR context.
type Timer struct {
	cnt  Counter
	alm  Alarm
	hz   uint32
	mask uint32
	wake func()

	gen      atomic.Uint32
	stale    atomic.Uint32
	armed    bool
	deadline uint32
}

func New(cnt Counter, alm Alarm, cfg Config, wake func()) *Timer {
	bits := mathx.Clamp(cfg.Bits, 16, 32)
	hz := cfg.Hz
	if hz == 0 {
		hz = 32768
	}
	return &Timer{
		cnt:  cnt,
		alm:  alm,
		hz:   hz,
		mask: uint32(uint64(1)<<bits - 1),
		wake: wake,
	}
}

// Now returns the current tick. It is the clock of record for the device.
func (t *Timer) Now() uint32 { return t.cnt.Now() & t.mask }

// MaxInterval is the longest interval that still compares unambiguously
// across a counter wrap.
func (t *Timer) MaxInterval() uint32 { return t.mask >> 1 }

// Hz is the counter frequency.
func (t *Timer) Hz() uint32 { return t.hz }

// Ticks converts d to counter ticks, rounding up.
func (t *Timer) Ticks(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	n := mathx.CeilDiv(uint64(d)*uint64(t.hz), uint64(time.Second))
	if n > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}

// Arm schedules the single wake at deadline, cancelling any earlier one.
// A deadline that is not in the future is moved to the next tick. The
// armed deadline is returned.
func (t *Timer) Arm(deadline uint32) uint32 {
	deadline &= t.mask
	now := t.Now()
	if !t.after(deadline, now) {
		deadline = (now + 1) & t.mask
	}
	g := t.gen.Add(1)
	t.deadline = deadline
	t.armed = true
	t.alm.SetAlarm(deadline, func() { t.fire(g) })

	// The counter may have passed the compare while it was being written.
	if !t.after(deadline, t.Now()) {
		t.fire(g)
	}
	return deadline
}

// ArmAfter arms now+interval, clamping interval to [1, MaxInterval].
func (t *Timer) ArmAfter(interval uint32) uint32 {
	interval = mathx.Clamp(interval, 1, t.MaxInterval())
	return t.Arm(t.Now() + interval)
}

// Cancel drops the pending deadline, if any.
func (t *Timer) Cancel() {
	t.gen.Add(1)
	t.armed = false
	t.alm.ClearAlarm()
}

func (t *Timer) Armed() bool      { return t.armed }
func (t *Timer) Deadline() uint32 { return t.deadline }

// Due reports whether the armed deadline has been reached.
func (t *Timer) Due() bool { return t.armed && !t.after(t.deadline, t.Now()) }

// Expire consumes a due deadline. It returns true at most once per Arm;
// any wake still in flight for that deadline becomes stale.
func (t *Timer) Expire() bool {
	if !t.Due() {
		return false
	}
	t.armed = false
	t.gen.Add(1)
	return true
}

// Stale counts compare callbacks that arrived for a cancelled deadline.
func (t *Timer) Stale() uint32 { return t.stale.Load() }

// after reports whether a is strictly later than b in serial-number order.
func (t *Timer) after(a, b uint32) bool {
	d := (a - b) & t.mask
	return d != 0 && d <= t.mask>>1
}

func (t *Timer) fire(g uint32) {
	if t.gen.Load() != g {
		t.stale.Add(1)
		return
	}
	t.wake()
}
