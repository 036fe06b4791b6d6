// services/ornament/internal/platform/simclock_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"sync"
	"time"
)

// SimClock is a simulated low-frequency counter with one compare register.
// Simulated time only moves when Advance, AdvanceTicks, RunToAlarm or
// Delay is called, which makes every line transition reproducible.
type SimClock struct {
	mu   sync.Mutex
	hz   uint64
	mask uint32
	ns   uint64 // simulated time since boot

	alarmSet bool
	alarm    uint32
	fire     func()
}

func NewSimClock(hz uint32, bits uint8) *SimClock {
	if hz == 0 {
		hz = 32768
	}
	if bits < 16 || bits > 32 {
		bits = 32
	}
	return &SimClock{hz: uint64(hz), mask: uint32(uint64(1)<<bits - 1)}
}

// ---- waketimer.Counter / waketimer.Alarm ----

func (c *SimClock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(c.ticksAt(c.ns)) & c.mask
}

func (c *SimClock) SetAlarm(tick uint32, fire func()) {
	c.mu.Lock()
	c.alarmSet, c.alarm, c.fire = true, tick&c.mask, fire
	c.mu.Unlock()
}

func (c *SimClock) ClearAlarm() {
	c.mu.Lock()
	c.alarmSet, c.fire = false, nil
	c.mu.Unlock()
}

// ---- time control ----

// Elapsed is the simulated time since boot.
func (c *SimClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.ns)
}

// Delay is an hw.Delay that advances simulated time.
func (c *SimClock) Delay(d time.Duration) {
	if d > 0 {
		c.Advance(d)
	}
}

// Advance moves time forward by d, firing the compare if it is crossed.
func (c *SimClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.ns + uint64(d)
	c.mu.Unlock()
	c.advanceTo(target)
}

// AdvanceTicks moves time forward to the start of the n-th next tick.
func (c *SimClock) AdvanceTicks(n uint32) {
	c.mu.Lock()
	target := c.nsOf(c.ticksAt(c.ns) + uint64(n))
	c.mu.Unlock()
	c.advanceTo(target)
}

// RunToAlarm jumps straight to the pending compare and fires it. It
// reports false when no compare is set.
func (c *SimClock) RunToAlarm() bool {
	c.mu.Lock()
	if !c.alarmSet {
		c.mu.Unlock()
		return false
	}
	target := c.nsOf(c.nextMatch())
	c.mu.Unlock()
	c.advanceTo(target)
	return true
}

// NextAlarm reports the pending compare value.
func (c *SimClock) NextAlarm() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alarm, c.alarmSet
}

// AlarmAt is the simulated time at which the pending compare will match.
func (c *SimClock) AlarmAt() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alarmSet {
		return 0, false
	}
	return time.Duration(c.nsOf(c.nextMatch())), true
}

func (c *SimClock) advanceTo(target uint64) {
	for {
		c.mu.Lock()
		if !c.alarmSet {
			if target > c.ns {
				c.ns = target
			}
			c.mu.Unlock()
			return
		}
		at := c.nsOf(c.nextMatch())
		if at > target {
			c.ns = target
			c.mu.Unlock()
			return
		}
		c.ns = at
		fire := c.fire
		c.alarmSet, c.fire = false, nil
		c.mu.Unlock()
		if fire != nil {
			fire()
		}
	}
}

// nextMatch is the absolute tick at which the counter next becomes equal
// to the compare value.
func (c *SimClock) nextMatch() uint64 {
	cur := c.ticksAt(c.ns)
	delta := uint64((c.alarm - uint32(cur)) & c.mask)
	if delta == 0 {
		delta = uint64(c.mask) + 1
	}
	return cur + delta
}

func (c *SimClock) ticksAt(ns uint64) uint64 {
	const sec = uint64(time.Second)
	return ns/sec*c.hz + (ns%sec)*c.hz/sec
}

func (c *SimClock) nsOf(ticks uint64) uint64 {
	const sec = uint64(time.Second)
	return ticks/c.hz*sec + ((ticks%c.hz)*sec+c.hz-1)/c.hz
}
