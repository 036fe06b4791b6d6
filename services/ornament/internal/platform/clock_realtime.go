// services/ornament/internal/platform/clock_realtime.go
package platform

import (
	"sync"
	"time"
)

// RealtimeClock derives the wake counter from the runtime's monotonic
// clock and implements the compare with a runtime timer. On RP2 the TinyGo
// runtime idles the core while the loop is blocked waiting for it.
type RealtimeClock struct {
	mu    sync.Mutex
	start time.Time
	hz    uint64
	mask  uint32
	t     *time.Timer
}

func NewRealtimeClock(hz uint32, bits uint8) *RealtimeClock {
	if hz == 0 {
		hz = 32768
	}
	if bits < 16 || bits > 32 {
		bits = 32
	}
	return &RealtimeClock{start: time.Now(), hz: uint64(hz), mask: uint32(uint64(1)<<bits - 1)}
}

func (c *RealtimeClock) Now() uint32 {
	ns := uint64(time.Since(c.start))
	const sec = uint64(time.Second)
	return uint32(ns/sec*c.hz+(ns%sec)*c.hz/sec) & c.mask
}

func (c *RealtimeClock) SetAlarm(tick uint32, fire func()) {
	delta := uint64((tick - c.Now()) & c.mask)
	d := time.Duration((delta*uint64(time.Second) + c.hz - 1) / c.hz)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.t != nil {
		c.t.Stop()
	}
	c.t = time.AfterFunc(d, fire)
}

func (c *RealtimeClock) ClearAlarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.t != nil {
		c.t.Stop()
		c.t = nil
	}
}
