// services/ornament/sim/checks.go
package sim

import (
	"fmt"
	"time"
)

// railWindow replays the recorded enable edges. It returns the first
// instant neither enable was asserted and the longest stretch both were.
func (m *machine) railWindow() (gapAt time.Duration, gap bool, overlap time.Duration) {
	p := m.sc.Config.Pins
	var prim, back, seenPrim, seenBack, both bool
	var since time.Duration
	for _, e := range m.rec.Edges() {
		switch e.Pin {
		case p.PrimaryEnable:
			prim, seenPrim = e.Level != p.PrimaryActiveLow, true
		case p.BackupEnable:
			back, seenBack = e.Level != p.BackupActiveLow, true
		default:
			continue
		}
		// Until both lines have been driven the outputs are still being
		// configured.
		if seenPrim && seenBack && !prim && !back && !gap {
			gapAt, gap = e.At, true
		}
		switch {
		case prim && back && !both:
			both, since = true, e.At
		case !(prim && back) && both:
			both = false
			if d := e.At - since; d > overlap {
				overlap = d
			}
		}
	}
	return gapAt, gap, overlap
}

func (m *machine) checkNoGap() Check {
	c := Check{Name: "no-power-gap", OK: true}
	if at, gap := m.firstGap(); gap {
		c.OK = false
		c.Detail = fmt.Sprintf("no rail enabled at %v", at)
	} else if n := m.supply.Gaps(); n != 0 {
		c.OK = false
		c.Detail = fmt.Sprintf("%d enable changes left the load unpowered", n)
	}
	return c
}

func (m *machine) firstGap() (time.Duration, bool) {
	at, gap, _ := m.railWindow()
	return at, gap
}

func (m *machine) checkOverlap() Check {
	settle := time.Duration(m.sc.Config.SettleUs) * time.Microsecond
	_, _, overlap := m.railWindow()
	c := Check{Name: "overlap-within-settle", OK: overlap <= settle}
	if !c.OK {
		c.Detail = fmt.Sprintf("both rails on for %v, settle is %v", overlap, settle)
	}
	return c
}

func checkOneWay(ts []Transition) Check {
	c := Check{Name: "one-directional-failover", OK: true}
	switches := 0
	for _, t := range ts {
		if t.Event != "switch" {
			continue
		}
		switches++
		if t.From != "primary" || t.To != "backup" || switches > 1 {
			c.OK = false
			c.Detail = fmt.Sprintf("switch %s->%s (#%d) at %v", t.From, t.To, switches, t.At)
			return c
		}
	}
	return c
}

func checkSwitchCount(r *Report) Check {
	n := uint32(0)
	for _, t := range r.Transitions {
		if t.Event == "switch" {
			n++
		}
	}
	c := Check{Name: "switch-count", OK: n == r.Final.SwitchCount}
	if !c.OK {
		c.Detail = fmt.Sprintf("%d switches seen, switch_count=%d", n, r.Final.SwitchCount)
	}
	return c
}

func checkCadence(steps []Step, interval uint32) Check {
	c := Check{Name: "update-cadence", OK: true}
	for i := 2; i < len(steps); i++ {
		d := steps[i].Tick - steps[i-1].Tick
		if d < interval || d > interval+1 {
			c.OK = false
			c.Detail = fmt.Sprintf("update %d came %d ticks after the previous, interval %d", i, d, interval)
			return c
		}
	}
	return c
}

func checkEmphasis(steps []Step) Check {
	c := Check{Name: "alternating-emphasis", OK: true}
	for i := 2; i < len(steps); i++ {
		if steps[i].Emphasis == steps[i-1].Emphasis {
			c.OK = false
			c.Detail = fmt.Sprintf("updates %d and %d both %s", i-1, i, steps[i].Emphasis)
			return c
		}
	}
	return c
}
