package rail

import (
	"testing"
	"time"

	"ornament-go/services/ornament/internal/hw"
	"ornament-go/types"
)

// tracePin records every level change on a shared timeline.
type tracePin struct {
	n     int
	level bool
	tl    *timeline
}

func (p *tracePin) ConfigureInput(hw.Pull) error { return nil }
func (p *tracePin) ConfigureOutput(initial bool) error {
	p.Set(initial)
	return nil
}
func (p *tracePin) Set(level bool) {
	p.level = level
	p.tl.log(p.n, level)
}
func (p *tracePin) Get() bool   { return p.level }
func (p *tracePin) Number() int { return p.n }

type step struct {
	at    time.Duration
	pin   int
	level bool
}

type timeline struct {
	now   time.Duration
	steps []step
}

func (tl *timeline) log(pin int, level bool) {
	tl.steps = append(tl.steps, step{at: tl.now, pin: pin, level: level})
}

func (tl *timeline) delay(d time.Duration) { tl.now += d }

const (
	pinPrimary = 2
	pinBackup  = 3
	settle     = 100 * time.Microsecond
)

func newManager(t *testing.T, activeLow bool) (*Manager, *timeline, *tracePin, *tracePin) {
	t.Helper()
	tl := &timeline{}
	pp := &tracePin{n: pinPrimary, tl: tl}
	bp := &tracePin{n: pinBackup, tl: tl}
	m := New(Lines{
		Primary: hw.NewLine(pp, activeLow),
		Backup:  hw.NewLine(bp, activeLow),
	}, settle, tl.delay)
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m, tl, pp, bp
}

func TestInitialState(t *testing.T) {
	m, _, pp, bp := newManager(t, true)
	if m.State() != RunningPrimary {
		t.Fatalf("state = %s", m.State())
	}
	// Active-low enables: primary driven low, backup high.
	if pp.level || !bp.level {
		t.Fatalf("primary=%v backup=%v", pp.level, bp.level)
	}
	if s := m.Snapshot(); s.ActiveRail != types.RailPrimary || s.SwitchCount != 0 || s.FaultLatch {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestFailoverIsMakeBeforeBreak(t *testing.T) {
	m, tl, _, _ := newManager(t, false)
	start := len(tl.steps)

	if got := m.OnBelowThreshold(); got != RunningBackup {
		t.Fatalf("state = %s", got)
	}
	seq := tl.steps[start:]
	if len(seq) != 2 {
		t.Fatalf("expected 2 line changes, got %+v", seq)
	}
	if seq[0].pin != pinBackup || !seq[0].level {
		t.Fatalf("first change must enable backup: %+v", seq[0])
	}
	if seq[1].pin != pinPrimary || seq[1].level {
		t.Fatalf("second change must disable primary: %+v", seq[1])
	}
	if overlap := seq[1].at - seq[0].at; overlap != settle {
		t.Fatalf("overlap = %v, want %v", overlap, settle)
	}
	s := m.Snapshot()
	if s.ActiveRail != types.RailBackup || s.SwitchCount != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
}

// Replays the timeline and checks that at every instant at least one rail
// is enabled, and both only during the settling window.
func TestNoPowerGap(t *testing.T) {
	m, tl, _, _ := newManager(t, true)
	m.OnBelowThreshold()
	m.OnBelowThreshold()

	on := map[int]bool{}
	var bothSince time.Duration = -1
	for i, s := range tl.steps {
		on[s.pin] = !s.level // active-low
		if i < 2 {
			continue // Init configures the lines one after the other
		}
		p, b := on[pinPrimary], on[pinBackup]
		if !p && !b {
			t.Fatalf("power gap at %v after step %d", s.at, i)
		}
		if p && b && bothSince < 0 {
			bothSince = s.at
		}
		if !(p && b) && bothSince >= 0 {
			if s.at-bothSince != settle {
				t.Fatalf("overlap lasted %v", s.at-bothSince)
			}
			bothSince = -1
		}
	}
}

func TestFailoverSequence(t *testing.T) {
	m, tl, _, _ := newManager(t, false)

	if m.OnBelowThreshold() != RunningBackup {
		t.Fatal("first event must switch to backup")
	}
	toggles := len(tl.steps)

	if m.OnBelowThreshold() != Fault {
		t.Fatal("second event must latch fault")
	}
	if len(tl.steps) != toggles {
		t.Fatal("entering FAULT must not toggle rails")
	}
	s := m.Snapshot()
	if !s.FaultLatch || s.ActiveRail != types.RailBackup || s.SwitchCount != 1 {
		t.Fatalf("snapshot = %+v", s)
	}

	// FAULT is terminal.
	for i := 0; i < 3; i++ {
		if m.OnBelowThreshold() != Fault {
			t.Fatal("FAULT must be terminal")
		}
	}
	if len(tl.steps) != toggles || m.Snapshot().SwitchCount != 1 {
		t.Fatal("no rail activity allowed after FAULT")
	}
}

func TestSwitchCountMonotonic(t *testing.T) {
	m, _, _, _ := newManager(t, true)
	var last uint32
	for i := 0; i < 5; i++ {
		m.OnBelowThreshold()
		c := m.Snapshot().SwitchCount
		if c < last {
			t.Fatalf("switch count decreased: %d -> %d", last, c)
		}
		if c > 1 {
			t.Fatalf("switch count = %d, only one failover exists", c)
		}
		last = c
		if m.Snapshot().ActiveRail == types.RailPrimary && i > 0 {
			t.Fatal("BACKUP->PRIMARY must never occur")
		}
	}
}

func TestStateStrings(t *testing.T) {
	if RunningPrimary.String() != "running(primary)" || RunningBackup.String() != "running(backup)" || Fault.String() != "fault" {
		t.Fatal("state strings changed")
	}
}
