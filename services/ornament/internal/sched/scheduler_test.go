package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"ornament-go/errcode"
	"ornament-go/services/diag"
	"ornament-go/services/ornament/internal/wake"
)

type fakeTimer struct {
	now      uint32
	armed    bool
	due      bool
	arms     []uint32
	canceled int
}

func (t *fakeTimer) Now() uint32 { return t.now }
func (t *fakeTimer) ArmAfter(iv uint32) uint32 {
	t.armed, t.due = true, false
	t.arms = append(t.arms, t.now+iv)
	return t.now + iv
}
func (t *fakeTimer) Expire() bool {
	if !t.armed || !t.due {
		return false
	}
	t.armed, t.due = false, false
	return true
}
func (t *fakeTimer) Cancel()     { t.armed, t.due = false, false; t.canceled++ }
func (t *fakeTimer) Armed() bool { return t.armed }

type fakeMonitor struct {
	armed  bool
	armErr error
}

func (m *fakeMonitor) Arm() error  { m.armed = m.armErr == nil; return m.armErr }
func (m *fakeMonitor) Disarm()     { m.armed = false }
func (m *fakeMonitor) Armed() bool { return m.armed }

type modeLog []Mode

func (l *modeLog) EnterMode(m Mode) { *l = append(*l, m) }

type rig struct {
	q       *wake.Queue
	timer   *fakeTimer
	mon     *fakeMonitor
	modes   *modeLog
	s       *Scheduler
	order   []string
	voltRes bool
	diag    *diag.Collector
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		q:     wake.NewQueue(),
		timer: &fakeTimer{},
		mon:   &fakeMonitor{},
		modes: &modeLog{},
		diag:  &diag.Collector{},
	}
	r.s = New(Config{
		Queue:    r.q,
		Timer:    r.timer,
		Monitor:  r.mon,
		Modes:    r.modes,
		Interval: 100,
		OnVoltage: func(uint32) bool {
			r.order = append(r.order, "voltage")
			return r.voltRes
		},
		OnTimer: func(uint32) bool {
			r.order = append(r.order, "timer")
			return false
		},
		Diag: r.diag,
	})
	if err := r.s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r
}

// fireTimer makes the armed deadline due and posts its wake.
func (r *rig) fireTimer(ticks uint32) {
	r.timer.now += ticks
	r.timer.due = true
	r.q.Post(wake.SourceTimer)
}

func step(t *testing.T, r *rig) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return r.s.Step(ctx)
}

func TestStartArmsBothSources(t *testing.T) {
	r := newRig(t)
	if !r.mon.armed || !r.timer.armed {
		t.Fatal("Start must arm monitor and timer")
	}
	if len(r.timer.arms) != 1 || r.timer.arms[0] != 100 {
		t.Fatalf("arms = %v", r.timer.arms)
	}
	if r.diag.Count("sched", "start") != 1 {
		t.Fatal("start notice missing")
	}
}

func TestStartFailsWhenMonitorCannotArm(t *testing.T) {
	q := wake.NewQueue()
	s := New(Config{Queue: q, Timer: &fakeTimer{}, Monitor: &fakeMonitor{armErr: errors.New("no irq")}})
	if err := s.Start(); err == nil {
		t.Fatal("expected error")
	}
}

func TestTimerWakeRunsHandlerAndRearms(t *testing.T) {
	r := newRig(t)
	r.fireTimer(100)
	if err := step(t, r); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(r.order) != 1 || r.order[0] != "timer" {
		t.Fatalf("order = %v", r.order)
	}
	if len(r.timer.arms) != 2 || r.timer.arms[1] != 200 {
		t.Fatalf("re-arm = %v, want now+interval", r.timer.arms)
	}
	if st := r.s.Stats(); st.TimerWakes != 1 || st.Modes[ModeRun] != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestStaleTimerWakeIsIgnored(t *testing.T) {
	r := newRig(t)
	// Wake delivered but the deadline is not due (superseded compare).
	r.q.Post(wake.SourceTimer)
	if err := step(t, r); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(r.order) != 0 {
		t.Fatalf("handler ran for stale wake: %v", r.order)
	}
	if r.s.Stats().Spurious != 1 || len(r.timer.arms) != 1 {
		t.Fatal("stale wake must neither count as update nor re-arm")
	}
	if r.diag.Count("sched", "spurious") != 1 {
		t.Fatal("spurious notice missing")
	}
}

func TestModeSelection(t *testing.T) {
	r := newRig(t)

	// Nothing pending, both sources armed: deep sleep.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.s.Step(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if last := (*r.modes)[len(*r.modes)-1]; last != ModeStop {
		t.Fatalf("mode = %s, want stop", last)
	}

	// Work already pending: stay awake.
	r.fireTimer(100)
	_ = step(t, r)
	if last := (*r.modes)[len(*r.modes)-1]; last != ModeRun {
		t.Fatalf("mode = %s, want run", last)
	}

	// Only the comparator is armed: still deep sleep.
	r.timer.Cancel()
	if r.s.selectMode() != ModeStop {
		t.Fatal("monitor alone is an admissible wake source")
	}
	r.mon.Disarm()
	if r.s.selectMode() != ModeHalt {
		t.Fatal("no wake source left must select halt")
	}
}

func TestEventsHandledInDeliveryOrder(t *testing.T) {
	r := newRig(t)
	r.q.Post(wake.SourceVoltage)
	r.fireTimer(100)
	_ = step(t, r)
	_ = step(t, r)
	if len(r.order) != 2 || r.order[0] != "voltage" || r.order[1] != "timer" {
		t.Fatalf("order = %v", r.order)
	}
}

func TestTerminalVoltageHandlerHalts(t *testing.T) {
	r := newRig(t)
	r.voltRes = true
	r.q.Post(wake.SourceVoltage)
	r.fireTimer(100) // queued behind the fault; must never run

	if err := step(t, r); !errors.Is(err, errcode.Fault) {
		t.Fatalf("err = %v, want fault", err)
	}
	if !r.s.Halted() || r.mon.armed || r.timer.armed || r.timer.canceled != 1 {
		t.Fatal("halt must cancel timer and disarm monitor")
	}
	if last := (*r.modes)[len(*r.modes)-1]; last != ModeHalt {
		t.Fatalf("mode = %s, want halt", last)
	}
	if err := step(t, r); !errors.Is(err, errcode.Fault) {
		t.Fatal("Step after halt must keep returning fault")
	}
	if len(r.order) != 1 {
		t.Fatalf("handlers after fault: %v", r.order)
	}
}

func TestRunReturnsFault(t *testing.T) {
	r := newRig(t)
	r.voltRes = true
	r.mon.armed = false
	s := New(Config{
		Queue:     r.q,
		Timer:     r.timer,
		Monitor:   r.mon,
		Interval:  100,
		OnVoltage: func(uint32) bool { return true },
		OnTimer:   func(uint32) bool { return false },
	})
	r.q.Post(wake.SourceVoltage)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, errcode.Fault) {
		t.Fatalf("Run = %v", err)
	}
}

func TestModeStrings(t *testing.T) {
	if ModeRun.String() != "run" || ModeStop.String() != "stop" || ModeHalt.String() != "halt" {
		t.Fatal("mode strings changed")
	}
}
