package vmon

import (
	"errors"
	"sync"
	"testing"

	"tinygo.org/x/drivers"

	"ornament-go/services/ornament/internal/hw"
)

// fakeComparator implements hw.IRQPin and ThresholdSetter.
type fakeComparator struct {
	mu        sync.Mutex
	level     bool
	edge      hw.Edge
	handler   func()
	threshold uint16
	failIRQ   bool
}

func (p *fakeComparator) ConfigureInput(hw.Pull) error { return nil }
func (p *fakeComparator) ConfigureOutput(bool) error   { return nil }
func (p *fakeComparator) Set(b bool)                   { p.mu.Lock(); p.level = b; p.mu.Unlock() }
func (p *fakeComparator) Get() bool                    { p.mu.Lock(); defer p.mu.Unlock(); return p.level }
func (p *fakeComparator) Number() int                  { return 15 }
func (p *fakeComparator) SetThreshold(mv uint16) error { p.threshold = mv; return nil }
func (p *fakeComparator) ClearIRQ() error              { p.handler = nil; p.edge = hw.EdgeNone; return nil }
func (p *fakeComparator) SetIRQ(e hw.Edge, h func()) error {
	if p.failIRQ {
		return errors.New("irq unavailable")
	}
	p.edge, p.handler = e, h
	return nil
}

// fire sets the level and runs the handler as the interrupt would.
func (p *fakeComparator) fire(level bool) {
	p.Set(level)
	if p.handler != nil {
		p.handler()
	}
}

type countPoster struct{ n int }

func (c *countPoster) PostVoltageLow() { c.n++ }

func TestMonitorConfiguresThresholdAndEdge(t *testing.T) {
	cmp := &fakeComparator{}
	m, err := New(Config{Line: cmp, BelowLevel: true, ThresholdMV: 2700}, &countPoster{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cmp.threshold != 2700 || m.ThresholdMV() != 2700 {
		t.Fatalf("threshold = %d", cmp.threshold)
	}
	if err := m.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if cmp.edge != hw.EdgeRising {
		t.Fatalf("edge = %s, want rising", hw.EdgeToString(cmp.edge))
	}

	// Active-low comparator output wants the falling edge.
	cmp2 := &fakeComparator{level: true}
	m2, _ := New(Config{Line: cmp2, BelowLevel: false}, &countPoster{})
	_ = m2.Arm()
	if cmp2.edge != hw.EdgeFalling {
		t.Fatalf("edge = %s, want falling", hw.EdgeToString(cmp2.edge))
	}
}

func TestMonitorRaisesOnBelowEdgeOnly(t *testing.T) {
	cmp := &fakeComparator{}
	post := &countPoster{}
	m, _ := New(Config{Line: cmp, BelowLevel: true}, post)
	if err := m.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if post.n != 0 {
		t.Fatal("healthy rail must not raise at arm time")
	}

	cmp.fire(true)
	if post.n != 1 || m.Fired() != 1 {
		t.Fatalf("posts = %d fired = %d", post.n, m.Fired())
	}

	// Edge interrupt whose level already recovered: glitch.
	cmp.fire(false)
	if post.n != 1 || m.Filtered() != 1 {
		t.Fatalf("glitch not filtered: posts=%d filtered=%d", post.n, m.Filtered())
	}
}

func TestMonitorArmWhileAlreadyBelow(t *testing.T) {
	cmp := &fakeComparator{level: true}
	post := &countPoster{}
	m, _ := New(Config{Line: cmp, BelowLevel: true}, post)
	if err := m.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if post.n != 1 {
		t.Fatalf("expected immediate event, got %d", post.n)
	}
}

func TestMonitorDisarm(t *testing.T) {
	cmp := &fakeComparator{}
	post := &countPoster{}
	m, _ := New(Config{Line: cmp, BelowLevel: true}, post)
	_ = m.Arm()
	h := cmp.handler
	m.Disarm()
	if m.Armed() || cmp.handler != nil {
		t.Fatal("Disarm must clear the IRQ")
	}
	// A handler already in flight must not post after disarm.
	cmp.Set(true)
	h()
	if post.n != 0 {
		t.Fatalf("posted after disarm: %d", post.n)
	}
}

func TestMonitorArmError(t *testing.T) {
	cmp := &fakeComparator{failIRQ: true}
	m, _ := New(Config{Line: cmp, BelowLevel: true}, &countPoster{})
	if err := m.Arm(); err == nil {
		t.Fatal("expected error")
	}
	if m.Armed() {
		t.Fatal("monitor must not report armed after failure")
	}
}

func TestMonitorSensorUpdate(t *testing.T) {
	cmp := &fakeComparator{}
	m, _ := New(Config{Line: cmp, BelowLevel: true}, &countPoster{})
	cmp.Set(true)
	if m.LastBelow() {
		t.Fatal("LastBelow must only change on Update")
	}
	if err := m.Update(drivers.Temperature); err != nil || m.LastBelow() {
		t.Fatal("non-voltage update must be ignored")
	}
	if err := m.Update(drivers.Voltage); err != nil || !m.LastBelow() {
		t.Fatal("voltage update should latch below")
	}
}
