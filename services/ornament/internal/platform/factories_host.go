// services/ornament/internal/platform/factories_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"sync"
	"time"

	"ornament-go/services/ornament/internal/hw"
	"ornament-go/services/ornament/internal/sched"
)

// ----------------------------- Recorder --------------------------------------

// Edge is one output level change, timestamped in simulated time.
type Edge struct {
	At    time.Duration
	Pin   int
	Level bool
}

// Recorder logs every Set on the pins of a HostPinFactory.
type Recorder struct {
	mu    sync.Mutex
	clock func() time.Duration
	edges []Edge
}

func NewRecorder(clock func() time.Duration) *Recorder {
	return &Recorder{clock: clock}
}

func (r *Recorder) log(pin int, level bool) {
	var at time.Duration
	if r.clock != nil {
		at = r.clock()
	}
	r.mu.Lock()
	r.edges = append(r.edges, Edge{At: at, Pin: pin, Level: level})
	r.mu.Unlock()
}

// Edges returns a copy of the log.
func (r *Recorder) Edges() []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edge(nil), r.edges...)
}

// Len is the number of logged edges.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edges)
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements hw.IRQPin and vmon.ThresholdSetter for host tests.
type FakePin struct {
	mu        sync.RWMutex
	number    int
	level     bool
	modeOut   bool
	irqEdge   hw.Edge
	irqFunc   func()
	threshold uint16
	rec       *Recorder
	watch     func(level bool)
}

func (p *FakePin) ConfigureInput(_ hw.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.mu.Unlock()
	p.Set(initial)
	return nil
}

// Set drives the level. Outputs are recorded; inputs with an IRQ call the
// handler synchronously when the configured edge occurs, as an ISR would.
func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	out := p.modeOut
	rec := p.rec
	watch := p.watch
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()

	if out && rec != nil {
		rec.log(p.number, level)
	}
	if out && watch != nil {
		watch(level)
	}
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

// Watch installs fn to run after every output Set, so tests can model
// what the driven line feeds back into (for example the supply a rail
// enable switches onto the comparator).
func (p *FakePin) Watch(fn func(level bool)) {
	p.mu.Lock()
	p.watch = fn
	p.mu.Unlock()
}

func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

func (p *FakePin) SetIRQ(edge hw.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = hw.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func (p *FakePin) IRQEdge() hw.Edge {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqEdge
}

// SetThreshold records the programmed comparator trip point.
func (p *FakePin) SetThreshold(milliV uint16) error {
	p.mu.Lock()
	p.threshold = milliV
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Threshold() uint16 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.threshold
}

func edgeFrom(old, new bool) hw.Edge {
	switch {
	case !old && new:
		return hw.EdgeRising
	case old && !new:
		return hw.EdgeFalling
	default:
		return hw.EdgeNone
	}
}

func irqWanted(cfg, seen hw.Edge) bool {
	switch cfg {
	case hw.EdgeNone:
		return false
	case hw.EdgeBoth:
		return seen == hw.EdgeRising || seen == hw.EdgeFalling
	default:
		return cfg == seen
	}
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
	rec  *Recorder
}

func NewHostPinFactory(rec *Recorder) *HostPinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin), rec: rec}
}

func (f *HostPinFactory) ByNumber(n int) (hw.GPIOPin, bool) {
	p, ok := f.pin(n)
	return p, ok
}

func (f *HostPinFactory) pin(n int) (*FakePin, bool) {
	if n < 0 || n > MaxGPIO {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n, rec: f.rec}
		f.pins[n] = p
	}
	return p, true
}

// Get exposes the underlying *FakePin for tests (e.g. to drive IRQ edges).
func (f *HostPinFactory) Get(n int) (*FakePin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	return p, ok
}

// ----------------------------- Modes (host) ----------------------------------

// ModeLog records the sleep modes the scheduler selects. OnEnter, when
// set, runs after recording; simulations use it to let time pass while
// the loop is "asleep".
type ModeLog struct {
	OnEnter func(m sched.Mode)

	mu    sync.Mutex
	modes []sched.Mode
}

func (l *ModeLog) EnterMode(m sched.Mode) {
	l.mu.Lock()
	l.modes = append(l.modes, m)
	l.mu.Unlock()
	if l.OnEnter != nil {
		l.OnEnter(m)
	}
}

func (l *ModeLog) Modes() []sched.Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sched.Mode(nil), l.modes...)
}

// Last returns the most recent mode, or ModeRun if none was entered.
func (l *ModeLog) Last() sched.Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.modes) == 0 {
		return sched.ModeRun
	}
	return l.modes[len(l.modes)-1]
}

// ----------------------------- Defaults (host) -------------------------------

// MaxGPIO matches the RP2 user GPIO range so host and MCU reject the same
// board configurations.
const MaxGPIO = 28

// DefaultPinFactory provides a host GPIO factory without recording.
func DefaultPinFactory() hw.PinFactory { return NewHostPinFactory(nil) }

// DefaultDelay spins on the monotonic clock.
func DefaultDelay() hw.Delay { return spinDelay }

// DefaultModes discards mode changes; the host has no sleep states.
func DefaultModes() sched.ModeSetter { return &ModeLog{} }

func spinDelay(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}
