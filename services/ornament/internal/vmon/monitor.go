// services/ornament/internal/vmon/monitor.go
package vmon

import (
	"sync/atomic"

	"tinygo.org/x/drivers"

	"ornament-go/services/ornament/internal/hw"
)

// ThresholdSetter is implemented by comparator lines with a programmable
// trip point (an on-chip PVD, or a DAC-referenced external comparator).
type ThresholdSetter interface {
	SetThreshold(milliV uint16) error
}

// Poster receives the VoltageBelowThreshold wake. Called from the IRQ
// handler, so it must not block.
type Poster interface {
	PostVoltageLow()
}

type Config struct {
	Line        hw.IRQPin
	BelowLevel  bool // line level meaning "below threshold"
	ThresholdMV uint16
}

// Monitor watches the comparator output and raises one event kind.
// It never polls: the only work happens in the edge interrupt.
type Monitor struct {
	line   hw.IRQPin
	below  bool
	thresh uint16
	post   Poster

	armed     atomic.Bool
	fired     atomic.Uint32 // edges seen while armed
	filtered  atomic.Uint32 // edges whose sampled level was not below
	lastBelow atomic.Bool   // latched by Update
}

func New(cfg Config, post Poster) (*Monitor, error) {
	if err := cfg.Line.ConfigureInput(hw.PullNone); err != nil {
		return nil, err
	}
	if ts, ok := cfg.Line.(ThresholdSetter); ok && cfg.ThresholdMV != 0 {
		if err := ts.SetThreshold(cfg.ThresholdMV); err != nil {
			return nil, err
		}
	}
	return &Monitor{
		line:   cfg.Line,
		below:  cfg.BelowLevel,
		thresh: cfg.ThresholdMV,
		post:   post,
	}, nil
}

// Arm enables the edge interrupt. If the rail is already below threshold
// no edge will ever arrive, so the event is raised immediately.
func (m *Monitor) Arm() error {
	if err := m.line.SetIRQ(hw.EdgeInto(m.below), m.isr); err != nil {
		return err
	}
	m.armed.Store(true)
	if m.Below() {
		m.fired.Add(1)
		m.post.PostVoltageLow()
	}
	return nil
}

// Disarm removes the monitor from the admissible wake sources.
func (m *Monitor) Disarm() {
	m.armed.Store(false)
	_ = m.line.ClearIRQ()
}

func (m *Monitor) Armed() bool { return m.armed.Load() }

// Below samples the comparator output now.
func (m *Monitor) Below() bool { return m.line.Get() == m.below }

// ThresholdMV is the configured trip point.
func (m *Monitor) ThresholdMV() uint16 { return m.thresh }

// Update implements drivers.Sensor. Only drivers.Voltage is meaningful:
// it latches the current comparator state for LastBelow.
func (m *Monitor) Update(which drivers.Measurement) error {
	if which&drivers.Voltage != 0 {
		m.lastBelow.Store(m.Below())
	}
	return nil
}

// LastBelow reports the state latched by the last Update.
func (m *Monitor) LastBelow() bool { return m.lastBelow.Load() }

// Fired counts events raised; Filtered counts edges dropped as glitches.
func (m *Monitor) Fired() uint32    { return m.fired.Load() }
func (m *Monitor) Filtered() uint32 { return m.filtered.Load() }

// isr: fast register read + non-blocking post.
func (m *Monitor) isr() {
	if !m.armed.Load() {
		return
	}
	if m.line.Get() != m.below {
		m.filtered.Add(1)
		return
	}
	m.fired.Add(1)
	m.post.PostVoltageLow()
}

var _ drivers.Sensor = (*Monitor)(nil)
