// services/ornament/sim/sim.go
package sim

import (
	"context"
	"io"
	"sort"
	"time"

	"ornament-go/errcode"
	"ornament-go/services/diag"
	"ornament-go/services/ornament"
	"ornament-go/services/ornament/internal/platform"
	"ornament-go/services/ornament/internal/sched"
	"ornament-go/types"
)

// Report is the outcome of one scenario run.
type Report struct {
	Name        string            `yaml:"name"`
	Elapsed     time.Duration     `yaml:"elapsed"`
	Patterns    []Step            `yaml:"patterns"` // [0] is the start-up pattern
	Transitions []Transition      `yaml:"transitions"`
	Final       types.PowerStatus `yaml:"final"`
	Modes       map[string]uint32 `yaml:"modes"`
	Wakes       map[string]uint32 `yaml:"wakes"`
	Checks      []Check           `yaml:"checks"`
	Outcome     string            `yaml:"outcome"` // "completed" | "fault"
}

// Step is one LED update.
type Step struct {
	At       time.Duration `yaml:"at"`
	Tick     uint32        `yaml:"tick"`
	Phase    uint8         `yaml:"phase"`
	Red      string        `yaml:"red"`
	Green    string        `yaml:"green"`
	Emphasis string        `yaml:"emphasis"`
}

// Transition is one PowerState change.
type Transition struct {
	At    time.Duration `yaml:"at"`
	Event string        `yaml:"event"` // "switch" | "fault"
	From  string        `yaml:"from"`
	To    string        `yaml:"to"`
}

// Check is one invariant evaluated over the whole run.
type Check struct {
	Name   string `yaml:"name"`
	OK     bool   `yaml:"ok"`
	Detail string `yaml:"detail,omitempty"`
}

// Passed reports whether every check held.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

type event struct {
	at      time.Duration
	rail    types.Rail
	glitch  bool
	applied bool
}

// machine is the ornament core on simulated hardware.
type machine struct {
	sc     *Scenario
	clock  *platform.SimClock
	rec    *platform.Recorder
	pins   *platform.HostPinFactory
	supply *platform.Supply
	sys    *ornament.System
	events []event
	report *Report
	trace  io.Writer
	line   []byte
}

// Run executes sc and evaluates the invariants. trace, when not nil,
// receives one diagnostic line per notice as the run progresses.
func Run(ctx context.Context, sc *Scenario, trace io.Writer) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	m := &machine{
		sc:     sc,
		report: &Report{Name: sc.Name},
		trace:  trace,
	}
	cfg := sc.Config
	m.clock = platform.NewSimClock(cfg.CounterHz, cfg.CounterBits)
	m.rec = platform.NewRecorder(m.clock.Elapsed)
	m.pins = platform.NewHostPinFactory(m.rec)
	m.supply = platform.NewSupply(m.pins, cfg.Pins)
	if sc.BackupDead {
		m.supply.Deplete(types.RailBackup)
	}
	m.schedule()

	modes := &platform.ModeLog{OnEnter: m.sleep}
	sys, err := ornament.Build(cfg, ornament.Hardware{
		Pins:  m.pins,
		Clock: m.clock,
		Delay: m.clock.Delay,
		Modes: modes,
	}, diag.SinkFunc(m.notify))
	if err != nil {
		return nil, err
	}
	m.sys = sys
	if err := sys.Start(); err != nil {
		return nil, err
	}

	err = m.loop(ctx)
	switch errcode.Of(err) {
	case errcode.OK:
		m.report.Outcome = "completed"
	case errcode.Fault:
		m.report.Outcome = "fault"
	default:
		return nil, err
	}
	m.finish()
	return m.report, nil
}

func (m *machine) schedule() {
	iv := time.Duration(m.sc.Config.IntervalMs) * time.Millisecond
	at := func(x float64) time.Duration { return time.Duration(x * float64(iv)) }
	for _, f := range m.sc.Faults {
		r, _ := f.rail()
		m.events = append(m.events, event{at: at(f.At), rail: r})
	}
	for _, g := range m.sc.Glitches {
		m.events = append(m.events, event{at: at(g), glitch: true})
	}
	sort.SliceStable(m.events, func(i, j int) bool { return m.events[i].at < m.events[j].at })
}

func (m *machine) loop(ctx context.Context) error {
	for m.sys.Stats().TimerWakes < m.sc.Intervals {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !m.sys.Pending() && !m.wakeAhead() {
			// Nothing can resume the loop: every source is gone.
			return &errcode.E{C: errcode.Error, Op: "sim.Run", Msg: "no wake source left"}
		}
		if err := m.sys.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// wakeAhead reports whether sleeping can end: an alarm is set or a cell
// event is still to come.
func (m *machine) wakeAhead() bool {
	if _, ok := m.clock.AlarmAt(); ok {
		return true
	}
	for _, e := range m.events {
		if !e.applied {
			return true
		}
	}
	return false
}

// sleep is the simulated deep sleep: time runs to the next alarm, or to
// the next cell event if that comes first.
func (m *machine) sleep(mode sched.Mode) {
	if mode != sched.ModeStop {
		return
	}
	for {
		alarm, armed := m.clock.AlarmAt()
		i := m.nextEvent()
		if i < 0 || (armed && m.events[i].at > alarm) {
			m.clock.RunToAlarm()
			return
		}
		e := &m.events[i]
		e.applied = true
		if now := m.clock.Elapsed(); e.at > now {
			m.clock.Advance(e.at - now)
		}
		if e.glitch {
			m.glitch()
		} else {
			m.supply.Deplete(e.rail)
		}
		if m.sys.Pending() {
			return
		}
		// A cell failing while it is not on the load wakes nothing.
	}
}

// glitch dips the cell currently on the load and lets it recover before
// the loop can look at it.
func (m *machine) glitch() {
	r := types.RailPrimary
	if !m.supply.Sourcing(types.RailPrimary) {
		r = types.RailBackup
	}
	if !m.supply.Healthy(r) {
		return
	}
	m.supply.Deplete(r)
	m.supply.Restore(r)
}

func (m *machine) nextEvent() int {
	for i := range m.events {
		if !m.events[i].applied {
			return i
		}
	}
	return -1
}

func (m *machine) notify(n diag.Notice) {
	if m.trace != nil {
		m.line = diag.AppendLine(m.line[:0], n)
		_, _ = m.trace.Write(m.line)
	}
	at := m.clock.Elapsed()
	switch v := n.Value.(type) {
	case types.PatternValue:
		m.report.Patterns = append(m.report.Patterns, Step{
			At:       at,
			Tick:     v.Tick,
			Phase:    v.Phase,
			Red:      bits3(v.Red),
			Green:    bits3(v.Green),
			Emphasis: v.Emphasis,
		})
	case types.RailSwitch:
		m.report.Transitions = append(m.report.Transitions, Transition{At: at, Event: "switch", From: v.From, To: v.To})
	}
	if n.Source == "power" && n.Event == "fault" {
		active := m.sys.Status().ActiveRail
		m.report.Transitions = append(m.report.Transitions, Transition{At: at, Event: "fault", From: active, To: "fault"})
	}
}

func (m *machine) finish() {
	r := m.report
	r.Elapsed = m.clock.Elapsed()
	r.Final = m.sys.Status()
	st := m.sys.Stats()
	r.Modes = st.Modes
	r.Wakes = map[string]uint32{
		"timer":            st.TimerWakes,
		"voltage":          st.VoltageWakes,
		"spurious_timer":   st.SpuriousTimer,
		"spurious_voltage": st.SpuriousVoltage,
		"coalesced":        st.Coalesced,
	}
	r.Checks = []Check{
		m.checkNoGap(),
		m.checkOverlap(),
		checkOneWay(r.Transitions),
		checkSwitchCount(r),
		checkCadence(r.Patterns, m.sys.Interval()),
		checkEmphasis(r.Patterns),
	}
}

func bits3(mask uint8) string {
	b := []byte("000")
	for i := 0; i < 3; i++ {
		if mask&(1<<(2-i)) != 0 {
			b[i] = '1'
		}
	}
	return string(b)
}
