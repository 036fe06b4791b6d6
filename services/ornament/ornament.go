// services/ornament/ornament.go
package ornament

import (
	"context"
	"time"

	"tinygo.org/x/drivers"

	"ornament-go/errcode"
	"ornament-go/services/config"
	"ornament-go/services/diag"
	"ornament-go/services/ornament/internal/hw"
	"ornament-go/services/ornament/internal/pattern"
	"ornament-go/services/ornament/internal/platform"
	"ornament-go/services/ornament/internal/rail"
	"ornament-go/services/ornament/internal/sched"
	"ornament-go/services/ornament/internal/vmon"
	"ornament-go/services/ornament/internal/wake"
	"ornament-go/services/ornament/internal/waketimer"
	"ornament-go/types"
)

// Clock is the always-on counter with its compare register.
type Clock interface {
	waketimer.Counter
	waketimer.Alarm
}

// Hardware is what a board provides to the control loops.
type Hardware struct {
	Pins  hw.PinFactory
	Clock Clock
	Delay hw.Delay
	Modes sched.ModeSetter // optional
}

// DefaultHardware uses the build's platform pins and the runtime clock.
func DefaultHardware(cfg types.OrnamentConfig) Hardware {
	return Hardware{
		Pins:  platform.DefaultPinFactory(),
		Clock: platform.NewRealtimeClock(cfg.CounterHz, cfg.CounterBits),
		Delay: platform.DefaultDelay(),
		Modes: platform.DefaultModes(),
	}
}

// Run builds the system on the default hardware and runs it. It returns
// errcode.Fault once both rails are exhausted, or ctx's error.
func Run(ctx context.Context, cfg types.OrnamentConfig, sink diag.Sink) error {
	sys, err := Build(cfg, DefaultHardware(cfg), sink)
	if err != nil {
		return err
	}
	return sys.Run(ctx)
}

// System is the three coupled loops sharing one wake queue.
type System struct {
	cfg      types.OrnamentConfig
	queue    *wake.Queue
	monitor  *vmon.Monitor
	rails    *rail.Manager
	timer    *waketimer.Timer
	leds     *pattern.Driver
	loop     *sched.Scheduler
	sink     diag.Sink
	interval uint32

	spurious uint32
}

// Build validates cfg and wires the components onto h. Nothing is driven
// until Start or Run.
func Build(cfg types.OrnamentConfig, h Hardware, sink diag.Sink) (*System, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if h.Pins == nil || h.Clock == nil || h.Delay == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "ornament.Build", Msg: "incomplete hardware"}
	}
	b, err := newBoard(h.Pins, cfg.Pins)
	if err != nil {
		return nil, err
	}

	s := &System{cfg: cfg, queue: wake.NewQueue(), sink: sink}

	s.monitor, err = vmon.New(vmon.Config{
		Line:        b.comparator,
		BelowLevel:  cfg.Pins.ComparatorBelowLvl,
		ThresholdMV: cfg.ThresholdMilliV,
	}, s.queue)
	if err != nil {
		return nil, errcode.Wrap(errcode.MonitorUnassigned, "ornament.Build", err)
	}

	s.rails = rail.New(b.rails, time.Duration(cfg.SettleUs)*time.Microsecond, h.Delay)

	s.timer = waketimer.New(h.Clock, h.Clock, waketimer.Config{Hz: cfg.CounterHz, Bits: cfg.CounterBits}, s.queue.PostTimer)
	s.interval = s.timer.Ticks(time.Duration(cfg.IntervalMs) * time.Millisecond)
	if s.interval > s.timer.MaxInterval() {
		return nil, &errcode.E{C: errcode.IntervalTooLong, Op: "ornament.Build", Msg: "interval_ms"}
	}

	s.leds = pattern.New(b.red, b.green, pattern.Timing{
		Setup: time.Duration(cfg.LatchSetupNs),
		Pulse: time.Duration(cfg.LatchPulseNs),
	}, h.Delay, pattern.Phase(cfg.InitialPhase))

	s.loop = sched.New(sched.Config{
		Queue:     s.queue,
		Timer:     s.timer,
		Monitor:   s.monitor,
		Modes:     h.Modes,
		Interval:  s.interval,
		OnVoltage: s.onVoltage,
		OnTimer:   s.onTimer,
		Diag:      sink,
	})
	return s, nil
}

// init drives the outputs to their start-up state: PRIMARY sourcing,
// BACKUP off, both latches showing the seed pattern.
func (s *System) init() error {
	if err := s.rails.Init(); err != nil {
		return err
	}
	if err := s.leds.Reset(); err != nil {
		return err
	}
	now := s.timer.Now()
	s.notify("init", "interval", s.interval, now)
	s.publishState(now)
	s.publishPattern(s.leds.Last(), now)
	return nil
}

// Start initialises the outputs and arms both wake sources, leaving the
// loop to be driven with Step.
func (s *System) Start() error {
	if err := s.init(); err != nil {
		return err
	}
	return s.loop.Start()
}

// Step runs one suspension and one handler.
func (s *System) Step(ctx context.Context) error { return s.loop.Step(ctx) }

// Run initialises the outputs and runs the loop until FAULT or ctx ends.
func (s *System) Run(ctx context.Context) error {
	if err := s.init(); err != nil {
		return err
	}
	return s.loop.Run(ctx)
}

// onVoltage is the Power Rail Manager's side of the loop.
func (s *System) onVoltage(now uint32) bool {
	// The comparator is re-sampled: an edge that has already gone away
	// was a glitch and must not cost a rail.
	if !s.monitor.Below() {
		s.spurious++
		s.notify("power", "spurious", nil, now)
		return false
	}
	from := s.rails.Snapshot().ActiveRail
	switch s.rails.OnBelowThreshold() {
	case rail.RunningBackup:
		st := s.rails.Snapshot()
		s.notify("power", "switch", types.RailSwitch{
			From:        from.String(),
			To:          st.ActiveRail.String(),
			SwitchCount: st.SwitchCount,
			Tick:        now,
		}, now)
		s.publishState(now)
		// BACKUP already below too: resolve to FAULT on the next pass.
		if s.monitor.Below() {
			s.queue.PostVoltageLow()
		}
		return false
	case rail.Fault:
		s.leds.Halt()
		s.notify("power", "fault", nil, now)
		s.publishState(now)
		return true
	}
	return false
}

// onTimer is the LED Pattern Driver's side of the loop.
func (s *System) onTimer(now uint32) bool {
	if p, ok := s.leds.Advance(); ok {
		s.publishPattern(p, now)
	}
	return false
}

func (s *System) publishState(now uint32) {
	if s.sink == nil {
		return
	}
	st := s.Status()
	st.Tick = now
	s.sink.Notify(diag.Notice{Source: "power", Event: "state", Value: st, Tick: now})
}

func (s *System) publishPattern(p pattern.DisplayPattern, now uint32) {
	if s.sink == nil {
		return
	}
	s.sink.Notify(diag.Notice{Source: "led", Event: "pattern", Value: types.PatternValue{
		Phase:    uint8(s.leds.Phase()),
		Red:      p.Red,
		Green:    p.Green,
		Emphasis: p.Emphasis().String(),
		Tick:     now,
	}, Tick: now})
}

func (s *System) notify(source, event string, v any, now uint32) {
	if s.sink == nil {
		return
	}
	s.sink.Notify(diag.Notice{Source: source, Event: event, Value: v, Tick: now})
}

// ---- inspection ----

// Status is the PowerState in its diagnostic form.
func (s *System) Status() types.PowerStatus {
	st := s.rails.Snapshot()
	level := "running"
	if st.FaultLatch {
		level = "fault"
	}
	return types.PowerStatus{
		Level:       level,
		ActiveRail:  st.ActiveRail.String(),
		SwitchCount: st.SwitchCount,
		Fault:       st.FaultLatch,
		Tick:        s.timer.Now(),
	}
}

// Pattern is the last DisplayPattern clocked into the latches.
func (s *System) Pattern() types.PatternValue {
	p := s.leds.Last()
	return types.PatternValue{
		Phase:    uint8(s.leds.Phase()),
		Red:      p.Red,
		Green:    p.Green,
		Emphasis: p.Emphasis().String(),
		Tick:     s.timer.Now(),
	}
}

// Stats counts the loop's activity.
type Stats struct {
	VoltageWakes    uint32
	TimerWakes      uint32
	SpuriousTimer   uint32
	SpuriousVoltage uint32
	StaleAlarms     uint32
	Coalesced       uint32
	Updates         uint32
	Modes           map[string]uint32
}

func (s *System) Stats() Stats {
	ls := s.loop.Stats()
	modes := make(map[string]uint32, len(ls.Modes))
	for i, n := range ls.Modes {
		modes[sched.Mode(i).String()] = n
	}
	return Stats{
		VoltageWakes:    ls.VoltageWakes,
		TimerWakes:      ls.TimerWakes,
		SpuriousTimer:   ls.Spurious,
		SpuriousVoltage: s.spurious,
		StaleAlarms:     s.timer.Stale(),
		Coalesced:       s.queue.Coalesced(),
		Updates:         s.leds.Updates(),
		Modes:           modes,
	}
}

// Interval is the LED update interval in counter ticks.
func (s *System) Interval() uint32 { return s.interval }

// Pending reports whether a wake is queued, i.e. Step will not block.
func (s *System) Pending() bool { return s.queue.Pending() }

// Halted reports whether the loop stopped in FAULT.
func (s *System) Halted() bool { return s.loop.Halted() }

// Deadline returns the armed wake tick, if any.
func (s *System) Deadline() (uint32, bool) { return s.timer.Deadline(), s.timer.Armed() }

// Now is the wake counter.
func (s *System) Now() uint32 { return s.timer.Now() }

// SampleVoltage latches the comparator through the drivers.Sensor
// interface and reports whether the supply is below threshold.
func (s *System) SampleVoltage() bool {
	_ = s.monitor.Update(drivers.Voltage)
	return s.monitor.LastBelow()
}
