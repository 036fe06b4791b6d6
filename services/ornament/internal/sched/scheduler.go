// services/ornament/internal/sched/scheduler.go
package sched

import (
	"context"

	"ornament-go/errcode"
	"ornament-go/services/diag"
	"ornament-go/services/ornament/internal/wake"
)

// Mode is the processor power state entered at the suspension point.
type Mode uint8

const (
	// ModeRun: work is already pending; do not sleep.
	ModeRun Mode = iota
	// ModeStop: deep sleep with RAM retained, woken by the always-on
	// timer or comparator.
	ModeStop
	// ModeHalt: no wake source remains; lowest power, unrecoverable.
	ModeHalt
	numModes
)

func (m Mode) String() string {
	switch m {
	case ModeRun:
		return "run"
	case ModeStop:
		return "stop"
	default:
		return "halt"
	}
}

// ModeSetter prepares the platform for the selected mode just before the
// loop suspends.
type ModeSetter interface {
	EnterMode(m Mode)
}

// Timer is the wake timer as seen by the loop.
type Timer interface {
	Now() uint32
	ArmAfter(interval uint32) uint32
	Expire() bool
	Cancel()
	Armed() bool
}

// Monitor is the voltage monitor as seen by the loop.
type Monitor interface {
	Arm() error
	Disarm()
	Armed() bool
}

// Handler runs one event to completion. Returning true means the system
// reached its terminal state and the loop must stop.
type Handler func(now uint32) (terminal bool)

type Config struct {
	Queue    *wake.Queue
	Timer    Timer
	Monitor  Monitor
	Modes    ModeSetter // optional
	Interval uint32     // LED update interval in timer ticks

	OnVoltage Handler
	OnTimer   Handler

	Diag diag.Sink // optional
}

type Stats struct {
	VoltageWakes uint32
	TimerWakes   uint32
	Spurious     uint32
	Modes        [numModes]uint32
}

// Scheduler is the single cooperative loop. It is the only place the
// firmware yields to hardware.
type Scheduler struct {
	cfg    Config
	halted bool
	stats  Stats
}

func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// Start arms both wake sources.
func (s *Scheduler) Start() error {
	if err := s.cfg.Monitor.Arm(); err != nil {
		return err
	}
	d := s.cfg.Timer.ArmAfter(s.cfg.Interval)
	s.notify("start", d)
	return nil
}

// Run starts the loop and never returns except into FAULT (errcode.Fault)
// or when ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	for {
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
}

// Step suspends once and dispatches exactly one event.
func (s *Scheduler) Step(ctx context.Context) error {
	if s.halted {
		return errcode.Fault
	}
	s.enter(s.selectMode())

	src, err := s.cfg.Queue.Wait(ctx)
	if err != nil {
		return err
	}
	switch src {
	case wake.SourceVoltage:
		s.stats.VoltageWakes++
		if s.cfg.OnVoltage(s.cfg.Timer.Now()) {
			s.halt()
			return errcode.Fault
		}
	case wake.SourceTimer:
		// A wake for a superseded or already consumed deadline.
		if !s.cfg.Timer.Expire() {
			s.stats.Spurious++
			s.notify("spurious", src.String())
			return nil
		}
		s.stats.TimerWakes++
		if s.cfg.OnTimer(s.cfg.Timer.Now()) {
			s.halt()
			return errcode.Fault
		}
		s.cfg.Timer.ArmAfter(s.cfg.Interval)
	}
	return nil
}

// selectMode picks the deepest mode that an admissible event can still
// wake from.
func (s *Scheduler) selectMode() Mode {
	switch {
	case s.cfg.Queue.Pending():
		return ModeRun
	case s.cfg.Timer.Armed() || s.cfg.Monitor.Armed():
		return ModeStop
	default:
		return ModeHalt
	}
}

func (s *Scheduler) halt() {
	s.cfg.Timer.Cancel()
	s.cfg.Monitor.Disarm()
	s.halted = true
	s.notify("halt", nil)
	s.enter(ModeHalt)
}

func (s *Scheduler) enter(m Mode) {
	s.stats.Modes[m]++
	if s.cfg.Modes != nil {
		s.cfg.Modes.EnterMode(m)
	}
}

func (s *Scheduler) notify(event string, v any) {
	if s.cfg.Diag == nil {
		return
	}
	s.cfg.Diag.Notify(diag.Notice{Source: "sched", Event: event, Value: v, Tick: s.cfg.Timer.Now()})
}

func (s *Scheduler) Halted() bool { return s.halted }
func (s *Scheduler) Stats() Stats { return s.stats }
