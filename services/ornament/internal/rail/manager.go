// services/ornament/internal/rail/manager.go
package rail

import (
	"time"

	"ornament-go/services/ornament/internal/hw"
	"ornament-go/types"
)

// State of the failover machine. FAULT is terminal.
type State uint8

const (
	RunningPrimary State = iota
	RunningBackup
	Fault
)

func (s State) String() string {
	switch s {
	case RunningPrimary:
		return "running(primary)"
	case RunningBackup:
		return "running(backup)"
	default:
		return "fault"
	}
}

// PowerState is owned by the Manager and mutated only in OnBelowThreshold.
type PowerState struct {
	ActiveRail  types.Rail
	SwitchCount uint32
	FaultLatch  bool
}

// Lines are the two load-switch enables.
type Lines struct {
	Primary hw.Line
	Backup  hw.Line
}

// Manager owns which rail sources the load.
type Manager struct {
	lines  Lines
	settle time.Duration
	delay  hw.Delay
	st     PowerState
}

func New(lines Lines, settle time.Duration, delay hw.Delay) *Manager {
	return &Manager{lines: lines, settle: settle, delay: delay}
}

// Init puts PRIMARY on the load and BACKUP off.
func (m *Manager) Init() error {
	if err := m.lines.Primary.Configure(true); err != nil {
		return err
	}
	if err := m.lines.Backup.Configure(false); err != nil {
		return err
	}
	m.st = PowerState{ActiveRail: types.RailPrimary}
	return nil
}

func (m *Manager) State() State {
	switch {
	case m.st.FaultLatch:
		return Fault
	case m.st.ActiveRail == types.RailBackup:
		return RunningBackup
	default:
		return RunningPrimary
	}
}

// Snapshot returns a copy of PowerState.
func (m *Manager) Snapshot() PowerState { return m.st }

// OnBelowThreshold runs the transition for one VoltageBelowThreshold event
// and returns the new state. Failover is one-directional.
func (m *Manager) OnBelowThreshold() State {
	switch m.State() {
	case RunningPrimary:
		m.failover()
	case RunningBackup:
		// Nothing left to switch to; leave the lines as they are.
		m.st.FaultLatch = true
	}
	return m.State()
}

// failover is make-before-break: the load never sees both switches open,
// and both conduct only for the settling delay.
func (m *Manager) failover() {
	m.lines.Backup.On()
	m.delay(m.settle)
	m.lines.Primary.Off()
	m.st.ActiveRail = types.RailBackup
	m.st.SwitchCount++
}
