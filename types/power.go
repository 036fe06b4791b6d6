package types

// ------------------------
// Dual coin-cell supply
// ------------------------

type Rail uint8

const (
	RailPrimary Rail = iota
	RailBackup
)

func (r Rail) String() string {
	if r == RailBackup {
		return "backup"
	}
	return "primary"
}

// Retained value: diag/power/state
type PowerStatus struct {
	Level       string `json:"level" yaml:"level"` // "running" | "fault"
	ActiveRail  string `json:"active_rail" yaml:"active_rail"`
	SwitchCount uint32 `json:"switch_count" yaml:"switch_count"`
	Fault       bool   `json:"fault" yaml:"fault"`
	Tick        uint32 `json:"tick" yaml:"tick"`
}

// Event: diag/power/switch
type RailSwitch struct {
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	SwitchCount uint32 `json:"switch_count" yaml:"switch_count"`
	Tick        uint32 `json:"tick" yaml:"tick"`
}
