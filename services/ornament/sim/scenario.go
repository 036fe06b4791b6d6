// services/ornament/sim/scenario.go
package sim

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"ornament-go/errcode"
	"ornament-go/services/config"
	"ornament-go/types"
)

// Scenario is one host run of the ornament: a board configuration, how
// long to run and when each cell gives out. Times are in LED update
// intervals from power-on; fractions fall between updates.
type Scenario struct {
	Name      string               `yaml:"name"`
	Intervals uint32               `yaml:"intervals"`
	Config    types.OrnamentConfig `yaml:"config"`
	Faults    []Fault              `yaml:"faults"`
	Glitches  []float64            `yaml:"glitches"`

	// BackupDead starts the run with a BACKUP cell that is already below
	// threshold, as with a stuck-low or missing second cell.
	BackupDead bool `yaml:"backup_dead"`
}

// Fault depletes one cell at At intervals.
type Fault struct {
	At   float64 `yaml:"at"`
	Rail string  `yaml:"rail"` // "primary" | "backup"
}

func (f Fault) rail() (types.Rail, bool) {
	switch f.Rail {
	case "primary":
		return types.RailPrimary, true
	case "backup":
		return types.RailBackup, true
	default:
		return 0, false
	}
}

// Parse reads a scenario. Config keys left out keep their defaults.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{Intervals: 10, Config: types.DefaultOrnamentConfig()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(sc); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, "sim.Parse", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "sim.Load", err)
	}
	return Parse(data)
}

func (sc *Scenario) Validate() error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidParams, Op: "sim.Validate", Msg: msg}
	}
	if sc.Intervals == 0 {
		return bad("intervals must be positive")
	}
	for _, f := range sc.Faults {
		if _, ok := f.rail(); !ok {
			return bad("fault rail must be primary or backup, got " + f.Rail)
		}
		if f.At < 0 {
			return bad("fault time is negative")
		}
	}
	for _, g := range sc.Glitches {
		if g < 0 {
			return bad("glitch time is negative")
		}
	}
	return config.Validate(sc.Config)
}

// DefaultsYAML renders the default board configuration.
func DefaultsYAML() ([]byte, error) {
	return yaml.Marshal(types.DefaultOrnamentConfig())
}
