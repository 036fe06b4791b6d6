package types

// Ornament configuration supplied on topic "config/ornament".
// Durations are integers in the unit named by the field to keep the
// embedded JSON free of duration parsing on the MCU.

type OrnamentConfig struct {
	ThresholdMilliV uint16 `json:"threshold_mV" yaml:"threshold_mV"`
	IntervalMs      uint32 `json:"interval_ms" yaml:"interval_ms"`

	// Make-before-break overlap. SettleMinUs is the load switch rise time,
	// SettleMaxUs the longest overlap the cells tolerate.
	SettleUs    uint32 `json:"settle_us" yaml:"settle_us"`
	SettleMinUs uint32 `json:"settle_min_us" yaml:"settle_min_us"`
	SettleMaxUs uint32 `json:"settle_max_us" yaml:"settle_max_us"`

	LatchSetupNs uint32 `json:"latch_setup_ns" yaml:"latch_setup_ns"`
	LatchPulseNs uint32 `json:"latch_pulse_ns" yaml:"latch_pulse_ns"`

	InitialPhase uint8 `json:"initial_phase" yaml:"initial_phase"`

	CounterHz   uint32 `json:"counter_hz" yaml:"counter_hz"`
	CounterBits uint8  `json:"counter_bits" yaml:"counter_bits"`

	Pins PinMap `json:"pins" yaml:"pins"`
}

// PinMap is the board wiring. Pin numbers follow the platform's GPIO
// numbering (GPn on RP2). -1 marks an optional line as not fitted.
type PinMap struct {
	PrimaryEnable      int  `json:"primary_en" yaml:"primary_en"`
	PrimaryActiveLow   bool `json:"primary_active_low" yaml:"primary_active_low"`
	BackupEnable       int  `json:"backup_en" yaml:"backup_en"`
	BackupActiveLow    bool `json:"backup_active_low" yaml:"backup_active_low"`
	Comparator         int  `json:"comparator" yaml:"comparator"`
	ComparatorBelowLvl bool `json:"comparator_below_level" yaml:"comparator_below_level"`

	Red   LatchPins `json:"red" yaml:"red"`
	Green LatchPins `json:"green" yaml:"green"`
}

type LatchPins struct {
	Data    [3]int `json:"data" yaml:"data"`
	Clock   int    `json:"clk" yaml:"clk"`
	PresetN int    `json:"pre_n" yaml:"pre_n"`
	ClearN  int    `json:"clr_n" yaml:"clr_n"`
}

// DefaultOrnamentConfig returns the reference board values: 2.7 V trip,
// 3 s animation step, 32.768 kHz crystal on a 32-bit counter.
func DefaultOrnamentConfig() OrnamentConfig {
	return OrnamentConfig{
		ThresholdMilliV: 2700,
		IntervalMs:      3000,
		SettleUs:        100,
		SettleMinUs:     20,
		SettleMaxUs:     1000,
		LatchSetupNs:    1000,
		LatchPulseNs:    1000,
		InitialPhase:    0,
		CounterHz:       32768,
		CounterBits:     32,
		Pins: PinMap{
			PrimaryEnable:      2,
			PrimaryActiveLow:   true,
			BackupEnable:       3,
			BackupActiveLow:    true,
			Comparator:         15,
			ComparatorBelowLvl: true,
			Red: LatchPins{
				Data:    [3]int{6, 7, 8},
				Clock:   9,
				PresetN: 10,
				ClearN:  11,
			},
			Green: LatchPins{
				Data:    [3]int{16, 17, 18},
				Clock:   19,
				PresetN: 20,
				ClearN:  21,
			},
		},
	}
}
