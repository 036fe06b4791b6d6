package types

// Retained value: diag/led/pattern
type PatternValue struct {
	Phase    uint8  `json:"phase" yaml:"phase"`
	Red      uint8  `json:"red" yaml:"red"`     // 3-bit mask
	Green    uint8  `json:"green" yaml:"green"` // 3-bit mask
	Emphasis string `json:"emphasis" yaml:"emphasis"`
	Tick     uint32 `json:"tick" yaml:"tick"`
}
