// services/ornament/internal/pattern/phase.go
package pattern

import "math/bits"

// DisplayPattern is which of the three red and three green LEDs are lit.
type DisplayPattern struct {
	Red   uint8 // 3-bit mask
	Green uint8 // 3-bit mask
}

const ledMask = 0b111

// Emphasis names the dominant colour of a pattern.
type Emphasis uint8

const (
	EmphasisNone Emphasis = iota
	EmphasisRed
	EmphasisGreen
)

func (e Emphasis) String() string {
	switch e {
	case EmphasisRed:
		return "red"
	case EmphasisGreen:
		return "green"
	default:
		return "none"
	}
}

func (p DisplayPattern) Emphasis() Emphasis {
	r := bits.OnesCount8(p.Red & ledMask)
	g := bits.OnesCount8(p.Green & ledMask)
	switch {
	case r > g:
		return EmphasisRed
	case g > r:
		return EmphasisGreen
	default:
		return EmphasisNone
	}
}

// Phase is the animation position. PhaseReset is the all-off state the
// latches are cleared to at start-up; the cycle proper is 1..len(cycle).
type Phase uint8

const PhaseReset Phase = 0

// Red and green emphasis alternate on every step.
var cycle = [...]DisplayPattern{
	{Red: 0b111, Green: 0b000},
	{Red: 0b000, Green: 0b111},
	{Red: 0b101, Green: 0b010},
	{Red: 0b010, Green: 0b101},
	{Red: 0b110, Green: 0b001},
	{Red: 0b001, Green: 0b110},
}

// CycleLen is the number of steps before the animation repeats.
const CycleLen = len(cycle)

// Next returns the following phase. Out-of-range phases restart the cycle.
func (p Phase) Next() Phase {
	if p >= Phase(CycleLen) {
		return 1
	}
	return p + 1
}

// Pattern derives the display for p.
func (p Phase) Pattern() DisplayPattern {
	if p == PhaseReset || p > Phase(CycleLen) {
		return DisplayPattern{}
	}
	return cycle[p-1]
}
