package hw

// Line is an output with a logical on/off state independent of the
// electrical polarity (load switch enables on the reference board are
// active-low).
type Line struct {
	pin       GPIOPin
	activeLow bool
}

func NewLine(pin GPIOPin, activeLow bool) Line {
	return Line{pin: pin, activeLow: activeLow}
}

// Configure drives the pin as an output starting in the given logical state.
func (l Line) Configure(on bool) error {
	return l.pin.ConfigureOutput(on != l.activeLow)
}

func (l Line) Set(on bool) { l.pin.Set(on != l.activeLow) }
func (l Line) On()         { l.Set(true) }
func (l Line) Off()        { l.Set(false) }
func (l Line) IsOn() bool  { return l.pin.Get() != l.activeLow }
func (l Line) Valid() bool { return l.pin != nil }
func (l Line) Number() int {
	if l.pin == nil {
		return -1
	}
	return l.pin.Number()
}
