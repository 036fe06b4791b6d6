// services/ornament/board.go
package ornament

import (
	"ornament-go/errcode"
	"ornament-go/services/ornament/internal/hw"
	"ornament-go/services/ornament/internal/pattern"
	"ornament-go/services/ornament/internal/rail"
	"ornament-go/types"
	"ornament-go/x/conv"
)

// board resolves a PinMap against a pin factory, refusing unknown numbers
// and pins claimed twice.
type board struct {
	pins    hw.PinFactory
	claimed map[int]bool

	rails      rail.Lines
	comparator hw.IRQPin
	red, green pattern.Latch
}

func newBoard(pins hw.PinFactory, m types.PinMap) (*board, error) {
	b := &board{pins: pins, claimed: make(map[int]bool)}

	var err error
	if b.rails.Primary, err = b.line(m.PrimaryEnable, m.PrimaryActiveLow, false); err != nil {
		return nil, err
	}
	if b.rails.Backup, err = b.line(m.BackupEnable, m.BackupActiveLow, false); err != nil {
		return nil, err
	}

	p, err := b.claim(m.Comparator)
	if err != nil {
		return nil, err
	}
	irq, ok := p.(hw.IRQPin)
	if !ok {
		return nil, pinErr(errcode.MonitorUnassigned, "comparator pin has no IRQ", m.Comparator)
	}
	b.comparator = irq

	if b.red, err = b.latch(m.Red); err != nil {
		return nil, err
	}
	if b.green, err = b.latch(m.Green); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *board) latch(lp types.LatchPins) (pattern.Latch, error) {
	var l pattern.Latch
	var err error
	for i, n := range lp.Data {
		if l.Data[i], err = b.line(n, false, false); err != nil {
			return l, err
		}
	}
	if l.Clock, err = b.line(lp.Clock, false, false); err != nil {
		return l, err
	}
	// Preset and clear are active-low inputs; the line is "on" when released.
	if l.PresetN, err = b.line(lp.PresetN, false, true); err != nil {
		return l, err
	}
	if l.ClearN, err = b.line(lp.ClearN, false, true); err != nil {
		return l, err
	}
	return l, nil
}

func (b *board) line(n int, activeLow, optional bool) (hw.Line, error) {
	if n < 0 && optional {
		return hw.Line{}, nil
	}
	p, err := b.claim(n)
	if err != nil {
		return hw.Line{}, err
	}
	return hw.NewLine(p, activeLow), nil
}

func (b *board) claim(n int) (hw.GPIOPin, error) {
	if b.claimed[n] {
		return nil, pinErr(errcode.PinInUse, "pin claimed twice", n)
	}
	p, ok := b.pins.ByNumber(n)
	if !ok {
		return nil, pinErr(errcode.UnknownPin, "no such pin", n)
	}
	b.claimed[n] = true
	return p, nil
}

func pinErr(c errcode.Code, msg string, n int) error {
	var buf [20]byte
	return &errcode.E{C: c, Op: "ornament.board", Msg: msg + " GP" + string(conv.Itoa(buf[:], int64(n)))}
}
