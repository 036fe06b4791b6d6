// services/ornament/internal/platform/supply_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"ornament-go/types"
)

// Supply models the two coin cells behind their load switches, feeding
// one comparator. The comparator reads below threshold when no enabled
// switch connects a healthy cell, and it follows every enable change
// immediately.
type Supply struct {
	mu sync.Mutex

	enable    [2]*FakePin
	activeLow [2]bool
	healthy   [2]bool

	cmp        *FakePin
	belowLevel bool

	gaps    uint32
	overlap uint32
}

// NewSupply attaches to the enable and comparator pins of m. Both cells
// start healthy.
func NewSupply(f *HostPinFactory, m types.PinMap) *Supply {
	s := &Supply{
		activeLow:  [2]bool{m.PrimaryActiveLow, m.BackupActiveLow},
		healthy:    [2]bool{true, true},
		belowLevel: m.ComparatorBelowLvl,
	}
	s.enable[types.RailPrimary], _ = f.pin(m.PrimaryEnable)
	s.enable[types.RailBackup], _ = f.pin(m.BackupEnable)
	s.cmp, _ = f.pin(m.Comparator)
	for _, p := range s.enable {
		if p != nil {
			p.Watch(func(bool) { s.changed() })
		}
	}
	s.update()
	return s
}

// Deplete drops cell r below threshold.
func (s *Supply) Deplete(r types.Rail) {
	s.mu.Lock()
	s.healthy[r] = false
	s.mu.Unlock()
	s.update()
}

// Restore makes cell r healthy again (a glitch that went away).
func (s *Supply) Restore(r types.Rail) {
	s.mu.Lock()
	s.healthy[r] = true
	s.mu.Unlock()
	s.update()
}

// Sourcing reports whether r's load switch is enabled.
func (s *Supply) Sourcing(r types.Rail) bool {
	p := s.enable[r]
	return p != nil && p.Get() != s.activeLow[r]
}

func (s *Supply) Healthy(r types.Rail) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy[r]
}

// Below is the modelled supply state, independent of the comparator pin.
func (s *Supply) Below() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.below()
}

// Gaps counts enable changes that left neither switch on.
func (s *Supply) Gaps() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gaps
}

// Overlaps counts enable changes that left both switches on.
func (s *Supply) Overlaps() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlap
}

func (s *Supply) below() bool {
	for r := range s.enable {
		if s.healthy[r] && s.Sourcing(types.Rail(r)) {
			return false
		}
	}
	return true
}

func (s *Supply) changed() {
	p, b := s.Sourcing(types.RailPrimary), s.Sourcing(types.RailBackup)
	s.mu.Lock()
	switch {
	case !p && !b:
		s.gaps++
	case p && b:
		s.overlap++
	}
	s.mu.Unlock()
	s.update()
}

// update drives the comparator pin; a change into the below level raises
// the pin's IRQ like the real comparator edge would.
func (s *Supply) update() {
	if s.cmp == nil {
		return
	}
	s.mu.Lock()
	below := s.below()
	s.mu.Unlock()
	s.cmp.Set(below == s.belowLevel)
}
