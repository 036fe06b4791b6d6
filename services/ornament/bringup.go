// services/ornament/bringup.go
package ornament

import (
	"context"
	"time"

	"ornament-go/services/ornament/internal/pattern"
	"ornament-go/services/ornament/internal/rail"
	"ornament-go/types"
	"ornament-go/x/conv"
)

// BringUp is the board test: it shows every pattern of the cycle for
// dwell each, then performs one make-before-break failover. The board is
// left on BACKUP, so it is for the bench only.
func BringUp(ctx context.Context, cfg types.OrnamentConfig, h Hardware, dwell time.Duration, report func(step string)) error {
	sys, err := Build(cfg, h, nil)
	if err != nil {
		return err
	}
	if err := sys.init(); err != nil {
		return err
	}
	report("rails: primary on, backup off")

	var buf [20]byte
	for i := 0; i < pattern.CycleLen; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, _ := sys.leds.Advance()
		report("led phase " + string(conv.Utoa(buf[:], uint64(sys.leds.Phase()))) +
			": red " + bits3(p.Red) + " green " + bits3(p.Green))
		h.Delay(dwell)
	}

	if sys.monitor.Below() {
		report("comparator: below threshold on primary")
	} else {
		report("comparator: above threshold on primary")
	}
	if sys.rails.OnBelowThreshold() != rail.RunningBackup {
		report("failover: did not reach backup")
		return nil
	}
	report("failover: backup on, primary off")
	if sys.SampleVoltage() {
		report("comparator: below threshold on backup")
	} else {
		report("comparator: above threshold on backup")
	}
	return nil
}

func bits3(m uint8) string {
	b := [3]byte{'0', '0', '0'}
	for i := 0; i < 3; i++ {
		if m&(1<<(2-i)) != 0 {
			b[i] = '1'
		}
	}
	return string(b[:])
}
