// services/ornament/bringup_test.go
package ornament

import (
	"context"
	"strings"
	"testing"
	"time"

	"ornament-go/services/ornament/internal/platform"
	"ornament-go/types"
)

func TestBringUp_WalksPatternsAndFailsOver(t *testing.T) {
	cfg := types.DefaultOrnamentConfig()
	clock := platform.NewSimClock(cfg.CounterHz, cfg.CounterBits)
	pins := platform.NewHostPinFactory(nil)
	supply := platform.NewSupply(pins, cfg.Pins)

	var steps []string
	err := BringUp(context.Background(), cfg, Hardware{Pins: pins, Clock: clock, Delay: clock.Delay},
		time.Second, func(s string) { steps = append(steps, s) })
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"rails: primary on, backup off",
		"led phase 1: red 111 green 000",
		"led phase 2: red 000 green 111",
		"led phase 3: red 101 green 010",
		"led phase 4: red 010 green 101",
		"led phase 5: red 110 green 001",
		"led phase 6: red 001 green 110",
		"comparator: above threshold on primary",
		"failover: backup on, primary off",
		"comparator: above threshold on backup",
	}
	if strings.Join(steps, "\n") != strings.Join(want, "\n") {
		t.Fatalf("steps:\n%s", strings.Join(steps, "\n"))
	}
	if !supply.Sourcing(types.RailBackup) || supply.Sourcing(types.RailPrimary) {
		t.Fatal("board not left on BACKUP")
	}
	if clock.Elapsed() < 6*time.Second {
		t.Fatalf("dwell not applied: %v", clock.Elapsed())
	}
	if supply.Gaps() != 0 {
		t.Fatal("power gap during bring-up")
	}
}
