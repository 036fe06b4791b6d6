// config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"ornament-go/bus"
	"ornament-go/errcode"
	"ornament-go/types"
)

func withLookup(t *testing.T, docs map[string]string) {
	t.Helper()
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		s, ok := docs[device]
		return []byte(s), ok
	}
	t.Cleanup(func() { EmbeddedConfigLookup = old })
}

func TestLoad_EmbeddedBoards(t *testing.T) {
	for _, dev := range []string{"pico", "bench"} {
		cfg, err := Load(dev)
		if err != nil {
			t.Fatalf("%s: %v", dev, err)
		}
		if cfg.CounterHz != 32768 || cfg.CounterBits != 32 {
			t.Fatalf("%s: defaults not kept: %+v", dev, cfg)
		}
	}
	bench, _ := Load("bench")
	if bench.IntervalMs != 500 || bench.Pins.Red.PresetN != -1 || bench.Pins.PrimaryActiveLow {
		t.Fatalf("bench overrides not applied: %+v", bench)
	}
	if bench.Pins.Red.Data != [3]int{6, 7, 8} {
		t.Fatalf("red data = %v", bench.Pins.Red.Data)
	}
}

func TestLoad_PartialOverlayKeepsDefaults(t *testing.T) {
	withLookup(t, map[string]string{"dev": `{"ornament": {"interval_ms": 1000, "pins": {"comparator": 22}}}`})

	cfg, err := Load("dev")
	if err != nil {
		t.Fatal(err)
	}
	def := types.DefaultOrnamentConfig()
	if cfg.IntervalMs != 1000 || cfg.Pins.Comparator != 22 {
		t.Fatalf("overlay lost: %+v", cfg)
	}
	if cfg.ThresholdMilliV != def.ThresholdMilliV || cfg.Pins.Green != def.Pins.Green {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	withLookup(t, map[string]string{
		"garbage": `{"ornament": `,
		"dup":     `{"ornament": {"pins": {"backup_en": 2}}}`,
		"settle":  `{"ornament": {"settle_us": 5}}`,
		"long":    `{"ornament": {"interval_ms": 3000, "counter_bits": 16}}`,
		"nocmp":   `{"ornament": {"pins": {"comparator": -1}}}`,
	})
	cases := map[string]errcode.Code{
		"missing": errcode.NoEmbeddedConfig,
		"garbage": errcode.InvalidConfig,
		"dup":     errcode.PinInUse,
		"settle":  errcode.SettleOutOfRange,
		"long":    errcode.IntervalTooLong,
		"nocmp":   errcode.MonitorUnassigned,
	}
	for dev, want := range cases {
		_, err := Load(dev)
		if got := errcode.Of(err); got != want {
			t.Errorf("%s: code %q (%v), want %q", dev, got, err, want)
		}
	}
}

func TestValidate_IntervalBound(t *testing.T) {
	c := types.DefaultOrnamentConfig()
	c.CounterBits = 16 // max interval 32767 ticks, just under 1 s at 32768 Hz
	c.IntervalMs = 999
	if err := Validate(c); err != nil {
		t.Fatalf("999 ms on 16 bits: %v", err)
	}
	c.IntervalMs = 1000
	if errcode.Of(Validate(c)) != errcode.IntervalTooLong {
		t.Fatal("1000 ms on 16 bits accepted")
	}
}

func TestDecode_BusPayload(t *testing.T) {
	cfg := types.DefaultOrnamentConfig()
	err := Decode(map[string]any{"interval_ms": 250, "initial_phase": 3}, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IntervalMs != 250 || cfg.InitialPhase != 3 {
		t.Fatalf("decoded %+v", cfg)
	}
}

func TestConfigService_ResolvePublishesRetained(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-config")

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	cfg, err := NewConfigService().Resolve(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}

	// Retained, so a late subscriber still sees it.
	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})
	select {
	case m := <-sub.Channel():
		got, ok := m.Payload.(types.OrnamentConfig)
		if !ok {
			t.Fatalf("payload type %T", m.Payload)
		}
		if got != cfg {
			t.Fatalf("published %+v, resolved %+v", got, cfg)
		}
		if !m.Retained {
			t.Fatal("config not retained")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("no retained config")
	}
}

func TestConfigService_MissingDevice(t *testing.T) {
	_, err := NewConfigService().Resolve(context.Background(), nil)
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err = %v", err)
	}
}
