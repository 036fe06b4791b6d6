package config

import (
	"context"
	"encoding/json"

	"ornament-go/bus"
	"ornament-go/errcode"
	"ornament-go/types"
	"ornament-go/x/mathx"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	ornamentKey  = "ornament"
	CtxDeviceKey = "device" // context key used for device ID
)

// TopicOrnament carries the resolved configuration, retained.
var TopicOrnament = bus.Topic{configPrefix, ornamentKey}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Loading and validation
// -----------------------------------------------------------------------------

// Load resolves the embedded configuration for device over the defaults
// and validates it. Keys missing from the JSON keep their default values.
func Load(device string) (types.OrnamentConfig, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return types.OrnamentConfig{}, &errcode.E{C: errcode.NoEmbeddedConfig, Op: "config.Load", Msg: device}
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.OrnamentConfig{}, errcode.Wrap(errcode.InvalidConfig, "config.Load", err)
	}
	cfg := types.DefaultOrnamentConfig()
	if sec, ok := doc[ornamentKey]; ok {
		if err := Decode(sec, &cfg); err != nil {
			return types.OrnamentConfig{}, err
		}
	}
	if err := Validate(cfg); err != nil {
		return types.OrnamentConfig{}, err
	}
	return cfg, nil
}

// Decode overlays src onto dst. src may be raw JSON ([]byte, string or
// json.RawMessage) or an already decoded value such as a bus payload.
func Decode(src any, dst *types.OrnamentConfig) error {
	var err error
	switch v := src.(type) {
	case json.RawMessage:
		err = json.Unmarshal(v, dst)
	case []byte:
		err = json.Unmarshal(v, dst)
	case string:
		err = json.Unmarshal([]byte(v), dst)
	default:
		var b []byte
		if b, err = json.Marshal(v); err == nil {
			err = json.Unmarshal(b, dst)
		}
	}
	return errcode.Wrap(errcode.InvalidConfig, "config.Decode", err)
}

// Validate checks ranges that do not depend on the board's pin set.
func Validate(c types.OrnamentConfig) error {
	const op = "config.Validate"
	bad := func(code errcode.Code, msg string) error {
		return &errcode.E{C: code, Op: op, Msg: msg}
	}
	switch {
	case !mathx.Between(c.ThresholdMilliV, 1000, 5000):
		return bad(errcode.InvalidConfig, "threshold_mV")
	case c.IntervalMs == 0:
		return bad(errcode.InvalidConfig, "interval_ms")
	case c.CounterHz == 0:
		return bad(errcode.InvalidConfig, "counter_hz")
	case !mathx.Between(c.CounterBits, 16, 32):
		return bad(errcode.InvalidConfig, "counter_bits")
	case c.InitialPhase > 6:
		return bad(errcode.InvalidConfig, "initial_phase")
	case c.LatchSetupNs == 0 || c.LatchPulseNs == 0:
		return bad(errcode.InvalidConfig, "latch timing")
	case c.SettleMinUs > c.SettleMaxUs:
		return bad(errcode.SettleOutOfRange, "settle_min_us > settle_max_us")
	case !mathx.Between(c.SettleUs, c.SettleMinUs, c.SettleMaxUs):
		return bad(errcode.SettleOutOfRange, "settle_us")
	}
	if IntervalTicks(c) > MaxIntervalTicks(c) {
		return bad(errcode.IntervalTooLong, "interval_ms")
	}
	return validatePins(c.Pins)
}

// IntervalTicks is the animation interval in counter ticks, rounded up.
func IntervalTicks(c types.OrnamentConfig) uint64 {
	return mathx.CeilDiv(uint64(c.IntervalMs)*uint64(c.CounterHz), 1000)
}

// MaxIntervalTicks is the longest interval the counter can compare
// across a wrap.
func MaxIntervalTicks(c types.OrnamentConfig) uint64 {
	if c.CounterBits == 0 {
		return 0
	}
	return uint64(1)<<(c.CounterBits-1) - 1
}

func validatePins(p types.PinMap) error {
	const op = "config.Validate"
	seen := make(map[int]string)
	use := func(n int, name string, optional bool) error {
		if n < 0 {
			if optional {
				return nil
			}
			return &errcode.E{C: errcode.InvalidConfig, Op: op, Msg: name + " not assigned"}
		}
		if prev, dup := seen[n]; dup {
			return &errcode.E{C: errcode.PinInUse, Op: op, Msg: name + " shares a pin with " + prev}
		}
		seen[n] = name
		return nil
	}
	if err := use(p.PrimaryEnable, "primary_en", false); err != nil {
		return err
	}
	if err := use(p.BackupEnable, "backup_en", false); err != nil {
		return err
	}
	if p.Comparator < 0 {
		return &errcode.E{C: errcode.MonitorUnassigned, Op: op, Msg: "comparator"}
	}
	if err := use(p.Comparator, "comparator", false); err != nil {
		return err
	}
	for _, l := range []struct {
		name string
		pins types.LatchPins
	}{{"red", p.Red}, {"green", p.Green}} {
		for _, d := range l.pins.Data {
			if err := use(d, l.name+".data", false); err != nil {
				return err
			}
		}
		if err := use(l.pins.Clock, l.name+".clk", false); err != nil {
			return err
		}
		if err := use(l.pins.PresetN, l.name+".pre_n", true); err != nil {
			return err
		}
		if err := use(l.pins.ClearN, l.name+".clr_n", true); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// Publish makes the resolved configuration visible to diagnostics.
func Publish(conn *bus.Connection, cfg types.OrnamentConfig) {
	conn.Publish(conn.NewMessage(TopicOrnament, cfg, true))
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Resolve loads the configuration for the device named in ctx and
// publishes it retained on config/ornament.
func (s *ConfigService) Resolve(ctx context.Context, conn *bus.Connection) (types.OrnamentConfig, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return types.OrnamentConfig{}, &errcode.E{C: errcode.InvalidParams, Op: "config.Resolve", Msg: "missing device ID in context"}
	}
	cfg, err := Load(device)
	if err != nil {
		return cfg, err
	}
	if conn != nil {
		Publish(conn, cfg)
	}
	return cfg, nil
}
