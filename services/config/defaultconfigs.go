package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device. Omitted keys keep the values from
// types.DefaultOrnamentConfig.
// -----------------------------------------------------------------------------

// Reference board: MIC94050 load switches with active-low enables,
// SN74LVC1G74 latches with preset/clear wired.
const cfgPico = `{
  "ornament": {
    "threshold_mV": 2700,
    "interval_ms": 3000,
    "settle_us": 100,
    "pins": {
      "primary_en": 2,
      "primary_active_low": true,
      "backup_en": 3,
      "backup_active_low": true,
      "comparator": 15,
      "comparator_below_level": true,
      "red":   {"data": [6, 7, 8],    "clk": 9,  "pre_n": 10, "clr_n": 11},
      "green": {"data": [16, 17, 18], "clk": 19, "pre_n": 20, "clr_n": 21}
    }
  }
}`

// Bench board: active-high enables, latch preset/clear tied off.
const cfgBench = `{
  "ornament": {
    "interval_ms": 500,
    "pins": {
      "primary_active_low": false,
      "backup_active_low": false,
      "comparator_below_level": false,
      "red":   {"data": [6, 7, 8],    "clk": 9,  "pre_n": -1, "clr_n": -1},
      "green": {"data": [16, 17, 18], "clk": 19, "pre_n": -1, "clr_n": -1}
    }
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico":  []byte(cfgPico),
	"bench": []byte(cfgBench),
}
