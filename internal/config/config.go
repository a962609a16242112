// Package config loads and validates the wheel-remote YAML configuration.
// Durations are expressed in milliseconds to keep the file format plain.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Serial       SerialConfig   `yaml:"serial"`
	ADC          ADCConfig      `yaml:"adc"`
	FilterWindow int            `yaml:"filter_window"`
	PollMs       int64          `yaml:"poll_ms"`
	HeartbeatMs  int64          `yaml:"heartbeat_ms"` // 0 disables
	Broker       string         `yaml:"broker"`
	HTTPAddr     string         `yaml:"http_addr"` // empty disables
	StartupPulse PulseConfig    `yaml:"startup_pulse"`
	Outputs      []OutputConfig `yaml:"outputs"`
	Bands        []BandConfig   `yaml:"bands"`
}

// SerialConfig locates the ladder MCU.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ADCConfig describes the converter on the MCU.
type ADCConfig struct {
	Max  int     `yaml:"max"`  // full-scale count, e.g. 1023 for 10 bits
	VRef float64 `yaml:"vref"` // reference voltage
}

// PulseConfig describes the one-shot pulse driven at boot.
type PulseConfig struct {
	Output     string `yaml:"output"`
	DurationMs int64  `yaml:"duration_ms"`
}

// OutputConfig describes one control line to the Bluetooth module.
type OutputConfig struct {
	ID        string `yaml:"id"`
	Pin       int    `yaml:"pin"` // BCM numbering
	ActiveLow bool   `yaml:"active_low"`
}

// ActionConfig maps a hold duration to an output.
type ActionConfig struct {
	HoldMs int64  `yaml:"hold_ms"`
	Output string `yaml:"output"`
}

// BandConfig is one voltage band of the resistor ladder.
type BandConfig struct {
	Name      string         `yaml:"name"`
	Low       float64        `yaml:"low"`
	High      float64        `yaml:"high"`
	Actions   []ActionConfig `yaml:"actions"`
	HoldoffMs int64          `yaml:"holdoff_ms"`
}

// Default returns the configuration for the reference panel: three ladder
// buttons, the third doubling as MUTE (short hold) and module RESET (long
// hold).
func Default() *Config {
	return &Config{
		Serial:       SerialConfig{Port: "/dev/ttyACM0", Baud: 115200},
		ADC:          ADCConfig{Max: 1023, VRef: 5.0},
		FilterWindow: 10,
		PollMs:       20,
		HeartbeatMs:  (15 * time.Minute).Milliseconds(),
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":8080",
		StartupPulse: PulseConfig{Output: "bt_reset", DurationMs: 1000},
		Outputs: []OutputConfig{
			{ID: "vol_up", Pin: 17},
			{ID: "vol_down", Pin: 27},
			{ID: "mute", Pin: 22},
			{ID: "bt_reset", Pin: 23, ActiveLow: true},
		},
		Bands: []BandConfig{
			{
				Name: "volume_up", Low: 0.50, High: 0.80,
				Actions: []ActionConfig{{HoldMs: 300, Output: "vol_up"}},
			},
			{
				Name: "volume_down", Low: 1.20, High: 1.50,
				Actions: []ActionConfig{{HoldMs: 300, Output: "vol_down"}},
			},
			{
				Name: "mute_reset", Low: 2.30, High: 2.50,
				Actions: []ActionConfig{
					{HoldMs: 300, Output: "mute"},
					{HoldMs: 3000, Output: "bt_reset"},
				},
				HoldoffMs: 500,
			},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist it
// returns the defaults. The result is validated.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Poll returns the polling interval.
func (c *Config) Poll() time.Duration { return time.Duration(c.PollMs) * time.Millisecond }

// Heartbeat returns the heartbeat interval (0 = disabled).
func (c *Config) Heartbeat() time.Duration { return time.Duration(c.HeartbeatMs) * time.Millisecond }

// Validate rejects configurations that would misclassify at runtime.
// Band overlaps and hold thresholds shorter than the polling interval are
// design-time hazards, not runtime errors, so they fail here.
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial: port is required")
	}
	if c.ADC.Max <= 0 {
		return fmt.Errorf("adc: max must be positive, got %d", c.ADC.Max)
	}
	if c.ADC.VRef <= 0 {
		return fmt.Errorf("adc: vref must be positive, got %g", c.ADC.VRef)
	}
	if c.FilterWindow <= 0 {
		return fmt.Errorf("filter_window must be positive, got %d", c.FilterWindow)
	}
	if c.PollMs <= 0 {
		return fmt.Errorf("poll_ms must be positive, got %d", c.PollMs)
	}

	if len(c.Outputs) == 0 {
		return fmt.Errorf("at least one output is required")
	}
	outputs := make(map[string]bool, len(c.Outputs))
	pins := make(map[int]string, len(c.Outputs))
	for _, out := range c.Outputs {
		if out.ID == "" {
			return fmt.Errorf("output pin %d: id is required", out.Pin)
		}
		if outputs[out.ID] {
			return fmt.Errorf("output %q: duplicate id", out.ID)
		}
		if other, ok := pins[out.Pin]; ok {
			return fmt.Errorf("output %q: pin %d already used by %q", out.ID, out.Pin, other)
		}
		outputs[out.ID] = true
		pins[out.Pin] = out.ID
	}

	if c.StartupPulse.DurationMs > 0 && !outputs[c.StartupPulse.Output] {
		return fmt.Errorf("startup_pulse: unknown output %q", c.StartupPulse.Output)
	}

	if len(c.Bands) == 0 {
		return fmt.Errorf("at least one band is required")
	}
	names := make(map[string]bool, len(c.Bands))
	driven := make(map[string]string) // output id -> band name
	for _, b := range c.Bands {
		if b.Name == "" {
			return fmt.Errorf("band [%g, %g]: name is required", b.Low, b.High)
		}
		if names[b.Name] {
			return fmt.Errorf("band %q: duplicate name", b.Name)
		}
		names[b.Name] = true

		if b.Low > b.High {
			return fmt.Errorf("band %q: low %g above high %g", b.Name, b.Low, b.High)
		}
		if len(b.Actions) == 0 {
			return fmt.Errorf("band %q: at least one action is required", b.Name)
		}
		if b.HoldoffMs < 0 {
			return fmt.Errorf("band %q: holdoff_ms must not be negative", b.Name)
		}

		prevHold := int64(0)
		for i, a := range b.Actions {
			if a.HoldMs <= 0 {
				return fmt.Errorf("band %q: action %d: hold_ms must be positive", b.Name, i)
			}
			if i > 0 && a.HoldMs <= prevHold {
				return fmt.Errorf("band %q: action holds must be strictly ascending", b.Name)
			}
			prevHold = a.HoldMs
			if !outputs[a.Output] {
				return fmt.Errorf("band %q: unknown output %q", b.Name, a.Output)
			}
			if other, ok := driven[a.Output]; ok {
				return fmt.Errorf("band %q: output %q already driven by band %q", b.Name, a.Output, other)
			}
			driven[a.Output] = b.Name
		}

		// A hold shorter than the polling interval is unreachable: no tick
		// could observe the band before the threshold has already passed,
		// and no tick pair can straddle it reliably.
		if b.Actions[0].HoldMs < c.PollMs {
			return fmt.Errorf("band %q: smallest hold %dms is below poll interval %dms",
				b.Name, b.Actions[0].HoldMs, c.PollMs)
		}
	}

	// Bands must be voltage-disjoint; overlapping bands would let one
	// filtered value latch two outputs.
	sorted := make([]BandConfig, len(c.Bands))
	copy(sorted, c.Bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Low <= sorted[i-1].High {
			return fmt.Errorf("bands %q and %q overlap", sorted[i-1].Name, sorted[i].Name)
		}
	}

	return nil
}
