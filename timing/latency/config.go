// Package latency provides the simulator timing configuration: data-memory
// size and latency plus the functional-unit complement, loadable from JSON.
package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// UnitConfig describes one group of identical execution units.
type UnitConfig struct {
	// Kind is the unit type: "integer", "adder", "multiplier" or
	// "divider".
	Kind string `json:"kind"`

	// Latency is the unit's execution latency in cycles.
	Latency uint32 `json:"latency"`

	// Instances is the number of units of this kind. Zero means one.
	Instances uint32 `json:"instances"`
}

// Config holds the full simulator timing configuration.
type Config struct {
	// MemorySize is the data-memory size in bytes.
	MemorySize uint32 `json:"memory_size"`

	// MemoryLatency is the data-memory access latency in cycles. Each
	// load or store stalls the whole pipeline for this many cycles in
	// the memory stage before the access completes.
	MemoryLatency uint32 `json:"memory_latency"`

	// Units lists the execution units to configure. An empty list models
	// the plain integer pipeline with a single-cycle execute stage.
	Units []UnitConfig `json:"units"`
}

// DefaultConfig returns the configuration of the plain integer pipeline:
// 1KB of zero-latency data memory and no explicit execution units.
func DefaultConfig() *Config {
	return &Config{
		MemorySize:    1024,
		MemoryLatency: 0,
	}
}

// DefaultFPConfig returns a floating-point pipeline configuration with the
// classic textbook unit latencies: a single-cycle integer unit, a 2-cycle
// FP adder, a 4-cycle multiplier and an 8-cycle divider.
func DefaultFPConfig() *Config {
	return &Config{
		MemorySize:    1024,
		MemoryLatency: 0,
		Units: []UnitConfig{
			{Kind: "integer", Latency: 1, Instances: 1},
			{Kind: "adder", Latency: 2, Instances: 1},
			{Kind: "multiplier", Latency: 4, Instances: 1},
			{Kind: "divider", Latency: 8, Instances: 1},
		},
	}
}

// LoadConfig reads a configuration from a JSON file. Missing fields keep
// the DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Validate checks the configuration for values the simulator cannot model.
func (c *Config) Validate() error {
	if c.MemorySize == 0 {
		return fmt.Errorf("memory_size must be positive")
	}
	for _, u := range c.Units {
		switch u.Kind {
		case "integer", "adder", "multiplier", "divider":
		default:
			return fmt.Errorf("unknown unit kind %q", u.Kind)
		}
		if u.Latency == 0 {
			return fmt.Errorf("%s unit latency must be positive", u.Kind)
		}
	}
	return nil
}
