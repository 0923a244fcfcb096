// Package config handles femto.toml kernel configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the femto.toml kernel configuration.
type Config struct {
	Store   Store   `toml:"store"`
	Memory  Memory  `toml:"memory"`
	Process Process `toml:"process"`
	Output  Output  `toml:"output"`
}

// Store configures the persistent store.
type Store struct {
	// Capacity is the store size in bytes.
	Capacity int `toml:"capacity"`
	// Image is the backing image file; empty means in-memory only.
	Image string `toml:"image"`
	// MaxFiles bounds the file table.
	MaxFiles int `toml:"max-files"`
}

// Memory configures the RAM arena.
type Memory struct {
	ArenaSize    int `toml:"arena-size"`
	MaxVariables int `toml:"max-variables"`
}

// Process configures the process table.
type Process struct {
	Slots     int `toml:"slots"`
	StackSize int `toml:"stack-size"`
	// TickMillis is the event-loop period in milliseconds.
	TickMillis int `toml:"tick-millis"`
}

// Output configures console rendering.
type Output struct {
	FloatPrecision int `toml:"float-precision"`
}

// Default returns the configuration matching the reference hardware.
func Default() Config {
	return Config{
		Store:   Store{Capacity: 1024, MaxFiles: 10},
		Memory:  Memory{ArenaSize: 256, MaxVariables: 20},
		Process: Process{Slots: 10, StackSize: 32, TickMillis: 1},
		Output:  Output{FloatPrecision: 5},
	}
}

// Load parses a femto.toml file. Fields left out keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c := Default()
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// LoadOrDefault loads path if it exists and falls back to defaults.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c := Default()
		return &c, nil
	}
	return Load(path)
}

func (c *Config) validate() error {
	headerSize := 2 + c.Store.MaxFiles*16
	if c.Store.Capacity <= headerSize {
		return fmt.Errorf("store capacity %d does not fit the %d-byte table header", c.Store.Capacity, headerSize)
	}
	if c.Store.MaxFiles <= 0 {
		return fmt.Errorf("max-files must be positive")
	}
	if c.Memory.ArenaSize <= 0 || c.Memory.MaxVariables <= 0 {
		return fmt.Errorf("arena-size and max-variables must be positive")
	}
	if c.Process.Slots <= 0 || c.Process.StackSize <= 0 {
		return fmt.Errorf("slots and stack-size must be positive")
	}
	if c.Output.FloatPrecision < 0 {
		return fmt.Errorf("float-precision must not be negative")
	}
	return nil
}
