package retry

import (
	"encoding/json"
	"errors"
	"time"
)

// Config defines the configuration for the retry mechanism.
type Config struct {
	Enable      bool          `mapstructure:"enable"`       // Enable retry
	Attempts    int           `mapstructure:"attempts"`     // Total attempts including the first
	Interval    time.Duration `mapstructure:"interval"`     // Base wait between attempts
	MaxInterval time.Duration `mapstructure:"max_interval"` // Upper bound for a single wait
}

// DefaultConfig returns the default retry configuration. Reports are
// published inside a transaction, so waits stay short.
func DefaultConfig() *Config {
	return &Config{
		Enable:      true,
		Attempts:    3,
		Interval:    200 * time.Millisecond,
		MaxInterval: 2 * time.Second,
	}
}

// Validate validates the retry configuration.
func (cfg *Config) Validate() error {
	if cfg == nil || !cfg.Enable {
		return nil
	}
	if cfg.Attempts <= 0 {
		return errors.New("attempts must be greater than zero")
	}
	if cfg.Interval < 0 || cfg.MaxInterval < 0 {
		return errors.New("intervals cannot be negative")
	}
	if cfg.MaxInterval > 0 && cfg.Interval > cfg.MaxInterval {
		return errors.New("max_interval must not be less than interval")
	}
	return nil
}

// String returns a JSON string representation of the Config.
func (cfg *Config) String() string {
	data, _ := json.Marshal(cfg)
	return string(data)
}
