package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config represents logging configuration
type Config struct {
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"` // debug, info, warn, error
	Console    bool   `mapstructure:"console"`

	// Components overrides Level per component logger, keyed by the name
	// below the root logger (dispatcher, ntp, api, ...).
	Components map[string]string `mapstructure:"components"`
}

// DefaultConfig returns console-only logging at info level
func DefaultConfig() *Config {
	return &Config{
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Level:      "info",
		Console:    true,
	}
}

// SetDefaults returns a copy of cfg with unset fields filled in
func (cfg *Config) SetDefaults() *Config {
	c := *cfg
	d := DefaultConfig()
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = d.MaxBackups
	}
	if c.MaxAge <= 0 {
		c.MaxAge = d.MaxAge
	}
	if c.Level == "" {
		c.Level = d.Level
	}
	if c.File == "" {
		c.Console = true
	}
	return &c
}

// Validate validates logging configuration
func (cfg *Config) Validate() error {
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	if _, err := parseLevel(cfg.Level); err != nil {
		return err
	}
	if _, err := cfg.componentLevels(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) componentLevels() (map[string]zapcore.Level, error) {
	levels := make(map[string]zapcore.Level, len(cfg.Components))
	for name, l := range cfg.Components {
		if name == "" {
			return nil, fmt.Errorf("empty component name in log.components")
		}
		lvl, err := parseLevel(l)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		levels[name] = lvl
	}
	return levels, nil
}
