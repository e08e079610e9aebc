package config

import (
	"fmt"
	"time"
)

// DatastoreConfig represents startup datastore configuration
type DatastoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// Validate validates datastore configuration
func (c *DatastoreConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("datastore driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("datastore DSN is required")
	}

	// Set default values
	if c.MaxConnections == 0 {
		c.MaxConnections = 4
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}

	// Validate driver
	switch c.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported datastore driver: %s", c.Driver)
	}

	return nil
}
