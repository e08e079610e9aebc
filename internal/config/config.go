package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"sysconfd/internal/retry"
	"sysconfd/internal/validator"

	"github.com/spf13/viper"
)

// Config represents the sysconfd configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Contact   ContactConfig   `mapstructure:"contact"`
	NTP       NTPConfig       `mapstructure:"ntp"`
	Power     PowerConfig     `mapstructure:"power"`
	Datastore DatastoreConfig `mapstructure:"datastore"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig represents the HTTP surface configuration
type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PathsConfig locates the files sysconfd reads and rewrites
type PathsConfig struct {
	DataDir       string `mapstructure:"data_dir" validate:"required"`
	PasswdFile    string `mapstructure:"passwd_file" validate:"required"`
	ZoneinfoDir   string `mapstructure:"zoneinfo_dir" validate:"required"`
	LocaltimeLink string `mapstructure:"localtime_link" validate:"required"`
	NTPConfig     string `mapstructure:"ntp_config" validate:"required"`
}

// ContactConfig names the account whose gecos field holds the contact
type ContactConfig struct {
	Username string `mapstructure:"username" validate:"required"`
}

// NTPConfig represents time service control configuration
type NTPConfig struct {
	Systemctl string   `mapstructure:"systemctl" validate:"required"`
	Units     []string `mapstructure:"units" validate:"required,min=1"`
}

// PowerConfig holds the restart and shutdown invocations
type PowerConfig struct {
	RestartCommand  []string `mapstructure:"restart_command" validate:"required,min=1"`
	ShutdownCommand []string `mapstructure:"shutdown_command" validate:"required,min=1"`
}

// LoadConfig loads the configuration from path. An empty path searches the
// default locations; a missing file there falls back to defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(InDot)
		v.AddConfigPath(InHome)
		v.AddConfigPath(InEtc)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fillDerived(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults registers default values so env overrides apply to every key
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:8830")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("paths.data_dir", "/var/lib/"+AppName)
	v.SetDefault("paths.passwd_file", "/etc/passwd")
	v.SetDefault("paths.zoneinfo_dir", "/usr/share/zoneinfo/")
	v.SetDefault("paths.localtime_link", "/etc/localtime")
	v.SetDefault("paths.ntp_config", "/etc/ntp.conf")

	v.SetDefault("contact.username", "root")

	v.SetDefault("ntp.systemctl", "systemctl")
	v.SetDefault("ntp.units", []string{"ntpd", "ntp"})

	v.SetDefault("power.restart_command", []string{"shutdown", "-r", "now"})
	v.SetDefault("power.shutdown_command", []string{"shutdown", "-P", "now"})

	v.SetDefault("datastore.driver", "sqlite")
	v.SetDefault("datastore.dsn", "")
	v.SetDefault("datastore.max_connections", 4)
	v.SetDefault("datastore.max_idle_conns", 2)
	v.SetDefault("datastore.conn_max_lifetime", time.Hour)
	v.SetDefault("datastore.query_timeout", 10*time.Second)
	v.SetDefault("datastore.auto_migrate", true)

	v.SetDefault("audit.sinks", []string{"journal"})
	v.SetDefault("audit.kafka.topic", AppName+".transactions")
	v.SetDefault("audit.kafka.write_timeout", 5*time.Second)
	v.SetDefault("audit.rabbitmq.exchange", AppName)
	v.SetDefault("audit.rabbitmq.routing_key", "transactions")
	v.SetDefault("audit.rabbitmq.heartbeat_interval", 10*time.Second)
	v.SetDefault("audit.webhook.timeout", 5*time.Second)

	rc := retry.DefaultConfig()
	v.SetDefault("audit.retry.enable", rc.Enable)
	v.SetDefault("audit.retry.attempts", rc.Attempts)
	v.SetDefault("audit.retry.interval", rc.Interval)
	v.SetDefault("audit.retry.max_interval", rc.MaxInterval)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.console", true)
	v.SetDefault("log.components", map[string]string{})
}

// fillDerived sets values that depend on other settings
func fillDerived(config *Config) {
	if config.Datastore.Driver == "sqlite" && config.Datastore.DSN == "" {
		config.Datastore.DSN = filepath.Join(config.Paths.DataDir, AppName+".db")
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	if !filepath.IsAbs(config.Paths.ZoneinfoDir) {
		return fmt.Errorf("paths.zoneinfo_dir must be absolute")
	}

	if err := config.Datastore.Validate(); err != nil {
		return err
	}

	if err := config.Audit.Validate(); err != nil {
		return err
	}

	return config.Log.SetDefaults().Validate()
}
