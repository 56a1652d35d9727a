package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Poller    PollerConfig    `mapstructure:"poller"`
	Retention RetentionConfig `mapstructure:"retention"`
	Query     QueryConfig     `mapstructure:"query"`
	Server    ServerConfig    `mapstructure:"server"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	Immediate    bool          `mapstructure:"immediate"`
}

// PollerConfig tunes the per-cycle fetch fan-out.
type PollerConfig struct {
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RetentionConfig bounds per-wallet log growth.
type RetentionConfig struct {
	KeepCount    int `mapstructure:"keep_count"`
	EveryInserts int `mapstructure:"every_inserts"`
}

// QueryConfig shapes the read side.
type QueryConfig struct {
	WindowSize int `mapstructure:"window_size"`
}

// ServerConfig covers the HTTP API.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("METRICSTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "metrics-tracker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.immediate", true)

	v.SetDefault("poller.fetch_timeout", "10s")
	v.SetDefault("poller.max_concurrency", 16)
	v.SetDefault("poller.user_agent", "metrics-tracker/1.0")

	v.SetDefault("retention.keep_count", 1440)
	v.SetDefault("retention.every_inserts", 50)

	v.SetDefault("query.window_size", 90)

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Poller.FetchTimeout <= 0 {
		return fmt.Errorf("poller.fetch_timeout must be greater than zero")
	}
	if c.Poller.MaxConcurrency <= 0 {
		return fmt.Errorf("poller.max_concurrency must be greater than zero")
	}
	if c.Retention.KeepCount <= 0 {
		return fmt.Errorf("retention.keep_count must be greater than zero")
	}
	if c.Retention.EveryInserts <= 0 {
		return fmt.Errorf("retention.every_inserts must be greater than zero")
	}
	if c.Query.WindowSize <= 0 {
		return fmt.Errorf("query.window_size must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveWindow returns either the caller-supplied window or config default.
func (c *Config) ResolveWindow(override int) int {
	if override > 0 {
		return override
	}
	return c.Query.WindowSize
}
