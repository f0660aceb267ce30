// Package config loads the TOML configuration and maps it onto supervisor
// options. Every key can also be set through the environment with a
// JAVAWARD_ prefix (dots become underscores), which is where deployments
// put the AUTO_SYNC_ON_STARTUP / KEEP_SERVERS_ON_SHUTDOWN toggles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/javaward/javaward/internal/logger"
	"github.com/javaward/javaward/internal/supervisor"
	"github.com/javaward/javaward/internal/tail"
)

// Config is the top-level TOML structure.
type Config struct {
	// BaseDir holds one subdirectory per server; pidfiles and console
	// logs live beside each server's working directory.
	BaseDir string `mapstructure:"base_dir"`

	AutoSyncOnStartup     bool `mapstructure:"auto_sync_on_startup"`
	KeepServersOnShutdown bool `mapstructure:"keep_servers_on_shutdown"`
	AttachStdio           bool `mapstructure:"attach_stdio"`

	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	ForceTimeout    time.Duration `mapstructure:"force_timeout"`
	StabilityWindow time.Duration `mapstructure:"stability_window"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	LogPollInterval time.Duration `mapstructure:"log_poll_interval"`

	QueueCapacity int         `mapstructure:"queue_capacity"`
	StopCommand   string      `mapstructure:"stop_command"`
	ReadyMarker   tail.Marker `mapstructure:"ready_marker"`

	Log     logger.Config `mapstructure:"log"`
	Metrics Metrics       `mapstructure:"metrics"`
	Journal Journal       `mapstructure:"journal"`
}

// Metrics configures the optional Prometheus endpoint.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Journal configures optional status-transition sinks. Empty DSNs disable
// the corresponding sink.
type Journal struct {
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouse    string `mapstructure:"clickhouse_addr"`
	ClickHouseTbl string `mapstructure:"clickhouse_table"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		BaseDir:           "servers",
		AutoSyncOnStartup: true,
		AttachStdio:       true,
		GracefulTimeout:   supervisor.DefaultGracefulTimeout,
		ForceTimeout:      supervisor.DefaultForceTimeout,
		StabilityWindow:   supervisor.DefaultStabilityWindow,
		PollInterval:      supervisor.DefaultPollInterval,
		LogPollInterval:   supervisor.DefaultLogPollInterval,
		StopCommand:       supervisor.DefaultStopCommand,
		ReadyMarker:       tail.Marker{First: "Done", Second: "For help"},
		Log:               logger.Config{Level: "info", Color: true},
		Metrics:           Metrics{Addr: ":9464"},
	}
}

// Load reads path (TOML) over the defaults. path may be empty to use
// defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("JAVAWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("base_dir", def.BaseDir)
	v.SetDefault("auto_sync_on_startup", def.AutoSyncOnStartup)
	v.SetDefault("keep_servers_on_shutdown", def.KeepServersOnShutdown)
	v.SetDefault("attach_stdio", def.AttachStdio)
	v.SetDefault("graceful_timeout", def.GracefulTimeout)
	v.SetDefault("force_timeout", def.ForceTimeout)
	v.SetDefault("stability_window", def.StabilityWindow)
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("log_poll_interval", def.LogPollInterval)
	v.SetDefault("queue_capacity", def.QueueCapacity)
	v.SetDefault("stop_command", def.StopCommand)
	v.SetDefault("ready_marker.first", def.ReadyMarker.First)
	v.SetDefault("ready_marker.second", def.ReadyMarker.Second)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.color", def.Log.Color)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.addr", def.Metrics.Addr)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// SupervisorOptions maps the file configuration onto supervisor options.
// Logger and Notifier are attached by the caller.
func (c *Config) SupervisorOptions() supervisor.Options {
	return supervisor.Options{
		AutoSyncOnStartup:     c.AutoSyncOnStartup,
		KeepServersOnShutdown: c.KeepServersOnShutdown,
		AttachStdio:           c.AttachStdio,
		GracefulTimeout:       c.GracefulTimeout,
		ForceTimeout:          c.ForceTimeout,
		StabilityWindow:       c.StabilityWindow,
		PollInterval:          c.PollInterval,
		LogPollInterval:       c.LogPollInterval,
		QueueCapacity:         c.QueueCapacity,
		StopCommand:           c.StopCommand,
		ReadyMarker:           c.ReadyMarker,
	}
}
