package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

const (
	ModeDelay = "delay"
	ModeDaily = "daily"
	ModeWatch = "watch"
)

type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Trigger TriggerConfig `mapstructure:"trigger"`
	History HistoryConfig `mapstructure:"history"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Log     LogConfig     `mapstructure:"log"`
}

type SourceConfig struct {
	Path         string `mapstructure:"path"`          // File to duplicate
	DestDir      string `mapstructure:"dest_dir"`      // Directory receiving the copies
	BaseName     string `mapstructure:"base_name"`     // Copy filename prefix, defaults to base of Path
	StartCounter int    `mapstructure:"start_counter"` // First suffix used
}

type TriggerConfig struct {
	Mode          string        `mapstructure:"mode"`
	Interval      time.Duration `mapstructure:"interval"`       // Delay between ticks
	MaxTicks      int           `mapstructure:"max_ticks"`      // Delays armed before stopping
	DailyAt       string        `mapstructure:"daily_at"`       // HH:MM
	Timezone      string        `mapstructure:"timezone"`       // IANA zone for DailyAt
	SettlingDelay time.Duration `mapstructure:"settling_delay"` // Quiet period for the watcher
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

type NotifyConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Key      string        `mapstructure:"key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  int           `mapstructure:"retries"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.path", "data.txt")
	v.SetDefault("source.dest_dir", "test/")
	v.SetDefault("source.base_name", "")
	v.SetDefault("source.start_counter", 0)

	v.SetDefault("trigger.mode", ModeDelay)
	v.SetDefault("trigger.interval", "1m")
	v.SetDefault("trigger.max_ticks", 3)
	v.SetDefault("trigger.daily_at", "19:58")
	v.SetDefault("trigger.timezone", "Local")
	v.SetDefault("trigger.settling_delay", "2s")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", DefaultDBPath())

	v.SetDefault("notify.endpoint", "")
	v.SetDefault("notify.key", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.retries", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// DefaultDBPath follows the standard OS data locations.
// Windows: %PROGRAMDATA%\CleverData\TickCopy
// Linux: /var/lib/tickcopy
func DefaultDBPath() string {
	if os.Getenv("OS") == "Windows_NT" {
		return filepath.Join(os.Getenv("ProgramData"), "CleverData", "TickCopy", "state.db")
	}
	return filepath.Join("/var/lib/tickcopy", "state.db")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Trigger.Mode = strings.ToLower(strings.TrimSpace(c.Trigger.Mode))
	c.Notify.Endpoint = strings.TrimRight(strings.TrimSpace(c.Notify.Endpoint), "/")
	if c.Source.BaseName == "" && c.Source.Path != "" {
		c.Source.BaseName = filepath.Base(c.Source.Path)
	}
	if c.Trigger.Timezone == "" {
		c.Trigger.Timezone = "Local"
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if c.Source.Path == "" {
		errs = append(errs, errors.New("source.path is required"))
	}
	if c.Source.DestDir == "" {
		errs = append(errs, errors.New("source.dest_dir is required"))
	}
	if c.Source.StartCounter < 0 {
		errs = append(errs, errors.New("source.start_counter must not be negative"))
	}
	if strings.ContainsAny(c.Source.BaseName, `/\`) {
		errs = append(errs, fmt.Errorf("source.base_name %q must not contain a path separator", c.Source.BaseName))
	}

	switch c.Trigger.Mode {
	case ModeDelay:
		if c.Trigger.Interval <= 0 {
			errs = append(errs, errors.New("trigger.interval must be positive"))
		}
		if c.Trigger.MaxTicks < 1 {
			errs = append(errs, errors.New("trigger.max_ticks must be at least 1"))
		}
	case ModeDaily:
		if _, err := CronSpec(c.Trigger.DailyAt); err != nil {
			errs = append(errs, err)
		}
		if _, err := time.LoadLocation(c.Trigger.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("trigger.timezone %q: %v", c.Trigger.Timezone, err))
		}
	case ModeWatch:
		if c.Trigger.SettlingDelay < 0 {
			errs = append(errs, errors.New("trigger.settling_delay must not be negative"))
		}
		if c.Trigger.MaxTicks < 0 {
			errs = append(errs, errors.New("trigger.max_ticks must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("trigger.mode %q is not one of delay, daily, watch", c.Trigger.Mode))
	}

	if c.History.Enabled && c.History.DBPath == "" {
		errs = append(errs, errors.New("history.db_path is required when history is enabled"))
	}
	if c.Notify.Endpoint != "" && c.Notify.Retries < 1 {
		errs = append(errs, errors.New("notify.retries must be at least 1"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// CronSpec turns an HH:MM time of day into a five field cron expression.
func CronSpec(at string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return "", fmt.Errorf("trigger.daily_at %q is not a HH:MM time of day", at)
	}
	spec := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("trigger.daily_at %q: %w", at, err)
	}
	return spec, nil
}
