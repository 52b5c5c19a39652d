/*
Package config loads service and CLI configuration.

SOURCES (later wins):
  1. Defaults set in Load
  2. Optional YAML file (path argument, or ./prodsim.yaml, ./configs/prodsim.yaml)
  3. .env in the working directory, loaded into the process environment
  4. Environment variables with prefix PRODSIM_, dots replaced by
     underscores: PRODSIM_HTTP_ADDR, PRODSIM_DATABASE_DSN, ...

SIMULATION DEFAULTS:
  The simulation.* keys become the production.Settings every scenario
  starts from before its own overrides are applied.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

const EnvPrefix = "PRODSIM"

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Runner     RunnerConfig     `mapstructure:"runner"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type RunnerConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type SimulationConfig struct {
	WorkingHoursPerDay int     `mapstructure:"working_hours_per_day"`
	RestMinutesPerHour int     `mapstructure:"rest_minutes_per_hour"`
	MaxHours           int     `mapstructure:"max_hours"`
	MonthLengthDays    int     `mapstructure:"month_length_days"`
	ThresholdRatio     float64 `mapstructure:"threshold_ratio"`
	PrepayPercent      float64 `mapstructure:"prepay_percent"`
}

// Load reads configuration. An empty path searches the default locations,
// where a missing file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prodsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := production.DefaultSettings()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "prodsim.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("runner.workers", 2)
	v.SetDefault("runner.queue_size", 64)

	v.SetDefault("simulation.working_hours_per_day", d.WorkingHoursPerDay)
	v.SetDefault("simulation.rest_minutes_per_hour", d.RestMinutesPerHour)
	v.SetDefault("simulation.max_hours", d.MaxHours)
	v.SetDefault("simulation.month_length_days", d.MonthLengthDays)
	v.SetDefault("simulation.threshold_ratio", d.ReplenishmentThreshold.InexactFloat64())
	v.SetDefault("simulation.prepay_percent", d.PrepayPercent.InexactFloat64())
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Runner.Workers <= 0 {
		return fmt.Errorf("runner.workers must be positive, got %d", c.Runner.Workers)
	}
	if c.Runner.QueueSize < 0 {
		return fmt.Errorf("runner.queue_size must not be negative, got %d", c.Runner.QueueSize)
	}
	return nil
}

// Settings returns the simulation defaults as production.Settings.
func (c *Config) Settings() production.Settings {
	s := production.DefaultSettings()
	sc := c.Simulation
	if sc.WorkingHoursPerDay > 0 {
		s.WorkingHoursPerDay = sc.WorkingHoursPerDay
	}
	if sc.RestMinutesPerHour >= 0 {
		s.RestMinutesPerHour = sc.RestMinutesPerHour
	}
	if sc.MaxHours > 0 {
		s.MaxHours = sc.MaxHours
	}
	if sc.MonthLengthDays > 0 {
		s.MonthLengthDays = sc.MonthLengthDays
	}
	if sc.ThresholdRatio > 0 {
		s.ReplenishmentThreshold = decimal.NewFromFloat(sc.ThresholdRatio)
	}
	if sc.PrepayPercent >= 0 && sc.PrepayPercent <= 100 {
		s.PrepayPercent = decimal.NewFromFloat(sc.PrepayPercent)
	}
	if s.MonthLengthDays <= 0 {
		s.MonthLengthDays = generic.DefaultMonthLength
	}
	return s
}

// =============================================================================
// LOGGER
// =============================================================================

// NewLogger builds a zap logger: json uses the production encoder, anything
// else the development console encoder.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	return zapCfg.Build()
}
