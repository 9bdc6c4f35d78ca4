// Package config loads runtime settings from defaults, a config file and
// REASONING_MEMORY_* environment variables.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. REASONING_MEMORY_CAPACITY.
const EnvPrefix = "REASONING_MEMORY"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every tunable setting.
type Config struct {
	DB                     string        `mapstructure:"db"`
	NS                     string        `mapstructure:"ns"`
	Capacity               int           `mapstructure:"capacity"`
	EfficiencyTarget       float64       `mapstructure:"efficiency_target"`
	MaxResultsCap          int           `mapstructure:"max_results_cap"`
	MinRelevance           float64       `mapstructure:"min_relevance"`
	HistorySize            int           `mapstructure:"history_size"`
	ConsolidationFrequency int           `mapstructure:"consolidation_frequency"`
	ScorerCommand          string        `mapstructure:"scorer_command"`
	ScorerTimeout          time.Duration `mapstructure:"scorer_timeout"`
	LogLevel               string        `mapstructure:"log_level"`
	MetricsAddr            string        `mapstructure:"metrics_addr"`
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("ns", "default")
	v.SetDefault("capacity", 1000)
	v.SetDefault("efficiency_target", 0.8)
	v.SetDefault("max_results_cap", 50)
	v.SetDefault("min_relevance", 0.1)
	v.SetDefault("history_size", 100)
	v.SetDefault("consolidation_frequency", 5)
	v.SetDefault("scorer_command", "")
	v.SetDefault("scorer_timeout", 2*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":9091")
}

// Load reads file (when non-empty) into v, decodes the result and validates it.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if c.DB == "" {
		c.DB = DefaultDBPath()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultDBPath is ~/.reasoning-memory/memory.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reasoning-memory", "memory.db")
}

// Validate rejects settings the store cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.NS == "":
		return errors.Wrap(ErrInvalidConfig, "ns must not be empty")
	case c.Capacity <= 0:
		return errors.Wrapf(ErrInvalidConfig, "capacity must be positive, got %d", c.Capacity)
	case c.EfficiencyTarget <= 0 || c.EfficiencyTarget > 1:
		return errors.Wrapf(ErrInvalidConfig, "efficiency_target must be in (0, 1], got %v", c.EfficiencyTarget)
	case c.MaxResultsCap <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max_results_cap must be positive, got %d", c.MaxResultsCap)
	case c.MinRelevance < 0 || c.MinRelevance > 1:
		return errors.Wrapf(ErrInvalidConfig, "min_relevance must be in [0, 1], got %v", c.MinRelevance)
	case c.HistorySize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "history_size must be positive, got %d", c.HistorySize)
	case c.ConsolidationFrequency < 0:
		return errors.Wrapf(ErrInvalidConfig, "consolidation_frequency must not be negative, got %d", c.ConsolidationFrequency)
	case c.ScorerTimeout <= 0:
		return errors.Wrapf(ErrInvalidConfig, "scorer_timeout must be positive, got %v", c.ScorerTimeout)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log_level: %v", err)
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}
