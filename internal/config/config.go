// Package config provides YAML-based configuration loading for hpickle.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultThreshold is the opaque blob size at which a blob moves from an
// attribute into a dataset.
const DefaultThreshold = 8192

// Config is the root configuration.
type Config struct {
	// Pickle controls placement.
	Pickle PickleConfig `mapstructure:"pickle"`

	// Store controls how containers are read and written.
	Store StoreConfig `mapstructure:"store"`

	// Redis configures the Redis backend.
	Redis RedisConfig `mapstructure:"redis"`

	// Log holds logging configuration.
	Log LogConfig `mapstructure:"log"`
}

// PickleConfig controls the placement policy.
type PickleConfig struct {
	Threshold      int            `mapstructure:"threshold"`
	DatasetOptions map[string]any `mapstructure:"dataset_options"`
}

// StoreConfig controls container I/O.
type StoreConfig struct {
	// Mmap maps files instead of reading them for read-only loads.
	Mmap bool `mapstructure:"mmap"`
	// Validation: strict, normal or none
	Validation   string `mapstructure:"validation"`
	SkipChecksum bool   `mapstructure:"skip_checksum"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Pickle: PickleConfig{Threshold: DefaultThreshold},
		Store:  StoreConfig{Validation: "normal"},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			Key:  "hpickle",
		},
		Log: LogConfig{
			Level:   "warn",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/hpickle.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix HPICKLE and `.`/`-` are replaced with `_`.
// Example: HPICKLE_PICKLE_THRESHOLD=4096
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HPICKLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so env-only configs work
	v.SetDefault("pickle.threshold", cfg.Pickle.Threshold)
	v.SetDefault("pickle.dataset_options", map[string]any{})
	v.SetDefault("store.mmap", cfg.Store.Mmap)
	v.SetDefault("store.validation", cfg.Store.Validation)
	v.SetDefault("store.skip_checksum", cfg.Store.SkipChecksum)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.key", cfg.Redis.Key)
	v.SetDefault("redis.ttl", cfg.Redis.TTL)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		if envPath := os.Getenv("HPICKLE_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hpickle")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".hpickle"))
		}
	}

	// A missing config file is fine; defaults and env still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	if c.Pickle.Threshold <= 0 {
		return fmt.Errorf("invalid pickle.threshold: %d (must be > 0)", c.Pickle.Threshold)
	}

	c.Store.Validation = strings.ToLower(strings.TrimSpace(c.Store.Validation))
	switch c.Store.Validation {
	case "":
		c.Store.Validation = "normal"
	case "strict", "normal", "none":
	default:
		return fmt.Errorf("invalid store.validation: %q", c.Store.Validation)
	}

	if c.Redis.TTL < 0 {
		return fmt.Errorf("invalid redis.ttl: %s", c.Redis.TTL)
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
