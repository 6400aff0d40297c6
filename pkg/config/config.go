// Package config loads ghnotify settings from defaults, an optional YAML file
// and GHNOTIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/ghnotify/pkg/block"
	"github.com/Sternrassler/ghnotify/pkg/client"
	"github.com/Sternrassler/ghnotify/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GHNOTIFY_LOG_LEVEL.
const EnvPrefix = "GHNOTIFY"

// Config holds all application configuration
type Config struct {
	Interval      time.Duration `mapstructure:"interval"`
	APIServer     string        `mapstructure:"api_server"`
	Format        string        `mapstructure:"format"`
	TokenEnv      string        `mapstructure:"token_env"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	All           bool          `mapstructure:"all"`
	Participating bool          `mapstructure:"participating"`
	PerPage       int           `mapstructure:"per_page"`
	MaxPages      int           `mapstructure:"max_pages"`

	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Rate    RateConfig    `mapstructure:"rate"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig holds the diagnostics listener; empty Addr disables it
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisConfig holds the optional page cache backend; empty Addr disables it
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateConfig holds client-side request pacing
type RateConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

var defaults = map[string]any{
	"interval":                 30 * time.Second,
	"api_server":               client.DefaultAPIServer,
	"format":                   "{total}",
	"token_env":                "GITHUB_TOKEN",
	"timeout":                  client.DefaultTimeout,
	"user_agent":               client.DefaultUserAgent,
	"all":                      false,
	"participating":            false,
	"per_page":                 0,
	"max_pages":                0,
	"log.level":                "info",
	"log.pretty":               false,
	"metrics.addr":             "",
	"redis.addr":               "",
	"redis.password":           "",
	"redis.db":                 0,
	"rate.requests_per_second": 5.0,
	"rate.burst":               5,
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration into v. An explicit path must exist; without one
// config.yaml is looked up in the user config directory and may be absent.
func Load(v *viper.Viper, path string) (*Config, error) {
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigPath())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultConfigPath returns $XDG_CONFIG_HOME/ghnotify or its platform equivalent.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "ghnotify")
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0 (got %s)", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", c.Timeout)
	}
	u, err := url.Parse(c.APIServer)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api_server must be an absolute http(s) url (got %q)", c.APIServer)
	}
	if c.TokenEnv == "" {
		return fmt.Errorf("token_env is required")
	}
	if c.PerPage < 0 || c.PerPage > 100 {
		return fmt.Errorf("per_page must be between 0 and 100 (got %d)", c.PerPage)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max_pages must be >= 0 (got %d)", c.MaxPages)
	}
	if c.Rate.RequestsPerSecond < 0 || c.Rate.Burst < 0 {
		return fmt.Errorf("rate must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// BlockConfig returns the block settings.
func (c *Config) BlockConfig() block.Config {
	return block.Config{
		Interval:      c.Interval,
		APIServer:     c.APIServer,
		Format:        c.Format,
		TokenEnv:      c.TokenEnv,
		All:           c.All,
		Participating: c.Participating,
		PerPage:       c.PerPage,
		MaxPages:      c.MaxPages,
	}
}

// ApplyClient copies transport settings onto a client configuration.
func (c *Config) ApplyClient(cc *client.Config) {
	cc.Timeout = c.Timeout
	cc.UserAgent = c.UserAgent
	cc.RequestsPerSecond = c.Rate.RequestsPerSecond
	cc.Burst = c.Rate.Burst
}

// LoggingConfig returns the logger settings. Output defaults to stderr.
func (c *Config) LoggingConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// RedisOptions returns connection options, or nil when Redis is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if c.Redis.Addr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}
