// Package config provides Viper-based configuration loading for the arena server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings for the redis honour store.
type RedisConfig struct {
	// Host is the Redis server host.
	Host string `mapstructure:"host"`
	// Port is the Redis server TCP port.
	Port int `mapstructure:"port"`
	// DB is the Redis logical database index.
	DB int `mapstructure:"db"`
	// Password is the Redis AUTH password; empty means no auth.
	Password string `mapstructure:"password"`
}

// Addr returns the "host:port" Redis address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HonourConfig holds ranked-combat rating settings.
type HonourConfig struct {
	// Store selects the rating store backend: "postgres" or "redis".
	Store string `mapstructure:"store"`
	// InitialRating is the rating assigned to characters with no stored value.
	InitialRating int `mapstructure:"initial_rating"`
}

// MatchmakingConfig holds ranked matchmaking tuning.
type MatchmakingConfig struct {
	// MaxRatingDiff is the largest rating gap allowed when pairing; 0 means unlimited.
	MaxRatingDiff int `mapstructure:"max_rating_diff"`
	// PreparingTime is the confirmation window for a tentative pair.
	PreparingTime time.Duration `mapstructure:"preparing_time"`
	// TickInterval is the period between pairing scans of the waiting queue.
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// CombatConfig holds combat session settings.
type CombatConfig struct {
	// DefaultTimeout is the deadline for sessions created without an explicit
	// timeout; 0 means unlimited.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig holds the server's listen settings.
type ServerConfig struct {
	// MetricsPort is the TCP port for the Prometheus metrics endpoint.
	MetricsPort int `mapstructure:"metrics_port"`
}

// MetricsAddr returns the ":port" listen address for the metrics endpoint.
func (s ServerConfig) MetricsAddr() string {
	return fmt.Sprintf(":%d", s.MetricsPort)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Honour      HonourConfig      `mapstructure:"honour"`
	Matchmaking MatchmakingConfig `mapstructure:"matchmaking"`
	Combat      CombatConfig      `mapstructure:"combat"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRedis(c.Redis); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHonour(c.Honour); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMatchmaking(c.Matchmaking); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig) error {
	var errs []string
	if r.Host == "" {
		errs = append(errs, "redis.host must not be empty")
	}
	if r.Port < 1 || r.Port > 65535 {
		errs = append(errs, fmt.Sprintf("redis.port must be 1-65535, got %d", r.Port))
	}
	if r.DB < 0 {
		errs = append(errs, fmt.Sprintf("redis.db must be >= 0, got %d", r.DB))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHonour(h HonourConfig) error {
	var errs []string
	validStores := map[string]bool{"postgres": true, "redis": true}
	if !validStores[h.Store] {
		errs = append(errs, fmt.Sprintf("honour.store must be one of [postgres, redis], got %q", h.Store))
	}
	if h.InitialRating < 0 {
		errs = append(errs, fmt.Sprintf("honour.initial_rating must be >= 0, got %d", h.InitialRating))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMatchmaking(m MatchmakingConfig) error {
	var errs []string
	if m.MaxRatingDiff < 0 {
		errs = append(errs, fmt.Sprintf("matchmaking.max_rating_diff must be >= 0, got %d", m.MaxRatingDiff))
	}
	if m.PreparingTime <= 0 {
		errs = append(errs, "matchmaking.preparing_time must be positive")
	}
	if m.TickInterval <= 0 {
		errs = append(errs, "matchmaking.tick_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	if c.DefaultTimeout < 0 {
		return errors.New("combat.default_timeout must not be negative")
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.MetricsPort < 1 || s.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port must be 1-65535, got %d", s.MetricsPort)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("honour.store", "postgres")
	v.SetDefault("honour.initial_rating", 1000)
	v.SetDefault("matchmaking.max_rating_diff", 200)
	v.SetDefault("matchmaking.preparing_time", 30*time.Second)
	v.SetDefault("matchmaking.tick_interval", 5*time.Second)
	v.SetDefault("combat.default_timeout", 0)
	v.SetDefault("server.metrics_port", 9100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ARENA_ prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
