// Package config loads service settings from defaults, an optional YAML file
// and ROLLCALL_* environment variables, in that order of precedence (lowest first).
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// EnvProduction is the env value that enables production-only checks.
const EnvProduction = "production"

// StoreConfig selects where activities and activity configs live.
// Accounts are always kept in SQLite.
type StoreConfig struct {
	Driver        string `yaml:"driver"`
	SQLitePath    string `yaml:"sqlite_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// AdminConfig is the account seeded when none exists.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// EmailConfig configures export delivery.
type EmailConfig struct {
	ResendKey string `yaml:"resend_key"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
}

// Config is the complete service configuration.
type Config struct {
	Env                string      `yaml:"env"`
	Addr               string      `yaml:"addr"`
	Timezone           string      `yaml:"timezone"`
	Store              StoreConfig `yaml:"store"`
	CSRFKey            string      `yaml:"csrf_key"`
	Admin              AdminConfig `yaml:"admin"`
	Email              EmailConfig `yaml:"email"`
	LogLevel           string      `yaml:"log_level"`
	SlowRequestMs      int         `yaml:"slow_request_ms"`
	SlowQueryMs        int         `yaml:"slow_query_ms"`
	RateLimitPerSecond int         `yaml:"rate_limit_per_second"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Env:      "development",
		Addr:     ":8080",
		Timezone: "Asia/Hong_Kong",
		Store: StoreConfig{
			Driver:        DriverSQLite,
			SQLitePath:    "rollcall.db",
			MongoDatabase: "rollcall",
		},
		Admin: AdminConfig{
			Email:    "admin@rollcall.local",
			Password: "change me please",
		},
		Email: EmailConfig{
			From: "Rollcall <noreply@rollcall.local>",
		},
		LogLevel:           "info",
		SlowRequestMs:      200,
		SlowQueryMs:        50,
		RateLimitPerSecond: 20,
	}
}

// Load builds a Config. path may be empty to skip the YAML file.
// getenv is usually os.Getenv.
// PRE: none
// POST: Returned config has passed Validate
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"ROLLCALL_ENV":            &cfg.Env,
		"ROLLCALL_ADDR":           &cfg.Addr,
		"ROLLCALL_TIMEZONE":       &cfg.Timezone,
		"ROLLCALL_STORE_DRIVER":   &cfg.Store.Driver,
		"ROLLCALL_SQLITE_PATH":    &cfg.Store.SQLitePath,
		"ROLLCALL_MONGO_URI":      &cfg.Store.MongoURI,
		"ROLLCALL_MONGO_DATABASE": &cfg.Store.MongoDatabase,
		"ROLLCALL_CSRF_KEY":       &cfg.CSRFKey,
		"ROLLCALL_ADMIN_EMAIL":    &cfg.Admin.Email,
		"ROLLCALL_ADMIN_PASSWORD": &cfg.Admin.Password,
		"ROLLCALL_RESEND_KEY":     &cfg.Email.ResendKey,
		"ROLLCALL_EMAIL_FROM":     &cfg.Email.From,
		"ROLLCALL_REPLY_TO":       &cfg.Email.ReplyTo,
		"ROLLCALL_LOG_LEVEL":      &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ROLLCALL_SLOW_REQUEST_MS":       &cfg.SlowRequestMs,
		"ROLLCALL_SLOW_QUERY_MS":         &cfg.SlowQueryMs,
		"ROLLCALL_RATE_LIMIT_PER_SECOND": &cfg.RateLimitPerSecond,
	}
	for key, dst := range ints {
		v := getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store.mongo_uri is required when store.driver is mongo")
		}
		if c.Store.MongoDatabase == "" {
			return errors.New("store.mongo_database is required when store.driver is mongo")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverSQLite, DriverMongo, c.Store.Driver)
	}
	if c.Store.SQLitePath == "" {
		return errors.New("store.sqlite_path is required (accounts are always stored in SQLite)")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.CSRFKey != "" {
		if key, err := hex.DecodeString(c.CSRFKey); err != nil || len(key) != 32 {
			return errors.New("csrf_key must be 64 hex characters (32 bytes)")
		}
	} else if c.IsProduction() {
		return errors.New("csrf_key is required in production")
	}
	if c.IsProduction() && c.Admin.Password == Default().Admin.Password {
		return errors.New("admin.password must be changed from the default in production")
	}
	if c.RateLimitPerSecond <= 0 {
		return errors.New("rate_limit_per_second must be positive")
	}
	return nil
}

// IsProduction reports whether production checks apply.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Location returns the time zone "today" is computed in.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// CSRFKeyBytes decodes the configured key or, outside production, generates a random one.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey != "" {
		return hex.DecodeString(c.CSRFKey)
	}
	if c.IsProduction() {
		return nil, errors.New("csrf_key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("config_event", "event", "random_csrf_key", "detail", "sessions won't survive restart; set ROLLCALL_CSRF_KEY")
	return key, nil
}
