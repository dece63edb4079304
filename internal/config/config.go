package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config layout written by Save.
const CurrentVersion = 1

// EnvPrefix marks environment variables that override file values.
// Nested keys use a double underscore: BEATCLOCK_REDIS__ADDR.
const EnvPrefix = "BEATCLOCK_"

const (
	defaultListen    = "127.0.0.1:8080"
	defaultTimezone  = "Europe/Zurich"
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultPoll      = "@every 1s"
	defaultStorePath = "/var/lib/beatclock/beatclock.db"
	defaultChannel   = "beatclock:changes"
)

// RedisConfig enables cross-instance change broadcast over Redis pub/sub.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr" koanf:"addr"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" koanf:"password"`
	DB       int    `yaml:"db" json:"db" koanf:"db"`
	Channel  string `yaml:"channel" json:"channel" koanf:"channel"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" koanf:"username"`
	Password string `yaml:"password" json:"password" koanf:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	Version int `yaml:"version" json:"version" koanf:"version"`

	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" koanf:"listen"`

	// Timezone is the IANA zone used for local times and form dates.
	Timezone string `yaml:"timezone" json:"timezone" koanf:"timezone"`

	LogLevel  string `yaml:"log_level" json:"log_level" koanf:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format" koanf:"log_format"`

	// Poll is the cron spec (seconds resolution) of the reminder poll.
	Poll string `yaml:"poll" json:"poll" koanf:"poll"`

	// StorePath is the SQLite database file.
	StorePath string `yaml:"store_path" json:"store_path" koanf:"store_path"`

	// Redis, if set with an address, broadcasts changes to other instances.
	Redis *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty" koanf:"redis"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" koanf:"basic_auth"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentVersion,
		Listen:    defaultListen,
		Timezone:  defaultTimezone,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		Poll:      defaultPoll,
		StorePath: defaultStorePath,
	}
}

// Normalize fills in missing values so that partially-filled or older
// configs behave like current ones.
func (c *Config) Normalize() {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
		c.LogFormat = strings.ToLower(c.LogFormat)
	default:
		c.LogFormat = defaultLogFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Poll == "" {
		c.Poll = defaultPoll
	}
	if c.StorePath == "" {
		c.StorePath = defaultStorePath
	}
	if c.Redis != nil {
		if c.Redis.Addr == "" {
			c.Redis = nil
		} else if c.Redis.Channel == "" {
			c.Redis.Channel = defaultChannel
		}
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if c.Version > CurrentVersion {
		return fmt.Errorf("config version %d is newer than supported %d", c.Version, CurrentVersion)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured display zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path and applies
// BEATCLOCK_* environment overrides.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - Environment overrides are applied last, then defaults are normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays BEATCLOCK_* variables onto cfg. Unset keys keep their
// file values.
func applyEnv(cfg *Config) error {
	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return err
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	return k.Unmarshal("", cfg)
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".beatclock-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
