// Package config loads taskboard settings from defaults, an optional TOML
// file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"taskboard/pkg/user"
)

// DefaultFile is read when no config path is given. It is optional.
const DefaultFile = "taskboard.toml"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Suggestion modes.
const (
	SuggestOff     = "off"
	SuggestCommand = "command"
	SuggestHTTP    = "http"
)

var (
	drivers    = []string{DriverMemory, DriverFile, DriverSQLite, DriverPostgres}
	modes      = []string{SuggestOff, SuggestCommand, SuggestHTTP}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "logfmt"}
)

// Config is the full taskboard configuration.
type Config struct {
	Addr      string        `toml:"addr"`
	Store     StoreConfig   `toml:"store"`
	Log       LogConfig     `toml:"log"`
	Points    PointsConfig  `toml:"points"`
	UsersFile string        `toml:"users_file"`
	Users     []user.User   `toml:"users"`
	Suggest   SuggestConfig `toml:"suggest"`
}

// StoreConfig selects and tunes the task store.
type StoreConfig struct {
	Driver      string   `toml:"driver"`
	Path        string   `toml:"path"`
	DatabaseURL string   `toml:"database_url"`
	Document    string   `toml:"document"`
	Timeout     Duration `toml:"timeout"`
	MaxRetries  int      `toml:"max_retries"`
}

// LogConfig sets the log level and formatter.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// PointsConfig holds the story-point scale.
type PointsConfig struct {
	Scale []int `toml:"scale"`
}

// SuggestConfig configures the subtask suggestion service.
type SuggestConfig struct {
	Mode           string   `toml:"mode"`
	Binary         string   `toml:"binary"`
	Args           []string `toml:"args"`
	URL            string   `toml:"url"`
	Timeout        Duration `toml:"timeout"`
	MaxSuggestions int      `toml:"max_suggestions"`
}

// Duration is a time.Duration read from strings such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Addr: ":8080",
		Store: StoreConfig{
			Driver:     DriverFile,
			Path:       "data/tasks.json",
			Document:   "default",
			Timeout:    Duration{5 * time.Second},
			MaxRetries: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Points: PointsConfig{Scale: []int{1, 2, 3, 5, 8}},
		Suggest: SuggestConfig{
			Mode:           SuggestOff,
			Binary:         "claude",
			Timeout:        Duration{time.Minute},
			MaxSuggestions: 8,
		},
	}
}

// Load builds a Config. An empty path reads DefaultFile if it exists; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		if path != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file %s: %w", file, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv overrides cfg from environment variables.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("TASKBOARD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TASKBOARD_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("TASKBOARD_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v := os.Getenv("TASKBOARD_STORE_TIMEOUT"); v != "" {
		if err := cfg.Store.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("TASKBOARD_STORE_TIMEOUT: %w", err)
		}
	}
	if v := os.Getenv("TASKBOARD_STORE_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKBOARD_STORE_MAX_RETRIES: %w", err)
		}
		cfg.Store.MaxRetries = n
	}
	if v := os.Getenv("TASKBOARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TASKBOARD_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TASKBOARD_USERS_FILE"); v != "" {
		cfg.UsersFile = v
	}
	if v := os.Getenv("TASKBOARD_SUGGEST_MODE"); v != "" {
		cfg.Suggest.Mode = v
	}
	if v := os.Getenv("TASKBOARD_SUGGEST_URL"); v != "" {
		cfg.Suggest.URL = v
	}
	if v := os.Getenv("TASKBOARD_SUGGEST_BINARY"); v != "" {
		cfg.Suggest.Binary = v
	}
	return nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Suggest.Mode = strings.ToLower(strings.TrimSpace(c.Suggest.Mode))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))

	if !slices.Contains(drivers, c.Store.Driver) {
		return fmt.Errorf("store.driver %q: must be one of %s", c.Store.Driver, strings.Join(drivers, ", "))
	}
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url (or DATABASE_URL) is required for the postgres driver")
		}
	}
	if c.Store.Timeout.Duration <= 0 {
		return fmt.Errorf("store.timeout must be positive, got %s", c.Store.Timeout)
	}
	if c.Store.MaxRetries < 0 {
		return fmt.Errorf("store.max_retries must not be negative, got %d", c.Store.MaxRetries)
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("log.level %q: must be one of %s", c.Log.Level, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("log.format %q: must be one of %s", c.Log.Format, strings.Join(logFormats, ", "))
	}

	if len(c.Points.Scale) == 0 {
		return errors.New("points.scale must not be empty")
	}
	for _, p := range c.Points.Scale {
		if p <= 0 {
			return fmt.Errorf("points.scale values must be positive, got %d", p)
		}
	}

	if c.UsersFile != "" && len(c.Users) > 0 {
		return errors.New("set either users_file or [[users]], not both")
	}

	if !slices.Contains(modes, c.Suggest.Mode) {
		return fmt.Errorf("suggest.mode %q: must be one of %s", c.Suggest.Mode, strings.Join(modes, ", "))
	}
	if c.Suggest.Mode == SuggestHTTP && c.Suggest.URL == "" {
		return errors.New("suggest.url is required in http mode")
	}
	if c.Suggest.Timeout.Duration <= 0 {
		return fmt.Errorf("suggest.timeout must be positive, got %s", c.Suggest.Timeout)
	}
	return nil
}
