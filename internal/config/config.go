// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Backend modes.
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

// Realtime transports.
const (
	TransportMemory    = "memory"
	TransportWebsocket = "websocket"
	TransportRedis     = "redis"
)

// Config holds the application configuration.
type Config struct {
	Venue    VenueConfig    `toml:"venue"`
	Backend  BackendConfig  `toml:"backend"`
	Storage  StorageConfig  `toml:"storage"`
	Realtime RealtimeConfig `toml:"realtime"`
	Notify   NotifyConfig   `toml:"notify"`
	Server   ServerConfig   `toml:"server"`
	UI       UIConfig       `toml:"ui"`
	Log      LogConfig      `toml:"log"`
}

// VenueConfig selects the venue shown on the timeline.
type VenueConfig struct {
	ID              string `toml:"id"`
	UTCOffset       string `toml:"utc_offset"`       // e.g., "+07:00"
	DefaultCategory string `toml:"default_category"` // empty shows every court
	PeakHoursStart  string `toml:"peak_hours_start"` // e.g., "17:00" (optional)
	PeakHoursEnd    string `toml:"peak_hours_end"`   // e.g., "21:00" (optional)
}

// BackendConfig selects where bookings come from.
type BackendConfig struct {
	Mode    string   `toml:"mode"` // "http" or "sqlite"
	BaseURL string   `toml:"base_url"`
	Token   string   `toml:"token"`
	Timeout Duration `toml:"timeout"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// RealtimeConfig selects the chat transport.
type RealtimeConfig struct {
	Transport    string `toml:"transport"` // "memory", "websocket" or "redis"
	URL          string `toml:"url"`       // websocket relay url
	RedisAddr    string `toml:"redis_addr"`
	HistoryLimit int    `toml:"history_limit"`
}

// NotifyConfig tunes unread polling.
type NotifyConfig struct {
	PollInterval   Duration `toml:"poll_interval"`
	IdleDelay      Duration `toml:"idle_delay"`
	BatchSize      int      `toml:"batch_size"`
	BatchDelay     Duration `toml:"batch_delay"`
	ConnectStagger Duration `toml:"connect_stagger"`
}

// ServerConfig holds settings for `courtdesk serve`.
type ServerConfig struct {
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

// UIConfig holds TUI settings.
type UIConfig struct {
	Theme string `toml:"theme"` // "court", "night", "chalk"
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // TUI logs go here; empty discards them
}

// Duration is a time.Duration that reads and writes "30s" style strings.
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
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Venue: VenueConfig{
			ID:             "demo",
			UTCOffset:      "+07:00",
			PeakHoursStart: "17:00",
			PeakHoursEnd:   "21:00",
		},
		Backend: BackendConfig{
			Mode:    BackendSQLite,
			BaseURL: "http://localhost:8080",
			Timeout: Duration{15 * time.Second},
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Realtime: RealtimeConfig{
			Transport:    TransportMemory,
			URL:          "ws://localhost:8080/ws",
			RedisAddr:    "localhost:6379",
			HistoryLimit: 20,
		},
		Notify: NotifyConfig{
			PollInterval:   Duration{time.Minute},
			IdleDelay:      Duration{3 * time.Second},
			BatchSize:      5,
			BatchDelay:     Duration{200 * time.Millisecond},
			ConnectStagger: Duration{50 * time.Millisecond},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		UI: UIConfig{
			Theme: "court",
		},
		Log: LogConfig{
			Level: "info",
			File:  defaultLogPath(),
		},
	}
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "courtdesk")
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	return filepath.Join(dataDir(), "courtdesk.db")
}

func defaultLogPath() string {
	return filepath.Join(dataDir(), "courtdesk.log")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "courtdesk", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies
// env overrides. A .env file in the working directory is read first.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	// Try to load from file (not an error if it doesn't exist)
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding variables that are
// already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies COURTDESK_* variables over file config.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"COURTDESK_VENUE_ID", &cfg.Venue.ID},
		{"COURTDESK_UTC_OFFSET", &cfg.Venue.UTCOffset},
		{"COURTDESK_CATEGORY", &cfg.Venue.DefaultCategory},
		{"COURTDESK_PEAK_HOURS_START", &cfg.Venue.PeakHoursStart},
		{"COURTDESK_PEAK_HOURS_END", &cfg.Venue.PeakHoursEnd},
		{"COURTDESK_BACKEND", &cfg.Backend.Mode},
		{"COURTDESK_BASE_URL", &cfg.Backend.BaseURL},
		{"COURTDESK_TOKEN", &cfg.Backend.Token},
		{"COURTDESK_DB_PATH", &cfg.Storage.DBPath},
		{"COURTDESK_REALTIME", &cfg.Realtime.Transport},
		{"COURTDESK_REALTIME_URL", &cfg.Realtime.URL},
		{"COURTDESK_REDIS_ADDR", &cfg.Realtime.RedisAddr},
		{"COURTDESK_SERVER_ADDR", &cfg.Server.Addr},
		{"COURTDESK_SERVER_TOKEN", &cfg.Server.Token},
		{"COURTDESK_UI_THEME", &cfg.UI.Theme},
		{"COURTDESK_LOG_LEVEL", &cfg.Log.Level},
		{"COURTDESK_LOG_FILE", &cfg.Log.File},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"COURTDESK_TIMEOUT", &cfg.Backend.Timeout},
		{"COURTDESK_POLL_INTERVAL", &cfg.Notify.PollInterval},
		{"COURTDESK_IDLE_DELAY", &cfg.Notify.IdleDelay},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			if err := d.dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s: %w", d.key, err)
			}
		}
	}

	if v := os.Getenv("COURTDESK_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COURTDESK_HISTORY_LIMIT: %w", err)
		}
		cfg.Realtime.HistoryLimit = n
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Venue.ID == "" {
		return errors.New("venue id must be set")
	}
	if _, err := slot.ParseOffset(c.Venue.UTCOffset); err != nil {
		return fmt.Errorf("utc_offset: %w", err)
	}

	// Validate peak hours if configured (both must be set or neither)
	hasStart := c.Venue.PeakHoursStart != ""
	hasEnd := c.Venue.PeakHoursEnd != ""
	if hasStart != hasEnd {
		return errors.New("both peak_hours_start and peak_hours_end must be set, or neither")
	}
	if hasStart {
		if err := validateClock(c.Venue.PeakHoursStart, "peak_hours_start"); err != nil {
			return err
		}
		if err := validateClock(c.Venue.PeakHoursEnd, "peak_hours_end"); err != nil {
			return err
		}
		if c.Venue.PeakHoursStart >= c.Venue.PeakHoursEnd {
			return errors.New("peak_hours_start must be before peak_hours_end")
		}
	}

	switch c.Backend.Mode {
	case BackendHTTP:
		if c.Backend.BaseURL == "" {
			return errors.New("base_url must be set for the http backend")
		}
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			return errors.New("db_path must be set")
		}
	default:
		return fmt.Errorf("invalid backend mode: %q", c.Backend.Mode)
	}

	switch c.Realtime.Transport {
	case TransportMemory:
	case TransportWebsocket:
		if c.Realtime.URL == "" {
			return errors.New("realtime url must be set for the websocket transport")
		}
	case TransportRedis:
		if c.Realtime.RedisAddr == "" {
			return errors.New("redis_addr must be set for the redis transport")
		}
	default:
		return fmt.Errorf("invalid realtime transport: %q", c.Realtime.Transport)
	}
	if c.Realtime.HistoryLimit < 0 {
		return errors.New("history_limit cannot be negative")
	}

	if c.Notify.PollInterval.Duration <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.Notify.IdleDelay.Duration < 0 || c.Notify.BatchDelay.Duration < 0 || c.Notify.ConnectStagger.Duration < 0 {
		return errors.New("notify delays cannot be negative")
	}
	if c.Notify.BatchSize <= 0 {
		return errors.New("batch_size must be positive")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Location returns the venue's fixed zone.
func (c *Config) Location() *time.Location {
	loc, err := slot.ParseOffset(c.Venue.UTCOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// validateClock checks a half-hour aligned "HH:MM" value.
func validateClock(s, field string) error {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, s)
	}
	if t.Minute()%30 != 0 {
		return fmt.Errorf("%s must fall on a half hour, got %q", field, s)
	}
	return nil
}
