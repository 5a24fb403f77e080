package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Venue.UTCOffset != "+07:00" {
		t.Errorf("expected utc_offset +07:00, got %s", cfg.Venue.UTCOffset)
	}
	if cfg.Backend.Mode != BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", cfg.Backend.Mode)
	}
	if cfg.Realtime.Transport != TransportMemory {
		t.Errorf("expected memory transport, got %s", cfg.Realtime.Transport)
	}
	if cfg.Notify.BatchSize != 5 {
		t.Errorf("expected batch_size 5, got %d", cfg.Notify.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFrom_FileNotExists(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should return defaults
	if cfg.Venue.ID != "demo" {
		t.Errorf("expected default venue, got %s", cfg.Venue.ID)
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[venue]
id = "riverside"
utc_offset = "+02:00"
default_category = "tennis"

[backend]
mode = "http"
base_url = "https://courts.example.com/api"
token = "abc"
timeout = "5s"

[realtime]
transport = "redis"
redis_addr = "cache:6379"
history_limit = 50

[notify]
poll_interval = "30s"
idle_delay = "1s"
batch_size = 3
batch_delay = "100ms"
connect_stagger = "10ms"

[storage]
db_path = "/tmp/test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Venue.ID != "riverside" || cfg.Venue.DefaultCategory != "tennis" {
		t.Errorf("venue = %+v", cfg.Venue)
	}
	if cfg.Backend.Mode != BackendHTTP || cfg.Backend.Timeout.Duration != 5*time.Second {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Realtime.Transport != TransportRedis || cfg.Realtime.HistoryLimit != 50 {
		t.Errorf("realtime = %+v", cfg.Realtime)
	}
	if cfg.Notify.PollInterval.Duration != 30*time.Second || cfg.Notify.BatchDelay.Duration != 100*time.Millisecond {
		t.Errorf("notify = %+v", cfg.Notify)
	}
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, cfg.Location()).Zone()
	if offset != 2*60*60 {
		t.Errorf("location offset = %d", offset)
	}
}

func TestLoadFrom_InvalidDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[notify]\npoll_interval = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadFrom(configPath); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("COURTDESK_VENUE_ID", "env-venue")
	t.Setenv("COURTDESK_BACKEND", "http")
	t.Setenv("COURTDESK_BASE_URL", "http://env:9000")
	t.Setenv("COURTDESK_POLL_INTERVAL", "45s")
	t.Setenv("COURTDESK_HISTORY_LIMIT", "7")

	cfg, err := LoadFrom("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Venue.ID != "env-venue" {
		t.Errorf("expected env venue, got %s", cfg.Venue.ID)
	}
	if cfg.Backend.Mode != BackendHTTP || cfg.Backend.BaseURL != "http://env:9000" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Notify.PollInterval.Duration != 45*time.Second {
		t.Errorf("poll_interval = %v", cfg.Notify.PollInterval)
	}
	if cfg.Realtime.HistoryLimit != 7 {
		t.Errorf("history_limit = %d", cfg.Realtime.HistoryLimit)
	}
}

func TestLoadFrom_BadEnvDuration(t *testing.T) {
	t.Setenv("COURTDESK_IDLE_DELAY", "later")

	_, err := LoadFrom("/nonexistent/config.toml")
	if err == nil || !strings.Contains(err.Error(), "COURTDESK_IDLE_DELAY") {
		t.Errorf("err = %v, want COURTDESK_IDLE_DELAY error", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COURTDESK_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("COURTDESK_TEST_DOTENV") })

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv failed: %v", err)
	}
	if got := os.Getenv("COURTDESK_TEST_DOTENV"); got != "from-file" {
		t.Errorf("env = %q", got)
	}

	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty venue", func(c *Config) { c.Venue.ID = "" }, "venue id"},
		{"bad offset", func(c *Config) { c.Venue.UTCOffset = "GMT+7" }, "utc_offset"},
		{"unknown backend", func(c *Config) { c.Backend.Mode = "grpc" }, "backend mode"},
		{"http without url", func(c *Config) { c.Backend.Mode = BackendHTTP; c.Backend.BaseURL = "" }, "base_url"},
		{"sqlite without path", func(c *Config) { c.Storage.DBPath = "" }, "db_path"},
		{"unknown transport", func(c *Config) { c.Realtime.Transport = "carrier-pigeon" }, "transport"},
		{"websocket without url", func(c *Config) { c.Realtime.Transport = TransportWebsocket; c.Realtime.URL = "" }, "realtime url"},
		{"redis without addr", func(c *Config) { c.Realtime.Transport = TransportRedis; c.Realtime.RedisAddr = "" }, "redis_addr"},
		{"peak start only", func(c *Config) { c.Venue.PeakHoursEnd = "" }, "peak_hours_start and peak_hours_end"},
		{"peak bad clock", func(c *Config) { c.Venue.PeakHoursStart = "5pm" }, "peak_hours_start"},
		{"peak off grid", func(c *Config) { c.Venue.PeakHoursEnd = "21:15" }, "half hour"},
		{"peak reversed", func(c *Config) { c.Venue.PeakHoursStart = "22:00" }, "before peak_hours_end"},
		{"zero poll interval", func(c *Config) { c.Notify.PollInterval = Duration{} }, "poll_interval"},
		{"zero batch size", func(c *Config) { c.Notify.BatchSize = 0 }, "batch_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		result := expandPath(tt.input)
		if result != tt.expected {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.toml")

	cfg := Default()
	cfg.Venue.ID = "saved"
	cfg.Notify.IdleDelay = Duration{750 * time.Millisecond}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Venue.ID != "saved" {
		t.Errorf("expected venue saved, got %s", loaded.Venue.ID)
	}
	if loaded.Notify.IdleDelay.Duration != 750*time.Millisecond {
		t.Errorf("idle_delay = %v", loaded.Notify.IdleDelay)
	}
}
