package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/config"
	"github.com/javiermolinar/courtdesk/internal/tui/theme"
)

func (a *App) configCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and allows editing.

Example:
  courtdesk config
  courtdesk config --show`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if show {
				printConfig(cmd.OutOrStdout(), a.config)
				return nil
			}
			return runConfigInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print the effective configuration and exit")
	return cmd
}

func runConfigInteractive(in io.Reader, out io.Writer) error {
	configPath := config.DefaultConfigPath()
	fmt.Fprintf(out, "Config file: %s\n\n", configPath)

	// Load existing config or create defaults
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, fileErr := os.Stat(configPath)
	if os.IsNotExist(fileErr) {
		fmt.Fprintln(out, "No config file found. Creating with default values...")
		if err := cfg.SaveTo(configPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n\n", configPath)
	}

	printConfig(out, cfg)

	reader := bufio.NewReader(in)
	if !promptYesNo(reader, out, "\nWould you like to edit the configuration?") {
		return nil
	}

	p := prompter{in: reader, out: out}
	cfg.Venue.ID = p.value("Venue id", cfg.Venue.ID)
	cfg.Venue.UTCOffset = p.value("Venue UTC offset (+HH:MM)", cfg.Venue.UTCOffset)
	cfg.Venue.DefaultCategory = p.value("Default category (empty for all courts)", cfg.Venue.DefaultCategory)
	cfg.Backend.Mode = p.choice("Backend", cfg.Backend.Mode, config.BackendSQLite, config.BackendHTTP)
	if cfg.Backend.Mode == config.BackendHTTP {
		cfg.Backend.BaseURL = p.value("API base URL", cfg.Backend.BaseURL)
		cfg.Backend.Token = p.value("API token", cfg.Backend.Token)
	} else {
		cfg.Storage.DBPath = p.value("Database path", cfg.Storage.DBPath)
	}
	cfg.Realtime.Transport = p.choice("Realtime transport", cfg.Realtime.Transport,
		config.TransportMemory, config.TransportWebsocket, config.TransportRedis)
	switch cfg.Realtime.Transport {
	case config.TransportWebsocket:
		cfg.Realtime.URL = p.value("Relay URL", cfg.Realtime.URL)
	case config.TransportRedis:
		cfg.Realtime.RedisAddr = p.value("Redis address", cfg.Realtime.RedisAddr)
	}
	cfg.Realtime.HistoryLimit = p.number("Messages to backfill per room", cfg.Realtime.HistoryLimit)
	cfg.UI.Theme = p.choice("UI theme", cfg.UI.Theme, theme.Available()...)

	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.SaveTo(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "\nConfiguration saved!")
	return nil
}

func printConfig(out io.Writer, cfg *config.Config) {
	section := func(name string) { fmt.Fprintf(out, "\n[%s]\n", name) }
	field := func(key string, value any) { fmt.Fprintf(out, "  %-16s = %v\n", key, value) }

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprint(out, "──────────────────────")
	section("venue")
	field("id", cfg.Venue.ID)
	field("utc_offset", cfg.Venue.UTCOffset)
	field("default_category", cfg.Venue.DefaultCategory)
	section("backend")
	field("mode", cfg.Backend.Mode)
	if cfg.Backend.Mode == config.BackendHTTP {
		field("base_url", cfg.Backend.BaseURL)
		field("token", mask(cfg.Backend.Token))
		field("timeout", cfg.Backend.Timeout.Duration)
	} else {
		section("storage")
		field("db_path", cfg.Storage.DBPath)
	}
	section("realtime")
	field("transport", cfg.Realtime.Transport)
	field("history_limit", cfg.Realtime.HistoryLimit)
	section("notify")
	field("poll_interval", cfg.Notify.PollInterval.Duration)
	field("idle_delay", cfg.Notify.IdleDelay.Duration)
	section("ui")
	field("theme", cfg.UI.Theme)
	section("log")
	field("level", cfg.Log.Level)
	field("file", cfg.Log.File)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return strings.Repeat("*", 8)
}

func promptYesNo(reader *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p prompter) value(label, current string) string {
	if current == "" {
		fmt.Fprintf(p.out, "  %s: ", label)
	} else {
		fmt.Fprintf(p.out, "  %s [%s]: ", label, current)
	}
	input, _ := p.in.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func (p prompter) number(label string, current int) int {
	for {
		value := p.value(label, strconv.Itoa(current))
		n, err := strconv.Atoi(value)
		if err == nil && n >= 0 {
			return n
		}
		fmt.Fprintf(p.out, "  Invalid number %q\n", value)
	}
}

func (p prompter) choice(label, current string, options ...string) string {
	joined := strings.Join(options, ", ")
	for {
		value := strings.ToLower(p.value(fmt.Sprintf("%s (%s)", label, joined), current))
		for _, o := range options {
			if value == o {
				return value
			}
		}
		fmt.Fprintf(p.out, "  Invalid value %q. Available: %s\n", value, joined)
	}
}
