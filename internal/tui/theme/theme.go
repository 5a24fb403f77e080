// Package theme provides color themes for the TUI.
package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "court"

// Theme holds all colors for a TUI theme.
type Theme struct {
	Name        string `toml:"name"`
	Bg          string `toml:"bg"`           // Base background
	BgHighlight string `toml:"bg_highlight"` // Header and alternate rows
	BgSelection string `toml:"bg_selection"` // Cursor
	Fg          string `toml:"fg"`
	FgMuted     string `toml:"fg_muted"`
	Accent      string `toml:"accent"` // Title, borders

	// Cell states
	Available string `toml:"available"`
	Occupied  string `toml:"occupied"`
	Blocked   string `toml:"blocked"`
	Selected  string `toml:"selected"`
	Unblock   string `toml:"unblock"`
	Unbook    string `toml:"unbook"`
	Cancelled string `toml:"cancelled"`

	Unread  string `toml:"unread"`  // Unread chat badge
	Warning string `toml:"warning"` // Errors, move mode

	// Modal palette (can override base theme values)
	BaseBg      string `toml:"base_bg"`
	ModalBorder string `toml:"modal_border"`
	TextPrimary string `toml:"text_primary"`
	TextMuted   string `toml:"text_muted"`
	Highlight   string `toml:"highlight"`
}

// Color returns a lipgloss.Color for the given hex string.
func Color(hex string) lipgloss.Color {
	return lipgloss.Color(hex)
}

// Load loads a built-in theme by name. Unknown names fall back to the
// default theme.
func Load(name string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}
	name = strings.ToLower(name)

	src, ok := builtins[name]
	if !ok {
		if name != DefaultName {
			return Load(DefaultName)
		}
		return nil, fmt.Errorf("theme %q not found", name)
	}

	var t Theme
	if err := toml.Unmarshal([]byte(src), &t); err != nil {
		return nil, fmt.Errorf("parsing theme %q: %w", name, err)
	}
	t.applyDefaults()
	return &t, nil
}

// ModalPalette provides the modal-specific colors derived from the theme.
type ModalPalette struct {
	BaseBg      string
	ModalBorder string
	TextPrimary string
	TextMuted   string
	Highlight   string
}

// Modal returns the modal palette, falling back to base theme colors when needed.
func (t *Theme) Modal() ModalPalette {
	return ModalPalette{
		BaseBg:      coalesce(t.BaseBg, t.BgHighlight, t.Bg),
		ModalBorder: coalesce(t.ModalBorder, t.Accent),
		TextPrimary: coalesce(t.TextPrimary, t.Fg),
		TextMuted:   coalesce(t.TextMuted, t.FgMuted),
		Highlight:   coalesce(t.Highlight, t.BgSelection, t.Accent),
	}
}

func (t *Theme) applyDefaults() {
	m := t.Modal()
	t.BaseBg = m.BaseBg
	t.ModalBorder = m.ModalBorder
	t.TextPrimary = m.TextPrimary
	t.TextMuted = m.TextMuted
	t.Highlight = m.Highlight

	// Terminal action states fall back to the available color.
	t.Available = coalesce(t.Available, t.Bg)
	t.Unblock = coalesce(t.Unblock, t.Available)
	t.Unbook = coalesce(t.Unbook, t.Available)
	t.Cancelled = coalesce(t.Cancelled, t.Available)
	t.Selected = coalesce(t.Selected, t.Accent)
	t.Unread = coalesce(t.Unread, t.Warning)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Available returns a list of available theme names.
func Available() []string {
	return []string{"court", "night", "chalk"}
}

// IsAvailable reports whether a theme name is available.
func IsAvailable(name string) bool {
	_, ok := builtins[strings.ToLower(name)]
	return ok
}
