package theme

import (
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		themeName string
		wantName  string
	}{
		{name: "load court theme", themeName: "court", wantName: "court"},
		{name: "load night theme", themeName: "night", wantName: "night"},
		{name: "load chalk theme", themeName: "chalk", wantName: "chalk"},
		{name: "case insensitive", themeName: "Night", wantName: "night"},
		{name: "empty name defaults to court", themeName: "", wantName: "court"},
		{name: "invalid theme falls back to court", themeName: "nonexistent", wantName: "court"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme, err := Load(tt.themeName)
			if err != nil {
				t.Fatalf("Load(%q) unexpected error: %v", tt.themeName, err)
			}
			if theme.Name != tt.wantName {
				t.Errorf("Load(%q).Name = %q, want %q", tt.themeName, theme.Name, tt.wantName)
			}
		})
	}
}

func TestLoad_ThemeColors(t *testing.T) {
	for _, name := range Available() {
		t.Run(name, func(t *testing.T) {
			theme, err := Load(name)
			if err != nil {
				t.Fatalf("Load(%s) unexpected error: %v", name, err)
			}

			colors := map[string]string{
				"Bg":          theme.Bg,
				"BgHighlight": theme.BgHighlight,
				"BgSelection": theme.BgSelection,
				"Fg":          theme.Fg,
				"FgMuted":     theme.FgMuted,
				"Accent":      theme.Accent,
				"Available":   theme.Available,
				"Occupied":    theme.Occupied,
				"Blocked":     theme.Blocked,
				"Selected":    theme.Selected,
				"Unblock":     theme.Unblock,
				"Unbook":      theme.Unbook,
				"Cancelled":   theme.Cancelled,
				"Unread":      theme.Unread,
				"Warning":     theme.Warning,
				"BaseBg":      theme.BaseBg,
				"ModalBorder": theme.ModalBorder,
				"TextPrimary": theme.TextPrimary,
				"TextMuted":   theme.TextMuted,
				"Highlight":   theme.Highlight,
			}
			for field, hex := range colors {
				if len(hex) != 7 || hex[0] != '#' {
					t.Errorf("theme.%s = %q, want #rrggbb", field, hex)
				}
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	theme := &Theme{Bg: "#101010", Fg: "#eeeeee", FgMuted: "#999999", Accent: "#ff0000", Warning: "#ffaa00"}
	theme.applyDefaults()

	if theme.Available != theme.Bg {
		t.Errorf("Available = %q, want Bg", theme.Available)
	}
	if theme.Cancelled != theme.Available || theme.Unbook != theme.Available {
		t.Errorf("terminal states should fall back to Available: %+v", theme)
	}
	if theme.Selected != theme.Accent {
		t.Errorf("Selected = %q, want Accent", theme.Selected)
	}
	if theme.Unread != theme.Warning {
		t.Errorf("Unread = %q, want Warning", theme.Unread)
	}
	if theme.ModalBorder != theme.Accent {
		t.Errorf("ModalBorder = %q, want Accent", theme.ModalBorder)
	}
}

func TestIsAvailable(t *testing.T) {
	tests := []struct {
		name     string
		theme    string
		expected bool
	}{
		{name: "exact match", theme: "court", expected: true},
		{name: "case insensitive", theme: "Chalk", expected: true},
		{name: "missing theme", theme: "mocha", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAvailable(tt.theme); got != tt.expected {
				t.Errorf("IsAvailable(%q) = %t, want %t", tt.theme, got, tt.expected)
			}
		})
	}
}

func TestColor(t *testing.T) {
	hex := "#4fb38a"
	if c := Color(hex); string(c) != hex {
		t.Errorf("Color(%q) = %q, want %q", hex, string(c), hex)
	}
}
