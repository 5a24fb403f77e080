package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func darkBase() *Theme {
	t := &Theme{
		Bg:          "#101010",
		BgHighlight: "#202020",
		BgSelection: "#303030",
		Fg:          "#ffffff",
		FgMuted:     "#aaaaaa",
		Accent:      "#ff0000",
		Available:   "#141414",
		Occupied:    "#4080c0",
		Blocked:     "#806020",
		Selected:    "#40c080",
		Warning:     "#ff8800",
	}
	t.applyDefaults()
	return t
}

func TestNewPalette_CellShades(t *testing.T) {
	base := darkBase()
	palette := NewPalette(base)

	if palette.OccupiedBg != lipgloss.Color(scaleColor(base.Occupied, 0.7, 36)) {
		t.Errorf("OccupiedBg = %q", palette.OccupiedBg)
	}
	if palette.OccupiedBgAlt == palette.OccupiedBg {
		t.Error("alternate occupied shade should differ")
	}
	if relativeLuminance(string(palette.OccupiedBgAlt)) <= relativeLuminance(string(palette.OccupiedBg)) {
		t.Error("dark theme alternate shade should be lighter")
	}
	if palette.CancelledBg != lipgloss.Color(base.Available) {
		t.Errorf("CancelledBg = %q, want fallback to available", palette.CancelledBg)
	}
}

func TestNewPalette_ModalFallbacks(t *testing.T) {
	base := darkBase()
	palette := NewPalette(base)

	if palette.Modal.Bg != lipgloss.Color(base.BgHighlight) {
		t.Errorf("Modal.Bg = %q, want %q", palette.Modal.Bg, base.BgHighlight)
	}
	if palette.Modal.Border.Dark != base.Accent {
		t.Errorf("Modal.Border.Dark = %q, want %q", palette.Modal.Border.Dark, base.Accent)
	}
	if palette.Modal.Backdrop != lipgloss.Color(base.BgSelection) {
		t.Errorf("Modal.Backdrop = %q, want %q", palette.Modal.Backdrop, base.BgSelection)
	}
}

func TestNewPalette_LightThemeLightensCells(t *testing.T) {
	base, err := Load("chalk")
	if err != nil {
		t.Fatalf("Load(chalk): %v", err)
	}

	palette := NewPalette(base)
	if relativeLuminance(string(palette.OccupiedBg)) <= relativeLuminance(base.Occupied) {
		t.Errorf("OccupiedBg luminance = %f, want greater than Occupied", relativeLuminance(string(palette.OccupiedBg)))
	}
}

func TestColorHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"scale halves", scaleColor("#804020", 0.5, 0), "#402010"},
		{"scale respects floor", scaleColor("#100000", 0.5, 30), "#1e1e1e"},
		{"blend midpoint", blendColors("#000000", "#ffffff", 0.5), "#7f7f7f"},
		{"blend clamps ratio", blendColors("#000000", "#ffffff", 2), "#ffffff"},
		{"invalid passes through", scaleColor("red", 0.5, 0), "red"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestChooseTextColorPrefersContrast(t *testing.T) {
	if got := chooseTextColor("#f0f0f0", "#ffffff", "#111111"); got != "#111111" {
		t.Errorf("chooseTextColor on light bg = %q, want dark text", got)
	}
	if got := chooseTextColor("#101010", "#ffffff", "#111111"); got != "#ffffff" {
		t.Errorf("chooseTextColor on dark bg = %q, want light text", got)
	}
}
