package theme

import (
	"fmt"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds precomputed colors derived from a Theme.
type Palette struct {
	Bg          lipgloss.Color
	BgHighlight lipgloss.Color
	BgSelection lipgloss.Color
	Fg          lipgloss.Color
	FgMuted     lipgloss.Color
	Accent      lipgloss.Color
	Unread      lipgloss.Color
	Warning     lipgloss.Color

	// Cell backgrounds. Occupied spans alternate between two shades so that
	// adjacent bookings stay distinguishable.
	AvailableBg    lipgloss.Color
	AvailableBgAlt lipgloss.Color
	OccupiedBg     lipgloss.Color
	OccupiedBgAlt  lipgloss.Color
	BlockedBg      lipgloss.Color
	SelectedBg     lipgloss.Color
	UnblockBg      lipgloss.Color
	UnbookBg       lipgloss.Color
	CancelledBg    lipgloss.Color

	TextOnOccupied lipgloss.Color
	TextOnBlocked  lipgloss.Color
	TextOnSelected lipgloss.Color
	TextOnAccent   lipgloss.Color
	TextOnWarning  lipgloss.Color

	Modal ModalColors
}

// ModalColors holds modal-specific colors derived from a Theme.
type ModalColors struct {
	Bg       lipgloss.Color
	Border   lipgloss.AdaptiveColor
	Text     lipgloss.AdaptiveColor
	Muted    lipgloss.AdaptiveColor
	Accent   lipgloss.AdaptiveColor
	Backdrop lipgloss.Color
}

// NewPalette derives a Palette from the provided Theme.
func NewPalette(t *Theme) *Palette {
	if t == nil {
		t, _ = Load(DefaultName)
	}

	light := isLightTheme(t.Bg)
	occupied := cellBg(t.Occupied, t.Bg, light)
	blocked := cellBg(t.Blocked, t.Bg, light)
	modal := t.Modal()

	return &Palette{
		Bg:          lipgloss.Color(t.Bg),
		BgHighlight: lipgloss.Color(t.BgHighlight),
		BgSelection: lipgloss.Color(t.BgSelection),
		Fg:          lipgloss.Color(t.Fg),
		FgMuted:     lipgloss.Color(t.FgMuted),
		Accent:      lipgloss.Color(t.Accent),
		Unread:      lipgloss.Color(t.Unread),
		Warning:     lipgloss.Color(t.Warning),

		AvailableBg:    lipgloss.Color(t.Available),
		AvailableBgAlt: lipgloss.Color(alternateShade(t.Available, light, 0.06)),
		OccupiedBg:     lipgloss.Color(occupied),
		OccupiedBgAlt:  lipgloss.Color(alternateShade(occupied, light, 0.25)),
		BlockedBg:      lipgloss.Color(blocked),
		SelectedBg:     lipgloss.Color(t.Selected),
		UnblockBg:      lipgloss.Color(t.Unblock),
		UnbookBg:       lipgloss.Color(t.Unbook),
		CancelledBg:    lipgloss.Color(t.Cancelled),

		TextOnOccupied: lipgloss.Color(chooseTextColor(occupied, t.Bg, t.Fg)),
		TextOnBlocked:  lipgloss.Color(chooseTextColor(blocked, t.Bg, t.Fg)),
		TextOnSelected: lipgloss.Color(chooseTextColor(t.Selected, t.Bg, t.Fg)),
		TextOnAccent:   lipgloss.Color(chooseTextColor(t.Accent, t.Bg, t.Fg)),
		TextOnWarning:  lipgloss.Color(chooseTextColor(t.Warning, t.Bg, t.Fg)),

		Modal: ModalColors{
			Bg:       lipgloss.Color(modal.BaseBg),
			Border:   adaptiveColor(modal.ModalBorder),
			Text:     adaptiveColor(modal.TextPrimary),
			Muted:    adaptiveColor(modal.TextMuted),
			Accent:   adaptiveColor(modal.Highlight),
			Backdrop: lipgloss.Color(coalesce(t.BgSelection, t.BgHighlight, t.Bg)),
		},
	}
}

func isLightTheme(bg string) bool {
	return relativeLuminance(bg) > 0.55
}

// cellBg tones a state color down for use as a cell background: towards the
// base background on light themes, towards black on dark ones.
func cellBg(accent, bg string, light bool) string {
	if light {
		return blendColors(accent, bg, 0.55)
	}
	return scaleColor(accent, 0.7, 36)
}

// alternateShade nudges hex away from the background by ratio.
func alternateShade(hex string, light bool, ratio float64) string {
	if light {
		return blendColors(hex, "#000000", ratio)
	}
	return blendColors(hex, "#ffffff", ratio)
}

type rgb struct{ r, g, b float64 }

func parseColor(hex string) (rgb, bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}, true
}

func (c rgb) hex() string {
	clamp := func(v float64) int {
		return int(math.Max(0, math.Min(255, v)))
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.r), clamp(c.g), clamp(c.b))
}

// scaleColor multiplies each channel by factor, keeping at least floor.
func scaleColor(hex string, factor, floor float64) string {
	c, ok := parseColor(hex)
	if !ok {
		return hex
	}
	scale := func(v float64) float64 { return math.Max(v*factor, floor) }
	return rgb{scale(c.r), scale(c.g), scale(c.b)}.hex()
}

func blendColors(a, b string, ratio float64) string {
	ca, okA := parseColor(a)
	cb, okB := parseColor(b)
	if !okA || !okB {
		return a
	}
	ratio = math.Max(0, math.Min(1, ratio))
	mix := func(x, y float64) float64 { return x*(1-ratio) + y*ratio }
	return rgb{mix(ca.r, cb.r), mix(ca.g, cb.g), mix(ca.b, cb.b)}.hex()
}

func adaptiveColor(hex string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Dark: hex, Light: hex}
}

func chooseTextColor(bg, lightText, darkText string) string {
	if contrastRatio(bg, lightText) >= contrastRatio(bg, darkText) {
		return lightText
	}
	return darkText
}

func contrastRatio(a, b string) float64 {
	l1, l2 := relativeLuminance(a), relativeLuminance(b)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

func relativeLuminance(hex string) float64 {
	c, ok := parseColor(hex)
	if !ok {
		return 0
	}
	return 0.2126*srgbToLinear(c.r) + 0.7152*srgbToLinear(c.g) + 0.0722*srgbToLinear(c.b)
}

func srgbToLinear(c float64) float64 {
	v := c / 255.0
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}
