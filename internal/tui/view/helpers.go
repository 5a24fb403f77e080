package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// PadLinesWithBackground pads content to width/height with a background color.
func PadLinesWithBackground(content string, width, height int, bg lipgloss.Color) string {
	if width <= 0 || height <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	padding := lipgloss.NewStyle().Background(bg)
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, line := range lines {
		w := lipgloss.Width(line)
		if w >= width {
			continue
		}
		lines[i] = line + padding.Render(strings.Repeat(" ", width-w))
	}
	return strings.Join(lines, "\n")
}

// FitWidth truncates s to width cells, ending with tail when it had to cut,
// and pads it with spaces when shorter.
func FitWidth(s string, width int, tail string) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) > width {
		return ansi.Truncate(s, width, tail)
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}
