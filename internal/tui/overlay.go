package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// overlay splices a pre-framed modal over the middle of the grid. Lines of
// the base outside the modal's rectangle are kept as they are.
type overlay struct {
	backdrop lipgloss.Color
}

func newOverlay(backdrop lipgloss.Color) overlay {
	return overlay{backdrop: backdrop}
}

// Render implements view.OverlayRenderer.
func (o overlay) Render(base string, width, height int, content string) string {
	if width <= 0 || height <= 0 || content == "" {
		return base
	}

	box := trimTrailingEmpty(strings.Split(content, "\n"))
	boxW := 0
	for _, line := range box {
		boxW = max(boxW, lipgloss.Width(line))
	}
	boxW = min(boxW, width)
	if len(box) > height {
		box = box[:height]
	}

	top := (height - len(box)) / 2
	left := (width - boxW) / 2
	lines := fitLines(base, width, height)
	fill := lipgloss.NewStyle().Background(o.backdrop)

	for i, line := range box {
		if w := lipgloss.Width(line); w > boxW {
			line = ansi.Truncate(line, boxW, "")
		} else if w < boxW {
			line += fill.Render(strings.Repeat(" ", boxW-w))
		}
		row := top + i
		lines[row] = ansi.Cut(lines[row], 0, left) + line + ansi.Cut(lines[row], left+boxW, width)
	}
	return strings.Join(lines, "\n")
}

// fitLines splits base into exactly height lines, each width cells wide.
func fitLines(base string, width, height int) []string {
	lines := strings.Split(base, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, line := range lines {
		switch w := lipgloss.Width(line); {
		case w > width:
			lines[i] = ansi.Truncate(line, width, "")
		case w < width:
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	return lines
}

func trimTrailingEmpty(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
