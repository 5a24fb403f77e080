// Package view provides rendering helpers for the TUI.
package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ModalStyles groups the styles of the booking and help modals.
type ModalStyles struct {
	Frame        lipgloss.Style
	Title        lipgloss.Style
	Body         lipgloss.Style
	Footer       lipgloss.Style
	Button       lipgloss.Style
	ActiveButton lipgloss.Style
}

// Modal is a framed box with a title, a body and an optional footer line.
type Modal struct {
	Title  string
	Body   string
	Footer string
	// MaxWidth truncates body lines wider than it. Zero disables truncation.
	MaxWidth int
}

// Render frames the modal.
func (m Modal) Render(styles ModalStyles) string {
	parts := []string{styles.Body.Render(styles.Title.Render(m.Title))}
	if m.Body != "" {
		body := m.Body
		if m.MaxWidth > 0 {
			lines := strings.Split(body, "\n")
			for i, line := range lines {
				lines[i] = ansi.Truncate(line, m.MaxWidth, "…")
			}
			body = strings.Join(lines, "\n")
		}
		parts = append(parts, body)
	}
	if m.Footer != "" {
		parts = append(parts, styles.Footer.Render(m.Footer))
	}
	return styles.Frame.Render(strings.Join(parts, "\n\n"))
}

// RenderButtons renders a row of key buttons. The button at active is
// highlighted; a negative index highlights none.
func RenderButtons(styles ModalStyles, active int, labels ...string) string {
	parts := make([]string, 0, len(labels))
	for i, label := range labels {
		style := styles.Button
		if i == active {
			style = styles.ActiveButton
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, styles.Body.Render(" "))
}
