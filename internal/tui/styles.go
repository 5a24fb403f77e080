// Package tui provides the terminal user interface for courtdesk.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/tui/theme"
	"github.com/javiermolinar/courtdesk/internal/tui/view"
)

const (
	cellWidth      = 3  // terminal columns per 30-minute cell
	courtColWidth  = 16 // court name gutter
	minCourtColumn = 8
)

// Styles holds all lipgloss styles for the TUI, derived from a theme.
type Styles struct {
	palette *theme.Palette

	AppStyle    lipgloss.Style
	TitleStyle  lipgloss.Style
	HeaderStyle lipgloss.Style
	HourStyle   lipgloss.Style
	CourtStyle  lipgloss.Style
	MutedStyle  lipgloss.Style

	// Cells, indexed by grid.CellState.
	cells    map[grid.CellState]lipgloss.Style
	cellsAlt map[grid.CellState]lipgloss.Style

	CursorStyle      lipgloss.Style
	MoveTargetStyle  lipgloss.Style
	UnreadBadgeStyle lipgloss.Style

	StatusStyle      lipgloss.Style
	StatusErrorStyle lipgloss.Style
	HelpStyle        lipgloss.Style
	PromptStyle      lipgloss.Style
	ActionStyle      lipgloss.Style

	ModalBackdropColor lipgloss.Color
	Modal              view.ModalStyles
	ModalLabelStyle    lipgloss.Style
	ModalValueStyle    lipgloss.Style
	ModalInputText     lipgloss.Style
	ModalInputCursor   lipgloss.Style
	ModalPlaceholder   lipgloss.Style
}

// NewStyles builds styles from t.
func NewStyles(t *theme.Theme) *Styles {
	p := theme.NewPalette(t)
	base := lipgloss.NewStyle().Background(p.Bg).Foreground(p.Fg)

	cell := func(bg, fg lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Background(bg).Foreground(fg)
	}

	s := &Styles{
		palette:     p,
		AppStyle:    base,
		TitleStyle:  base.Foreground(p.Accent).Bold(true),
		HeaderStyle: lipgloss.NewStyle().Background(p.BgHighlight).Foreground(p.Fg),
		HourStyle:   lipgloss.NewStyle().Background(p.BgHighlight).Foreground(p.FgMuted),
		CourtStyle:  base.Bold(true),
		MutedStyle:  base.Foreground(p.FgMuted),

		cells: map[grid.CellState]lipgloss.Style{
			grid.Available: cell(p.AvailableBg, p.FgMuted),
			grid.Selected:  cell(p.SelectedBg, p.TextOnSelected).Bold(true),
			grid.Occupied:  cell(p.OccupiedBg, p.TextOnOccupied),
			grid.Blocked:   cell(p.BlockedBg, p.TextOnBlocked),
			grid.Unblock:   cell(p.UnblockBg, p.Fg),
			grid.Unbook:    cell(p.UnbookBg, p.Fg),
			grid.Cancelled: cell(p.CancelledBg, p.Fg).Strikethrough(true),
		},
		cellsAlt: map[grid.CellState]lipgloss.Style{
			grid.Available: cell(p.AvailableBgAlt, p.FgMuted),
			grid.Occupied:  cell(p.OccupiedBgAlt, p.TextOnOccupied),
		},

		CursorStyle:      lipgloss.NewStyle().Background(p.BgSelection).Foreground(p.Accent).Bold(true),
		MoveTargetStyle:  lipgloss.NewStyle().Background(p.Warning).Foreground(p.TextOnWarning).Bold(true),
		UnreadBadgeStyle: lipgloss.NewStyle().Background(p.Unread).Foreground(p.Bg).Bold(true),

		StatusStyle:      base.Foreground(p.Accent),
		StatusErrorStyle: base.Foreground(p.Warning).Bold(true),
		HelpStyle:        base.Foreground(p.FgMuted),
		PromptStyle:      base.Foreground(p.Fg),
		ActionStyle:      lipgloss.NewStyle().Background(p.Accent).Foreground(p.TextOnAccent).Padding(0, 1),

		ModalBackdropColor: p.Modal.Backdrop,
		ModalLabelStyle:    lipgloss.NewStyle().Background(p.Modal.Bg).Foreground(p.Modal.Muted),
		ModalValueStyle:    lipgloss.NewStyle().Background(p.Modal.Bg).Foreground(p.Modal.Text),
		ModalInputText:     lipgloss.NewStyle().Foreground(p.Modal.Text),
		ModalInputCursor:   lipgloss.NewStyle().Foreground(p.Modal.Accent),
		ModalPlaceholder:   lipgloss.NewStyle().Foreground(p.Modal.Muted),
	}

	modalBody := lipgloss.NewStyle().Background(p.Modal.Bg).Foreground(p.Modal.Text)
	s.Modal = view.ModalStyles{
		Frame: modalBody.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Modal.Border).
			BorderBackground(p.Modal.Bg).
			Padding(1, 2),
		Title:        modalBody.Foreground(p.Modal.Accent).Bold(true),
		Body:         modalBody,
		Footer:       modalBody.Foreground(p.Modal.Muted),
		Button:       modalBody.Foreground(p.Modal.Muted).Padding(0, 1),
		ActiveButton: lipgloss.NewStyle().Background(p.Accent).Foreground(p.TextOnAccent).Padding(0, 1),
	}
	return s
}

// Cell returns the style for a cell in state. alt picks the alternate shade
// used to tell adjacent bookings and hours apart.
func (s *Styles) Cell(state grid.CellState, alt bool) lipgloss.Style {
	if alt {
		if st, ok := s.cellsAlt[state]; ok {
			return st
		}
	}
	if st, ok := s.cells[state]; ok {
		return st
	}
	return s.cells[grid.Available]
}
