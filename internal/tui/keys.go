package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/scheduler"
	"github.com/javiermolinar/courtdesk/internal/slot"
	"github.com/javiermolinar/courtdesk/internal/timeline"
	"github.com/javiermolinar/courtdesk/internal/tui/commands"
	"github.com/javiermolinar/courtdesk/internal/tui/input"
	"github.com/javiermolinar/courtdesk/internal/tui/theme"
)

var errNoBookingAtCursor = errors.New("no booking under the cursor")

// freeJump is the length of the opening "f" looks for.
const freeJump = time.Hour

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.log.WithField("key", msg.String()).Debug("key")

	// Global keys (work in all modes)
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case ModePrompt:
		return m.handlePromptKeys(msg)
	case ModeMove:
		return m.handleMoveKeys(msg)
	case ModeModal:
		return m.handleModalKeys(msg)
	default:
		return m.handleNormalKeys(msg)
	}
}

// moveCursor handles navigation keys shared by normal and move mode.
func (m *Model) moveCursor(key string) bool {
	switch key {
	case "left", "h":
		m.cursor.Col--
	case "right", "l":
		m.cursor.Col++
	case "up", "k":
		m.cursor.Row--
	case "down", "j":
		m.cursor.Row++
	case "home", "0":
		m.cursor.Col = 0
	case "end", "$":
		m.cursor.Col = slot.ColumnsPerDay - 1
	case "w":
		// next span start in this row
		g := m.desk.Grid()
		for col := m.cursor.Col + 1; col < slot.ColumnsPerDay; col++ {
			if g.IsSpanStart(grid.Pos{Row: m.cursor.Row, Col: col}) {
				m.cursor.Col = col
				break
			}
		}
	default:
		return false
	}
	m.clampCursor()
	return true
}

// handleNormalKeys handles keys in normal mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.moveCursor(key) {
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit

	case " ", "space":
		if m.desk.Grid().Valid(m.cursor) {
			m.desk.Click(m.cursor)
		}
	case "esc":
		m.desk.ClearSelection()

	// Commands
	case "b":
		if !m.hasAction(grid.ActionBook) {
			return m.setError(fmt.Errorf("cannot book %s", m.desk.SelectionLabel()))
		}
		return m.openPrompt(promptTitle, "", "Game title")
	case "x":
		m.loading = true
		return m, commands.Block(m.desk)
	case "u":
		m.loading = true
		if m.hasAction(grid.ActionUnblock) {
			return m, commands.Unblock(m.desk)
		}
		return m, commands.Unbook(m.desk)
	case "f":
		return m.jumpToFree()
	case "m":
		span, ok := m.desk.Grid().SpanAt(m.cursor)
		if !ok || !span.State.IsExisting() {
			return m.setError(errors.New("nothing to move under the cursor"))
		}
		m.moveSrc = grid.Pos{Row: span.Row, Col: span.StartCol}
		m.mode = ModeMove
		return m.showStatus("Move: pick a start cell and press enter", false)
	case "enter", "d":
		return m.openDetails()
	case "a":
		id, ok := m.bookingAtCursor()
		if !ok {
			return m.setError(errNoBookingAtCursor)
		}
		m.detailBooking = id
		return m.openPrompt(promptComment, "", "Comment (optional)")

	// Navigation between days and filters
	case "n", "]":
		return m.shiftDay(1)
	case "p", "[":
		return m.shiftDay(-1)
	case "t":
		return m.gotoDay(m.now())
	case "c":
		return m.cycleCategory()
	case "r":
		m.loading = true
		return m, commands.Refresh(m.desk, m.loader)
	case "y":
		label := m.desk.SelectionLabel()
		if err := clipboard.WriteAll(label); err != nil {
			return m.setError(fmt.Errorf("copying selection: %w", err))
		}
		return m.showStatus("Copied "+label, false)

	case ":", "/":
		return m.openPrompt(promptCommand, "/", "/date tomorrow")
	case "?":
		m.mode = ModeModal
		m.modalType = ModalHelp
	}
	return m, nil
}

// handleMoveKeys handles keys while choosing a move destination.
func (m Model) handleMoveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.moveCursor(key) {
		return m, nil
	}
	switch key {
	case "esc", "q":
		m.mode = ModeNormal
		return m.showStatus("Move cancelled", false)
	case "enter", " ", "space":
		if m.cursor == m.moveSrc {
			m.mode = ModeNormal
			return m, nil
		}
		m.loading = true
		return m, commands.Move(m.desk, m.moveSrc, m.cursor)
	}
	return m, nil
}

// handleModalKeys handles keys while a modal is open.
func (m Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modalType {
	case ModalDetails:
		switch msg.String() {
		case "a":
			m = m.closeModal()
			return m.openPrompt(promptComment, "", "Comment (optional)")
		case "esc", "enter", "d", "q":
			return m.closeModal(), nil
		}
	default:
		return m.closeModal(), nil
	}
	return m, nil
}

func (m Model) closeModal() Model {
	if m.modalType == ModalDetails && m.poller != nil {
		m.poller.Resume()
	}
	m.mode = ModeNormal
	m.modalType = ModalNone
	return m
}

// handlePromptKeys handles keys in prompt mode.
func (m Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.prompt.Blur()
		m.prompt.SetValue("")
		return m, nil
	case "tab":
		if m.promptKind == promptCommand {
			if value, ok := input.PromptAutocomplete(m.prompt.Value(), input.Commands); ok {
				m.prompt.SetValue(value)
				m.prompt.CursorEnd()
			}
		}
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.prompt.Value())
		m.mode = ModeNormal
		m.prompt.Blur()
		m.prompt.SetValue("")
		return m.submitPrompt(value)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) openPrompt(kind promptKind, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = ModePrompt
	m.promptKind = kind
	m.prompt.Placeholder = placeholder
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	return m, m.prompt.Focus()
}

func (m Model) submitPrompt(value string) (tea.Model, tea.Cmd) {
	switch m.promptKind {
	case promptTitle:
		m.loading = true
		return m, commands.Book(m.desk, m.bookRequest(value))
	case promptComment:
		return m, commands.MarkHandled(m.hub, m.detailBooking, value)
	}

	parsed, ok := input.Parse(value)
	if !ok {
		return m.setError(fmt.Errorf("commands start with /, got %q", value))
	}
	switch parsed.Name {
	case "/date":
		day, err := dateutil.ParseDay(parsed.Args, m.now().In(m.loader.Location()))
		if err != nil {
			return m.setError(err)
		}
		return m.gotoDay(day)
	case "/category":
		if parsed.Args != "" && !slices.Contains(m.categories, parsed.Args) {
			return m.setError(fmt.Errorf("unknown category %q", parsed.Args))
		}
		return m.setCategory(parsed.Args)
	case "/book":
		if !m.hasAction(grid.ActionBook) {
			return m.setError(fmt.Errorf("cannot book %s", m.desk.SelectionLabel()))
		}
		m.loading = true
		return m, commands.Book(m.desk, m.bookRequest(parsed.Args))
	case "/handle":
		id, ok := m.bookingAtCursor()
		if !ok {
			return m.setError(errNoBookingAtCursor)
		}
		return m, commands.MarkHandled(m.hub, id, parsed.Args)
	case "/theme":
		if !theme.IsAvailable(parsed.Args) {
			return m.setError(fmt.Errorf("unknown theme %q (have %s)", parsed.Args, strings.Join(theme.Available(), ", ")))
		}
		t, err := theme.Load(parsed.Args)
		if err != nil {
			return m.setError(err)
		}
		m.theme = t
		m.styles = NewStyles(t)
		return m.showStatus("Theme "+t.Name, false)
	}
	return m.setError(fmt.Errorf("unknown command %s", parsed.Name))
}

func (m Model) openDetails() (tea.Model, tea.Cmd) {
	id, ok := m.bookingAtCursor()
	if !ok {
		return m.setError(errNoBookingAtCursor)
	}
	m.detailBooking = id
	m.mode = ModeModal
	m.modalType = ModalDetails
	if m.poller != nil {
		m.poller.Suspend()
	}
	return m, nil
}

func (m Model) shiftDay(days int) (tea.Model, tea.Cmd) {
	return m.gotoDay(m.desk.Query().Date.AddDate(0, 0, days))
}

func (m Model) gotoDay(day time.Time) (tea.Model, tea.Cmd) {
	q := m.desk.Query()
	q.Date = day
	return m.switchQuery(q)
}

func (m Model) cycleCategory() (tea.Model, tea.Cmd) {
	current := m.desk.Query().Category
	i := slices.Index(m.categories, current)
	next := m.categories[(i+1)%len(m.categories)]
	return m.setCategory(next)
}

func (m Model) setCategory(category string) (tea.Model, tea.Cmd) {
	q := m.desk.Query()
	q.Category = category
	m.cursor.Row = 0
	return m.switchQuery(q)
}

// switchQuery changes day or filter: the hub's rooms belong to the old
// bookings, so polling restarts from scratch.
func (m Model) switchQuery(q timeline.Query) (tea.Model, tea.Cmd) {
	if q.Same(m.desk.Query()) {
		return m, nil
	}
	if m.poller != nil {
		m.poller.Invalidate()
	}
	if m.hub != nil {
		m.hub.Reset()
	}
	m.unread = map[string]bool{}
	m.desk.SetQuery(q)
	m.loading = true
	return m, commands.Refresh(m.desk, m.loader)
}

// bookRequest books under the active filter, or under the selected court's
// first category when every court is shown.
func (m Model) bookRequest(title string) timeline.BookRequest {
	req := timeline.BookRequest{Title: title, Category: m.desk.Query().Category}
	if req.Category != "" {
		return req
	}
	g := m.desk.Grid()
	if row, _, _, ok := grid.Bounds(m.desk.Selection()); ok {
		if res, ok := g.Resource(row); ok && len(res.AllowedCategories) > 0 {
			req.Category = res.AllowedCategories[0]
		}
	}
	return req
}

func (m Model) hasAction(a grid.Action) bool {
	return slices.Contains(m.desk.Actions(), a)
}

// bookingAtCursor returns the booking under the cursor, or the single
// booking of the selection.
func (m Model) bookingAtCursor() (string, bool) {
	g := m.desk.Grid()
	if g.Valid(m.cursor) {
		if id := g.Cell(m.cursor).BookingID; id != "" {
			return id, true
		}
	}
	ids, _ := grid.SelectedOwners(g, m.desk.Selection())
	if len(ids) == 1 {
		return ids[0], true
	}
	return "", false
}

// jumpToFree moves the cursor to the start of the next opening of at least
// freeJump, in (column, court) order after the cursor.
func (m Model) jumpToFree() (tea.Model, tea.Cmd) {
	g := m.desk.Grid()
	s := scheduler.New(m.now)
	for _, o := range s.Openings(g, freeJump, s.EarliestColumn(g.Date())) {
		if o.StartCol > m.cursor.Col || (o.StartCol == m.cursor.Col && o.Row > m.cursor.Row) {
			m.cursor = grid.Pos{Row: o.Row, Col: o.StartCol}
			m.clampCursor()
			return m.showStatus(fmt.Sprintf("Free: %s %s", o.Name, o.Interval), false)
		}
	}
	return m.setError(errors.New("no free hour left on this day"))
}

// clampCursor keeps the cursor on the grid and in view.
func (m *Model) clampCursor() {
	rows := m.desk.Grid().NumRows()
	m.cursor.Row = max(0, min(m.cursor.Row, rows-1))
	m.cursor.Col = max(0, min(m.cursor.Col, slot.ColumnsPerDay-1))
	m.scrollToCursor()
}

func (m *Model) scrollToCursor() {
	visible := m.visibleColumns()
	if visible <= 0 {
		return
	}
	if m.cursor.Col < m.colOffset {
		m.colOffset = m.cursor.Col
	}
	if m.cursor.Col >= m.colOffset+visible {
		m.colOffset = m.cursor.Col - visible + 1
	}
	m.colOffset = max(0, min(m.colOffset, slot.ColumnsPerDay-visible))
}
