package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/slot"
	"github.com/javiermolinar/courtdesk/internal/tui/view"
)

const (
	headerLines = 2 // title, hour ruler
	footerLines = 4 // actions, toasts, status or prompt, help
)

var helpRows = []view.KeyHelp{
	{Keys: "←↓↑→ hjkl", Desc: "move cursor"},
	{Keys: "0 $ w", Desc: "first, last, next record"},
	{Keys: "f", Desc: "next free hour"},
	{Keys: "space", Desc: "select or deselect cell"},
	{Keys: "esc", Desc: "clear selection"},
	{Keys: "b", Desc: "book selection"},
	{Keys: "x", Desc: "block selection"},
	{Keys: "u", Desc: "unblock or cancel selection"},
	{Keys: "m", Desc: "move record under cursor"},
	{Keys: "enter d", Desc: "booking details"},
	{Keys: "a", Desc: "mark messages handled"},
	{Keys: "n p t", Desc: "next, previous day, today"},
	{Keys: "c", Desc: "cycle category"},
	{Keys: "r", Desc: "refresh"},
	{Keys: "y", Desc: "copy selection"},
	{Keys: "/", Desc: "command prompt"},
	{Keys: "q", Desc: "quit"},
}

// modalMaxWidth caps detail values such as long room lists.
const modalMaxWidth = 60

// View renders the TUI.
func (m Model) View() string {
	frame := view.Frame{
		Width:   m.width,
		Height:  m.height,
		Base:    m.renderBase(),
		Overlay: newOverlay(m.styles.ModalBackdropColor),
	}
	if m.mode == ModeModal {
		frame.Modal = m.renderModal()
	}
	return view.Render(frame)
}

func (m Model) renderBase() string {
	if m.width < courtColWidth+minCourtColumn*cellWidth || m.height < headerLines+footerLines+1 {
		return "Terminal too small"
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderRuler())
	b.WriteString("\n")
	for _, line := range m.renderRows() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return view.PadLinesWithBackground(b.String(), m.width, m.height, m.styles.palette.Bg)
}

// visibleColumns is how many half-hour columns fit next to the court names.
func (m Model) visibleColumns() int {
	if m.width == 0 {
		return slot.ColumnsPerDay
	}
	return max(1, min(slot.ColumnsPerDay, (m.width-courtColWidth)/cellWidth))
}

func (m Model) visibleRows() int {
	return max(1, m.height-headerLines-footerLines)
}

func (m Model) renderHeader() string {
	q := m.desk.Query()
	category := q.Category
	if category == "" {
		category = "all courts"
	}
	parts := []string{
		m.styles.TitleStyle.Render(q.VenueID),
		m.styles.AppStyle.Render(dateutil.FormatDay(q.Date)),
		m.styles.MutedStyle.Render("[" + category + "]"),
	}
	count := 0
	for _, unread := range m.unread {
		if unread {
			count++
		}
	}
	if count > 0 {
		parts = append(parts, m.styles.UnreadBadgeStyle.Render(fmt.Sprintf(" %d unread ", count)))
	}
	if m.loading {
		parts = append(parts, m.styles.MutedStyle.Render("loading…"))
	}
	return strings.Join(parts, m.styles.AppStyle.Render("  "))
}

// renderRuler labels every full hour in view.
func (m Model) renderRuler() string {
	var b strings.Builder
	b.WriteString(m.styles.HourStyle.Render(strings.Repeat(" ", courtColWidth)))
	last := m.colOffset + m.visibleColumns()
	for col := m.colOffset; col < last; col++ {
		label := ""
		if col%2 == 0 {
			label = slot.ColumnLabel(col)
		}
		if col%2 == 0 && col+1 < last {
			b.WriteString(m.styles.HourStyle.Render(view.FitWidth(label, 2*cellWidth, "")))
			col++
			continue
		}
		b.WriteString(m.styles.HourStyle.Render(view.FitWidth(label, cellWidth, "")))
	}
	return b.String()
}

func (m Model) renderRows() []string {
	g := m.desk.Grid()
	if g.NumRows() == 0 {
		msg := "No courts"
		if m.loading {
			msg = "Loading courts…"
		}
		return []string{m.styles.MutedStyle.Render(msg)}
	}

	visible := m.visibleRows()
	first := max(0, m.cursor.Row-visible+1)
	last := min(g.NumRows(), first+visible)

	lines := make([]string, 0, last-first)
	for row := first; row < last; row++ {
		lines = append(lines, m.renderRow(g, row))
	}
	return lines
}

func (m Model) renderRow(g *grid.Grid, row int) string {
	var b strings.Builder
	res, _ := g.Resource(row)
	name := res.Name
	if name == "" {
		name = res.ID
	}
	b.WriteString(m.styles.CourtStyle.Render(view.FitWidth(name, courtColWidth-1, "…") + " "))

	labels := m.rowLabels(g, row)
	last := m.colOffset + m.visibleColumns()
	for col := m.colOffset; col < last; col++ {
		pos := grid.Pos{Row: row, Col: col}
		text := view.FitWidth(ansi.Cut(labels.text, col*cellWidth, (col+1)*cellWidth), cellWidth, "")
		b.WriteString(m.cellStyle(g, pos, labels.alt[col]).Render(text))
	}
	return b.String()
}

type rowLabels struct {
	text string // cellWidth characters per column
	alt  [slot.ColumnsPerDay]bool
}

// rowLabels lays out record titles across their spans. Every other span in
// a row uses the alternate shade so adjacent records stay distinct, and
// free time alternates by hour.
func (m Model) rowLabels(g *grid.Grid, row int) rowLabels {
	var out rowLabels
	text := []rune(strings.Repeat(" ", slot.ColumnsPerDay*cellWidth))
	for col := range slot.ColumnsPerDay {
		out.alt[col] = (col/2)%2 == 1
	}

	nth := 0
	for _, span := range g.Spans() {
		if span.Row != row || !span.State.IsExisting() {
			continue
		}
		label := "blocked"
		if span.BookingID != "" {
			label = m.bookingLabel(g, span.BookingID)
		}
		runes := []rune(label)
		width := span.Len() * cellWidth
		for i := 0; i < width-1 && i < len(runes); i++ {
			text[span.StartCol*cellWidth+1+i] = runes[i]
		}
		for col := span.StartCol; col <= span.EndCol; col++ {
			out.alt[col] = nth%2 == 1
		}
		nth++
	}
	out.text = string(text)
	return out
}

func (m Model) bookingLabel(g *grid.Grid, id string) string {
	b, ok := g.Booking(id)
	if !ok {
		return ""
	}
	label := b.Title
	if label == "" && b.Kind == booking.KindBooking {
		label = "walk-in"
	}
	if m.unread[id] {
		label = "● " + label
	}
	return label
}

func (m Model) cellStyle(g *grid.Grid, pos grid.Pos, alt bool) lipgloss.Style {
	if pos == m.cursor {
		return m.styles.CursorStyle
	}
	if m.mode == ModeMove && m.inMoveTarget(g, pos) {
		return m.styles.MoveTargetStyle
	}
	if id := g.Cell(pos).BookingID; id != "" && m.unread[id] && g.IsSpanStart(pos) {
		return m.styles.UnreadBadgeStyle
	}
	return m.styles.Cell(m.desk.Display(pos), alt)
}

// inMoveTarget reports whether pos falls where the record being moved
// would land if the cursor were confirmed.
func (m Model) inMoveTarget(g *grid.Grid, pos grid.Pos) bool {
	src, ok := g.SpanAt(m.moveSrc)
	if !ok || pos.Row != m.cursor.Row {
		return false
	}
	return pos.Col >= m.cursor.Col && pos.Col < m.cursor.Col+src.Len()
}

func (m Model) renderFooter() string {
	lines := []string{m.renderActions(), m.renderToasts()}
	switch {
	case m.mode == ModePrompt:
		lines = append(lines, m.styles.PromptStyle.Render(m.prompt.View()))
	case !m.statusExpired() && m.statusErr:
		lines = append(lines, m.styles.StatusErrorStyle.Render(m.statusMsg))
	case !m.statusExpired():
		lines = append(lines, m.styles.StatusStyle.Render(m.statusMsg))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, m.renderHelp())

	for i, line := range lines {
		lines[i] = ansi.Truncate(line, m.width, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderActions() string {
	if m.mode == ModeMove {
		return m.styles.ActionStyle.Render("MOVE") + m.styles.MutedStyle.Render(" enter to place, esc to cancel")
	}
	actions := m.desk.Actions()
	parts := make([]string, 0, len(actions)+1)
	for _, a := range actions {
		parts = append(parts, m.styles.ActionStyle.Render(a.String()))
	}
	parts = append(parts, m.styles.MutedStyle.Render(m.desk.SelectionLabel()))
	return strings.Join(parts, m.styles.AppStyle.Render(" "))
}

func (m Model) renderToasts() string {
	if len(m.recentToasts) == 0 {
		return ""
	}
	t := m.recentToasts[len(m.recentToasts)-1]
	return m.styles.MutedStyle.Render(t.At.Format("15:04:05") + " " + t.Message)
}

func (m Model) renderHelp() string {
	switch m.mode {
	case ModePrompt:
		return m.styles.HelpStyle.Render("enter submit · tab complete · esc cancel")
	case ModeMove:
		return m.styles.HelpStyle.Render("hjkl move · enter place · esc cancel")
	}
	return m.styles.HelpStyle.Render("space select · b book · x block · u unblock/cancel · m move · d details · / command · ? help · q quit")
}

func (m Model) renderModal() string {
	fields := view.FieldStyles{LabelStyle: m.styles.ModalLabelStyle, ValueStyle: m.styles.ModalValueStyle}
	switch m.modalType {
	case ModalDetails:
		// Point at "handled" only when there is something to handle.
		active := 1
		if m.unread[m.detailBooking] {
			active = 0
		}
		return view.Modal{
			Title:    "Booking",
			Body:     view.RenderFields(m.detailFields(), fields),
			Footer:   view.RenderButtons(m.styles.Modal, active, "[a] Handled", "[Esc] Close"),
			MaxWidth: modalMaxWidth,
		}.Render(m.styles.Modal)
	case ModalHelp:
		return view.Modal{
			Title:  "Keys",
			Body:   view.RenderKeyHelp(helpRows, fields),
			Footer: "any key to close",
		}.Render(m.styles.Modal)
	}
	return ""
}

func (m Model) detailFields() []view.Field {
	g := m.desk.Grid()
	b, ok := g.Booking(m.detailBooking)
	if !ok {
		return []view.Field{{Label: "Booking", Value: m.detailBooking + " (no longer on this day)"}}
	}
	court := b.ResourceID
	if row := g.RowOf(b.ResourceID); row >= 0 {
		if res, ok := g.Resource(row); ok && res.Name != "" {
			court = res.Name
		}
	}
	day := g.Date()
	when := slot.FormatClock(b.Interval.Start.In(day.Location())) + " - " + slot.FormatClock(b.Interval.End.In(day.Location()))

	unread := "no"
	if m.unread[b.ID] {
		unread = "yes"
	}
	rooms := ""
	if m.hub != nil {
		rooms = strings.Join(m.hub.Rooms(b.ID), ", ")
	}
	return []view.Field{
		{Label: "Title", Value: b.Title},
		{Label: "Kind", Value: string(b.Kind)},
		{Label: "Status", Value: string(b.Status)},
		{Label: "Category", Value: b.Category},
		{Label: "Court", Value: court},
		{Label: "Time", Value: when},
		{Label: "Rooms", Value: rooms},
		{Label: "Unread", Value: unread},
		{Label: "ID", Value: b.ID},
	}
}
