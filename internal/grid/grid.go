// Package grid holds the court timeline: one row per court, one column per
// half hour, and the selection rules that operate on it.
package grid

import (
	"errors"
	"strings"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Grid errors.
var (
	ErrInvalidPosition = errors.New("invalid cell position")
	ErrNothingToMove   = errors.New("no booking or block at source cell")
	ErrTargetOccupied  = errors.New("target cell is already occupied or blocked")
	ErrSpanOverflow    = errors.New("move would run past the end of the day")
)

// Pos addresses a cell.
type Pos struct {
	Row int
	Col int
}

// Cell is one (court, column) unit of the grid.
type Cell struct {
	State     CellState
	BookingID string // set when State is Occupied
	SlotID    string // set when State is Blocked
}

// ID returns the id of the record owning the cell, if any.
func (c Cell) ID() string {
	if c.BookingID != "" {
		return c.BookingID
	}
	return c.SlotID
}

// Row is one court's line of cells.
type Row struct {
	Resource booking.Resource
	Cells    [slot.ColumnsPerDay]Cell
}

// Span is a maximal run of cells in one row owned by the same record.
// EndCol is inclusive.
type Span struct {
	Row       int
	StartCol  int
	EndCol    int
	State     CellState
	BookingID string
	SlotID    string
}

// Len returns the number of columns in the span.
func (s Span) Len() int {
	return s.EndCol - s.StartCol + 1
}

// Contains reports whether pos lies inside the span.
func (s Span) Contains(pos Pos) bool {
	return pos.Row == s.Row && pos.Col >= s.StartCol && pos.Col <= s.EndCol
}

// Grid is an immutable day timeline. Every mutation returns a new grid.
type Grid struct {
	date     time.Time // midnight of the displayed day
	rows     []Row
	bookings map[string]booking.Booking
	spans    []Span
}

// Empty returns a grid with no rows for date.
func Empty(date time.Time) *Grid {
	return &Grid{date: slot.StartOfDay(date), bookings: map[string]booking.Booking{}}
}

// Date returns midnight of the displayed day.
func (g *Grid) Date() time.Time {
	return g.date
}

// Location returns the fixed zone the grid was built in.
func (g *Grid) Location() *time.Location {
	return g.date.Location()
}

// NumRows returns the number of courts.
func (g *Grid) NumRows() int {
	return len(g.rows)
}

// Rows returns a copy of the rows.
func (g *Grid) Rows() []Row {
	out := make([]Row, len(g.rows))
	copy(out, g.rows)
	return out
}

// Resource returns the court of a row.
func (g *Grid) Resource(row int) (booking.Resource, bool) {
	if row < 0 || row >= len(g.rows) {
		return booking.Resource{}, false
	}
	return g.rows[row].Resource, true
}

// RowOf returns the row index of a court, or -1.
func (g *Grid) RowOf(resourceID string) int {
	for i, r := range g.rows {
		if r.Resource.ID == resourceID {
			return i
		}
	}
	return -1
}

// Valid reports whether pos lies inside the grid.
func (g *Grid) Valid(pos Pos) bool {
	return pos.Row >= 0 && pos.Row < len(g.rows) && pos.Col >= 0 && pos.Col < slot.ColumnsPerDay
}

// Cell returns the cell at pos, or a zero cell when out of bounds.
func (g *Grid) Cell(pos Pos) Cell {
	if !g.Valid(pos) {
		return Cell{}
	}
	return g.rows[pos.Row].Cells[pos.Col]
}

// State returns the stored state at pos.
func (g *Grid) State(pos Pos) CellState {
	return g.Cell(pos).State
}

// Booking returns the booking record displayed in the grid.
func (g *Grid) Booking(id string) (booking.Booking, bool) {
	b, ok := g.bookings[id]
	return b, ok
}

// ColumnRange returns the time range of a column on the grid's day.
func (g *Grid) ColumnRange(col int) (slot.Interval, error) {
	return slot.ColumnRange(g.date, col)
}

// Spans returns all spans, ordered by row then start column.
func (g *Grid) Spans() []Span {
	out := make([]Span, len(g.spans))
	copy(out, g.spans)
	return out
}

// BookingSpans returns the spans of occupied cells.
func (g *Grid) BookingSpans() []Span {
	var out []Span
	for _, s := range g.spans {
		if s.State == Occupied {
			out = append(out, s)
		}
	}
	return out
}

// SpanAt returns the span containing pos.
func (g *Grid) SpanAt(pos Pos) (Span, bool) {
	for _, s := range g.spans {
		if s.Contains(pos) {
			return s, true
		}
	}
	return Span{}, false
}

// IsSpanStart reports whether pos is the first column of a booking span.
// Unread indicators anchor there.
func (g *Grid) IsSpanStart(pos Pos) bool {
	s, ok := g.SpanAt(pos)
	return ok && s.State == Occupied && s.StartCol == pos.Col
}

// clone creates a copy that can be mutated safely.
func (g *Grid) clone() *Grid {
	rows := make([]Row, len(g.rows))
	copy(rows, g.rows) // Row holds an array, so cells are copied too
	bookings := make(map[string]booking.Booking, len(g.bookings))
	for k, v := range g.bookings {
		bookings[k] = v
	}
	return &Grid{date: g.date, rows: rows, bookings: bookings}
}

// deriveSpans rebuilds the span index by scanning each row left to right and
// merging consecutive columns owned by the same record.
func (g *Grid) deriveSpans() {
	g.spans = g.spans[:0]
	for r := range g.rows {
		cells := &g.rows[r].Cells
		for c := 0; c < slot.ColumnsPerDay; {
			cell := cells[c]
			if !cell.State.IsExisting() {
				c++
				continue
			}
			end := c
			for end+1 < slot.ColumnsPerDay && sameOwner(cells[end+1], cell) {
				end++
			}
			g.spans = append(g.spans, Span{
				Row:       r,
				StartCol:  c,
				EndCol:    end,
				State:     cell.State,
				BookingID: cell.BookingID,
				SlotID:    cell.SlotID,
			})
			c = end + 1
		}
	}
}

func sameOwner(a, b Cell) bool {
	return a.State == b.State && a.BookingID == b.BookingID && a.SlotID == b.SlotID
}

// MoveSpan returns a grid where the span at src starts at dst instead.
// Cells left behind become available. The target range may overlap the span
// itself but no other existing record.
func (g *Grid) MoveSpan(src, dst Pos) (*Grid, error) {
	if !g.Valid(src) || !g.Valid(dst) {
		return nil, ErrInvalidPosition
	}
	span, ok := g.SpanAt(src)
	if !ok {
		return nil, ErrNothingToMove
	}
	n := span.Len()
	if dst.Col+n > slot.ColumnsPerDay {
		return nil, ErrSpanOverflow
	}
	for c := dst.Col; c < dst.Col+n; c++ {
		target := Pos{Row: dst.Row, Col: c}
		if span.Contains(target) {
			continue
		}
		if g.State(target).IsExisting() {
			return nil, ErrTargetOccupied
		}
	}

	owner := g.Cell(Pos{Row: span.Row, Col: span.StartCol})
	next := g.clone()
	for c := span.StartCol; c <= span.EndCol; c++ {
		next.rows[span.Row].Cells[c] = Cell{State: Available}
	}
	for c := dst.Col; c < dst.Col+n; c++ {
		next.rows[dst.Row].Cells[c] = owner
	}
	if b, ok := next.bookings[owner.BookingID]; ok {
		if iv, err := slot.ColumnRange(next.date, dst.Col); err == nil {
			b.Interval = b.Interval.Shift(iv.Start)
			b.ResourceID = next.rows[dst.Row].Resource.ID
			next.bookings[owner.BookingID] = b
		}
	}
	next.deriveSpans()
	return next, nil
}

// MarkApplied returns a grid where every selected cell shows state.
// Used to reflect a completed command until the next refresh replaces the grid.
func (g *Grid) MarkApplied(sel Selection, state CellState) *Grid {
	next := g.clone()
	for _, pos := range sel.Positions() {
		if !next.Valid(pos) {
			continue
		}
		next.rows[pos.Row].Cells[pos.Col] = Cell{State: state}
	}
	next.deriveSpans()
	return next
}

// PrintRow renders a row as a compact string for debugging and tests:
// "." available, "#" blocked, "x" terminal states, and booking ids' first
// letter for occupied cells.
func (g *Grid) PrintRow(row int) string {
	if row < 0 || row >= len(g.rows) {
		return ""
	}
	var sb strings.Builder
	for _, cell := range g.rows[row].Cells {
		switch {
		case cell.State == Occupied && cell.BookingID != "":
			sb.WriteByte(cell.BookingID[0])
		case cell.State == Occupied:
			sb.WriteByte('o')
		case cell.State == Blocked:
			sb.WriteByte('#')
		case cell.State.IsTerminal():
			sb.WriteByte('x')
		default:
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
