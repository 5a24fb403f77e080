package grid

import (
	"cmp"
	"slices"

	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Selection markers returned by FormatSelection.
const (
	InvalidSelection = "invalid selection"
	NoSelection      = "no selection"
)

// SelectionKind says whether a selection is building a new booking or acting
// on existing ones. The two never mix.
type SelectionKind int

const (
	KindNone SelectionKind = iota
	KindBookable
	KindExisting
)

func kindOf(s CellState) SelectionKind {
	if s.IsExisting() {
		return KindExisting
	}
	return KindBookable
}

// Selection is the canonical set of selected cells. It is a value type:
// Toggle returns a new selection and never modifies the receiver.
type Selection struct {
	cells map[Pos]struct{}
	kind  SelectionKind
}

// NewSelection builds a selection from positions, taking the kind from the
// first cell's state in g.
func NewSelection(g *Grid, positions ...Pos) Selection {
	var sel Selection
	for _, p := range positions {
		if !sel.Contains(p) {
			sel = Toggle(g, sel, p)
		}
	}
	return sel
}

// Len returns the number of selected cells.
func (s Selection) Len() int {
	return len(s.cells)
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.cells) == 0
}

// Kind returns whether the selection holds bookable or existing cells.
func (s Selection) Kind() SelectionKind {
	return s.kind
}

// Contains reports whether pos is selected.
func (s Selection) Contains(pos Pos) bool {
	_, ok := s.cells[pos]
	return ok
}

// Positions returns the selected cells sorted by row then column.
func (s Selection) Positions() []Pos {
	out := make([]Pos, 0, len(s.cells))
	for p := range s.cells {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Pos) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col))
	})
	return out
}

func (s Selection) with(pos Pos, kind SelectionKind) Selection {
	cells := make(map[Pos]struct{}, len(s.cells)+1)
	for p := range s.cells {
		cells[p] = struct{}{}
	}
	cells[pos] = struct{}{}
	return Selection{cells: cells, kind: kind}
}

func (s Selection) without(pos Pos) Selection {
	cells := make(map[Pos]struct{}, len(s.cells))
	for p := range s.cells {
		if p != pos {
			cells[p] = struct{}{}
		}
	}
	kind := s.kind
	if len(cells) == 0 {
		kind = KindNone
	}
	return Selection{cells: cells, kind: kind}
}

// Toggle applies a click at pos.
//
// Clicking a selected cell removes it. Clicking an unselected cell adds it,
// unless the selection holds the other kind of cell: then the old selection
// is dropped and a fresh one starts at pos. Cell states in g are never
// touched.
func Toggle(g *Grid, sel Selection, pos Pos) Selection {
	if !g.Valid(pos) {
		return sel
	}
	if sel.Contains(pos) {
		return sel.without(pos)
	}
	kind := kindOf(g.State(pos))
	if sel.kind != KindNone && sel.kind != kind {
		return Selection{}.with(pos, kind)
	}
	return sel.with(pos, kind)
}

// Display returns the state a cell is rendered with. Selected bookable cells
// render as Selected; selected existing cells keep their state.
func Display(g *Grid, sel Selection, pos Pos) CellState {
	state := g.State(pos)
	if sel.Contains(pos) && state.IsBookable() {
		return Selected
	}
	return state
}

// IsValid reports whether sel covers exactly one row with no gaps between
// its columns. An empty selection is not valid.
func IsValid(sel Selection) bool {
	positions := sel.Positions()
	if len(positions) == 0 {
		return false
	}
	row := positions[0].Row
	for i, p := range positions {
		if p.Row != row {
			return false
		}
		if i > 0 && p.Col != positions[i-1].Col+1 {
			return false
		}
	}
	return true
}

// Bounds returns the row and inclusive column range of a valid selection.
func Bounds(sel Selection) (row, startCol, endCol int, ok bool) {
	if !IsValid(sel) {
		return 0, 0, 0, false
	}
	positions := sel.Positions()
	return positions[0].Row, positions[0].Col, positions[len(positions)-1].Col, true
}

// SelectionInterval returns the time range a valid selection covers.
func SelectionInterval(g *Grid, sel Selection) (slot.Interval, bool) {
	_, startCol, endCol, ok := Bounds(sel)
	if !ok {
		return slot.Interval{}, false
	}
	first, err := g.ColumnRange(startCol)
	if err != nil {
		return slot.Interval{}, false
	}
	last, err := g.ColumnRange(endCol)
	if err != nil {
		return slot.Interval{}, false
	}
	return slot.Interval{Start: first.Start, End: last.End}, true
}

// FormatSelection renders the selection as a 12-hour time range, or one of
// the NoSelection / InvalidSelection markers.
func FormatSelection(g *Grid, sel Selection) string {
	if sel.Empty() {
		return NoSelection
	}
	_, startCol, endCol, ok := Bounds(sel)
	if !ok {
		return InvalidSelection
	}
	out, err := slot.FormatRange(g.Date(), startCol, endCol)
	if err != nil {
		return InvalidSelection
	}
	return out
}

// SelectedOwners returns the distinct booking and slot ids under an existing
// selection, in column order.
func SelectedOwners(g *Grid, sel Selection) (bookingIDs, slotIDs []string) {
	for _, p := range sel.Positions() {
		cell := g.Cell(p)
		if cell.BookingID != "" && !slices.Contains(bookingIDs, cell.BookingID) {
			bookingIDs = append(bookingIDs, cell.BookingID)
		}
		if cell.SlotID != "" && !slices.Contains(slotIDs, cell.SlotID) {
			slotIDs = append(slotIDs, cell.SlotID)
		}
	}
	return bookingIDs, slotIDs
}

// ActionsFor returns the actions offered for sel. Range-dependent actions
// require a valid selection.
func ActionsFor(g *Grid, sel Selection) []Action {
	if !IsValid(sel) {
		return nil
	}

	var occupied, blocked, cancelled, bookable int
	for _, p := range sel.Positions() {
		switch s := g.State(p); {
		case s == Occupied:
			occupied++
		case s == Blocked:
			blocked++
		case s == Cancelled:
			cancelled++
		case s.IsBookable():
			bookable++
		}
	}

	switch {
	case sel.Kind() == KindBookable && cancelled > 0 && bookable == 0:
		return []Action{ActionBook}
	case sel.Kind() == KindBookable:
		return []Action{ActionBook, ActionBlock}
	case blocked > 0 && occupied == 0:
		return []Action{ActionUnblock}
	case occupied > 0 && blocked == 0:
		ids, _ := SelectedOwners(g, sel)
		if len(ids) != 1 {
			return []Action{ActionUnbook}
		}
		return []Action{ActionUnbook, ActionMove, ActionDetails, ActionMarkHandled}
	default:
		return nil
	}
}

// HasAction reports whether a is offered for sel.
func HasAction(g *Grid, sel Selection, a Action) bool {
	return slices.Contains(ActionsFor(g, sel), a)
}
