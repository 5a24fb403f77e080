package grid

import (
	"cmp"
	"slices"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// RowInput holds the three interval sets that decide a court's cells.
type RowInput struct {
	Bookings      []booking.Booking
	Blocks        []booking.Slot
	Cancellations []slot.Interval
}

// SplitRecords sorts a court's fetched bookings and slots into a RowInput.
// Cancelled bookings and cancellation slots become cancellations; bookings
// that are neither occupying nor cancelled are dropped.
func SplitRecords(bookings []booking.Booking, slots []booking.Slot) RowInput {
	var in RowInput
	for _, b := range bookings {
		switch {
		case b.Occupies():
			in.Bookings = append(in.Bookings, b)
		case b.Status == booking.StatusCancelled:
			in.Cancellations = append(in.Cancellations, b.Interval)
		}
	}
	for _, s := range slots {
		switch s.State {
		case booking.SlotBlocked:
			in.Blocks = append(in.Blocks, s)
		case booking.SlotCancelled:
			in.Cancellations = append(in.Cancellations, s.Interval)
		}
	}
	return in
}

// BuildInput is everything the span calculator needs for one day.
type BuildInput struct {
	Date      time.Time
	Location  *time.Location
	Resources []booking.Resource
	Rows      map[string]RowInput // keyed by resource id
}

// Build computes a fresh grid. It is a pure function of its input: no clock
// reads, and the input slices are not modified.
//
// Per column the precedence is fixed: blocks first, then occupying bookings
// on columns not already blocked, then cancellations revert any column that is
// neither blocked nor occupied to available. Overlapping bookings on one
// court are accepted; the earliest-starting one owns the shared columns.
func Build(in BuildInput) *Grid {
	date := slot.StartOfDay(slot.Normalize(in.Date, in.Location))
	g := &Grid{
		date:     date,
		rows:     make([]Row, len(in.Resources)),
		bookings: make(map[string]booking.Booking),
	}

	for r, res := range in.Resources {
		g.rows[r].Resource = res
		row := in.Rows[res.ID]
		fillRow(&g.rows[r], date, row)
		for _, b := range row.Bookings {
			if b.Occupies() {
				b.Interval = b.Interval.In(date.Location())
				g.bookings[b.ID] = b
			}
		}
	}

	g.deriveSpans()
	return g
}

func fillRow(row *Row, date time.Time, in RowInput) {
	blocks := slices.Clone(in.Blocks)
	slices.SortStableFunc(blocks, func(a, b booking.Slot) int {
		return cmp.Or(a.Interval.Start.Compare(b.Interval.Start), cmp.Compare(a.ID, b.ID))
	})
	bookings := slices.Clone(in.Bookings)
	slices.SortStableFunc(bookings, func(a, b booking.Booking) int {
		return cmp.Or(a.Interval.Start.Compare(b.Interval.Start), cmp.Compare(a.ID, b.ID))
	})

	for col := 0; col < slot.ColumnsPerDay; col++ {
		cell := &row.Cells[col]

		for _, b := range blocks {
			if slot.ColumnOverlaps(date, col, b.Interval) {
				*cell = Cell{State: Blocked, SlotID: b.ID}
				break
			}
		}
		if cell.State == Blocked {
			continue
		}

		for _, b := range bookings {
			if !b.Occupies() {
				continue
			}
			if slot.ColumnOverlaps(date, col, b.Interval) {
				*cell = Cell{State: Occupied, BookingID: b.ID}
				break
			}
		}
		if cell.State == Occupied {
			continue
		}

		for _, iv := range in.Cancellations {
			if slot.ColumnOverlaps(date, col, iv) {
				*cell = Cell{State: Available}
				break
			}
		}
	}
}

// FilterResources keeps the courts that accept category, preserving order.
// An empty category keeps every court.
func FilterResources(resources []booking.Resource, category string) []booking.Resource {
	if category == "" {
		return slices.Clone(resources)
	}
	var out []booking.Resource
	for _, r := range resources {
		if r.Allows(category) {
			out = append(out, r)
		}
	}
	return out
}
