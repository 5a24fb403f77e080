package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/slot"
	"github.com/javiermolinar/courtdesk/internal/timeline"
)

const courtNameWidth = 14

// printGrid renders columns [first, last] of every court, one character
// per half hour, with an hour ruler on top.
func printGrid(w io.Writer, q timeline.Query, g *grid.Grid, first, last int) {
	category := q.Category
	if category == "" {
		category = "all courts"
	}
	fmt.Fprintf(w, "%s  %s  %s\n", formatHeader(q.VenueID), dateutil.FormatDay(g.Date()), formatMuted("["+category+"]"))

	var ruler strings.Builder
	ruler.WriteString(strings.Repeat(" ", courtNameWidth+1))
	for col := first; col <= last; col++ {
		// Label even hours; a label takes the hour's two columns.
		if col%4 == 0 && col+1 <= last {
			ruler.WriteString(slot.ColumnLabel(col)[:2])
			col++
			continue
		}
		ruler.WriteString(" ")
	}
	fmt.Fprintln(w, formatMuted(ruler.String()))

	if g.NumRows() == 0 {
		fmt.Fprintln(w, formatMuted("No courts."))
		return
	}
	for i, row := range g.Rows() {
		name := row.Resource.Name
		if name == "" {
			name = row.Resource.ID
		}
		var line strings.Builder
		line.WriteString(padRight(ansi.Truncate(name, courtNameWidth, "…"), courtNameWidth))
		line.WriteString(" ")
		for col := first; col <= last; col++ {
			line.WriteString(glyph(g.State(grid.Pos{Row: i, Col: col})))
		}
		fmt.Fprintln(w, line.String())
	}
}

// visibleRange picks the columns that fit in width, starting at first.
func visibleRange(width, first, last int) (int, int) {
	fit := width - courtNameWidth - 1
	if fit > 0 && last-first+1 > fit {
		last = first + fit - 1
	}
	return first, last
}

// printBookings lists the day's bookings in grid order.
func printBookings(w io.Writer, g *grid.Grid, unread map[string]bool) {
	spans := g.BookingSpans()
	if len(spans) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, span := range spans {
		b, ok := g.Booking(span.BookingID)
		if !ok {
			continue
		}
		fmt.Fprintln(w, formatBooking(g, b, unread[b.ID]))
	}
}

func formatBooking(g *grid.Grid, b booking.Booking, unread bool) string {
	court := b.ResourceID
	if row := g.RowOf(b.ResourceID); row >= 0 {
		if res, ok := g.Resource(row); ok && res.Name != "" {
			court = res.Name
		}
	}
	title := b.Title
	if title == "" {
		title = formatMuted("(walk-in)")
	}
	mark := " "
	if unread {
		mark = formatUnread("●")
	}
	loc := g.Location()
	when := slot.FormatClock(b.Interval.Start.In(loc)) + " - " + slot.FormatClock(b.Interval.End.In(loc))
	return fmt.Sprintf("%s %-19s %-13s %s %s %s", mark, when, court, title,
		formatMuted(fmt.Sprintf("[%s %s]", b.Kind, b.Category)), formatMuted(b.ID))
}

// findCourt resolves a court by id, name or 1-based row number.
func findCourt(g *grid.Grid, ref string) (int, error) {
	if row := g.RowOf(ref); row >= 0 {
		return row, nil
	}
	for i, row := range g.Rows() {
		if strings.EqualFold(row.Resource.Name, ref) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= g.NumRows() {
		return n - 1, nil
	}
	return -1, fmt.Errorf("no court %q on this view", ref)
}

// findBooking returns the span of bookingID on g.
func findBooking(g *grid.Grid, bookingID string) (grid.Span, error) {
	for _, span := range g.BookingSpans() {
		if span.BookingID == bookingID {
			return span, nil
		}
	}
	return grid.Span{}, fmt.Errorf("booking %s: %w", bookingID, booking.ErrNotFound)
}

// columns converts a from/to clock pair into the inclusive column range
// it covers on day.
func columns(day timeline.Query, from, to string) (int, int, error) {
	iv, err := dateutil.ParseRange(day.Date, from, to)
	if err != nil {
		return 0, 0, err
	}
	first, last, ok := slot.ColumnsFor(day.Date, iv)
	if !ok {
		return 0, 0, fmt.Errorf("%s is not on %s", iv, dateutil.FormatDay(day.Date))
	}
	return first, last, nil
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
