package grid

import (
	"fmt"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

var testLoc = time.FixedZone("UTC+07:00", 7*60*60)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, testLoc)

func hm(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func span(h1, m1, h2, m2 int) slot.Interval {
	return slot.Interval{Start: hm(h1, m1), End: hm(h2, m2)}
}

func courts(n int) []booking.Resource {
	out := make([]booking.Resource, n)
	for i := range out {
		out[i] = booking.Resource{
			ID:                fmt.Sprintf("court-%d", i),
			Name:              fmt.Sprintf("Court %d", i+1),
			Capacity:          4,
			AllowedCategories: []string{"badminton"},
		}
	}
	return out
}

func active(id string, iv slot.Interval) booking.Booking {
	return booking.Booking{
		ID:       id,
		Kind:     booking.KindGame,
		Status:   booking.StatusActive,
		Category: "badminton",
		Title:    "Game " + id,
		Interval: iv,
	}
}

func blockSlot(id string, iv slot.Interval) booking.Slot {
	return booking.Slot{ID: id, State: booking.SlotBlocked, Interval: iv}
}

// gridFromRows builds a grid from string notation, one string per court.
//   - Uppercase letters are bookings (the letter is the booking id)
//   - "#" is a block (one block per contiguous run)
//   - "c" is a cancellation
//   - "." is empty
//
// Only the first len(row) columns are populated; the rest of the day is empty.
//
// Example: "....AA##" books columns 4-5 as booking "A" and blocks 6-7.
func gridFromRows(rows ...string) *Grid {
	resources := courts(len(rows))
	in := BuildInput{Date: testDay, Location: testLoc, Resources: resources, Rows: map[string]RowInput{}}

	for r, row := range rows {
		var ri RowInput
		runs := splitRuns(row)
		for _, run := range runs {
			iv := slot.Interval{
				Start: testDay.Add(time.Duration(run.start) * slot.Width),
				End:   testDay.Add(time.Duration(run.end+1) * slot.Width),
			}
			switch {
			case run.ch == '#':
				ri.Blocks = append(ri.Blocks, blockSlot(fmt.Sprintf("blk-%d-%d", r, run.start), iv))
			case run.ch == 'c':
				ri.Cancellations = append(ri.Cancellations, iv)
			case run.ch >= 'A' && run.ch <= 'Z':
				b := active(string(run.ch), iv)
				b.ResourceID = resources[r].ID
				ri.Bookings = append(ri.Bookings, b)
			}
		}
		in.Rows[resources[r].ID] = ri
	}
	return Build(in)
}

type run struct {
	ch         byte
	start, end int
}

func splitRuns(row string) []run {
	var out []run
	for i := 0; i < len(row); i++ {
		ch := row[i]
		if ch == '.' {
			continue
		}
		if n := len(out); n > 0 && out[n-1].ch == ch && out[n-1].end == i-1 {
			out[n-1].end = i
			continue
		}
		out = append(out, run{ch: ch, start: i, end: i})
	}
	return out
}

// prefix returns the first n columns of a printed row.
func prefix(g *Grid, row, n int) string {
	s := g.PrintRow(row)
	if len(s) < n {
		return s
	}
	return s[:n]
}
