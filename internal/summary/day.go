// Package summary aggregates a loaded day into per-court usage figures.
package summary

import (
	"fmt"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// CourtStats holds the usage of one court, or of the whole venue.
type CourtStats struct {
	ResourceID string
	Name       string

	BookedMinutes     int
	BlockedMinutes    int
	FreeMinutes       int
	PeakBookedMinutes int
	PeakOpenMinutes   int // peak time that is not blocked
	Games             int
	Bookings          int
}

// OpenMinutes returns the minutes that could be booked.
func (s CourtStats) OpenMinutes() int {
	return s.BookedMinutes + s.FreeMinutes
}

// Utilization returns the booked share of open time as a percentage.
func (s CourtStats) Utilization() int {
	if s.OpenMinutes() == 0 {
		return 0
	}
	return (s.BookedMinutes * 100) / s.OpenMinutes()
}

// PeakUtilization returns the booked share of open peak time as a percentage.
func (s CourtStats) PeakUtilization() int {
	if s.PeakOpenMinutes == 0 {
		return 0
	}
	return (s.PeakBookedMinutes * 100) / s.PeakOpenMinutes
}

func (s *CourtStats) add(o CourtStats) {
	s.BookedMinutes += o.BookedMinutes
	s.BlockedMinutes += o.BlockedMinutes
	s.FreeMinutes += o.FreeMinutes
	s.PeakBookedMinutes += o.PeakBookedMinutes
	s.PeakOpenMinutes += o.PeakOpenMinutes
	s.Games += o.Games
	s.Bookings += o.Bookings
}

// DaySummary holds the usage of every court on a day.
type DaySummary struct {
	Date   time.Time
	Courts []CourtStats
	Total  CourtStats

	// Peak is the configured peak window; zero when none is set.
	Peak slot.Interval
}

// HasPeak reports whether peak figures were computed.
func (d *DaySummary) HasPeak() bool {
	return d.Peak.Valid()
}

// Options configures SummarizeDay.
type Options struct {
	PeakStart string // "HH:MM", optional
	PeakEnd   string
}

// SummarizeDay counts booked, blocked and free half hours per court of g.
// Cells freed by a command since the last refresh count as free.
func SummarizeDay(g *grid.Grid, opts Options) (*DaySummary, error) {
	sum := &DaySummary{Date: g.Date()}

	peakFirst, peakLast := -1, -1
	if opts.PeakStart != "" && opts.PeakEnd != "" {
		iv, err := dateutil.ParseRange(g.Date(), opts.PeakStart, opts.PeakEnd)
		if err != nil {
			return nil, fmt.Errorf("peak hours: %w", err)
		}
		first, last, ok := slot.ColumnsFor(g.Date(), iv)
		if !ok {
			return nil, fmt.Errorf("peak hours %s are not on the day", iv)
		}
		sum.Peak = iv
		peakFirst, peakLast = first, last
	}

	minutes := slot.Minutes
	for i, row := range g.Rows() {
		stats := CourtStats{ResourceID: row.Resource.ID, Name: row.Resource.Name}
		for col := 0; col < slot.ColumnsPerDay; col++ {
			peak := col >= peakFirst && col <= peakLast
			switch g.State(grid.Pos{Row: i, Col: col}) {
			case grid.Occupied:
				stats.BookedMinutes += minutes
				if peak {
					stats.PeakBookedMinutes += minutes
					stats.PeakOpenMinutes += minutes
				}
			case grid.Blocked:
				stats.BlockedMinutes += minutes
			default:
				stats.FreeMinutes += minutes
				if peak {
					stats.PeakOpenMinutes += minutes
				}
			}
		}
		sum.Courts = append(sum.Courts, stats)
	}

	for _, span := range g.BookingSpans() {
		b, ok := g.Booking(span.BookingID)
		if !ok || span.Row >= len(sum.Courts) {
			continue
		}
		if b.Kind == booking.KindGame {
			sum.Courts[span.Row].Games++
		} else {
			sum.Courts[span.Row].Bookings++
		}
	}

	for _, c := range sum.Courts {
		sum.Total.add(c)
	}
	return sum, nil
}
