// Package scheduler finds free court time on a loaded day.
package scheduler

import (
	"cmp"
	"slices"
	"time"

	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Opening is a run of bookable columns on one court.
type Opening struct {
	Row        int
	ResourceID string
	Name       string
	StartCol   int
	EndCol     int // inclusive
	Interval   slot.Interval
}

// Minutes returns the opening's length.
func (o Opening) Minutes() int {
	return (o.EndCol - o.StartCol + 1) * slot.Minutes
}

// Scheduler provides time-aware searches over a grid.
type Scheduler struct {
	now func() time.Time
}

// New creates a Scheduler. A nil now uses time.Now.
func New(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// EarliestColumn returns the first column worth offering on day. Today that
// is the current half hour rounded up; any other day starts at midnight.
func (s *Scheduler) EarliestColumn(day time.Time) int {
	now := s.now().In(day.Location())
	if !slot.StartOfDay(now).Equal(slot.StartOfDay(day)) {
		return 0
	}
	next := roundUpToSlot(now)
	if !slot.StartOfDay(next).Equal(slot.StartOfDay(day)) {
		return slot.ColumnsPerDay
	}
	return slot.ToColumn(next)
}

// Openings lists every free run on g that starts at or after column from
// and is at least duration long, ordered by start then court. A zero
// duration lists every free run.
func (s *Scheduler) Openings(g *grid.Grid, duration time.Duration, from int) []Opening {
	need := columnsFor(duration)
	var out []Opening
	for row := range g.Rows() {
		for _, o := range freeRuns(g, row, max(from, 0)) {
			if o.EndCol-o.StartCol+1 >= need {
				out = append(out, o)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Opening) int {
		return cmp.Compare(a.StartCol, b.StartCol)
	})
	return out
}

// Next returns the earliest place a booking of duration fits at or after
// column from, trimmed to exactly duration.
func (s *Scheduler) Next(g *grid.Grid, duration time.Duration, from int) (Opening, bool) {
	need := columnsFor(duration)
	openings := s.Openings(g, duration, from)
	if len(openings) == 0 || need == 0 {
		return Opening{}, false
	}
	o := openings[0]
	o.EndCol = o.StartCol + need - 1
	o.Interval = columnsInterval(g, o.StartCol, o.EndCol)
	return o, true
}

// CanFit reports whether a booking of duration fits on row starting at col.
func (s *Scheduler) CanFit(g *grid.Grid, row, col int, duration time.Duration) bool {
	need := columnsFor(duration)
	if need == 0 || col < 0 || col+need > slot.ColumnsPerDay {
		return false
	}
	for c := col; c < col+need; c++ {
		if !g.Valid(grid.Pos{Row: row, Col: c}) || !g.State(grid.Pos{Row: row, Col: c}).IsBookable() {
			return false
		}
	}
	return true
}

func freeRuns(g *grid.Grid, row, from int) []Opening {
	res, _ := g.Resource(row)
	var out []Opening
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		out = append(out, Opening{
			Row:        row,
			ResourceID: res.ID,
			Name:       res.Name,
			StartCol:   start,
			EndCol:     end,
			Interval:   columnsInterval(g, start, end),
		})
		start = -1
	}
	for col := from; col < slot.ColumnsPerDay; col++ {
		if g.State(grid.Pos{Row: row, Col: col}).IsBookable() {
			if start < 0 {
				start = col
			}
			continue
		}
		flush(col - 1)
	}
	flush(slot.ColumnsPerDay - 1)
	return out
}

func columnsInterval(g *grid.Grid, first, last int) slot.Interval {
	day := g.Date()
	return slot.Interval{
		Start: day.Add(time.Duration(first) * slot.Width),
		End:   day.Add(time.Duration(last+1) * slot.Width),
	}
}

// columnsFor rounds duration up to whole columns.
func columnsFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + slot.Width - 1) / slot.Width)
}

// roundUpToSlot rounds a time up to the next half-hour boundary.
func roundUpToSlot(t time.Time) time.Time {
	rem := t.Sub(slot.StartOfDay(t)) % slot.Width
	if rem == 0 {
		return t
	}
	return t.Add(slot.Width - rem)
}
