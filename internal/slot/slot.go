// Package slot maps wall-clock time to half-hour timeline columns.
//
// Every other package relies on these functions for overlap tests, so they
// are pure: no clock reads and no I/O.
package slot

import (
	"errors"
	"fmt"
	"time"
)

const (
	// Minutes is the width of one column.
	Minutes = 30
	// ColumnsPerDay is 24 hours * 2 columns per hour.
	ColumnsPerDay = 48
	// Width is the column width as a duration.
	Width = Minutes * time.Minute
)

// SlotMath errors.
var (
	ErrColumnOutOfRange = errors.New("column out of range")
	ErrInvalidInterval  = errors.New("interval start must be before end")
	ErrInvalidOffset    = errors.New("utc offset must be in +HH:MM format")
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates and builds an interval.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if !iv.Valid() {
		return Interval{}, ErrInvalidInterval
	}
	return iv, nil
}

// Valid reports whether Start is strictly before End.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return Overlaps(iv.Start, iv.End, other.Start, other.End)
}

// In returns the interval with both ends converted to loc.
func (iv Interval) In(loc *time.Location) Interval {
	return Interval{Start: Normalize(iv.Start, loc), End: Normalize(iv.End, loc)}
}

// Shift returns an interval with the same duration starting at start.
func (iv Interval) Shift(start time.Time) Interval {
	return Interval{Start: start, End: start.Add(iv.Duration())}
}

// Clip returns the part of iv that falls on day. ok is false when nothing
// is left.
func (iv Interval) Clip(day time.Time) (Interval, bool) {
	whole := DayInterval(day)
	out := iv.In(day.Location())
	if out.Start.Before(whole.Start) {
		out.Start = whole.Start
	}
	if out.End.After(whole.End) {
		out.End = whole.End
	}
	if !out.Valid() {
		return Interval{}, false
	}
	return out, true
}

// String renders the interval in 24-hour clock notation.
func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s", iv.Start.Format("15:04"), iv.End.Format("15:04"))
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// ParseOffset parses "+07:00" style offsets into a fixed zone.
// An empty string yields UTC.
func ParseOffset(s string) (*time.Location, error) {
	if s == "" || s == "Z" {
		return time.UTC, nil
	}
	t, err := time.Parse("-07:00", s)
	if err != nil {
		return nil, ErrInvalidOffset
	}
	_, offset := t.Zone()
	return time.FixedZone("UTC"+s, offset), nil
}

// Normalize converts t to loc. A nil loc leaves t untouched.
func Normalize(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ToColumn returns the column containing t, in t's location.
func ToColumn(t time.Time) int {
	col := t.Hour() * 2
	if t.Minute() >= Minutes {
		col++
	}
	return col
}

// EndColumn returns the last column covered by an interval ending at end.
// An end exactly on a column boundary does not cover that column.
func EndColumn(end time.Time) int {
	return ToColumn(end.Add(-time.Nanosecond))
}

// ColumnRange returns [start, end) of col on day's calendar date.
func ColumnRange(day time.Time, col int) (Interval, error) {
	if col < 0 || col >= ColumnsPerDay {
		return Interval{}, fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}
	start := StartOfDay(day).Add(time.Duration(col) * Width)
	return Interval{Start: start, End: start.Add(Width)}, nil
}

// DayInterval returns the whole calendar day containing day.
func DayInterval(day time.Time) Interval {
	start := StartOfDay(day)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// ColumnsFor returns the first and last column that iv covers on day.
// ok is false when iv does not touch day at all.
func ColumnsFor(day time.Time, iv Interval) (first, last int, ok bool) {
	whole := DayInterval(day)
	iv = iv.In(day.Location())
	if !iv.Valid() || !iv.Overlaps(whole) {
		return 0, 0, false
	}
	first = 0
	if iv.Start.After(whole.Start) {
		first = ToColumn(iv.Start)
	}
	last = ColumnsPerDay - 1
	if iv.End.Before(whole.End) {
		last = EndColumn(iv.End)
	}
	return first, last, true
}

// ColumnOverlaps reports whether col on day overlaps iv.
func ColumnOverlaps(day time.Time, col int, iv Interval) bool {
	cr, err := ColumnRange(day, col)
	if err != nil {
		return false
	}
	return cr.Overlaps(iv)
}

// FormatClock renders t in 12-hour clock notation, e.g. "3:04 PM".
func FormatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

// FormatRange renders the span [startCol, endCol] as "9:00 AM - 10:30 AM".
// The end is the end of endCol, so a single column spans 30 minutes.
func FormatRange(day time.Time, startCol, endCol int) (string, error) {
	if endCol < startCol {
		return "", fmt.Errorf("%w: end %d before start %d", ErrColumnOutOfRange, endCol, startCol)
	}
	first, err := ColumnRange(day, startCol)
	if err != nil {
		return "", err
	}
	last, err := ColumnRange(day, endCol)
	if err != nil {
		return "", err
	}
	return FormatClock(first.Start) + " - " + FormatClock(last.End), nil
}

// ColumnLabel renders the start of col in 24-hour notation, e.g. "09:30".
func ColumnLabel(col int) string {
	mins := col * Minutes
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
