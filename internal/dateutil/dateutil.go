// Package dateutil parses the day and clock arguments accepted by the CLI
// and the TUI prompts.
package dateutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Validation errors.
var (
	ErrInvalidDateFormat = errors.New("date must be YYYY-MM-DD, today, tomorrow, yesterday, a weekday or +N/-N")
	ErrInvalidClock      = errors.New("time must be in HH:MM format")
	ErrOffGrid           = errors.New("time must fall on a half-hour boundary")
	ErrEndBeforeStart    = errors.New("end time must be after start time")
)

// weekdayMap maps weekday names to time.Weekday values.
var weekdayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDay resolves s to midnight of a venue day. relativeTo fixes both
// "today" and the venue zone.
//
// Accepted forms (case-insensitive):
//   - "" or "today", "tomorrow", "yesterday"
//   - "+N" / "-N" days from today
//   - weekday names: the next occurrence, never today
//   - "YYYY-MM-DD", past dates included
func ParseDay(s string, relativeTo time.Time) (time.Time, error) {
	today := slot.StartOfDay(relativeTo)
	input := strings.ToLower(strings.TrimSpace(s))

	switch input {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if strings.HasPrefix(input, "+") || strings.HasPrefix(input, "-") {
		n, err := strconv.Atoi(input)
		if err != nil {
			return time.Time{}, ErrInvalidDateFormat
		}
		return today.AddDate(0, 0, n), nil
	}

	if target, ok := weekdayMap[input]; ok {
		return nextWeekday(today, target), nil
	}

	result, err := time.ParseInLocation("2006-01-02", input, relativeTo.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return result, nil
}

// nextWeekday returns the next occurrence of the given weekday after today.
// If today is the target weekday, returns one week from today.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	daysUntil := int(target) - int(today.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}
	return today.AddDate(0, 0, daysUntil)
}

// ParseClock parses "HH:MM" on day. Minutes must be 00 or 30; "24:00" is
// the end of day.
func ParseClock(day time.Time, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return time.Time{}, fmt.Errorf("%w, got %q", ErrInvalidClock, s)
	}
	hour, err1 := strconv.Atoi(hh)
	minute, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w, got %q", ErrInvalidClock, s)
	}
	if hour == 24 && minute != 0 {
		return time.Time{}, fmt.Errorf("%w, got %q", ErrInvalidClock, s)
	}
	if minute%slot.Minutes != 0 {
		return time.Time{}, fmt.Errorf("%w, got %q", ErrOffGrid, s)
	}
	start := slot.StartOfDay(day)
	return start.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), nil
}

// ParseRange parses a from/to clock pair on day.
func ParseRange(day time.Time, from, to string) (slot.Interval, error) {
	start, err := ParseClock(day, from)
	if err != nil {
		return slot.Interval{}, fmt.Errorf("from: %w", err)
	}
	end, err := ParseClock(day, to)
	if err != nil {
		return slot.Interval{}, fmt.Errorf("to: %w", err)
	}
	if !end.After(start) {
		return slot.Interval{}, ErrEndBeforeStart
	}
	return slot.Interval{Start: start, End: end}, nil
}

// FormatDay renders a day header such as "Fri 14 Mar 2025".
func FormatDay(day time.Time) string {
	return day.Format("Mon 02 Jan 2006")
}

// FormatDuration formats minutes as "Xh Ym".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
