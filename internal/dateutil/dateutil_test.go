package dateutil

import (
	"errors"
	"testing"
	"time"
)

var bangkok = time.FixedZone("UTC+07:00", 7*60*60)

// Friday 14 March 2025, mid-afternoon.
var now = time.Date(2025, 3, 14, 15, 20, 0, 0, bangkok)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, bangkok)
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr error
	}{
		{"", day(2025, 3, 14), nil},
		{"Today", day(2025, 3, 14), nil},
		{"tomorrow", day(2025, 3, 15), nil},
		{"yesterday", day(2025, 3, 13), nil},
		{"+3", day(2025, 3, 17), nil},
		{"-14", day(2025, 2, 28), nil},
		{"friday", day(2025, 3, 21), nil},
		{"monday", day(2025, 3, 17), nil},
		{"2025-01-02", day(2025, 1, 2), nil},
		{"02/01/2025", time.Time{}, ErrInvalidDateFormat},
		{"+x", time.Time{}, ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDay(tt.input, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if got.Location() != bangkok {
				t.Errorf("location = %v, want venue zone", got.Location())
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	d := day(2025, 3, 14)
	tests := []struct {
		input   string
		want    time.Time
		wantErr error
	}{
		{"09:30", d.Add(9*time.Hour + 30*time.Minute), nil},
		{"0:00", d, nil},
		{"24:00", d.AddDate(0, 0, 1), nil},
		{"10:15", time.Time{}, ErrOffGrid},
		{"24:30", time.Time{}, ErrInvalidClock},
		{"1030", time.Time{}, ErrInvalidClock},
		{"ab:00", time.Time{}, ErrInvalidClock},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(d, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	d := day(2025, 3, 14)

	iv, err := ParseRange(d, "10:00", "11:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Duration() != 90*time.Minute {
		t.Errorf("duration = %v", iv.Duration())
	}

	if _, err := ParseRange(d, "11:00", "11:00"); !errors.Is(err, ErrEndBeforeStart) {
		t.Errorf("err = %v, want ErrEndBeforeStart", err)
	}
	if _, err := ParseRange(d, "11:00", "nope"); !errors.Is(err, ErrInvalidClock) {
		t.Errorf("err = %v, want ErrInvalidClock", err)
	}
}

func TestFormatDay(t *testing.T) {
	if got := FormatDay(day(2025, 3, 14)); got != "Fri 14 Mar 2025" {
		t.Errorf("FormatDay = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{30, "30m"},
		{60, "1h"},
		{90, "1h 30m"},
		{1440, "24h"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
