package slot

import (
	"errors"
	"testing"
	"time"
)

var bangkok = time.FixedZone("UTC+07:00", 7*60*60)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, bangkok)
}

func TestToColumn(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int
	}{
		{name: "midnight", in: at(0, 0), want: 0},
		{name: "half past midnight", in: at(0, 30), want: 1},
		{name: "9am", in: at(9, 0), want: 18},
		{name: "9:29", in: at(9, 29), want: 18},
		{name: "9:30", in: at(9, 30), want: 19},
		{name: "10am", in: at(10, 0), want: 20},
		{name: "3pm", in: at(15, 0), want: 30},
		{name: "23:59", in: at(23, 59), want: 47},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToColumn(tt.in); got != tt.want {
				t.Errorf("ToColumn(%s) = %d, want %d", tt.in.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestEndColumn(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int
	}{
		{name: "on boundary excludes column", in: at(11, 0), want: 21},
		{name: "inside column", in: at(11, 10), want: 22},
		{name: "half hour boundary", in: at(9, 30), want: 18},
		{name: "next midnight", in: at(0, 0).AddDate(0, 0, 1), want: 47},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EndColumn(tt.in); got != tt.want {
				t.Errorf("EndColumn(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestColumnRange(t *testing.T) {
	day := at(13, 45)

	iv, err := ColumnRange(day, 30)
	if err != nil {
		t.Fatalf("ColumnRange: %v", err)
	}
	if !iv.Start.Equal(at(15, 0)) || !iv.End.Equal(at(15, 30)) {
		t.Errorf("ColumnRange(30) = %s, want 15:00-15:30", iv)
	}

	for _, col := range []int{-1, ColumnsPerDay} {
		if _, err := ColumnRange(day, col); !errors.Is(err, ErrColumnOutOfRange) {
			t.Errorf("ColumnRange(%d) error = %v, want ErrColumnOutOfRange", col, err)
		}
	}
}

func TestColumnRoundTrip(t *testing.T) {
	day := at(0, 0)
	for col := 0; col < ColumnsPerDay; col++ {
		iv, err := ColumnRange(day, col)
		if err != nil {
			t.Fatalf("ColumnRange(%d): %v", col, err)
		}
		if got := ToColumn(iv.Start); got != col {
			t.Errorf("ToColumn(ColumnRange(%d).Start) = %d", col, got)
		}
		if got := EndColumn(iv.End); got != col {
			t.Errorf("EndColumn(ColumnRange(%d).End) = %d", col, got)
		}
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "adjacent", a: Interval{at(9, 0), at(10, 0)}, b: Interval{at(10, 0), at(11, 0)}, want: false},
		{name: "gap", a: Interval{at(9, 0), at(10, 0)}, b: Interval{at(11, 0), at(12, 0)}, want: false},
		{name: "partial", a: Interval{at(9, 0), at(10, 30)}, b: Interval{at(10, 0), at(11, 0)}, want: true},
		{name: "same", a: Interval{at(9, 0), at(11, 0)}, b: Interval{at(9, 0), at(11, 0)}, want: true},
		{name: "contained", a: Interval{at(9, 0), at(12, 0)}, b: Interval{at(10, 0), at(11, 0)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%s overlaps %s = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("overlap is not symmetric for %s and %s", tt.a, tt.b)
			}
		})
	}
}

func TestColumnsFor(t *testing.T) {
	day := at(0, 0)
	tests := []struct {
		name        string
		iv          Interval
		first, last int
		ok          bool
	}{
		{name: "one hour", iv: Interval{at(10, 0), at(11, 0)}, first: 20, last: 21, ok: true},
		{name: "ragged end", iv: Interval{at(10, 15), at(11, 10)}, first: 20, last: 22, ok: true},
		{name: "starts previous day", iv: Interval{at(22, 0).AddDate(0, 0, -1), at(1, 0)}, first: 0, last: 1, ok: true},
		{name: "ends next day", iv: Interval{at(23, 0), at(2, 0).AddDate(0, 0, 1)}, first: 46, last: 47, ok: true},
		{name: "other day", iv: Interval{at(10, 0).AddDate(0, 0, 1), at(11, 0).AddDate(0, 0, 1)}, ok: false},
		{name: "inverted", iv: Interval{at(11, 0), at(10, 0)}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last, ok := ColumnsFor(day, tt.iv)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if first != tt.first || last != tt.last {
				t.Errorf("ColumnsFor = [%d,%d], want [%d,%d]", first, last, tt.first, tt.last)
			}
		})
	}
}

func TestColumnsForNormalizesOffset(t *testing.T) {
	day := at(0, 0)
	// 03:00 UTC is 10:00 at +07:00.
	iv := Interval{
		Start: time.Date(2025, 3, 14, 3, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 14, 4, 0, 0, 0, time.UTC),
	}
	first, last, ok := ColumnsFor(day, iv)
	if !ok || first != 20 || last != 21 {
		t.Errorf("ColumnsFor = [%d,%d] ok=%v, want [20,21]", first, last, ok)
	}
}

func TestFormatRange(t *testing.T) {
	day := at(0, 0)
	tests := []struct {
		name       string
		start, end int
		want       string
	}{
		{name: "single column", start: 18, end: 18, want: "9:00 AM - 9:30 AM"},
		{name: "one hour", start: 20, end: 21, want: "10:00 AM - 11:00 AM"},
		{name: "afternoon", start: 30, end: 32, want: "3:00 PM - 4:30 PM"},
		{name: "ends at midnight", start: 47, end: 47, want: "11:30 PM - 12:00 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatRange(day, tt.start, tt.end)
			if err != nil {
				t.Fatalf("FormatRange: %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatRange(%d, %d) = %q, want %q", tt.start, tt.end, got, tt.want)
			}
		})
	}

	if _, err := FormatRange(day, 5, 4); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestParseOffset(t *testing.T) {
	loc, err := ParseOffset("+07:00")
	if err != nil {
		t.Fatalf("ParseOffset: %v", err)
	}
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 7*3600 {
		t.Errorf("offset = %d, want %d", offset, 7*3600)
	}

	if loc, err := ParseOffset(""); err != nil || loc != time.UTC {
		t.Errorf("ParseOffset(\"\") = %v, %v; want UTC", loc, err)
	}

	if _, err := ParseOffset("Asia/Bangkok"); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("expected ErrInvalidOffset, got %v", err)
	}
}

func TestIntervalShiftPreservesDuration(t *testing.T) {
	iv := Interval{at(10, 0), at(11, 30)}
	shifted := iv.Shift(at(15, 0))
	if shifted.Duration() != iv.Duration() {
		t.Errorf("duration = %s, want %s", shifted.Duration(), iv.Duration())
	}
	if !shifted.End.Equal(at(16, 30)) {
		t.Errorf("end = %s, want 16:30", shifted.End.Format("15:04"))
	}
}

func TestColumnLabel(t *testing.T) {
	if got := ColumnLabel(19); got != "09:30" {
		t.Errorf("ColumnLabel(19) = %q", got)
	}
	if got := ColumnLabel(0); got != "00:00" {
		t.Errorf("ColumnLabel(0) = %q", got)
	}
}

func TestIntervalClip(t *testing.T) {
	day := at(0, 0)
	tests := []struct {
		name   string
		iv     Interval
		want   Interval
		wantOK bool
	}{
		{"inside", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 0), at(10, 0)}, true},
		{"starts the day before", Interval{at(0, 0).Add(-time.Hour), at(1, 0)}, Interval{at(0, 0), at(1, 0)}, true},
		{"runs past midnight", Interval{at(23, 0), at(23, 0).Add(2 * time.Hour)}, Interval{at(23, 0), at(0, 0).AddDate(0, 0, 1)}, true},
		{"other day", Interval{at(9, 0).AddDate(0, 0, 1), at(10, 0).AddDate(0, 0, 1)}, Interval{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.iv.Clip(day)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (!got.Start.Equal(tt.want.Start) || !got.End.Equal(tt.want.End)) {
				t.Errorf("Clip = %v, want %v", got, tt.want)
			}
		})
	}
}
