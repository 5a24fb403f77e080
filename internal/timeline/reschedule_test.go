package timeline

import (
	"context"
	"errors"
	"testing"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/grid"
)

func loadGrid(t *testing.T, fb *fakeBackend) *grid.Grid {
	t.Helper()
	l := NewLoader(fb, testLoc, quietLogger())
	snap, err := l.Load(context.Background(), l.Begin(), Query{Date: testDay})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return snap.Grid
}

func TestMove_PreservesDuration(t *testing.T) {
	fb := newFakeBackend(3)
	fb.addBooking("A", "court-2", booking.KindGame, span(10, 0, 11, 0))
	g := loadGrid(t, fb)

	toasts := &toastRecorder{}
	c := NewCoordinator(fb, toasts, quietLogger())
	res, err := c.Move(context.Background(), g, grid.Pos{Row: 2, Col: 20}, grid.Pos{Row: 2, Col: 30})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}

	if !res.To.Start.Equal(hm(15, 0)) || !res.To.End.Equal(hm(16, 0)) {
		t.Errorf("new interval = %s, want 15:00-16:00", res.To)
	}
	if res.To.Duration() != res.From.Duration() {
		t.Errorf("duration changed: %v -> %v", res.From.Duration(), res.To.Duration())
	}
	calls := fb.Calls()
	if len(calls) != 1 || calls[0] != "reschedule-game A court-2 15:00-16:00" {
		t.Errorf("calls = %v", calls)
	}

	if res.Grid == nil {
		t.Fatal("expected optimistic grid")
	}
	for col, want := range map[int]grid.CellState{20: grid.Available, 21: grid.Available, 30: grid.Occupied, 31: grid.Occupied} {
		if got := res.Grid.State(grid.Pos{Row: 2, Col: col}); got != want {
			t.Errorf("col %d = %s, want %s", col, got, want)
		}
	}
	if g.State(grid.Pos{Row: 2, Col: 20}) != grid.Occupied {
		t.Error("input grid was modified")
	}
	if toasts.errors() != 0 {
		t.Error("unexpected error toast")
	}
}

func TestMove_DispatchByKind(t *testing.T) {
	tests := []struct {
		name string
		kind booking.Kind
		want string
	}{
		{"game", booking.KindGame, "reschedule-game A court-1 12:00-13:00"},
		{"raw booking", booking.KindBooking, "reschedule-booking A court-1 12:00-13:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(2)
			fb.addBooking("A", "court-0", tt.kind, span(9, 0, 10, 0))
			g := loadGrid(t, fb)

			c := NewCoordinator(fb, nil, quietLogger())
			res, err := c.Move(context.Background(), g, grid.Pos{Row: 0, Col: 19}, grid.Pos{Row: 1, Col: 24})
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			if calls := fb.Calls(); len(calls) != 1 || calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", calls, tt.want)
			}
			if res.FromResource != "court-0" || res.ToResource != "court-1" {
				t.Errorf("courts = %s -> %s", res.FromResource, res.ToResource)
			}
		})
	}
}

func TestMove_Block(t *testing.T) {
	fb := newFakeBackend(1)
	fb.addBlock("blk", "court-0", span(9, 0, 10, 0))
	g := loadGrid(t, fb)

	c := NewCoordinator(fb, nil, quietLogger())
	res, err := c.Move(context.Background(), g, grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 20})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.Blocked {
		t.Error("expected block move")
	}
	want := []string{"unblock court-0 09:00-10:00", "block court-0 10:00-11:00"}
	calls := fb.Calls()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestMove_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		src     grid.Pos
		dst     grid.Pos
		wantErr error
	}{
		{"target occupied", grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 24}, grid.ErrTargetOccupied},
		{"target blocked", grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 30}, grid.ErrTargetOccupied},
		{"range collides further on", grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 23}, grid.ErrTargetOccupied},
		{"nothing at source", grid.Pos{Row: 0, Col: 10}, grid.Pos{Row: 0, Col: 12}, grid.ErrNothingToMove},
		{"past midnight", grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 47}, ErrCrossDay},
		{"off grid", grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 5, Col: 0}, grid.ErrInvalidPosition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(1)
			fb.addBooking("A", "court-0", booking.KindGame, span(9, 0, 10, 0))
			fb.addBooking("B", "court-0", booking.KindGame, span(12, 0, 13, 0))
			fb.addBlock("blk", "court-0", span(15, 0, 16, 0))
			g := loadGrid(t, fb)

			toasts := &toastRecorder{}
			c := NewCoordinator(fb, toasts, quietLogger())
			res, err := c.Move(context.Background(), g, tt.src, tt.dst)
			if res != nil {
				t.Error("expected no result")
			}
			if !IsValidation(err) {
				t.Fatalf("err = %v, want ValidationFailure", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls := fb.Calls(); len(calls) != 0 {
				t.Errorf("no command expected, got %v", calls)
			}
			if toasts.errors() != 1 {
				t.Errorf("error toasts = %d, want 1", toasts.errors())
			}
		})
	}
}

func TestMove_CommandFailureLeavesGrid(t *testing.T) {
	fb := newFakeBackend(1)
	fb.addBooking("A", "court-0", booking.KindGame, span(9, 0, 10, 0))
	g := loadGrid(t, fb)
	fb.failCommands = errBackendDown

	toasts := &toastRecorder{}
	c := NewCoordinator(fb, toasts, quietLogger())
	_, err := c.Move(context.Background(), g, grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 30})
	if !IsCommand(err) || !errors.Is(err, errBackendDown) {
		t.Fatalf("err = %v, want CommandFailure wrapping backend error", err)
	}
	if g.State(grid.Pos{Row: 0, Col: 18}) != grid.Occupied || g.State(grid.Pos{Row: 0, Col: 30}) != grid.Available {
		t.Error("grid changed after failed move")
	}
	if toasts.errors() != 1 {
		t.Errorf("error toasts = %d, want 1", toasts.errors())
	}
}

func TestMove_UsesFreshLookup(t *testing.T) {
	fb := newFakeBackend(1)
	fb.addBooking("A", "court-0", booking.KindGame, span(9, 0, 10, 0))
	g := loadGrid(t, fb)

	// The booking was extended after the grid was loaded.
	fb.mu.Lock()
	fb.bookings[0].Interval = span(9, 0, 10, 30)
	fb.mu.Unlock()

	c := NewCoordinator(fb, nil, quietLogger())
	res, err := c.Move(context.Background(), g, grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 28})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := res.To.String(); got != "14:00-15:30" {
		t.Errorf("new interval = %s, want 14:00-15:30", got)
	}
}

func TestMove_SourceGone(t *testing.T) {
	fb := newFakeBackend(1)
	fb.addBooking("A", "court-0", booking.KindGame, span(9, 0, 10, 0))
	g := loadGrid(t, fb)

	fb.mu.Lock()
	fb.bookings[0].Status = booking.StatusCancelled
	fb.mu.Unlock()

	c := NewCoordinator(fb, nil, quietLogger())
	_, err := c.Move(context.Background(), g, grid.Pos{Row: 0, Col: 18}, grid.Pos{Row: 0, Col: 28})
	if !errors.Is(err, ErrSourceGone) {
		t.Fatalf("err = %v, want ErrSourceGone", err)
	}
	if calls := fb.Calls(); len(calls) != 0 {
		t.Errorf("no command expected, got %v", calls)
	}
}
