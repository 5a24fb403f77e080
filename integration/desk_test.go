// Package integration runs a remote desk against a served venue: the sqlite
// store behind the HTTP API, with chat over the websocket relay.
package integration

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/api"
	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/config"
	"github.com/javiermolinar/courtdesk/internal/db"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/realtime"
	"github.com/javiermolinar/courtdesk/internal/session"
	"github.com/javiermolinar/courtdesk/internal/timeline"
)

const token = "desk-token"

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.FixedZone("UTC+07:00", 7*60*60))

type venue struct {
	store  *db.SQLite
	broker *realtime.Memory
	url    string
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// serveVenue seeds a store and serves it the way "courtdesk serve" does.
func serveVenue(t *testing.T) *venue {
	t.Helper()
	cfg := config.Default()
	store, err := db.New(filepath.Join(t.TempDir(), "venue.db"), cfg.Location())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.Seed(context.Background(), "demo", testDay); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	broker := realtime.NewMemory()
	srv := api.NewServer(store, cfg.Location(), token, quietLogger())
	srv.Mount("/ws", realtime.NewRelay(broker, quietLogger()))
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &venue{store: store, broker: broker, url: hs.URL}
}

// openDesk opens a remote session on the venue for date.
func openDesk(t *testing.T, v *venue, date time.Time) *session.Session {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.Mode = config.BackendHTTP
	cfg.Backend.BaseURL = v.url
	cfg.Backend.Token = token
	cfg.Realtime.Transport = config.TransportWebsocket
	cfg.Realtime.URL = "ws" + strings.TrimPrefix(v.url, "http") + "/ws"
	cfg.Notify.BatchDelay = config.Duration{}
	cfg.Notify.ConnectStagger = config.Duration{}

	s, err := session.Open(context.Background(), cfg, quietLogger(), session.Options{Date: date})
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}
	return s
}

func findBooking(t *testing.T, s *session.Session, title string) booking.Booking {
	t.Helper()
	for _, b := range s.Desk.Bookings() {
		if b.Title == title {
			return b
		}
	}
	t.Fatalf("no booking titled %q", title)
	return booking.Booking{}
}

func selectCols(s *session.Session, row, first, last int) {
	for col := first; col <= last; col++ {
		s.Desk.Click(grid.Pos{Row: row, Col: col})
	}
}

func TestRemoteDesk_LoadsSeededDay(t *testing.T) {
	s := openDesk(t, serveVenue(t), testDay)
	g := s.Desk.Grid()

	if g.NumRows() != 4 {
		t.Fatalf("rows = %d, want 4", g.NumRows())
	}

	tests := []struct {
		name string
		pos  grid.Pos
		want grid.CellState
	}{
		{"morning doubles start", grid.Pos{Row: 0, Col: 16}, grid.Occupied},
		{"morning doubles end", grid.Pos{Row: 0, Col: 18}, grid.Occupied},
		{"after morning doubles", grid.Pos{Row: 0, Col: 19}, grid.Available},
		{"maintenance block", grid.Pos{Row: 0, Col: 24}, grid.Blocked},
		{"walk-in", grid.Pos{Row: 2, Col: 28}, grid.Occupied},
		{"club ladder", grid.Pos{Row: 3, Col: 37}, grid.Occupied},
		{"free court", grid.Pos{Row: 1, Col: 40}, grid.Available},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.State(tt.pos); got != tt.want {
				t.Errorf("State(%+v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestRemoteDesk_DayFromAnotherZone(t *testing.T) {
	// 20:00 UTC on the 13th is already the 14th at the venue.
	s := openDesk(t, serveVenue(t), time.Date(2025, 3, 13, 20, 0, 0, 0, time.UTC))

	if got := s.Query().Date; !got.Equal(testDay) {
		t.Fatalf("query date = %v, want %v", got, testDay)
	}
	b := findBooking(t, s, "Morning doubles")
	span, ok := s.Desk.Grid().SpanAt(grid.Pos{Row: 0, Col: 16})
	if !ok || span.BookingID != b.ID || span.StartCol != 16 || span.EndCol != 18 {
		t.Errorf("span = %+v, want morning doubles on columns 16-18", span)
	}
}

func TestRemoteDesk_BookMoveCancel(t *testing.T) {
	v := serveVenue(t)
	s := openDesk(t, v, testDay)
	ctx := context.Background()

	selectCols(s, 2, 36, 38)
	created, err := s.Desk.Book(ctx, timeline.BookRequest{
		Title:          "Evening social",
		Category:       "pickleball",
		ParticipantIDs: []string{"u-chai"},
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	stored, err := v.store.ListBookings(ctx, "demo-court-3", testDay)
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("court 3 bookings = %d, want walk-in plus the new game", len(stored))
	}

	res, err := s.Desk.Move(ctx, grid.Pos{Row: 2, Col: 36}, grid.Pos{Row: 1, Col: 40})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.ID != created.ID || res.FromResource != "demo-court-3" || res.ToResource != "demo-court-2" {
		t.Errorf("move result = %+v", res)
	}
	if _, err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	g := s.Desk.Grid()
	if g.State(grid.Pos{Row: 2, Col: 36}) != grid.Available {
		t.Error("old slot should be free after the move")
	}
	span, ok := g.SpanAt(grid.Pos{Row: 1, Col: 41})
	if !ok || span.BookingID != created.ID || span.StartCol != 40 || span.EndCol != 42 {
		t.Errorf("moved span = %+v", span)
	}

	selectCols(s, 1, 40, 42)
	if err := s.Desk.Unbook(ctx); err != nil {
		t.Fatalf("Unbook: %v", err)
	}
	if _, err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := s.Desk.Grid().State(grid.Pos{Row: 1, Col: 41}); got != grid.Available {
		t.Errorf("state after cancel = %v, want available", got)
	}
}

func TestRemoteDesk_BlockOverBookingRejected(t *testing.T) {
	v := serveVenue(t)
	s := openDesk(t, v, testDay)
	ctx := context.Background()

	// Two desks: the other one books the slot first.
	other := openDesk(t, v, testDay)
	selectCols(other, 1, 44, 45)
	if _, err := other.Desk.Book(ctx, timeline.BookRequest{Title: "Late game", Category: "badminton"}); err != nil {
		t.Fatalf("Book: %v", err)
	}

	selectCols(s, 1, 44, 45)
	err := s.Desk.Block(ctx)
	if !timeline.IsCommand(err) {
		t.Fatalf("Block over a stale grid: err = %v, want a command failure", err)
	}
	if !errors.Is(err, booking.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	if s.Desk.Selection().Len() == 0 {
		t.Error("selection should be kept for a retry")
	}
}

func TestRemoteDesk_UnreadOverRelay(t *testing.T) {
	v := serveVenue(t)
	ctx := context.Background()

	// Posted before the desk connects: picked up by the history backfill.
	v.broker.Publish("tennis:u-dao", realtime.Message{UserID: "u-dao", Text: "can we start at 5:30?", Timestamp: testDay.Add(9 * time.Hour)})

	s := openDesk(t, v, testDay)
	report, err := s.SyncUnread(ctx)
	if err != nil {
		t.Fatalf("SyncUnread: %v", err)
	}
	if len(report.Failures) != 0 {
		t.Fatalf("sync failures: %v", report.Failures)
	}
	ladder := findBooking(t, s, "Club ladder")
	doubles := findBooking(t, s, "Morning doubles")
	if !s.Hub.Unread()[ladder.ID] {
		t.Fatalf("club ladder should be unread: %v", s.Hub.Unread())
	}

	// Posted while connected: arrives as a live message.
	v.broker.Publish("badminton:u-ben", realtime.Message{UserID: "u-ben", Text: "running late"})
	deadline := time.Now().Add(2 * time.Second)
	for !s.Hub.Unread()[doubles.ID] && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !s.Hub.Unread()[doubles.ID] {
		t.Fatal("live message did not mark morning doubles unread")
	}

	if err := s.Hub.MarkHandled(ctx, ladder.ID, "moved to 17:30"); err != nil {
		t.Fatalf("MarkHandled: %v", err)
	}
	if s.Hub.Unread()[ladder.ID] {
		t.Error("club ladder still unread after MarkHandled")
	}

	// The handled mark is stored server side, so a fresh desk agrees.
	fresh := openDesk(t, v, testDay)
	if _, err := fresh.SyncUnread(ctx); err != nil {
		t.Fatalf("SyncUnread: %v", err)
	}
	if fresh.Hub.Unread()[ladder.ID] {
		t.Error("fresh desk sees the handled booking as unread")
	}
	if !fresh.Hub.Unread()[doubles.ID] {
		t.Error("fresh desk lost the unhandled message")
	}
}
