package session

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/api"
	"github.com/javiermolinar/courtdesk/internal/config"
	"github.com/javiermolinar/courtdesk/internal/realtime"
)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.FixedZone("UTC+07:00", 7*60*60))

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "data", "courtdesk.db")
	cfg.Notify.BatchDelay = config.Duration{}
	cfg.Notify.ConnectStagger = config.Duration{}
	return cfg
}

func openSeeded(t *testing.T, mem *realtime.Memory) *Session {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, testConfig(t), quietLogger(), Options{Realtime: mem, Date: testDay})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if s.Local == nil {
		t.Fatal("sqlite mode should expose the local store")
	}
	if _, err := s.Local.Seed(ctx, "demo", testDay); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return s
}

func TestOpen_SQLite(t *testing.T) {
	s := openSeeded(t, realtime.NewMemory())

	snap, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.Grid.NumRows() != 4 {
		t.Errorf("rows = %d, want 4", snap.Grid.NumRows())
	}
	if len(snap.Bookings) != 4 {
		t.Errorf("bookings = %d, want 4", len(snap.Bookings))
	}
	if !s.Query().Date.Equal(testDay) {
		t.Errorf("query date = %v", s.Query().Date)
	}
}

func TestOpen_CategoryOverride(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(context.Background(), cfg, quietLogger(), Options{
		Realtime: realtime.NewMemory(),
		Date:     testDay,
		Category: "tennis",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := s.Local.Seed(context.Background(), "demo", testDay); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	snap, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.Grid.NumRows() != 1 {
		t.Errorf("tennis rows = %d, want 1", snap.Grid.NumRows())
	}
}

func TestOpen_HTTPBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Mode = config.BackendHTTP
	cfg.Backend.BaseURL = "http://127.0.0.1:1"

	s, err := Open(context.Background(), cfg, quietLogger(), Options{Realtime: realtime.NewMemory()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, ok := s.Backend.(*api.Client); !ok {
		t.Errorf("backend = %T, want *api.Client", s.Backend)
	}
	if s.Local != nil {
		t.Error("http mode should not open a local store")
	}
}

func TestOpen_UnknownTransport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Realtime.Transport = "pigeon"

	if _, err := Open(context.Background(), cfg, quietLogger(), Options{}); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestSyncUnreadAndMarkHandled(t *testing.T) {
	mem := realtime.NewMemory()
	s := openSeeded(t, mem)
	ctx := context.Background()

	mem.Publish("badminton:u-ben", realtime.Message{UserID: "u-ben", Text: "running late", Timestamp: testDay.Add(7 * time.Hour)})

	report, err := s.SyncUnread(ctx)
	if err != nil {
		t.Fatalf("SyncUnread: %v", err)
	}
	if report.Unread != 1 {
		t.Fatalf("unread = %d, want 1 (report %+v)", report.Unread, report)
	}

	var gameID string
	for _, b := range s.Desk.Bookings() {
		if b.Title == "Morning doubles" {
			gameID = b.ID
		}
	}
	if !s.Hub.Unread()[gameID] {
		t.Fatalf("morning doubles should be unread: %v", s.Hub.Unread())
	}

	if err := s.Hub.MarkHandled(ctx, gameID, "called"); err != nil {
		t.Fatalf("MarkHandled: %v", err)
	}
	if s.Hub.Unread()[gameID] {
		t.Error("booking still unread after MarkHandled")
	}
}

func TestNewPollerPublishesCurrentGeneration(t *testing.T) {
	mem := realtime.NewMemory()
	s := openSeeded(t, mem)
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var got []uint64
	p := s.NewPoller(func(gen uint64) { got = append(got, gen) })
	gen := p.RunOnce(context.Background())

	if len(got) != 1 || got[0] != gen {
		t.Errorf("published generations = %v, want [%d]", got, gen)
	}
}
