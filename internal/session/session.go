// Package session wires the configured backend, chat transport and desk
// together. The TUI and every CLI command start from a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/api"
	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/config"
	"github.com/javiermolinar/courtdesk/internal/db"
	"github.com/javiermolinar/courtdesk/internal/notify"
	"github.com/javiermolinar/courtdesk/internal/realtime"
	"github.com/javiermolinar/courtdesk/internal/slot"
	"github.com/javiermolinar/courtdesk/internal/timeline"
)

// ErrNotLocal is returned for operations that need the sqlite backend.
var ErrNotLocal = errors.New("operation needs the sqlite backend")

// Session holds the components shared by the TUI and the CLI.
type Session struct {
	Config   *config.Config
	Log      logrus.FieldLogger
	Backend  booking.Backend
	Local    *db.SQLite // nil unless the backend mode is sqlite
	Realtime realtime.Client
	Hub      *notify.Hub
	Loader   *timeline.Loader
	Desk     *timeline.Desk
}

// Options tweak Open.
type Options struct {
	// Notifier receives desk toasts. Defaults to logging them.
	Notifier timeline.Notifier
	// Date is the day to open. Zero means today in the venue's zone.
	Date time.Time
	// Category overrides the configured default category.
	Category string
	// Realtime replaces the configured transport.
	Realtime realtime.Client
}

// Open builds a session from cfg.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts Options) (*Session, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	loc := cfg.Location()

	s := &Session{Config: cfg, Log: log}
	backend, local, err := openBackend(cfg, loc)
	if err != nil {
		return nil, err
	}
	s.Backend, s.Local = backend, local

	rt := opts.Realtime
	if rt == nil {
		rt, err = openRealtime(ctx, cfg, log)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
	}
	s.Realtime = rt

	s.Hub = notify.NewHub(backend, realtime.NewPool(rt, log), notify.Config{
		BatchSize:      cfg.Notify.BatchSize,
		BatchDelay:     cfg.Notify.BatchDelay.Duration,
		ConnectStagger: cfg.Notify.ConnectStagger.Duration,
		HistoryLimit:   cfg.Realtime.HistoryLimit,
	}, log)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = timeline.LogNotifier{Log: log}
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	category := cfg.Venue.DefaultCategory
	if opts.Category != "" {
		category = opts.Category
	}

	s.Loader = timeline.NewLoader(backend, loc, log)
	s.Desk = timeline.NewDesk(s.Loader, backend, notifier, log, timeline.Query{
		VenueID:  cfg.Venue.ID,
		Date:     slot.Normalize(date, loc),
		Category: category,
	})
	return s, nil
}

func openBackend(cfg *config.Config, loc *time.Location) (booking.Backend, *db.SQLite, error) {
	switch cfg.Backend.Mode {
	case config.BackendHTTP:
		return api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout.Duration), nil, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		store, err := db.New(cfg.Storage.DBPath, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing database: %w", err)
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}
}

func openRealtime(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (realtime.Client, error) {
	switch cfg.Realtime.Transport {
	case config.TransportMemory:
		return realtime.NewMemory(), nil
	case config.TransportWebsocket:
		header := http.Header{}
		if cfg.Backend.Token != "" {
			header.Set("Authorization", "Bearer "+cfg.Backend.Token)
		}
		ws, err := realtime.DialWebsocket(ctx, cfg.Realtime.URL, header, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", cfg.Realtime.URL, err)
		}
		return ws, nil
	case config.TransportRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Realtime.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Realtime.RedisAddr, err)
		}
		return realtime.NewRedis(rdb, cfg.Realtime.HistoryLimit, log), nil
	default:
		return nil, fmt.Errorf("unknown realtime transport %q", cfg.Realtime.Transport)
	}
}

// Query returns the desk's current query.
func (s *Session) Query() timeline.Query {
	return s.Desk.Query()
}

// Refresh reloads the day and returns the snapshot.
func (s *Session) Refresh(ctx context.Context) (*timeline.Snapshot, error) {
	return s.Desk.Refresh(ctx)
}

// SyncUnread refreshes the day and recomputes unread flags for its bookings.
func (s *Session) SyncUnread(ctx context.Context) (*notify.SyncReport, error) {
	if _, err := s.Desk.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.Hub.Sync(ctx, s.Desk.Bookings())
}

// NewPoller returns a poller that syncs the hub with the desk's bookings.
// onUnread runs after a cycle whose generation is still current.
func (s *Session) NewPoller(onUnread func(gen uint64)) *notify.Poller {
	var p *notify.Poller
	p = notify.NewPoller(func(ctx context.Context, gen uint64) error {
		if _, err := s.Hub.Sync(ctx, s.Desk.Bookings()); err != nil {
			return err
		}
		if onUnread != nil && p.IsCurrent(gen) {
			onUnread(gen)
		}
		return nil
	}, s.Config.Notify.PollInterval.Duration, s.Config.Notify.IdleDelay.Duration, s.Log)
	return p
}

// Close releases the hub, the transport and the backend.
func (s *Session) Close() error {
	s.Hub.Close()
	var errs []error
	if err := s.Realtime.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing realtime: %w", err))
	}
	if err := s.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing backend: %w", err))
	}
	return errors.Join(errs...)
}
