// Package db provides the SQLite booking backend used in standalone mode.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// SQLite implements booking.Backend using SQLite.
type SQLite struct {
	db  *sql.DB
	loc *time.Location
}

var _ booking.Backend = (*SQLite)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New opens the database at path and runs migrations. Times read back are
// expressed in loc.
func New(path string, loc *time.Location) (*SQLite, error) {
	if loc == nil {
		loc = time.UTC
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the loader's per-court
	// goroutines and commands.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) fromNanos(n int64) time.Time {
	return time.Unix(0, n).In(s.loc)
}

func (s *SQLite) dayBounds(date time.Time) (int64, int64) {
	day := slot.DayInterval(slot.Normalize(date, s.loc))
	return day.Start.UnixNano(), day.End.UnixNano()
}

// requireAffected returns notFound when result touched no rows.
func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting affected rows: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func splitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListResources returns the courts of a venue in display order.
func (s *SQLite) ListResources(ctx context.Context, venueID string) ([]booking.Resource, error) {
	query := `
		SELECT id, name, capacity, categories
		FROM resources
		WHERE venue_id = ?
		ORDER BY position, name
	`

	rows, err := s.db.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var resources []booking.Resource
	for rows.Next() {
		var (
			r          booking.Resource
			categories string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Capacity, &categories); err != nil {
			return nil, fmt.Errorf("scanning resource: %w", err)
		}
		r.AllowedCategories = splitCategories(categories)
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resources: %w", err)
	}

	return resources, nil
}

// GetResource returns a single court, or booking.ErrNotFound.
func (s *SQLite) GetResource(ctx context.Context, id string) (*booking.Resource, error) {
	return getResource(ctx, s.db, id)
}

func getResource(ctx context.Context, q querier, id string) (*booking.Resource, error) {
	var (
		r          booking.Resource
		categories string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, capacity, categories FROM resources WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Capacity, &categories)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying resource: %w", err)
	}
	r.AllowedCategories = splitCategories(categories)
	return &r, nil
}

// ListCategories returns all sport categories ordered by name.
func (s *SQLite) ListCategories(ctx context.Context) ([]booking.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []booking.Category
	for rows.Next() {
		var c booking.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

// ListSlots returns block and cancellation records touching date.
func (s *SQLite) ListSlots(ctx context.Context, resourceID string, date time.Time) ([]booking.Slot, error) {
	dayStart, dayEnd := s.dayBounds(date)
	query := `
		SELECT id, resource_id, state, starts_at, ends_at
		FROM slots
		WHERE resource_id = ?
		  AND starts_at < ?
		  AND ends_at > ?
		ORDER BY starts_at
	`

	rows, err := s.db.QueryContext(ctx, query, resourceID, dayEnd, dayStart)
	if err != nil {
		return nil, fmt.Errorf("querying slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var slots []booking.Slot
	for rows.Next() {
		var (
			sl         booking.Slot
			id         int64
			state      string
			start, end int64
		)
		if err := rows.Scan(&id, &sl.ResourceID, &state, &start, &end); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		sl.ID = strconv.FormatInt(id, 10)
		sl.State = booking.SlotState(state)
		sl.Interval = slot.Interval{Start: s.fromNanos(start), End: s.fromNanos(end)}
		slots = append(slots, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slots: %w", err)
	}
	return slots, nil
}

// ListBookings returns every booking touching date, any status.
func (s *SQLite) ListBookings(ctx context.Context, resourceID string, date time.Time) ([]booking.Booking, error) {
	dayStart, dayEnd := s.dayBounds(date)
	query := `
		SELECT id, resource_id, kind, status, category, title, starts_at, ends_at
		FROM bookings
		WHERE resource_id = ?
		  AND starts_at < ?
		  AND ends_at > ?
		ORDER BY starts_at, id
	`

	rows, err := s.db.QueryContext(ctx, query, resourceID, dayEnd, dayStart)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := s.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bookings: %w", err)
	}
	return bookings, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLite) scanBooking(row scanner) (booking.Booking, error) {
	var (
		b            booking.Booking
		kind, status string
		start, end   int64
	)
	if err := row.Scan(&b.ID, &b.ResourceID, &kind, &status, &b.Category, &b.Title, &start, &end); err != nil {
		return booking.Booking{}, fmt.Errorf("scanning booking: %w", err)
	}
	b.Kind = booking.Kind(kind)
	b.Status = booking.Status(status)
	b.Interval = slot.Interval{Start: s.fromNanos(start), End: s.fromNanos(end)}
	return b, nil
}

func (s *SQLite) getBooking(ctx context.Context, q querier, id string) (booking.Booking, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, resource_id, kind, status, category, title, starts_at, ends_at
		FROM bookings
		WHERE id = ?
	`, id)
	b, err := s.scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Booking{}, fmt.Errorf("booking %s: %w", id, booking.ErrNotFound)
	}
	return b, err
}

// checkOverlap returns booking.ErrConflict when iv overlaps an occupying
// booking (other than excludeID) or a block on the court.
func checkOverlap(ctx context.Context, q querier, resourceID string, iv slot.Interval, excludeID string) error {
	start, end := iv.Start.UnixNano(), iv.End.UnixNano()

	var (
		id    string
		title string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, title
		FROM bookings
		WHERE resource_id = ?
		  AND status IN ('active', 'rescheduled')
		  AND id != ?
		  AND starts_at < ?
		  AND ends_at > ?
		LIMIT 1
	`, resourceID, excludeID, end, start).Scan(&id, &title)
	switch {
	case err == nil:
		return fmt.Errorf("%w: booking %s %q", booking.ErrConflict, id, title)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking overlap: %w", err)
	}

	var blockID int64
	err = q.QueryRowContext(ctx, `
		SELECT id
		FROM slots
		WHERE resource_id = ?
		  AND state = 'blocked'
		  AND starts_at < ?
		  AND ends_at > ?
		LIMIT 1
	`, resourceID, end, start).Scan(&blockID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: block #%d", booking.ErrConflict, blockID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking overlap: %w", err)
	}
	return nil
}
