package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Block inserts a block record. Returns booking.ErrConflict when the range
// overlaps a booking or another block.
func (s *SQLite) Block(ctx context.Context, resourceID string, iv slot.Interval) error {
	if !iv.Valid() {
		return slot.ErrInvalidInterval
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getResource(ctx, tx, resourceID); err != nil {
		return err
	}
	if err := checkOverlap(ctx, tx, resourceID, iv, ""); err != nil {
		return err
	}

	query := `INSERT INTO slots (resource_id, state, starts_at, ends_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, resourceID, booking.SlotBlocked, iv.Start.UnixNano(), iv.End.UnixNano()); err != nil {
		return fmt.Errorf("inserting block: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Unblock deletes every block overlapping iv. Returns booking.ErrNotFound
// when there was none.
func (s *SQLite) Unblock(ctx context.Context, resourceID string, iv slot.Interval) error {
	query := `
		DELETE FROM slots
		WHERE resource_id = ?
		  AND state = 'blocked'
		  AND starts_at < ?
		  AND ends_at > ?
	`
	result, err := s.db.ExecContext(ctx, query, resourceID, iv.End.UnixNano(), iv.Start.UnixNano())
	if err != nil {
		return fmt.Errorf("deleting blocks: %w", err)
	}

	return requireAffected(result, fmt.Errorf("no block on %s at %s: %w", resourceID, iv, booking.ErrNotFound))
}

// CreateGame inserts an active game and its participants.
func (s *SQLite) CreateGame(ctx context.Context, game booking.NewGame) (*booking.Booking, error) {
	if err := game.Validate(); err != nil {
		return nil, err
	}
	b := booking.Booking{
		ID:         uuid.NewString(),
		ResourceID: game.ResourceID,
		Kind:       booking.KindGame,
		Status:     booking.StatusActive,
		Category:   game.Category,
		Title:      game.Title,
		Interval:   game.Interval.In(s.loc),
	}
	if err := s.insertBooking(ctx, b, game.ParticipantIDs); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBooking inserts a raw court booking. An empty ID is generated.
func (s *SQLite) CreateBooking(ctx context.Context, b booking.Booking) (*booking.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Kind == "" {
		b.Kind = booking.KindBooking
	}
	if b.Status == "" {
		b.Status = booking.StatusActive
	}
	if !b.Status.Valid() {
		return nil, booking.ErrInvalidStatus
	}
	if !b.Interval.Valid() {
		return nil, slot.ErrInvalidInterval
	}
	b.Interval = b.Interval.In(s.loc)
	if err := s.insertBooking(ctx, b, nil); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLite) insertBooking(ctx context.Context, b booking.Booking, participantIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, err := getResource(ctx, tx, b.ResourceID)
	if err != nil {
		return err
	}
	if !r.Allows(b.Category) {
		return fmt.Errorf("%s on %s: %w", b.Category, r.Name, booking.ErrCategoryDenied)
	}
	if b.Occupies() {
		if err := checkOverlap(ctx, tx, b.ResourceID, b.Interval, ""); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO bookings (id, resource_id, kind, status, category, title, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		b.ID,
		b.ResourceID,
		b.Kind,
		b.Status,
		b.Category,
		b.Title,
		b.Interval.Start.UnixNano(),
		b.Interval.End.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	for _, userID := range participantIDs {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("checking participant: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("participant %s: %w", userID, booking.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO participants (booking_id, user_id) VALUES (?, ?)`, b.ID, userID,
		); err != nil {
			return fmt.Errorf("inserting participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CancelGame marks a game as cancelled.
func (s *SQLite) CancelGame(ctx context.Context, id string) error {
	return s.cancel(ctx, id, booking.KindGame)
}

// CancelBooking marks a raw booking as cancelled.
func (s *SQLite) CancelBooking(ctx context.Context, id string) error {
	return s.cancel(ctx, id, booking.KindBooking)
}

func (s *SQLite) cancel(ctx context.Context, id string, kind booking.Kind) error {
	b, err := s.getBooking(ctx, s.db, id)
	if err != nil {
		return err
	}
	if b.Kind != kind {
		return fmt.Errorf("%s %s: %w", kind, id, booking.ErrNotFound)
	}
	if !b.Occupies() {
		return fmt.Errorf("%s %s is %s: %w", kind, id, b.Status, booking.ErrNothingToCancel)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, booking.StatusCancelled, id,
	); err != nil {
		return fmt.Errorf("cancelling %s: %w", kind, err)
	}
	return nil
}

// RescheduleGame moves a game to a new court and range.
func (s *SQLite) RescheduleGame(ctx context.Context, id, resourceID string, iv slot.Interval) error {
	return s.reschedule(ctx, id, booking.KindGame, resourceID, iv)
}

// RescheduleBooking moves a raw booking to a new court and range.
func (s *SQLite) RescheduleBooking(ctx context.Context, id, resourceID string, iv slot.Interval) error {
	return s.reschedule(ctx, id, booking.KindBooking, resourceID, iv)
}

func (s *SQLite) reschedule(ctx context.Context, id string, kind booking.Kind, resourceID string, iv slot.Interval) error {
	if !iv.Valid() {
		return slot.ErrInvalidInterval
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := s.getBooking(ctx, tx, id)
	if err != nil {
		return err
	}
	if b.Kind != kind {
		return fmt.Errorf("%s %s: %w", kind, id, booking.ErrNotFound)
	}
	if !b.Occupies() {
		return fmt.Errorf("%s %s is %s: %w", kind, id, b.Status, booking.ErrConflict)
	}

	r, err := getResource(ctx, tx, resourceID)
	if err != nil {
		return err
	}
	if !r.Allows(b.Category) {
		return fmt.Errorf("%s on %s: %w", b.Category, r.Name, booking.ErrCategoryDenied)
	}
	if err := checkOverlap(ctx, tx, resourceID, iv, id); err != nil {
		return err
	}

	query := `
		UPDATE bookings
		SET resource_id = ?, starts_at = ?, ends_at = ?, status = ?
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, query,
		resourceID, iv.Start.UnixNano(), iv.End.UnixNano(), booking.StatusRescheduled, id,
	); err != nil {
		return fmt.Errorf("rescheduling %s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
