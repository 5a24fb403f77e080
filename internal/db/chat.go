package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
)

// ListParticipants returns the users scheduled into a booking.
func (s *SQLite) ListParticipants(ctx context.Context, bookingID string) ([]booking.Participant, error) {
	query := `
		SELECT u.id, u.name
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.booking_id = ?
		ORDER BY u.id
	`
	rows, err := s.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var participants []booking.Participant
	for rows.Next() {
		var p booking.Participant
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participants: %w", err)
	}
	return participants, nil
}

// ListRooms returns a user's room memberships with their handled watermark.
func (s *SQLite) ListRooms(ctx context.Context, userID string) ([]booking.Room, error) {
	query := `
		SELECT key, name, category, user_id, handled_at
		FROM rooms
		WHERE user_id = ?
		ORDER BY key
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rooms []booking.Room
	for rows.Next() {
		var (
			r         booking.Room
			handledAt sql.NullInt64
		)
		if err := rows.Scan(&r.Key, &r.Name, &r.Category, &r.UserID, &handledAt); err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		if handledAt.Valid {
			r.HandledAt = s.fromNanos(handledAt.Int64)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// MarkHandled advances the watermark of a membership. The stored value never
// moves backwards; the comment is appended to the handled log either way.
func (s *SQLite) MarkHandled(ctx context.Context, roomKey, userID string, at time.Time, comment string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE rooms
		SET handled_at = MAX(COALESCE(handled_at, 0), ?)
		WHERE key = ? AND user_id = ?
	`
	result, err := tx.ExecContext(ctx, query, at.UnixNano(), roomKey, userID)
	if err != nil {
		return fmt.Errorf("updating watermark: %w", err)
	}
	if err := requireAffected(result, fmt.Errorf("room %s for %s: %w", roomKey, userID, booking.ErrNotFound)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO handled_log (room_key, user_id, handled_at, comment) VALUES (?, ?, ?, ?)`,
		roomKey, userID, at.UnixNano(), comment,
	); err != nil {
		return fmt.Errorf("logging handled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
