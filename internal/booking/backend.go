package booking

import (
	"context"
	"time"

	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Reader fetches the records a day timeline is built from.
type Reader interface {
	// ListResources returns the courts of a venue in display order.
	ListResources(ctx context.Context, venueID string) ([]Resource, error)

	// GetResource returns a single court.
	GetResource(ctx context.Context, id string) (*Resource, error)

	// ListCategories returns the sport categories known to the backend.
	ListCategories(ctx context.Context) ([]Category, error)

	// ListSlots returns block and cancellation records of a court on a date.
	ListSlots(ctx context.Context, resourceID string, date time.Time) ([]Slot, error)

	// ListBookings returns all bookings of a court on a date, any status.
	ListBookings(ctx context.Context, resourceID string, date time.Time) ([]Booking, error)
}

// Commander mutates bookings and slots.
type Commander interface {
	// Block marks a time range on a court as unavailable.
	Block(ctx context.Context, resourceID string, iv slot.Interval) error

	// Unblock removes blocks overlapping a time range on a court.
	Unblock(ctx context.Context, resourceID string, iv slot.Interval) error

	// CreateGame schedules a new activity and returns it.
	CreateGame(ctx context.Context, game NewGame) (*Booking, error)

	// CancelGame cancels a scheduled activity.
	CancelGame(ctx context.Context, id string) error

	// CancelBooking cancels a raw court booking.
	CancelBooking(ctx context.Context, id string) error

	// RescheduleGame moves a scheduled activity to a new court and time range.
	RescheduleGame(ctx context.Context, id, resourceID string, iv slot.Interval) error

	// RescheduleBooking moves a raw court booking to a new court and time range.
	RescheduleBooking(ctx context.Context, id, resourceID string, iv slot.Interval) error
}

// ChatDirectory resolves the chat rooms attached to a booking.
type ChatDirectory interface {
	// ListParticipants returns the users scheduled into a booking.
	ListParticipants(ctx context.Context, bookingID string) ([]Participant, error)

	// ListRooms returns the chat-room memberships of a user.
	ListRooms(ctx context.Context, userID string) ([]Room, error)

	// MarkHandled advances the handled watermark of a user's room.
	MarkHandled(ctx context.Context, roomKey, userID string, at time.Time, comment string) error
}

// Backend is the full external booking service.
type Backend interface {
	Reader
	Commander
	ChatDirectory

	// Close releases any resources held by the backend.
	Close() error
}
