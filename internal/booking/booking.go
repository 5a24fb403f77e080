// Package booking defines the court, booking and chat-room records the
// timeline is built from, and the backend interface that serves them.
package booking

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Validation errors.
var (
	ErrEmptyTitle      = errors.New("title cannot be empty")
	ErrInvalidKind     = errors.New("kind must be 'game' or 'booking'")
	ErrInvalidStatus   = errors.New("invalid booking status")
	ErrMissingResource = errors.New("resource id is required")
	ErrMissingCategory = errors.New("category is required")
)

// Domain errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("time range conflicts with an existing booking or block")
	ErrCategoryDenied  = errors.New("category not allowed on this court")
	ErrNothingToCancel = errors.New("no booking to cancel")
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusActive      Status = "active"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusRescheduled, StatusCancelled:
		return true
	default:
		return false
	}
}

// Occupies reports whether bookings with this status occupy grid cells.
func (s Status) Occupies() bool {
	return s == StatusActive || s == StatusRescheduled
}

// Kind tags which command family reschedules a booking.
type Kind string

const (
	// KindGame is a scheduled activity with participants.
	KindGame Kind = "game"
	// KindBooking is a raw court booking.
	KindBooking Kind = "booking"
)

// ParseKind parses a kind tag.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindGame:
		return KindGame, nil
	case KindBooking:
		return KindBooking, nil
	default:
		return "", ErrInvalidKind
	}
}

// Category is a sport category, e.g. "badminton".
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resource is a bookable court.
type Resource struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Capacity          int      `json:"capacity"`
	AllowedCategories []string `json:"allowed_categories"`
}

// Allows reports whether the court accepts the category.
// A court with no configured categories accepts everything.
func (r Resource) Allows(category string) bool {
	if category == "" || len(r.AllowedCategories) == 0 {
		return true
	}
	return slices.ContainsFunc(r.AllowedCategories, func(c string) bool {
		return strings.EqualFold(c, category)
	})
}

// Booking is an activity occupying a court for a time range.
type Booking struct {
	ID         string
	ResourceID string
	Kind       Kind
	Status     Status
	Category   string
	Title      string
	Interval   slot.Interval
}

// Occupies reports whether the booking should show up on the grid.
func (b Booking) Occupies() bool {
	return b.Status.Occupies()
}

// Duration returns the booking length.
func (b Booking) Duration() time.Duration {
	return b.Interval.Duration()
}

// SlotState is the state of an operator-managed time slot record.
type SlotState string

const (
	SlotBlocked   SlotState = "blocked"
	SlotCancelled SlotState = "cancelled"
)

// Slot is an operator-managed time range on a court: a block or a
// cancellation marker.
type Slot struct {
	ID         string
	ResourceID string
	State      SlotState
	Interval   slot.Interval
}

// Participant is a user scheduled into a booking.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Room is a chat room membership of a participant.
type Room struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	UserID    string    `json:"user_id"`
	HandledAt time.Time `json:"handled_at"`
}

// Matches reports whether the room belongs to the booking's category.
func (r Room) Matches(category string) bool {
	return strings.EqualFold(r.Category, category)
}

// NewGame describes a scheduled activity to create.
type NewGame struct {
	ResourceID     string
	Category       string
	Title          string
	Interval       slot.Interval
	ParticipantIDs []string
}

// Validate checks required fields.
func (g NewGame) Validate() error {
	if g.ResourceID == "" {
		return ErrMissingResource
	}
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.Category == "" {
		return ErrMissingCategory
	}
	if !g.Interval.Valid() {
		return slot.ErrInvalidInterval
	}
	return nil
}
