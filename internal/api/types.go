package api

import (
	"fmt"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// dateLayout is the format of the date query parameter.
const dateLayout = "2006-01-02"

type slotDTO struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	State      string    `json:"state"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type bookingDTO struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Category   string    `json:"category"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type blockRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type gameRequest struct {
	ResourceID     string    `json:"resource_id"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	ParticipantIDs []string  `json:"participant_ids,omitempty"`
}

type scheduleRequest struct {
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type handledRequest struct {
	UserID  string    `json:"user_id"`
	At      time.Time `json:"at"`
	Comment string    `json:"comment,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func slotFromDTO(d slotDTO) (booking.Slot, error) {
	state := booking.SlotState(d.State)
	if state != booking.SlotBlocked && state != booking.SlotCancelled {
		return booking.Slot{}, fmt.Errorf("slot %s: unknown state %q", d.ID, d.State)
	}
	return booking.Slot{
		ID:         d.ID,
		ResourceID: d.ResourceID,
		State:      state,
		Interval:   slot.Interval{Start: d.Start, End: d.End},
	}, nil
}

func slotToDTO(s booking.Slot) slotDTO {
	return slotDTO{
		ID:         s.ID,
		ResourceID: s.ResourceID,
		State:      string(s.State),
		Start:      s.Interval.Start,
		End:        s.Interval.End,
	}
}

func bookingFromDTO(d bookingDTO) (booking.Booking, error) {
	kind, err := booking.ParseKind(d.Kind)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("booking %s: %w", d.ID, err)
	}
	status := booking.Status(d.Status)
	if !status.Valid() {
		return booking.Booking{}, fmt.Errorf("booking %s: %w: %q", d.ID, booking.ErrInvalidStatus, d.Status)
	}
	return booking.Booking{
		ID:         d.ID,
		ResourceID: d.ResourceID,
		Kind:       kind,
		Status:     status,
		Category:   d.Category,
		Title:      d.Title,
		Interval:   slot.Interval{Start: d.Start, End: d.End},
	}, nil
}

func bookingToDTO(b booking.Booking) bookingDTO {
	return bookingDTO{
		ID:         b.ID,
		ResourceID: b.ResourceID,
		Kind:       string(b.Kind),
		Status:     string(b.Status),
		Category:   b.Category,
		Title:      b.Title,
		Start:      b.Interval.Start,
		End:        b.Interval.End,
	}
}
