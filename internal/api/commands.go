package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Block marks a time range on a court as unavailable.
func (c *Client) Block(ctx context.Context, resourceID string, iv slot.Interval) error {
	path := "/resources/" + url.PathEscape(resourceID) + "/blocks"
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, blockRequest{Start: iv.Start, End: iv.End})
	if err != nil {
		return err
	}
	return c.doStatus(req)
}

// Unblock removes blocks overlapping a time range on a court.
func (c *Client) Unblock(ctx context.Context, resourceID string, iv slot.Interval) error {
	q := url.Values{}
	q.Set("start", iv.Start.Format(time.RFC3339))
	q.Set("end", iv.End.Format(time.RFC3339))
	path := "/resources/" + url.PathEscape(resourceID) + "/blocks"
	req, err := c.newRequest(ctx, http.MethodDelete, path, q, nil)
	if err != nil {
		return err
	}
	return c.doStatus(req)
}

// CreateGame schedules a new activity.
func (c *Client) CreateGame(ctx context.Context, game booking.NewGame) (*booking.Booking, error) {
	payload := gameRequest{
		ResourceID:     game.ResourceID,
		Category:       game.Category,
		Title:          game.Title,
		Start:          game.Interval.Start,
		End:            game.Interval.End,
		ParticipantIDs: game.ParticipantIDs,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/games", nil, payload)
	if err != nil {
		return nil, err
	}

	var dto bookingDTO
	if err := c.doJSON(req, &dto); err != nil {
		return nil, err
	}
	b, err := bookingFromDTO(dto)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CancelGame cancels a scheduled activity.
func (c *Client) CancelGame(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/games/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return c.doStatus(req)
}

// CancelBooking cancels a raw court booking.
func (c *Client) CancelBooking(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return c.doStatus(req)
}

// RescheduleGame moves a scheduled activity.
func (c *Client) RescheduleGame(ctx context.Context, id, resourceID string, iv slot.Interval) error {
	return c.reschedule(ctx, "/games/"+url.PathEscape(id)+"/schedule", resourceID, iv)
}

// RescheduleBooking moves a raw court booking.
func (c *Client) RescheduleBooking(ctx context.Context, id, resourceID string, iv slot.Interval) error {
	return c.reschedule(ctx, "/bookings/"+url.PathEscape(id)+"/schedule", resourceID, iv)
}

func (c *Client) reschedule(ctx context.Context, path, resourceID string, iv slot.Interval) error {
	payload := scheduleRequest{ResourceID: resourceID, Start: iv.Start, End: iv.End}
	req, err := c.newRequest(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return err
	}
	return c.doStatus(req)
}
