package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
)

// ListParticipants returns the users scheduled into a booking.
func (c *Client) ListParticipants(ctx context.Context, bookingID string) ([]booking.Participant, error) {
	path := "/bookings/" + url.PathEscape(bookingID) + "/participants"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var participants []booking.Participant
	if err := c.doJSON(req, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

// ListRooms returns the chat-room memberships of a user.
func (c *Client) ListRooms(ctx context.Context, userID string) ([]booking.Room, error) {
	path := "/users/" + url.PathEscape(userID) + "/rooms"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var rooms []booking.Room
	if err := c.doJSON(req, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// MarkHandled advances the handled watermark of a user's room.
func (c *Client) MarkHandled(ctx context.Context, roomKey, userID string, at time.Time, comment string) error {
	path := "/rooms/" + url.PathEscape(roomKey) + "/handled"
	payload := handledRequest{UserID: userID, At: at, Comment: comment}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return err
	}
	return c.doStatus(req)
}
