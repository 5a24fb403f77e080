package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
)

func dateQuery(date time.Time) url.Values {
	q := url.Values{}
	q.Set("date", date.Format(dateLayout))
	return q
}

// ListResources returns the courts of a venue.
func (c *Client) ListResources(ctx context.Context, venueID string) ([]booking.Resource, error) {
	path := "/venues/" + url.PathEscape(venueID) + "/resources"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var resources []booking.Resource
	if err := c.doJSON(req, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// GetResource returns a single court.
func (c *Client) GetResource(ctx context.Context, id string) (*booking.Resource, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/resources/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var r booking.Resource
	if err := c.doJSON(req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListCategories returns the known sport categories.
func (c *Client) ListCategories(ctx context.Context) ([]booking.Category, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/categories", nil, nil)
	if err != nil {
		return nil, err
	}

	var categories []booking.Category
	if err := c.doJSON(req, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListSlots returns block and cancellation records of a court on date.
func (c *Client) ListSlots(ctx context.Context, resourceID string, date time.Time) ([]booking.Slot, error) {
	path := "/resources/" + url.PathEscape(resourceID) + "/slots"
	req, err := c.newRequest(ctx, http.MethodGet, path, dateQuery(date), nil)
	if err != nil {
		return nil, err
	}

	var dtos []slotDTO
	if err := c.doJSON(req, &dtos); err != nil {
		return nil, err
	}
	slots := make([]booking.Slot, 0, len(dtos))
	for _, d := range dtos {
		s, err := slotFromDTO(d)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, nil
}

// ListBookings returns every booking of a court on date.
func (c *Client) ListBookings(ctx context.Context, resourceID string, date time.Time) ([]booking.Booking, error) {
	path := "/resources/" + url.PathEscape(resourceID) + "/bookings"
	req, err := c.newRequest(ctx, http.MethodGet, path, dateQuery(date), nil)
	if err != nil {
		return nil, err
	}

	var dtos []bookingDTO
	if err := c.doJSON(req, &dtos); err != nil {
		return nil, err
	}
	bookings := make([]booking.Booking, 0, len(dtos))
	for _, d := range dtos {
		b, err := bookingFromDTO(d)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}
