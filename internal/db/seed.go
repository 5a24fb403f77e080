package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// CreateCategory inserts or renames a sport category.
func (s *SQLite) CreateCategory(ctx context.Context, c booking.Category) error {
	query := `
		INSERT INTO categories (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.Name); err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

// CreateResource inserts or updates a court of a venue. position orders the
// timeline rows.
func (s *SQLite) CreateResource(ctx context.Context, venueID string, position int, r booking.Resource) error {
	query := `
		INSERT INTO resources (id, venue_id, name, capacity, categories, position)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			venue_id = excluded.venue_id,
			name = excluded.name,
			capacity = excluded.capacity,
			categories = excluded.categories,
			position = excluded.position
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, venueID, r.Name, r.Capacity, strings.Join(r.AllowedCategories, ","), position,
	)
	if err != nil {
		return fmt.Errorf("inserting resource: %w", err)
	}
	return nil
}

// CreateUser inserts or renames a user.
func (s *SQLite) CreateUser(ctx context.Context, p booking.Participant) error {
	query := `
		INSERT INTO users (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// JoinRoom adds a room membership. An existing membership keeps its
// watermark.
func (s *SQLite) JoinRoom(ctx context.Context, r booking.Room) error {
	query := `
		INSERT INTO rooms (key, user_id, name, category) VALUES (?, ?, ?, ?)
		ON CONFLICT(key, user_id) DO UPDATE SET name = excluded.name, category = excluded.category
	`
	if _, err := s.db.ExecContext(ctx, query, r.Key, r.UserID, r.Name, r.Category); err != nil {
		return fmt.Errorf("joining room: %w", err)
	}
	return nil
}

// SupportRoomKey is the key of a user's support room for a category.
func SupportRoomKey(category, userID string) string {
	return category + ":" + userID
}

// SeedReport counts what Seed inserted.
type SeedReport struct {
	Resources int
	Users     int
	Bookings  int
	Blocks    int
}

// Seed loads a demo venue: four courts, a handful of players with support
// rooms, and bookings on date. Static records are upserted; the day's
// bookings are only added when the venue has none on date yet.
func (s *SQLite) Seed(ctx context.Context, venueID string, date time.Time) (*SeedReport, error) {
	report := &SeedReport{}

	categories := []booking.Category{
		{ID: "badminton", Name: "Badminton"},
		{ID: "pickleball", Name: "Pickleball"},
		{ID: "tennis", Name: "Tennis"},
	}
	for _, c := range categories {
		if err := s.CreateCategory(ctx, c); err != nil {
			return nil, err
		}
	}

	resources := []booking.Resource{
		{ID: venueID + "-court-1", Name: "Court 1", Capacity: 4, AllowedCategories: []string{"badminton"}},
		{ID: venueID + "-court-2", Name: "Court 2", Capacity: 4, AllowedCategories: []string{"badminton", "pickleball"}},
		{ID: venueID + "-court-3", Name: "Court 3", Capacity: 4, AllowedCategories: []string{"pickleball"}},
		{ID: venueID + "-court-4", Name: "Center Court", Capacity: 4, AllowedCategories: []string{"tennis"}},
	}
	for i, r := range resources {
		if err := s.CreateResource(ctx, venueID, i, r); err != nil {
			return nil, err
		}
		report.Resources++
	}

	users := []booking.Participant{
		{ID: "u-anna", Name: "Anna"},
		{ID: "u-ben", Name: "Ben"},
		{ID: "u-chai", Name: "Chai"},
		{ID: "u-dao", Name: "Dao"},
	}
	for _, u := range users {
		if err := s.CreateUser(ctx, u); err != nil {
			return nil, err
		}
		report.Users++
		for _, c := range categories {
			room := booking.Room{
				Key:      SupportRoomKey(c.ID, u.ID),
				Name:     fmt.Sprintf("%s / %s", c.Name, u.Name),
				Category: c.ID,
				UserID:   u.ID,
			}
			if err := s.JoinRoom(ctx, room); err != nil {
				return nil, err
			}
		}
	}

	existing := 0
	for _, r := range resources {
		bookings, err := s.ListBookings(ctx, r.ID, date)
		if err != nil {
			return nil, err
		}
		existing += len(bookings)
	}
	if existing > 0 {
		return report, nil
	}

	day := slot.StartOfDay(slot.Normalize(date, s.loc))
	at := func(hour, minute int) time.Time {
		return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	games := []booking.NewGame{
		{ResourceID: resources[0].ID, Category: "badminton", Title: "Morning doubles", Interval: slot.Interval{Start: at(8, 0), End: at(9, 30)}, ParticipantIDs: []string{"u-anna", "u-ben"}},
		{ResourceID: resources[1].ID, Category: "pickleball", Title: "Beginner clinic", Interval: slot.Interval{Start: at(10, 0), End: at(11, 0)}, ParticipantIDs: []string{"u-chai"}},
		{ResourceID: resources[3].ID, Category: "tennis", Title: "Club ladder", Interval: slot.Interval{Start: at(17, 0), End: at(19, 0)}, ParticipantIDs: []string{"u-dao", "u-anna"}},
	}
	for _, g := range games {
		if _, err := s.CreateGame(ctx, g); err != nil {
			return nil, fmt.Errorf("seeding %q: %w", g.Title, err)
		}
		report.Bookings++
	}

	raw := booking.Booking{
		ResourceID: resources[2].ID,
		Category:   "pickleball",
		Title:      "Walk-in",
		Interval:   slot.Interval{Start: at(14, 0), End: at(15, 0)},
	}
	if _, err := s.CreateBooking(ctx, raw); err != nil {
		return nil, fmt.Errorf("seeding walk-in: %w", err)
	}
	report.Bookings++

	if err := s.Block(ctx, resources[0].ID, slot.Interval{Start: at(12, 0), End: at(13, 0)}); err != nil {
		return nil, fmt.Errorf("seeding maintenance block: %w", err)
	}
	report.Blocks++

	return report, nil
}
