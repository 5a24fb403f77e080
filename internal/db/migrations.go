package db

import "fmt"

// migrate runs database migrations. Times are stored as unix nanoseconds so
// range checks stay plain integer comparisons.
func (s *SQLite) migrate() error {
	steps := []struct {
		name  string
		query string
	}{
		{"categories", `
			CREATE TABLE IF NOT EXISTS categories (
				id   TEXT PRIMARY KEY,
				name TEXT NOT NULL
			);
		`},
		{"resources", `
			CREATE TABLE IF NOT EXISTS resources (
				id         TEXT PRIMARY KEY,
				venue_id   TEXT NOT NULL,
				name       TEXT NOT NULL,
				capacity   INTEGER NOT NULL DEFAULT 4,
				categories TEXT NOT NULL DEFAULT '',
				position   INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX IF NOT EXISTS idx_resources_venue ON resources(venue_id, position);
		`},
		{"bookings", `
			CREATE TABLE IF NOT EXISTS bookings (
				id          TEXT PRIMARY KEY,
				resource_id TEXT NOT NULL REFERENCES resources(id),
				kind        TEXT NOT NULL CHECK(kind IN ('game', 'booking')),
				status      TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'rescheduled', 'cancelled')),
				category    TEXT NOT NULL DEFAULT '',
				title       TEXT NOT NULL DEFAULT '',
				starts_at   INTEGER NOT NULL,
				ends_at     INTEGER NOT NULL,
				created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_bookings_range ON bookings(resource_id, starts_at, ends_at);
		`},
		{"slots", `
			CREATE TABLE IF NOT EXISTS slots (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				resource_id TEXT NOT NULL REFERENCES resources(id),
				state       TEXT NOT NULL CHECK(state IN ('blocked', 'cancelled')),
				starts_at   INTEGER NOT NULL,
				ends_at     INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_slots_range ON slots(resource_id, starts_at, ends_at);
		`},
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id   TEXT PRIMARY KEY,
				name TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS participants (
				booking_id TEXT NOT NULL REFERENCES bookings(id),
				user_id    TEXT NOT NULL REFERENCES users(id),
				PRIMARY KEY (booking_id, user_id)
			);
		`},
		{"rooms", `
			CREATE TABLE IF NOT EXISTS rooms (
				key        TEXT NOT NULL,
				user_id    TEXT NOT NULL REFERENCES users(id),
				name       TEXT NOT NULL DEFAULT '',
				category   TEXT NOT NULL DEFAULT '',
				handled_at INTEGER,
				PRIMARY KEY (key, user_id)
			);

			CREATE TABLE IF NOT EXISTS handled_log (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				room_key   TEXT NOT NULL,
				user_id    TEXT NOT NULL,
				handled_at INTEGER NOT NULL,
				comment    TEXT NOT NULL DEFAULT '',
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
		`},
	}

	for _, step := range steps {
		if _, err := s.db.Exec(step.query); err != nil {
			return fmt.Errorf("creating %s tables: %w", step.name, err)
		}
	}
	return nil
}
