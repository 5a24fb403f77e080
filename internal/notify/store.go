// Package notify tracks unread chat activity for the bookings on the
// timeline. A Hub discovers each booking's rooms, keeps one pooled
// connection per room and publishes a booking -> unread map that the UI
// reads without making network calls.
package notify

import "sync"

// UnreadStore holds the unread flag per booking.
type UnreadStore struct {
	mu      sync.RWMutex
	flags   map[string]bool
	version uint64
}

// NewUnreadStore creates an empty store.
func NewUnreadStore() *UnreadStore {
	return &UnreadStore{flags: make(map[string]bool)}
}

// Get reports whether bookingID has unread messages.
func (s *UnreadStore) Get(bookingID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[bookingID]
}

// Set updates one booking's flag.
func (s *UnreadStore) Set(bookingID string, unread bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags[bookingID] == unread {
		return
	}
	if unread {
		s.flags[bookingID] = true
	} else {
		delete(s.flags, bookingID)
	}
	s.version++
}

// Replace swaps in a complete map.
func (s *UnreadStore) Replace(flags map[string]bool) {
	next := make(map[string]bool, len(flags))
	for k, v := range flags {
		if v {
			next[k] = true
		}
	}
	s.mu.Lock()
	s.flags = next
	s.version++
	s.mu.Unlock()
}

// Snapshot returns a copy of the unread bookings.
func (s *UnreadStore) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// Count returns the number of unread bookings.
func (s *UnreadStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flags)
}

// Version increases on every change. Renderers compare it to skip redraws.
func (s *UnreadStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Clear drops every flag.
func (s *UnreadStore) Clear() {
	s.Replace(nil)
}
