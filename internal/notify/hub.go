package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/realtime"
)

// ErrUnknownBooking is returned by MarkHandled for a booking the hub has
// not discovered rooms for.
var ErrUnknownBooking = errors.New("booking has no tracked chat rooms")

// Config tunes request pacing.
type Config struct {
	BatchSize      int           // participants per discovery batch
	BatchDelay     time.Duration // pause between discovery batches
	ConnectStagger time.Duration // pause between new room connections
	HistoryLimit   int           // messages read when backfilling a room
}

// DefaultConfig returns the pacing used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BatchSize:      5,
		BatchDelay:     200 * time.Millisecond,
		ConnectStagger: 50 * time.Millisecond,
		HistoryLimit:   20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.ConnectStagger < 0 {
		c.ConnectStagger = 0
	}
	return c
}

// roomRef is one participant's membership of a room, as seen from a booking.
type roomRef struct {
	key      string
	user     string
	category string
}

// SyncReport summarizes one Sync.
type SyncReport struct {
	Bookings int
	Rooms    int
	Unread   int
	Failures []error
}

// Hub discovers rooms per booking and tracks their unread state.
type Hub struct {
	dir   booking.ChatDirectory
	pool  *realtime.Pool
	store *UnreadStore
	cfg   Config
	log   logrus.FieldLogger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu        sync.Mutex
	tracked   map[string][]roomRef // booking id -> rooms
	listening map[string]bool      // room keys with a live listener
}

// NewHub creates a hub. The pool is owned by the hub from now on.
func NewHub(dir booking.ChatDirectory, pool *realtime.Pool, cfg Config, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		dir:       dir,
		pool:      pool,
		store:     NewUnreadStore(),
		cfg:       cfg.withDefaults(),
		log:       log.WithField("component", "notify"),
		now:       time.Now,
		sleep:     sleepCtx,
		tracked:   make(map[string][]roomRef),
		listening: make(map[string]bool),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Store returns the unread store the hub publishes to.
func (h *Hub) Store() *UnreadStore {
	return h.store
}

// Unread returns a snapshot of booking id -> unread.
func (h *Hub) Unread() map[string]bool {
	return h.store.Snapshot()
}

// Rooms returns the room keys tracked for a booking.
func (h *Hub) Rooms(bookingID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	refs := h.tracked[bookingID]
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.key)
	}
	return out
}

type pair struct {
	booking     booking.Booking
	participant booking.Participant
}

type discovered struct {
	bookingID string
	ref       roomRef
	handledAt time.Time
}

// Sync brings the hub in line with bookings: it discovers every occupying
// booking's rooms, connects to new ones, backfills their history, and
// releases rooms no longer referenced. One room or participant failing is
// logged and skipped. Results are published only if ctx is still live when
// the sync completes.
func (h *Hub) Sync(ctx context.Context, bookings []booking.Booking) (*SyncReport, error) {
	report := &SyncReport{}

	var pairs []pair
	for _, b := range bookings {
		if !b.Occupies() {
			continue
		}
		report.Bookings++
		participants, err := h.dir.ListParticipants(ctx, b.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			h.log.WithError(err).WithField("booking", b.ID).Warn("listing participants")
			report.Failures = append(report.Failures, fmt.Errorf("participants of %s: %w", b.ID, err))
			continue
		}
		for _, p := range participants {
			pairs = append(pairs, pair{booking: b, participant: p})
		}
	}

	found, failures, err := h.discover(ctx, pairs)
	if err != nil {
		return nil, err
	}
	report.Failures = append(report.Failures, failures...)

	tracked := make(map[string][]roomRef)
	wanted := make(map[string]bool)
	connected := 0
	for _, d := range found {
		conn, fresh, err := h.connect(ctx, d.ref.key, connected)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			h.log.WithError(err).WithField("room", d.ref.key).Warn("skipping room")
			report.Failures = append(report.Failures, err)
			continue
		}
		if fresh {
			connected++
		}
		conn.SetHandledAt(d.ref.user, d.ref.category, d.handledAt)
		if !containsRef(tracked[d.bookingID], d.ref) {
			tracked[d.bookingID] = append(tracked[d.bookingID], d.ref)
		}
		wanted[d.ref.key] = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	var stale []string
	for key := range h.listening {
		if !wanted[key] {
			stale = append(stale, key)
			delete(h.listening, key)
		}
	}
	h.tracked = tracked
	flags := h.computeLocked()
	h.mu.Unlock()

	for _, key := range stale {
		h.pool.Release(key)
	}
	h.store.Replace(flags)

	report.Rooms = len(wanted)
	report.Unread = len(flags)
	h.log.WithFields(logrus.Fields{
		"bookings": report.Bookings,
		"rooms":    report.Rooms,
		"unread":   report.Unread,
		"failures": len(report.Failures),
	}).Debug("notification sync")
	return report, nil
}

// discover resolves each participant's room for the booking's category.
// Participants are processed in batches; batches run one after another
// with BatchDelay between them.
func (h *Hub) discover(ctx context.Context, pairs []pair) ([]discovered, []error, error) {
	var (
		found    []discovered
		failures []error
	)
	for start := 0; start < len(pairs); start += h.cfg.BatchSize {
		if start > 0 {
			if err := h.sleep(ctx, h.cfg.BatchDelay); err != nil {
				return nil, nil, err
			}
		}
		end := min(start+h.cfg.BatchSize, len(pairs))
		batch := pairs[start:end]

		results := make([][]discovered, len(batch))
		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i, p := range batch {
			wg.Add(1)
			go func(i int, p pair) {
				defer wg.Done()
				results[i], errs[i] = h.roomsFor(ctx, p)
			}(i, p)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for i := range batch {
			if errs[i] != nil {
				h.log.WithError(errs[i]).WithField("user", batch[i].participant.ID).Warn("listing rooms")
				failures = append(failures, errs[i])
				continue
			}
			found = append(found, results[i]...)
		}
	}
	return found, failures, nil
}

func (h *Hub) roomsFor(ctx context.Context, p pair) ([]discovered, error) {
	rooms, err := h.dir.ListRooms(ctx, p.participant.ID)
	if err != nil {
		return nil, fmt.Errorf("rooms of %s: %w", p.participant.ID, err)
	}
	var out []discovered
	for _, r := range rooms {
		if !r.Matches(p.booking.Category) {
			continue
		}
		out = append(out, discovered{
			bookingID: p.booking.ID,
			ref:       roomRef{key: r.Key, user: p.participant.ID, category: p.booking.Category},
			handledAt: r.HandledAt,
		})
	}
	return out, nil
}

// connect returns the pooled connection for key. A room seen for the first
// time is staggered, backfilled and given a live listener.
func (h *Hub) connect(ctx context.Context, key string, connected int) (*realtime.Conn, bool, error) {
	h.mu.Lock()
	known := h.listening[key]
	h.mu.Unlock()
	if known {
		if conn, ok := h.pool.Lookup(key); ok {
			return conn, false, nil
		}
	}

	if connected > 0 {
		if err := h.sleep(ctx, h.cfg.ConnectStagger); err != nil {
			return nil, false, err
		}
	}
	conn, err := h.pool.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	// Listen before reading history so nothing sent in between is lost.
	if err := conn.Listen(func(realtime.Message) { h.refresh(key) }); err != nil {
		h.pool.Release(key)
		return nil, false, err
	}
	if _, err := conn.Backfill(ctx, h.cfg.HistoryLimit); err != nil {
		h.pool.Release(key)
		return nil, false, err
	}

	h.mu.Lock()
	h.listening[key] = true
	h.mu.Unlock()
	return conn, true, nil
}

func containsRef(refs []roomRef, r roomRef) bool {
	for _, x := range refs {
		if x == r {
			return true
		}
	}
	return false
}

// computeLocked derives the unread map from the pooled connections.
func (h *Hub) computeLocked() map[string]bool {
	flags := make(map[string]bool)
	for id, refs := range h.tracked {
		if h.unreadLocked(refs) {
			flags[id] = true
		}
	}
	return flags
}

func (h *Hub) unreadLocked(refs []roomRef) bool {
	for _, r := range refs {
		conn, ok := h.pool.Lookup(r.key)
		if ok && conn.Unread(r.user, r.category) {
			return true
		}
	}
	return false
}

// refresh recomputes the bookings attached to a room after a live message.
func (h *Hub) refresh(key string) {
	h.mu.Lock()
	updates := make(map[string]bool)
	for id, refs := range h.tracked {
		for _, r := range refs {
			if r.key == key {
				updates[id] = h.unreadLocked(refs)
				break
			}
		}
	}
	h.mu.Unlock()

	for id, unread := range updates {
		h.store.Set(id, unread)
	}
}

// MarkHandled commits a new watermark for every room of the booking, then
// recomputes the unread flags locally from the stored watermark instead of
// waiting for the next sync.
func (h *Hub) MarkHandled(ctx context.Context, bookingID, comment string) error {
	h.mu.Lock()
	refs := append([]roomRef(nil), h.tracked[bookingID]...)
	h.mu.Unlock()
	if len(refs) == 0 {
		return ErrUnknownBooking
	}

	committed := 0
	for _, r := range refs {
		conn, ok := h.pool.Lookup(r.key)
		if !ok {
			h.log.WithFields(logrus.Fields{"booking": bookingID, "room": r.key}).Debug("room not connected, skipping")
			continue
		}
		at := h.watermark(conn, r)
		if err := h.dir.MarkHandled(ctx, r.key, r.user, at, comment); err != nil {
			return fmt.Errorf("marking room %s handled: %w", r.key, err)
		}
		conn.SetHandledAt(r.user, r.category, at)
		committed++

		stored, err := h.storedWatermark(ctx, r)
		if err != nil {
			h.log.WithError(err).WithField("room", r.key).Warn("re-reading watermark, keeping local value")
			continue
		}
		conn.SetHandledAt(r.user, r.category, stored)
	}
	if committed == 0 {
		return fmt.Errorf("booking %s: no connected rooms: %w", bookingID, ErrUnknownBooking)
	}

	h.mu.Lock()
	var touched []string
	for id, trefs := range h.tracked {
		for _, tr := range trefs {
			if containsKey(refs, tr.key) {
				touched = append(touched, id)
				break
			}
		}
	}
	updates := make(map[string]bool, len(touched))
	for _, id := range touched {
		updates[id] = h.unreadLocked(h.tracked[id])
	}
	h.mu.Unlock()

	for id, unread := range updates {
		h.store.Set(id, unread)
	}
	h.log.WithFields(logrus.Fields{"booking": bookingID, "rooms": committed}).Info("marked handled")
	return nil
}

// watermark picks a handledAt that is strictly after the previous one and
// not before the newest message seen, so the flag clears even when the
// sender's clock runs ahead.
func (h *Hub) watermark(conn *realtime.Conn, r roomRef) time.Time {
	at := h.now()
	if latest := conn.Latest(); latest.After(at) {
		at = latest
	}
	if prev := conn.HandledAt(r.user, r.category); !at.After(prev) {
		at = prev.Add(time.Nanosecond)
	}
	return at
}

func (h *Hub) storedWatermark(ctx context.Context, r roomRef) (time.Time, error) {
	rooms, err := h.dir.ListRooms(ctx, r.user)
	if err != nil {
		return time.Time{}, err
	}
	for _, room := range rooms {
		if room.Key == r.key {
			return room.HandledAt, nil
		}
	}
	return time.Time{}, fmt.Errorf("room %s: %w", r.key, booking.ErrNotFound)
}

func containsKey(refs []roomRef, key string) bool {
	for _, r := range refs {
		if r.key == key {
			return true
		}
	}
	return false
}

// Reset releases every room and clears all unread state. Call it when the
// date or court filter changes.
func (h *Hub) Reset() {
	h.mu.Lock()
	h.tracked = make(map[string][]roomRef)
	h.listening = make(map[string]bool)
	h.mu.Unlock()
	h.pool.Reset()
	h.store.Clear()
}

// Close releases every room for good.
func (h *Hub) Close() {
	h.Reset()
	h.pool.Close()
}
