package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

var testLoc = time.FixedZone("UTC+07:00", 7*60*60)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, testLoc)

func hm(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func span(h1, m1, h2, m2 int) slot.Interval {
	return slot.Interval{Start: hm(h1, m1), End: hm(h2, m2)}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeBackend is an in-memory Mover that records every command.
type fakeBackend struct {
	mu        sync.Mutex
	resources []booking.Resource
	bookings  []booking.Booking
	slots     []booking.Slot
	calls     []string
	nextID    int

	failList     error            // ListResources
	failRow      map[string]error // ListBookings per court
	failCommands error
	delay        time.Duration
}

func newFakeBackend(courts int) *fakeBackend {
	f := &fakeBackend{failRow: map[string]error{}}
	for i := 0; i < courts; i++ {
		f.resources = append(f.resources, booking.Resource{
			ID:                fmt.Sprintf("court-%d", i),
			Name:              fmt.Sprintf("Court %d", i+1),
			Capacity:          4,
			AllowedCategories: []string{"badminton"},
		})
	}
	return f
}

func (f *fakeBackend) addBooking(id, court string, kind booking.Kind, iv slot.Interval) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, booking.Booking{
		ID: id, ResourceID: court, Kind: kind, Status: booking.StatusActive,
		Category: "badminton", Title: "Game " + id, Interval: iv,
	})
}

func (f *fakeBackend) addBlock(id, court string, iv slot.Interval) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = append(f.slots, booking.Slot{ID: id, ResourceID: court, State: booking.SlotBlocked, Interval: iv})
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBackend) ListResources(ctx context.Context, venueID string) ([]booking.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]booking.Resource, len(f.resources))
	copy(out, f.resources)
	return out, nil
}

func (f *fakeBackend) GetResource(ctx context.Context, id string) (*booking.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.resources {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, booking.ErrNotFound
}

func (f *fakeBackend) ListCategories(ctx context.Context) ([]booking.Category, error) {
	return []booking.Category{{ID: "badminton", Name: "Badminton"}}, nil
}

func (f *fakeBackend) ListSlots(ctx context.Context, resourceID string, date time.Time) ([]booking.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []booking.Slot
	for _, s := range f.slots {
		if s.ResourceID == resourceID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeBackend) ListBookings(ctx context.Context, resourceID string, date time.Time) ([]booking.Booking, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failRow[resourceID]; err != nil {
		return nil, err
	}
	var out []booking.Booking
	for _, b := range f.bookings {
		if b.ResourceID == resourceID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBackend) Block(ctx context.Context, resourceID string, iv slot.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("block %s %s", resourceID, iv))
	if f.failCommands != nil {
		return f.failCommands
	}
	f.nextID++
	f.slots = append(f.slots, booking.Slot{
		ID: fmt.Sprintf("blk-%d", f.nextID), ResourceID: resourceID, State: booking.SlotBlocked, Interval: iv,
	})
	return nil
}

func (f *fakeBackend) Unblock(ctx context.Context, resourceID string, iv slot.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("unblock %s %s", resourceID, iv))
	if f.failCommands != nil {
		return f.failCommands
	}
	kept := f.slots[:0]
	for _, s := range f.slots {
		if s.ResourceID == resourceID && s.State == booking.SlotBlocked && s.Interval.Overlaps(iv) {
			continue
		}
		kept = append(kept, s)
	}
	f.slots = kept
	return nil
}

func (f *fakeBackend) CreateGame(ctx context.Context, game booking.NewGame) (*booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("create %s %s", game.ResourceID, game.Interval))
	if f.failCommands != nil {
		return nil, f.failCommands
	}
	f.nextID++
	b := booking.Booking{
		ID: fmt.Sprintf("G%d", f.nextID), ResourceID: game.ResourceID, Kind: booking.KindGame,
		Status: booking.StatusActive, Category: game.Category, Title: game.Title, Interval: game.Interval,
	}
	f.bookings = append(f.bookings, b)
	return &b, nil
}

func (f *fakeBackend) cancel(id string) error {
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].Status = booking.StatusCancelled
			return nil
		}
	}
	return booking.ErrNotFound
}

func (f *fakeBackend) CancelGame(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cancel-game " + id)
	if f.failCommands != nil {
		return f.failCommands
	}
	return f.cancel(id)
}

func (f *fakeBackend) CancelBooking(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cancel-booking " + id)
	if f.failCommands != nil {
		return f.failCommands
	}
	return f.cancel(id)
}

func (f *fakeBackend) reschedule(id, resourceID string, iv slot.Interval) error {
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].ResourceID = resourceID
			f.bookings[i].Interval = iv
			f.bookings[i].Status = booking.StatusRescheduled
			return nil
		}
	}
	return booking.ErrNotFound
}

func (f *fakeBackend) RescheduleGame(ctx context.Context, id, resourceID string, iv slot.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("reschedule-game %s %s %s", id, resourceID, iv))
	if f.failCommands != nil {
		return f.failCommands
	}
	return f.reschedule(id, resourceID, iv)
}

func (f *fakeBackend) RescheduleBooking(ctx context.Context, id, resourceID string, iv slot.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("reschedule-booking %s %s %s", id, resourceID, iv))
	if f.failCommands != nil {
		return f.failCommands
	}
	return f.reschedule(id, resourceID, iv)
}

var errBackendDown = errors.New("backend down")

// toastRecorder collects toasts.
type toastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *toastRecorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

func (r *toastRecorder) errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.toasts {
		if t.Level == LevelError {
			n++
		}
	}
	return n
}
