package timeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Query selects which day timeline to load.
type Query struct {
	VenueID  string
	Date     time.Time
	Category string // empty shows every court
}

// Same reports whether two queries load the same timeline.
func (q Query) Same(other Query) bool {
	return q.VenueID == other.VenueID &&
		q.Category == other.Category &&
		slot.StartOfDay(q.Date).Equal(slot.StartOfDay(other.Date))
}

// Snapshot is the result of one refresh.
type Snapshot struct {
	Generation uint64
	Query      Query
	Grid       *grid.Grid
	Bookings   []booking.Booking // occupying bookings, for the notification hub
	Failures   []error
}

// Loader fetches day timelines. Every refresh is tagged with a generation;
// only the newest begun generation may be applied.
type Loader struct {
	reader booking.Reader
	log    logrus.FieldLogger
	loc    *time.Location
	gen    atomic.Uint64
}

// NewLoader creates a loader normalizing all times to loc.
func NewLoader(reader booking.Reader, loc *time.Location, log logrus.FieldLogger) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{reader: reader, log: log, loc: loc}
}

// Location returns the fixed zone the loader normalizes to.
func (l *Loader) Location() *time.Location {
	return l.loc
}

// Begin starts a new refresh and returns its generation. Any refresh begun
// earlier becomes stale.
func (l *Loader) Begin() uint64 {
	return l.gen.Add(1)
}

// Current returns the newest begun generation.
func (l *Loader) Current() uint64 {
	return l.gen.Load()
}

// IsCurrent reports whether gen is still the newest refresh.
func (l *Loader) IsCurrent(gen uint64) bool {
	return l.gen.Load() == gen
}

type rowResult struct {
	resourceID string
	input      grid.RowInput
	err        error
}

// Load fetches every court of the venue and builds the grid. Courts are
// fetched concurrently; a court that fails to load renders empty and its
// error is reported in Snapshot.Failures. Only a failure to list the courts
// themselves fails the whole load.
func (l *Loader) Load(ctx context.Context, gen uint64, q Query) (*Snapshot, error) {
	day := slot.StartOfDay(slot.Normalize(q.Date, l.loc))
	log := l.log.WithFields(logrus.Fields{
		"generation": gen,
		"venue":      q.VenueID,
		"date":       day.Format("2006-01-02"),
	})

	resources, err := l.reader.ListResources(ctx, q.VenueID)
	if err != nil {
		log.WithError(err).Error("listing courts")
		return nil, &FetchFailure{Err: err}
	}
	resources = grid.FilterResources(resources, q.Category)

	results := make(chan rowResult, len(resources))
	var wg sync.WaitGroup
	for _, res := range resources {
		wg.Add(1)
		go func(resourceID string) {
			defer wg.Done()
			in, err := l.loadRow(ctx, resourceID, day)
			results <- rowResult{resourceID: resourceID, input: in, err: err}
		}(res.ID)
	}
	wg.Wait()
	close(results)

	snap := &Snapshot{Generation: gen, Query: q}
	rows := make(map[string]grid.RowInput, len(resources))
	for r := range results {
		if r.err != nil {
			log.WithError(r.err).WithField("court", r.resourceID).Warn("court failed to load, showing empty row")
			snap.Failures = append(snap.Failures, &FetchFailure{ResourceID: r.resourceID, Err: r.err})
			continue
		}
		rows[r.resourceID] = r.input
		snap.Bookings = append(snap.Bookings, r.input.Bookings...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.Grid = grid.Build(grid.BuildInput{
		Date:      day,
		Location:  l.loc,
		Resources: resources,
		Rows:      rows,
	})
	log.WithFields(logrus.Fields{
		"courts":   len(resources),
		"bookings": len(snap.Bookings),
		"failures": len(snap.Failures),
	}).Debug("timeline loaded")
	return snap, nil
}

func (l *Loader) loadRow(ctx context.Context, resourceID string, day time.Time) (grid.RowInput, error) {
	slots, err := l.reader.ListSlots(ctx, resourceID, day)
	if err != nil {
		return grid.RowInput{}, fmt.Errorf("listing slots: %w", err)
	}
	bookings, err := l.reader.ListBookings(ctx, resourceID, day)
	if err != nil {
		return grid.RowInput{}, fmt.Errorf("listing bookings: %w", err)
	}
	for i := range bookings {
		if bookings[i].ResourceID == "" {
			bookings[i].ResourceID = resourceID
		}
	}
	for i := range slots {
		if slots[i].ResourceID == "" {
			slots[i].ResourceID = resourceID
		}
	}
	return grid.SplitRecords(bookings, slots), nil
}
