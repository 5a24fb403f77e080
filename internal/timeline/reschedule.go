package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Mover is the part of the backend the reschedule flow needs.
type Mover interface {
	booking.Reader
	booking.Commander
}

// MoveResult describes a completed move.
type MoveResult struct {
	ID           string
	Kind         booking.Kind // empty for blocks
	Blocked      bool
	FromResource string
	ToResource   string
	From         slot.Interval
	To           slot.Interval

	// Grid is the optimistic grid with the span already moved. It is nil when
	// the displayed span could not be moved locally; callers refresh anyway.
	Grid *grid.Grid
}

// Coordinator performs drag-and-drop reschedules.
type Coordinator struct {
	backend  Mover
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewCoordinator creates a coordinator. Errors and confirmations are sent to
// notifier as toasts.
func NewCoordinator(backend Mover, notifier Notifier, log logrus.FieldLogger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{backend: backend, notifier: notifier, log: log, now: time.Now}
}

// located is the authoritative record found at the drag source.
type located struct {
	id      string
	kind    booking.Kind
	blocked bool
	iv      slot.Interval
}

// Move reschedules whatever occupies src so that it starts at dst, keeping
// its duration. The grid passed in is never modified. The returned error is
// a ValidationFailure or CommandFailure and has already been reported to
// the notifier.
func (c *Coordinator) Move(ctx context.Context, g *grid.Grid, src, dst grid.Pos) (*MoveResult, error) {
	res, err := c.move(ctx, g, src, dst)
	if err != nil {
		errorf(c.notifier, c.now(), err)
		c.log.WithError(err).WithFields(logrus.Fields{
			"src": fmt.Sprintf("%d:%d", src.Row, src.Col),
			"dst": fmt.Sprintf("%d:%d", dst.Row, dst.Col),
		}).Warn("move rejected")
		return nil, err
	}
	infof(c.notifier, c.now(), fmt.Sprintf("Moved to %s", formatInterval(res.To)))
	return res, nil
}

func (c *Coordinator) move(ctx context.Context, g *grid.Grid, src, dst grid.Pos) (*MoveResult, error) {
	const op = "move"
	if g == nil {
		return nil, &ValidationFailure{Op: op, Err: ErrNoGrid}
	}
	if !g.Valid(src) || !g.Valid(dst) {
		return nil, &ValidationFailure{Op: op, Err: grid.ErrInvalidPosition}
	}
	if g.State(dst).IsExisting() {
		return nil, &ValidationFailure{Op: op, Err: grid.ErrTargetOccupied}
	}
	if !g.State(src).IsExisting() {
		return nil, &ValidationFailure{Op: op, Err: grid.ErrNothingToMove}
	}

	// Dry run on the displayed grid catches collisions further along the
	// target range before anything is sent.
	preview, err := g.MoveSpan(src, dst)
	switch {
	case errors.Is(err, grid.ErrSpanOverflow):
		return nil, &ValidationFailure{Op: op, Err: ErrCrossDay}
	case err != nil:
		return nil, &ValidationFailure{Op: op, Err: err}
	}

	srcRes, _ := g.Resource(src.Row)
	dstRes, _ := g.Resource(dst.Row)

	rec, err := c.lookup(ctx, g, srcRes.ID, src)
	if err != nil {
		return nil, &CommandFailure{Op: op, Err: err}
	}

	target, err := g.ColumnRange(dst.Col)
	if err != nil {
		return nil, &ValidationFailure{Op: op, Err: err}
	}
	to := rec.iv.Shift(target.Start)
	if to.End.After(slot.DayInterval(g.Date()).End) {
		return nil, &ValidationFailure{Op: op, Err: ErrCrossDay}
	}

	log := c.log.WithFields(logrus.Fields{
		"id":   rec.id,
		"kind": rec.kind,
		"from": rec.iv.String(),
		"to":   to.String(),
	})

	if err := c.dispatch(ctx, rec, srcRes.ID, dstRes.ID, to); err != nil {
		return nil, &CommandFailure{Op: op, Err: err}
	}
	log.Info("rescheduled")

	return &MoveResult{
		ID:           rec.id,
		Kind:         rec.kind,
		Blocked:      rec.blocked,
		FromResource: srcRes.ID,
		ToResource:   dstRes.ID,
		From:         rec.iv,
		To:           to,
		Grid:         preview,
	}, nil
}

// lookup resolves the record at src from a fresh backend read. The displayed
// cell only tells which kind of record to look for.
func (c *Coordinator) lookup(ctx context.Context, g *grid.Grid, resourceID string, src grid.Pos) (located, error) {
	cell := g.Cell(src)
	colRange, err := g.ColumnRange(src.Col)
	if err != nil {
		return located{}, err
	}

	if cell.State == grid.Blocked {
		slots, err := c.backend.ListSlots(ctx, resourceID, g.Date())
		if err != nil {
			return located{}, &FetchFailure{ResourceID: resourceID, Err: err}
		}
		var found *booking.Slot
		for i := range slots {
			s := &slots[i]
			if s.State != booking.SlotBlocked || !s.Interval.Overlaps(colRange) {
				continue
			}
			if found == nil || s.ID == cell.SlotID {
				found = s
			}
		}
		if found == nil {
			return located{}, ErrSourceGone
		}
		return located{id: found.ID, blocked: true, iv: found.Interval}, nil
	}

	bookings, err := c.backend.ListBookings(ctx, resourceID, g.Date())
	if err != nil {
		return located{}, &FetchFailure{ResourceID: resourceID, Err: err}
	}
	var found *booking.Booking
	for i := range bookings {
		b := &bookings[i]
		if !b.Occupies() || !b.Interval.Overlaps(colRange) {
			continue
		}
		if found == nil || b.ID == cell.BookingID {
			found = b
		}
	}
	if found == nil {
		return located{}, ErrSourceGone
	}
	return located{id: found.ID, kind: found.Kind, iv: found.Interval}, nil
}

func (c *Coordinator) dispatch(ctx context.Context, rec located, fromResource, toResource string, to slot.Interval) error {
	switch {
	case rec.blocked:
		// Unblock first: Unblock clears every block overlapping its range,
		// which would take the new block with it on a short same-court move.
		if err := c.backend.Unblock(ctx, fromResource, rec.iv); err != nil {
			return err
		}
		if err := c.backend.Block(ctx, toResource, to); err != nil {
			if rerr := c.backend.Block(ctx, fromResource, rec.iv); rerr != nil {
				c.log.WithError(rerr).WithField("id", rec.id).Error("restoring block after failed move")
			}
			return err
		}
		return nil
	case rec.kind == booking.KindGame:
		return c.backend.RescheduleGame(ctx, rec.id, toResource, to)
	case rec.kind == booking.KindBooking:
		return c.backend.RescheduleBooking(ctx, rec.id, toResource, to)
	default:
		return fmt.Errorf("%w: %q", booking.ErrInvalidKind, rec.kind)
	}
}

func formatInterval(iv slot.Interval) string {
	return slot.FormatClock(iv.Start) + " - " + slot.FormatClock(iv.End)
}
