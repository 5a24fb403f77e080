package timeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

// Desk is the operator's view of one day: the current grid, the selection
// and the commands that act on it. It is safe for concurrent use; commands
// run without holding the lock so a refresh can land while they are in flight.
type Desk struct {
	loader   *Loader
	backend  Mover
	coord    *Coordinator
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time

	mu       sync.Mutex
	query    Query
	grid     *grid.Grid
	sel      grid.Selection
	bookings []booking.Booking
	version  uint64 // bumped on every grid replacement
}

// NewDesk creates a desk for q. The grid is empty until the first refresh.
func NewDesk(loader *Loader, backend Mover, notifier Notifier, log logrus.FieldLogger, q Query) *Desk {
	if log == nil {
		log = logrus.StandardLogger()
	}
	q.Date = slot.StartOfDay(slot.Normalize(q.Date, loader.Location()))
	return &Desk{
		loader:   loader,
		backend:  backend,
		coord:    NewCoordinator(backend, notifier, log),
		notifier: notifier,
		log:      log,
		now:      time.Now,
		query:    q,
		grid:     grid.Empty(q.Date),
	}
}

// Query returns the current query.
func (d *Desk) Query() Query {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// SetQuery switches to another day, venue or category. The selection is
// discarded and any refresh already in flight becomes stale.
func (d *Desk) SetQuery(q Query) {
	q.Date = slot.StartOfDay(slot.Normalize(q.Date, d.loader.Location()))

	d.mu.Lock()
	defer d.mu.Unlock()
	if q.Same(d.query) {
		return
	}
	d.query = q
	d.sel = grid.Selection{}
	d.grid = grid.Empty(q.Date)
	d.bookings = nil
	d.version++
	d.loader.Begin()
}

// Grid returns the current grid.
func (d *Desk) Grid() *grid.Grid {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grid
}

// Bookings returns the occupying bookings of the last applied snapshot.
func (d *Desk) Bookings() []booking.Booking {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]booking.Booking, len(d.bookings))
	copy(out, d.bookings)
	return out
}

// Selection returns the current selection.
func (d *Desk) Selection() grid.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel
}

// Click toggles pos in the selection.
func (d *Desk) Click(pos grid.Pos) grid.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sel = grid.Toggle(d.grid, d.sel, pos)
	return d.sel
}

// ClearSelection drops the selection.
func (d *Desk) ClearSelection() {
	d.mu.Lock()
	d.sel = grid.Selection{}
	d.mu.Unlock()
}

// Display returns the state pos should be rendered with.
func (d *Desk) Display(pos grid.Pos) grid.CellState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return grid.Display(d.grid, d.sel, pos)
}

// Actions returns the actions offered for the current selection.
func (d *Desk) Actions() []grid.Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return grid.ActionsFor(d.grid, d.sel)
}

// SelectionLabel formats the current selection as a time range.
func (d *Desk) SelectionLabel() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return grid.FormatSelection(d.grid, d.sel)
}

// StartRefresh begins a refresh and returns the generation and query to
// load. Use it with Loader.Load and Apply when the load runs elsewhere.
func (d *Desk) StartRefresh() (uint64, Query) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loader.Begin(), d.query
}

// Apply installs a loaded snapshot. Snapshots from a superseded refresh or
// for another query are rejected with ErrStaleGeneration.
func (d *Desk) Apply(snap *Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if snap == nil || snap.Grid == nil {
		return ErrNoGrid
	}
	if !d.loader.IsCurrent(snap.Generation) || !snap.Query.Same(d.query) {
		return ErrStaleGeneration
	}
	d.sel = carrySelection(d.grid, snap.Grid, d.sel)
	d.grid = snap.Grid
	d.bookings = snap.Bookings
	d.version++
	return nil
}

// carrySelection keeps a selection across a same-day refresh only when every
// selected cell still holds the same kind of content.
func carrySelection(prev, next *grid.Grid, sel grid.Selection) grid.Selection {
	if sel.Empty() || prev.NumRows() != next.NumRows() {
		return grid.Selection{}
	}
	for _, p := range sel.Positions() {
		a, b := prev.Cell(p), next.Cell(p)
		if a.State.IsExisting() != b.State.IsExisting() || a.ID() != b.ID() {
			return grid.Selection{}
		}
	}
	return grid.NewSelection(next, sel.Positions()...)
}

// Refresh loads the current query and applies it.
func (d *Desk) Refresh(ctx context.Context) (*Snapshot, error) {
	gen, q := d.StartRefresh()
	snap, err := d.loader.Load(ctx, gen, q)
	if err != nil {
		return nil, err
	}
	if err := d.Apply(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// pending is a consistent view captured before a command runs.
type pending struct {
	grid     *grid.Grid
	sel      grid.Selection
	version  uint64
	query    Query
	resource booking.Resource
	iv       slot.Interval
}

// prepare validates the selection for action and captures the state the
// command works from.
func (d *Desk) prepare(op string, action grid.Action) (pending, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sel.Empty() {
		return pending{}, &ValidationFailure{Op: op, Err: ErrNoSelection}
	}
	if !grid.IsValid(d.sel) {
		return pending{}, &ValidationFailure{Op: op, Err: ErrInvalidSelection}
	}
	if !grid.HasAction(d.grid, d.sel, action) {
		return pending{}, &ValidationFailure{Op: op, Err: ErrActionUnavailable}
	}
	row, _, _, _ := grid.Bounds(d.sel)
	res, _ := d.grid.Resource(row)
	iv, _ := grid.SelectionInterval(d.grid, d.sel)
	return pending{
		grid:     d.grid,
		sel:      d.sel,
		version:  d.version,
		query:    d.query,
		resource: res,
		iv:       iv,
	}, nil
}

// settle applies an optimistic grid after a successful command, unless the
// grid was replaced while the command ran.
func (d *Desk) settle(p pending, next *grid.Grid) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.version != p.version {
		return
	}
	if next != nil {
		d.grid = next
		d.version++
	}
	d.sel = grid.Selection{}
}

// fail reports err and returns it. The grid and selection stay as they are.
func (d *Desk) fail(err error) error {
	errorf(d.notifier, d.now(), err)
	d.log.WithError(err).Warn("command failed")
	return err
}

func (d *Desk) refreshAfter(ctx context.Context, op string) {
	if _, err := d.Refresh(ctx); err != nil {
		d.log.WithError(err).WithField("op", op).Warn("refresh after command failed")
	}
}

// BookRequest describes a new booking made from the selection.
type BookRequest struct {
	Title          string
	Category       string // defaults to the query's category
	ParticipantIDs []string
}

// Book creates a game over the selected range.
func (d *Desk) Book(ctx context.Context, req BookRequest) (*booking.Booking, error) {
	const op = "book"
	p, err := d.prepare(op, grid.ActionBook)
	if err != nil {
		return nil, d.fail(err)
	}
	category := req.Category
	if category == "" {
		category = p.query.Category
	}
	game := booking.NewGame{
		ResourceID:     p.resource.ID,
		Category:       category,
		Title:          strings.TrimSpace(req.Title),
		Interval:       p.iv,
		ParticipantIDs: req.ParticipantIDs,
	}
	if err := game.Validate(); err != nil {
		return nil, d.fail(&ValidationFailure{Op: op, Err: err})
	}
	if !p.resource.Allows(category) {
		return nil, d.fail(&ValidationFailure{Op: op, Err: booking.ErrCategoryDenied})
	}

	created, err := d.backend.CreateGame(ctx, game)
	if err != nil {
		return nil, d.fail(&CommandFailure{Op: op, Err: err})
	}
	d.log.WithFields(logrus.Fields{"id": created.ID, "court": p.resource.ID, "range": p.iv.String()}).Info("booked")
	infof(d.notifier, d.now(), fmt.Sprintf("Booked %s on %s", formatInterval(p.iv), p.resource.Name))
	d.settle(p, nil)
	d.refreshAfter(ctx, op)
	return created, nil
}

// Block marks the selected range unavailable.
func (d *Desk) Block(ctx context.Context) error {
	const op = "block"
	p, err := d.prepare(op, grid.ActionBlock)
	if err != nil {
		return d.fail(err)
	}
	if err := d.backend.Block(ctx, p.resource.ID, p.iv); err != nil {
		return d.fail(&CommandFailure{Op: op, Err: err})
	}
	infof(d.notifier, d.now(), fmt.Sprintf("Blocked %s on %s", formatInterval(p.iv), p.resource.Name))
	d.settle(p, nil)
	d.refreshAfter(ctx, op)
	return nil
}

// Unblock removes blocks over the selected range.
func (d *Desk) Unblock(ctx context.Context) error {
	const op = "unblock"
	p, err := d.prepare(op, grid.ActionUnblock)
	if err != nil {
		return d.fail(err)
	}
	if err := d.backend.Unblock(ctx, p.resource.ID, p.iv); err != nil {
		return d.fail(&CommandFailure{Op: op, Err: err})
	}
	infof(d.notifier, d.now(), fmt.Sprintf("Unblocked %s on %s", formatInterval(p.iv), p.resource.Name))
	d.settle(p, p.grid.MarkApplied(p.sel, grid.Unblock))
	d.refreshAfter(ctx, op)
	return nil
}

// Unbook cancels every booking under the selection. Games show as cancelled
// and raw bookings as unbooked until the next refresh.
func (d *Desk) Unbook(ctx context.Context) error {
	const op = "unbook"
	p, err := d.prepare(op, grid.ActionUnbook)
	if err != nil {
		return d.fail(err)
	}
	ids, _ := grid.SelectedOwners(p.grid, p.sel)
	if len(ids) == 0 {
		return d.fail(&ValidationFailure{Op: op, Err: booking.ErrNothingToCancel})
	}

	next := p.grid
	cancelled := 0
	for _, id := range ids {
		b, ok := p.grid.Booking(id)
		if !ok {
			continue
		}
		state := grid.Unbook
		if b.Kind == booking.KindGame {
			err = d.backend.CancelGame(ctx, id)
			state = grid.Cancelled
		} else {
			err = d.backend.CancelBooking(ctx, id)
		}
		if err != nil {
			if cancelled > 0 {
				d.refreshAfter(ctx, op)
			}
			return d.fail(&CommandFailure{Op: op, Err: fmt.Errorf("%s: %w", id, err)})
		}
		cancelled++
		next = next.MarkApplied(ownedCells(p.grid, p.sel, id), state)
	}

	infof(d.notifier, d.now(), fmt.Sprintf("Cancelled %d booking(s) on %s", cancelled, p.resource.Name))
	d.settle(p, next)
	d.refreshAfter(ctx, op)
	return nil
}

func ownedCells(g *grid.Grid, sel grid.Selection, bookingID string) grid.Selection {
	var positions []grid.Pos
	for _, pos := range sel.Positions() {
		if g.Cell(pos).BookingID == bookingID {
			positions = append(positions, pos)
		}
	}
	return grid.NewSelection(g, positions...)
}

// Move drags the record at src so it starts at dst.
func (d *Desk) Move(ctx context.Context, src, dst grid.Pos) (*MoveResult, error) {
	d.mu.Lock()
	p := pending{grid: d.grid, sel: d.sel, version: d.version}
	d.mu.Unlock()

	res, err := d.coord.Move(ctx, p.grid, src, dst)
	if err != nil {
		return nil, err
	}
	d.settle(p, res.Grid)
	d.refreshAfter(ctx, "move")
	return res, nil
}

// MoveSelection moves the selected booking or block so it starts at dst.
func (d *Desk) MoveSelection(ctx context.Context, dst grid.Pos) (*MoveResult, error) {
	d.mu.Lock()
	sel := d.sel
	g := d.grid
	d.mu.Unlock()

	row, startCol, _, ok := grid.Bounds(sel)
	if !ok || !g.State(grid.Pos{Row: row, Col: startCol}).IsExisting() {
		return nil, d.fail(&ValidationFailure{Op: "move", Err: ErrInvalidSelection})
	}
	return d.Move(ctx, grid.Pos{Row: row, Col: startCol}, dst)
}
