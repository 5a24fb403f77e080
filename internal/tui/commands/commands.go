// Package commands provides TUI command constructors and message types.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/notify"
	"github.com/javiermolinar/courtdesk/internal/timeline"
)

// SnapshotMsg is sent when a day timeline has loaded.
type SnapshotMsg struct {
	Snapshot *timeline.Snapshot
}

// ErrMsg is sent when an error occurs.
type ErrMsg struct {
	Err error
}

// StatusMsgCmd is sent for temporary status messages.
type StatusMsgCmd struct {
	Msg string
}

// ClearStatusMsg is sent to clear the status message.
type ClearStatusMsg struct{}

// CommandDoneMsg is sent when a desk command has finished. The desk has
// already refreshed and toasted by then; Err only tells the model whether to
// keep the selection-driven mode it was in.
type CommandDoneMsg struct {
	Op  string
	Err error
}

// ToastsMsg carries toasts drained from the desk's queue.
type ToastsMsg struct {
	Toasts []timeline.Toast
}

// UnreadMsg is sent by the poller when a cycle has published unread flags.
type UnreadMsg struct {
	Gen uint64
}

// UnreadTickMsg asks the model to look for unread changes made by live
// messages between polls.
type UnreadTickMsg struct{}

// CategoriesMsg is sent when the category list has loaded.
type CategoriesMsg struct {
	IDs []string
}

// HandledMsg is sent when a booking's chat rooms were marked handled.
type HandledMsg struct {
	BookingID string
	Err       error
}

// Load fetches the timeline for q under generation gen.
func Load(loader *timeline.Loader, gen uint64, q timeline.Query) tea.Cmd {
	return func() tea.Msg {
		snap, err := loader.Load(context.Background(), gen, q)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// LoadCategories fetches the category ids used by the category filter.
func LoadCategories(reader booking.Reader) tea.Cmd {
	return func() tea.Msg {
		categories, err := reader.ListCategories(context.Background())
		if err != nil {
			return ErrMsg{Err: fmt.Errorf("loading categories: %w", err)}
		}
		ids := make([]string, 0, len(categories))
		for _, c := range categories {
			ids = append(ids, c.ID)
		}
		return CategoriesMsg{IDs: ids}
	}
}

// Refresh starts a refresh of the desk's current query.
func Refresh(desk *timeline.Desk, loader *timeline.Loader) tea.Cmd {
	gen, q := desk.StartRefresh()
	return Load(loader, gen, q)
}

func run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return CommandDoneMsg{Op: op, Err: fn(context.Background())}
	}
}

// Book creates a game over the desk's selection.
func Book(desk *timeline.Desk, req timeline.BookRequest) tea.Cmd {
	return run("book", func(ctx context.Context) error {
		_, err := desk.Book(ctx, req)
		return err
	})
}

// Block blocks the selected range.
func Block(desk *timeline.Desk) tea.Cmd {
	return run("block", desk.Block)
}

// Unblock removes blocks over the selected range.
func Unblock(desk *timeline.Desk) tea.Cmd {
	return run("unblock", desk.Unblock)
}

// Unbook cancels the selected bookings.
func Unbook(desk *timeline.Desk) tea.Cmd {
	return run("unbook", desk.Unbook)
}

// Move moves the record at src so that it starts at dst.
func Move(desk *timeline.Desk, src, dst grid.Pos) tea.Cmd {
	return run("move", func(ctx context.Context) error {
		_, err := desk.Move(ctx, src, dst)
		return err
	})
}

// WaitToast blocks until the queue has toasts and delivers them.
func WaitToast(q *timeline.ToastQueue) tea.Cmd {
	return func() tea.Msg {
		<-q.Ready()
		return ToastsMsg{Toasts: q.Drain()}
	}
}

// MarkHandled marks every chat room of a booking handled.
func MarkHandled(hub *notify.Hub, bookingID, comment string) tea.Cmd {
	return func() tea.Msg {
		err := hub.MarkHandled(context.Background(), bookingID, comment)
		if errors.Is(err, notify.ErrUnknownBooking) {
			err = errors.New("no chat rooms tracked for this booking yet")
		}
		return HandledMsg{BookingID: bookingID, Err: err}
	}
}

// UnreadTick schedules the next UnreadTickMsg.
func UnreadTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return UnreadTickMsg{}
	})
}

// ClearStatusAfter schedules a ClearStatusMsg.
func ClearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
