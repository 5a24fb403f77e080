package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/session"
	"github.com/javiermolinar/courtdesk/internal/slot"
	"github.com/javiermolinar/courtdesk/internal/timeline"
)

// withDay opens a session, loads the day and runs fn.
func (a *App) withDay(cmd *cobra.Command, fn func(ctx context.Context, sess *session.Session) error) error {
	sess, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	ctx := cmd.Context()
	snap, err := sess.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("loading day: %w", err)
	}
	for _, f := range snap.Failures {
		fmt.Fprintln(cmd.ErrOrStderr(), formatMuted("warning: "+f.Error()))
	}
	return fn(ctx, sess)
}

// selectRange selects court's columns between from and to on the desk.
func selectRange(sess *session.Session, court, from, to string) error {
	g := sess.Desk.Grid()
	row, err := findCourt(g, court)
	if err != nil {
		return err
	}
	first, last, err := columns(sess.Query(), from, to)
	if err != nil {
		return err
	}
	for col := first; col <= last; col++ {
		sess.Desk.Click(grid.Pos{Row: row, Col: col})
	}
	return nil
}

func (a *App) gridCmd() *cobra.Command {
	var (
		from  string
		to    string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the day's timeline",
		Long: `Print every court's day as a row of half-hour cells, followed by the
day's bookings.

Example:
  courtdesk grid --date tomorrow --category tennis --from 08:00 --to 22:00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDay(cmd, func(_ context.Context, sess *session.Session) error {
				first, last := 0, slot.ColumnsPerDay-1
				if from != "" || to != "" {
					var err error
					first, last, err = columns(sess.Query(), withDefault(from, "00:00"), withDefault(to, "24:00"))
					if err != nil {
						return err
					}
				}
				first, last = visibleRange(termWidth(), first, last)

				out := cmd.OutOrStdout()
				g := sess.Desk.Grid()
				printGrid(out, sess.Query(), g, first, last)
				if !quiet {
					printBookings(out, g, nil)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First half hour to show (HH:MM)")
	cmd.Flags().StringVar(&to, "to", "", "End of the shown range (HH:MM)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the grid")

	return cmd
}

func (a *App) bookCmd() *cobra.Command {
	var (
		title        string
		category     string
		participants []string
	)

	cmd := &cobra.Command{
		Use:   "book <court> <from> <to>",
		Short: "Book free time on a court",
		Long: `Create a game on a court. The court is an id, a name or a row number.

Example:
  courtdesk book "Court 2" 18:00 19:30 --title "Ladder match" --category pickleball --participant u-anna`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDay(cmd, func(ctx context.Context, sess *session.Session) error {
				if err := selectRange(sess, args[0], args[1], args[2]); err != nil {
					return err
				}
				req := timeline.BookRequest{Title: title, Category: category, ParticipantIDs: participants}
				if req.Category == "" {
					req.Category = defaultCategory(sess, args[0])
				}
				created, err := sess.Desk.Book(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", created.Kind, created.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Game title (required)")
	cmd.Flags().StringVar(&category, "category", "", "Category (default: active filter, then the court's first)")
	cmd.Flags().StringSliceVar(&participants, "participant", nil, "Participant user id (repeatable)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// defaultCategory is the active filter, or the court's first category.
func defaultCategory(sess *session.Session, court string) string {
	if c := sess.Query().Category; c != "" {
		return c
	}
	g := sess.Desk.Grid()
	row, err := findCourt(g, court)
	if err != nil {
		return ""
	}
	if res, ok := g.Resource(row); ok && len(res.AllowedCategories) > 0 {
		return res.AllowedCategories[0]
	}
	return ""
}

func (a *App) blockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <court> <from> <to>",
		Short: "Mark free time on a court unavailable",
		Long: `Block a range for maintenance or private use.

Example:
  courtdesk block 1 12:00 13:00`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDay(cmd, func(ctx context.Context, sess *session.Session) error {
				if err := selectRange(sess, args[0], args[1], args[2]); err != nil {
					return err
				}
				return sess.Desk.Block(ctx)
			})
		},
	}
}

func (a *App) unblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <court> <from> <to>",
		Short: "Release blocked time",
		Long: `Remove blocks inside a range. Every selected cell must be blocked.

Example:
  courtdesk unblock "Court 1" 12:00 13:00`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDay(cmd, func(ctx context.Context, sess *session.Session) error {
				if err := selectRange(sess, args[0], args[1], args[2]); err != nil {
					return err
				}
				return sess.Desk.Unblock(ctx)
			})
		},
	}
}

func (a *App) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel a booking",
		Long: `Cancel a game or a raw court booking by id. Run "courtdesk grid" to
list the day's booking ids.

Example:
  courtdesk cancel 7f3c9a2e`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDay(cmd, func(ctx context.Context, sess *session.Session) error {
				span, err := findBooking(sess.Desk.Grid(), args[0])
				if err != nil {
					return err
				}
				for col := span.StartCol; col <= span.EndCol; col++ {
					sess.Desk.Click(grid.Pos{Row: span.Row, Col: col})
				}
				return sess.Desk.Unbook(ctx)
			})
		},
	}
}

func (a *App) moveCmd() *cobra.Command {
	var (
		court   string
		from    string
		toCourt string
		at      string
	)

	cmd := &cobra.Command{
		Use:   "move [booking-id]",
		Short: "Move a booking or block to another start time or court",
		Long: `Reschedule a booking by id, or the record on --court at --from, so it
starts at --at. The duration is kept.

Examples:
  courtdesk move 7f3c9a2e --at 16:00
  courtdesk move --court 1 --from 12:00 --at 20:00 --to-court 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDay(cmd, func(ctx context.Context, sess *session.Session) error {
				g := sess.Desk.Grid()
				src, err := moveSource(g, sess.Query(), args, court, from)
				if err != nil {
					return err
				}

				dstRow := src.Row
				if toCourt != "" {
					if dstRow, err = findCourt(g, toCourt); err != nil {
						return err
					}
				}
				start, err := dateutil.ParseClock(sess.Query().Date, at)
				if err != nil {
					return err
				}

				res, err := sess.Desk.Move(ctx, src, grid.Pos{Row: dstRow, Col: slot.ToColumn(start)})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", res.ID, res.To)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&court, "court", "", "Court of the record to move (without a booking id)")
	cmd.Flags().StringVar(&from, "from", "", "Any half hour inside the record to move (HH:MM)")
	cmd.Flags().StringVar(&toCourt, "to-court", "", "Destination court (default: same court)")
	cmd.Flags().StringVar(&at, "at", "", "New start time (HH:MM, required)")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

// moveSource resolves the first cell of the record to move.
func moveSource(g *grid.Grid, q timeline.Query, args []string, court, from string) (grid.Pos, error) {
	if len(args) == 1 {
		span, err := findBooking(g, args[0])
		if err != nil {
			return grid.Pos{}, err
		}
		return grid.Pos{Row: span.Row, Col: span.StartCol}, nil
	}
	if court == "" || from == "" {
		return grid.Pos{}, errors.New("give a booking id, or --court and --from")
	}
	row, err := findCourt(g, court)
	if err != nil {
		return grid.Pos{}, err
	}
	t, err := dateutil.ParseClock(q.Date, from)
	if err != nil {
		return grid.Pos{}, err
	}
	span, ok := g.SpanAt(grid.Pos{Row: row, Col: slot.ToColumn(t)})
	if !ok || !span.State.IsExisting() {
		return grid.Pos{}, fmt.Errorf("nothing to move on %s at %s", court, strings.TrimSpace(from))
	}
	return grid.Pos{Row: span.Row, Col: span.StartCol}, nil
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
