package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/session"
)

func (a *App) unreadCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "unread",
		Short: "List bookings with unread player messages",
		Long: `Connect to every booking's support rooms for the day and list the
bookings whose rooms have messages newer than the last handled mark.

Example:
  courtdesk unread --date tomorrow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDay(cmd, func(ctx context.Context, sess *session.Session) error {
				report, err := sess.Hub.Sync(ctx, sess.Desk.Bookings())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, f := range report.Failures {
					fmt.Fprintln(cmd.ErrOrStderr(), formatMuted("warning: "+f.Error()))
				}

				unread := sess.Hub.Unread()
				g := sess.Desk.Grid()
				listed := 0
				for _, span := range g.BookingSpans() {
					b, ok := g.Booking(span.BookingID)
					if !ok || (!all && !unread[b.ID]) {
						continue
					}
					fmt.Fprintln(out, formatBooking(g, b, unread[b.ID]))
					listed++
				}
				if listed == 0 && !all {
					fmt.Fprintln(out, "No unread messages.")
				}
				fmt.Fprintln(out, formatMuted(fmt.Sprintf("%d bookings, %d rooms, %d unread", report.Bookings, report.Rooms, report.Unread)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every booking, not only unread ones")
	return cmd
}

func (a *App) handleCmd() *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "handle <booking-id>",
		Short: "Mark a booking's messages as handled",
		Long: `Record that the desk has dealt with every message in the booking's
support rooms.

Example:
  courtdesk handle 7f3c9a2e --comment "refund issued"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDay(cmd, func(ctx context.Context, sess *session.Session) error {
				if _, err := findBooking(sess.Desk.Grid(), args[0]); err != nil {
					return err
				}
				if _, err := sess.Hub.Sync(ctx, sess.Desk.Bookings()); err != nil {
					return err
				}
				if err := sess.Hub.MarkHandled(ctx, args[0], comment); err != nil {
					return fmt.Errorf("marking %s handled: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s handled (%d rooms)\n", args[0], len(sess.Hub.Rooms(args[0])))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Note stored with the handled mark")
	return cmd
}
