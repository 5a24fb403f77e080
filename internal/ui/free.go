package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/scheduler"
	"github.com/javiermolinar/courtdesk/internal/session"
	"github.com/javiermolinar/courtdesk/internal/slot"
)

func (a *App) freeCmd() *cobra.Command {
	var (
		duration time.Duration
		after    string
		first    bool
	)

	cmd := &cobra.Command{
		Use:   "free",
		Short: "List free court time",
		Long: `List the free runs of every court that can hold a booking of the given
length. Today's list starts at the next half hour.

Examples:
  courtdesk free --duration 90m --category badminton
  courtdesk free --after 17:00 --first`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDay(cmd, func(_ context.Context, sess *session.Session) error {
				g := sess.Desk.Grid()
				s := scheduler.New(a.now)
				from := s.EarliestColumn(g.Date())
				if after != "" {
					t, err := dateutil.ParseClock(g.Date(), after)
					if err != nil {
						return fmt.Errorf("--after: %w", err)
					}
					from = slot.ToColumn(t)
				}

				out := cmd.OutOrStdout()
				if first {
					o, ok := s.Next(g, duration, from)
					if !ok {
						fmt.Fprintln(out, "No free time.")
						return nil
					}
					fmt.Fprintln(out, formatOpening(o))
					return nil
				}

				openings := s.Openings(g, duration, from)
				if len(openings) == 0 {
					fmt.Fprintln(out, "No free time.")
					return nil
				}
				for _, o := range openings {
					fmt.Fprintln(out, formatOpening(o))
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", time.Hour, "Minimum length (rounded up to half hours)")
	cmd.Flags().StringVar(&after, "after", "", "Earliest start (HH:MM)")
	cmd.Flags().BoolVar(&first, "first", false, "Only print the earliest fit, trimmed to --duration")
	return cmd
}

func formatOpening(o scheduler.Opening) string {
	name := o.Name
	if name == "" {
		name = o.ResourceID
	}
	when := slot.FormatClock(o.Interval.Start) + " - " + slot.FormatClock(o.Interval.End)
	return fmt.Sprintf("%s %-19s %s", padRight(name, courtNameWidth), when, formatMuted(dateutil.FormatDuration(o.Minutes())))
}
