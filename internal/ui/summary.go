package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/session"
	"github.com/javiermolinar/courtdesk/internal/slot"
	"github.com/javiermolinar/courtdesk/internal/summary"
)

func (a *App) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show court usage for the day",
		Long: `Show booked, blocked and free time per court, with utilization over
the whole day and over the venue's peak hours (venue.peak_hours_start and
venue.peak_hours_end).

Example:
  courtdesk summary --date yesterday`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDay(cmd, func(_ context.Context, sess *session.Session) error {
				sum, err := summary.SummarizeDay(sess.Desk.Grid(), summary.Options{
					PeakStart: a.config.Venue.PeakHoursStart,
					PeakEnd:   a.config.Venue.PeakHoursEnd,
				})
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), sess.Query().VenueID, sum)
				return nil
			})
		},
	}
}

func printSummary(w io.Writer, venue string, sum *summary.DaySummary) {
	fmt.Fprintf(w, "%s  %s\n", formatHeader(venue), dateutil.FormatDay(sum.Date))
	if sum.HasPeak() {
		fmt.Fprintln(w, formatMuted("Peak hours: "+slot.FormatClock(sum.Peak.Start)+" - "+slot.FormatClock(sum.Peak.End)))
	}
	fmt.Fprintln(w)
	if len(sum.Courts) == 0 {
		fmt.Fprintln(w, formatMuted("No courts."))
		return
	}

	fmt.Fprintf(w, "%-*s %7s %7s %7s %5s %5s\n", courtNameWidth, "Court", "Booked", "Blocked", "Used", "Peak", "Games")
	for _, c := range sum.Courts {
		name := c.Name
		if name == "" {
			name = c.ResourceID
		}
		printSummaryRow(w, name, c, sum.HasPeak())
	}
	fmt.Fprintln(w)
	printSummaryRow(w, "Total", sum.Total, sum.HasPeak())
}

func printSummaryRow(w io.Writer, name string, c summary.CourtStats, peak bool) {
	peakCol := "-"
	if peak {
		peakCol = fmt.Sprintf("%d%%", c.PeakUtilization())
	}
	fmt.Fprintf(w, "%s %7s %7s %6d%% %5s %5d\n",
		padRight(name, courtNameWidth),
		dateutil.FormatDuration(c.BookedMinutes),
		dateutil.FormatDuration(c.BlockedMinutes),
		c.Utilization(), peakCol, c.Games+c.Bookings)
}
