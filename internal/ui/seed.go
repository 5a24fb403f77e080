package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/session"
)

func (a *App) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo courts, players and bookings",
		Long: `Fill the local database with a demo venue: four courts, a few players
with support rooms, and bookings on the chosen day. Running it again
replaces that day's demo bookings.

Example:
  courtdesk seed --date tomorrow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			if sess.Local == nil {
				return fmt.Errorf("seed: %w (backend mode is %q)", session.ErrNotLocal, a.config.Backend.Mode)
			}
			q := sess.Query()
			report, err := sess.Local.Seed(cmd.Context(), q.VenueID, q.Date)
			if err != nil {
				return fmt.Errorf("seeding: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d courts, %d players, %d bookings, %d blocks\n",
				q.VenueID, report.Resources, report.Users, report.Bookings, report.Blocks)
			return nil
		},
	}
}
