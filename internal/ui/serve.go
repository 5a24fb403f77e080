package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/api"
	"github.com/javiermolinar/courtdesk/internal/realtime"
	"github.com/javiermolinar/courtdesk/internal/session"
)

const shutdownTimeout = 5 * time.Second

func (a *App) serveCmd() *cobra.Command {
	var (
		addr string
		seed bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the booking API and chat relay over HTTP",
		Long: `Expose the configured backend as the REST API the http backend mode
talks to, plus a websocket chat relay on /ws. Point other desks at it with
backend.mode = "http" and realtime.transport = "websocket".

Example:
  courtdesk serve --addr :8080 --seed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := a.logger(true)
			if err != nil {
				return err
			}
			opts, err := a.sessionOptions()
			if err != nil {
				return err
			}
			broker := realtime.NewMemory()
			opts.Realtime = broker
			sess, err := session.Open(cmd.Context(), a.config, log, opts)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			if seed {
				if sess.Local == nil {
					return fmt.Errorf("--seed: %w", session.ErrNotLocal)
				}
				q := sess.Query()
				if _, err := sess.Local.Seed(cmd.Context(), q.VenueID, q.Date); err != nil {
					return fmt.Errorf("seeding: %w", err)
				}
			}

			srv := api.NewServer(sess.Backend, a.config.Location(), a.config.Server.Token, log)
			srv.Mount("/ws", realtime.NewRelay(broker, log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", a.config.Venue.ID, addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shutting down: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", a.config.Server.Addr, "Listen address")
	cmd.Flags().BoolVar(&seed, "seed", false, "Seed demo data for the day first (sqlite backend)")
	return cmd
}
