package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javiermolinar/courtdesk/internal/config"
	"github.com/javiermolinar/courtdesk/internal/dateutil"
	"github.com/javiermolinar/courtdesk/internal/logging"
	"github.com/javiermolinar/courtdesk/internal/realtime"
	"github.com/javiermolinar/courtdesk/internal/session"
	"github.com/javiermolinar/courtdesk/internal/tui"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config *config.Config
	root   *cobra.Command
	debug  bool // Enable debug logging

	// Global flags shared by every command that opens a day.
	date     string
	category string

	// realtime replaces the configured transport. Tests use it to share a
	// broker between commands.
	realtime realtime.Client
	now      func() time.Time
	log      *logrus.Logger
	closeLog func() error
}

// NewApp creates a new CLI application with the given config.
func NewApp(cfg *config.Config) *App {
	a := &App{config: cfg, now: time.Now, closeLog: func() error { return nil }}

	a.root = &cobra.Command{
		Use:   "courtdesk",
		Short: "A terminal front desk for court bookings",
		Long: `Courtdesk shows a venue's courts as a half-hour timeline.

Select free time to book or block it, pick existing bookings to cancel or
move them, and keep an eye on unread player messages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := a.logger(false)
			if err != nil {
				return err
			}
			opts, err := a.sessionOptions()
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), a.config, log, opts)
		},
	}

	// Add global flags
	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	a.root.PersistentFlags().StringVar(&a.date, "date", "", "Day to open (YYYY-MM-DD, today, tomorrow, +N, weekday)")
	a.root.PersistentFlags().StringVar(&a.category, "category", "", "Only show courts for this category")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.gridCmd())
	a.root.AddCommand(a.bookCmd())
	a.root.AddCommand(a.blockCmd())
	a.root.AddCommand(a.unblockCmd())
	a.root.AddCommand(a.cancelCmd())
	a.root.AddCommand(a.moveCmd())
	a.root.AddCommand(a.freeCmd())
	a.root.AddCommand(a.summaryCmd())
	a.root.AddCommand(a.unreadCmd())
	a.root.AddCommand(a.handleCmd())
	a.root.AddCommand(a.seedCmd())
	a.root.AddCommand(a.serveCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "courtdesk %s (commit: %s)\n", Version, Commit)
		},
	}
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI application with ctx.
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// Close flushes and closes the log output.
func (a *App) Close() error {
	return a.closeLog()
}

// SetOutput redirects command output. Used in tests.
func (a *App) SetOutput(w io.Writer) {
	a.root.SetOut(w)
	a.root.SetErr(w)
}

// SetArgs sets the command line arguments. Used in tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// logger builds the logger once. Subcommands log text to stderr; the TUI
// owns the terminal and logs to the configured file.
func (a *App) logger(console bool) (*logrus.Logger, error) {
	if a.log != nil {
		return a.log, nil
	}
	level := a.config.Log.Level
	if a.debug {
		level = "debug"
	}
	if console && !a.debug && level == "info" {
		// Keep command output readable; desk toasts are printed anyway.
		level = "warn"
	}
	log, closeFn, err := logging.New(logging.Options{Level: level, File: a.config.Log.File, Console: console})
	if err != nil {
		return nil, err
	}
	a.log, a.closeLog = log, closeFn
	return log, nil
}

func (a *App) sessionOptions() (session.Options, error) {
	opts := session.Options{Category: a.category, Realtime: a.realtime}
	if a.date != "" {
		day, err := dateutil.ParseDay(a.date, a.now().In(a.config.Location()))
		if err != nil {
			return opts, err
		}
		opts.Date = day
	}
	return opts, nil
}

// openSession opens a session for a subcommand with desk toasts printed to
// the command's error stream.
func (a *App) openSession(cmd *cobra.Command) (*session.Session, error) {
	log, err := a.logger(true)
	if err != nil {
		return nil, err
	}
	opts, err := a.sessionOptions()
	if err != nil {
		return nil, err
	}
	opts.Notifier = toastPrinter(cmd.ErrOrStderr())
	return session.Open(cmd.Context(), a.config, log, opts)
}
