package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/javiermolinar/courtdesk/internal/booking"
	"github.com/javiermolinar/courtdesk/internal/config"
	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/notify"
	"github.com/javiermolinar/courtdesk/internal/session"
	"github.com/javiermolinar/courtdesk/internal/timeline"
	"github.com/javiermolinar/courtdesk/internal/tui/commands"
	"github.com/javiermolinar/courtdesk/internal/tui/theme"
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeMove        // Picking a destination for the record at moveSrc
	ModePrompt
	ModeModal
)

// ModalType identifies the type of modal.
type ModalType int

const (
	ModalNone    ModalType = iota
	ModalDetails           // Booking details; polling is suspended while open
	ModalHelp
)

// promptKind says what a submitted prompt line is for.
type promptKind int

const (
	promptCommand promptKind = iota
	promptTitle
	promptComment
)

const (
	statusTimeout   = 4 * time.Second
	unreadTickEvery = 2 * time.Second
	maxToastLines   = 3
)

// Model is the main TUI model.
type Model struct {
	// Dependencies
	desk   *timeline.Desk
	loader *timeline.Loader
	hub    *notify.Hub
	poller *notify.Poller
	toasts *timeline.ToastQueue
	config *config.Config
	log    logrus.FieldLogger
	reader booking.Reader

	// Theme and styles
	theme  *theme.Theme
	styles *Styles

	// State
	categories []string // filter cycle; "" (all courts) comes first
	cursor     grid.Pos
	colOffset  int // first visible column
	mode       Mode
	loading    bool
	failures   int // courts that failed to load in the last refresh
	moveSrc    grid.Pos

	// Modal state
	modalType     ModalType
	detailBooking string

	// Prompt state
	prompt     textinput.Model
	promptKind promptKind

	// Unread flags, refreshed from the hub's store
	unread        map[string]bool
	unreadVersion uint64

	// Messages
	recentToasts []timeline.Toast
	statusMsg    string
	statusErr    bool
	statusTime   time.Time

	// Terminal dimensions
	width  int
	height int

	now func() time.Time
}

// ModelOption configures optional model behavior.
type ModelOption func(*Model)

// WithPoller attaches the unread poller. Without one the model never
// suspends or invalidates polling.
func WithPoller(p *notify.Poller) ModelOption {
	return func(m *Model) {
		m.poller = p
	}
}

// WithClock overrides the model's clock.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) {
		m.now = now
	}
}

// New creates a new TUI model over an open session. toasts must be the
// notifier the session's desk was opened with.
func New(sess *session.Session, toasts *timeline.ToastQueue, opts ...ModelOption) *Model {
	t, err := theme.Load(sess.Config.UI.Theme)
	if err != nil {
		t, _ = theme.Load(theme.DefaultName)
	}
	styles := NewStyles(t)

	ti := textinput.New()
	ti.CharLimit = 120
	ti.Width = 48
	ti.PlaceholderStyle = styles.ModalPlaceholder
	ti.TextStyle = styles.ModalInputText
	ti.Cursor.Style = styles.ModalInputCursor

	m := &Model{
		desk:       sess.Desk,
		loader:     sess.Loader,
		hub:        sess.Hub,
		toasts:     toasts,
		config:     sess.Config,
		log:        sess.Log.WithField("component", "tui"),
		reader:     sess.Backend,
		theme:      t,
		styles:     styles,
		categories: []string{""},
		mode:       ModeNormal,
		prompt:     ti,
		unread:     map[string]bool{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cursor.Col = m.initialColumn()
	return m
}

// Init starts the first refresh and the background listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		commands.Refresh(m.desk, m.loader),
		commands.LoadCategories(m.reader),
		commands.UnreadTick(unreadTickEvery),
	}
	if m.toasts != nil {
		cmds = append(cmds, commands.WaitToast(m.toasts))
	}
	return tea.Batch(cmds...)
}

// Run opens a session for cfg and runs the TUI until the user quits.
func Run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts session.Options) error {
	toasts := timeline.NewToastQueue(16)
	opts.Notifier = toasts

	sess, err := session.Open(ctx, cfg, log, opts)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	var program *tea.Program
	poller := sess.NewPoller(func(gen uint64) {
		if program != nil {
			program.Send(commands.UnreadMsg{Gen: gen})
		}
	})

	model := New(sess, toasts, WithPoller(poller))
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	poller.Start(pollCtx)

	_, err = program.Run()
	return err
}

// initialColumn puts the cursor on the current half hour when the desk
// shows today, and on 08:00 otherwise.
func (m *Model) initialColumn() int {
	q := m.desk.Query()
	now := m.now().In(q.Date.Location())
	if now.Year() == q.Date.Year() && now.YearDay() == q.Date.YearDay() {
		return now.Hour()*2 + now.Minute()/30
	}
	return 16
}
