package tui

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/courtdesk/internal/timeline"
	"github.com/javiermolinar/courtdesk/internal/tui/commands"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.poller != nil {
			m.poller.Touch()
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scrollToCursor()
		return m, nil

	case commands.SnapshotMsg:
		err := m.desk.Apply(msg.Snapshot)
		if errors.Is(err, timeline.ErrStaleGeneration) {
			m.log.WithField("generation", msg.Snapshot.Generation).Debug("dropping stale snapshot")
			return m, nil
		}
		if err != nil {
			return m.setError(err)
		}
		m.loading = false
		m.failures = len(msg.Snapshot.Failures)
		m.clampCursor()
		if m.poller != nil {
			m.poller.Invalidate()
		}
		if m.failures > 0 {
			return m.setError(fmt.Errorf("%d court(s) failed to load", m.failures))
		}
		return m, nil

	case commands.CategoriesMsg:
		m.categories = append([]string{""}, msg.IDs...)
		return m, nil

	case commands.CommandDoneMsg:
		m.loading = false
		if msg.Err == nil && m.mode == ModeMove {
			m.mode = ModeNormal
		}
		m.clampCursor()
		return m, nil

	case commands.ToastsMsg:
		m.recentToasts = append(m.recentToasts, msg.Toasts...)
		if n := len(m.recentToasts); n > maxToastLines {
			m.recentToasts = m.recentToasts[n-maxToastLines:]
		}
		var cmd tea.Cmd
		if len(msg.Toasts) > 0 {
			last := msg.Toasts[len(msg.Toasts)-1]
			m, cmd = m.showStatus(last.Message, last.Level == timeline.LevelError)
		}
		return m, tea.Batch(cmd, commands.WaitToast(m.toasts))

	case commands.UnreadMsg:
		if m.poller != nil && !m.poller.IsCurrent(msg.Gen) {
			return m, nil
		}
		m.syncUnread()
		return m, nil

	case commands.UnreadTickMsg:
		m.syncUnread()
		return m, commands.UnreadTick(unreadTickEvery)

	case commands.HandledMsg:
		if msg.Err != nil {
			return m.setError(msg.Err)
		}
		m.syncUnread()
		return m.showStatus("Marked handled", false)

	case commands.ErrMsg:
		m.loading = false
		return m.setError(msg.Err)

	case commands.StatusMsgCmd:
		return m.showStatus(msg.Msg, false)

	case commands.ClearStatusMsg:
		if !m.now().Before(m.statusTime) {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil
	}

	// Handle prompt input when in prompt mode
	if m.mode == ModePrompt {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) showStatus(text string, isErr bool) (Model, tea.Cmd) {
	m.statusMsg = text
	m.statusErr = isErr
	m.statusTime = m.now().Add(statusTimeout)
	return m, commands.ClearStatusAfter(statusTimeout)
}

func (m Model) setError(err error) (Model, tea.Cmd) {
	m.log.WithError(err).Warn("tui error")
	return m.showStatus("Error: "+err.Error(), true)
}

// syncUnread copies the hub's flags when they changed since the last copy.
func (m *Model) syncUnread() {
	if m.hub == nil {
		return
	}
	store := m.hub.Store()
	if v := store.Version(); v != m.unreadVersion || m.unread == nil {
		m.unread = store.Snapshot()
		m.unreadVersion = v
	}
}

// statusExpired reports whether the status line should be hidden.
func (m Model) statusExpired() bool {
	return m.statusMsg == "" || m.now().After(m.statusTime.Add(time.Second))
}
