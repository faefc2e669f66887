package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kalambet/filesearch/internal/session"
)

const uploadCommand = "/upload "

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.renderConversation()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.handleEvent(session.Event(msg))
		return m, m.waitEventCmd()

	case storesLoadedMsg:
		m.stores = msg.stores
		m.syncCursor()
		switch {
		case errors.Is(msg.err, session.ErrStoreNotFound):
			m.errText = "The selected store no longer exists"
			m.renderConversation()
		case msg.err != nil:
			m.errText = errorText(msg.err)
		default:
			m.status = fmt.Sprintf("%d stores", len(m.stores))
		}
		return m, nil

	case queryDoneMsg:
		m.querying = false
		m.input.Focus()
		switch {
		case session.KindOf(msg.err) == session.KindValidation:
			if m.input.Value() == "" {
				m.input.SetValue(msg.prompt)
			}
			m.errText = errorText(msg.err)
		case msg.err != nil:
			m.errText = errorText(msg.err)
		case msg.out.Discarded:
			m.status = "answer discarded: store changed"
		default:
			m.errText = ""
			m.lastSources = msg.out.Sources
			m.status = "answered"
		}
		m.renderConversation()
		return m, nil

	case syncDoneMsg:
		delete(m.syncing, msg.storeID)
		if msg.err != nil {
			m.errText = errorText(msg.err)
			return m, nil
		}
		m.status = "synced " + m.label(msg.storeID)
		return m, m.loadStoresCmd(true)

	case uploadDoneMsg:
		// The final progress reset may have been dropped by a full event
		// channel.
		delete(m.progress, msg.storeID)
		if msg.err != nil {
			m.errText = errorText(msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("uploaded %s to %s", filepath.Base(msg.path), m.label(msg.storeID))
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if m.focus == focusChat && !m.querying {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleEvent(ev session.Event) {
	switch ev.Type {
	case session.EventUploadProgress:
		// Events can arrive after uploadDoneMsg; a finished store takes none.
		if ev.Percent == 0 || !m.sess.IsUploading(ev.StoreID) {
			delete(m.progress, ev.StoreID)
		} else {
			m.progress[ev.StoreID] = ev.Percent
		}
	case session.EventSelectionChanged:
		m.lastSources = nil
		m.syncCursor()
		m.renderConversation()
	case session.EventConversationChanged, session.EventStoresChanged:
		m.renderConversation()
	}
}

// handleKey processes global and focus-specific keys. handled is false when
// the key should fall through to the input and viewport.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit, true
	case "tab":
		m.toggleFocus()
		return nil, true
	case "ctrl+r":
		m.status = "refreshing stores..."
		return m.loadStoresCmd(true), true
	case "ctrl+l":
		m.sess.ClearConversation()
		m.lastSources = nil
		m.errText = ""
		m.renderConversation()
		return nil, true
	case "ctrl+s":
		id, ok := m.sess.Selected()
		if !ok {
			m.errText = errorText(session.ErrNoStore)
			return nil, true
		}
		// The session only reports a store busy once the command runs.
		if m.syncing[id] || m.sess.IsSyncing(id) {
			m.status = m.label(id) + " is already syncing"
			return nil, true
		}
		m.syncing[id] = true
		m.status = "syncing " + m.label(id) + "..."
		return m.syncCmd(id), true
	}

	if m.focus == focusPicker {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.stores)-1 {
				m.cursor++
			}
		case "enter":
			return m.selectAtCursor(), true
		}
		return nil, true
	}

	if msg.String() == "enter" {
		return m.submit(), true
	}
	return nil, false
}

func (m *Model) toggleFocus() {
	if m.focus == focusPicker {
		m.focus = focusChat
		m.input.Focus()
		return
	}
	m.focus = focusPicker
	m.input.Blur()
}

func (m *Model) selectAtCursor() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.stores) {
		return nil
	}
	store := m.stores[m.cursor]
	if err := m.sess.Select(store.Name); err != nil {
		m.errText = errorText(err)
		return nil
	}
	m.errText = ""
	m.status = "selected " + store.Label()
	m.focus = focusChat
	m.input.Focus()
	m.renderConversation()
	return nil
}

// submit dispatches the input as a query or an upload. Input the session
// would refuse stays in place.
func (m *Model) submit() tea.Cmd {
	if m.querying {
		return nil
	}
	value := m.input.Value()
	if strings.TrimSpace(value) == "" {
		return nil
	}
	id, ok := m.sess.Selected()
	if !ok {
		m.errText = errorText(session.ErrNoStore)
		return nil
	}

	if path, isUpload := strings.CutPrefix(strings.TrimSpace(value), uploadCommand); isUpload {
		path = strings.TrimSpace(path)
		if path == "" {
			return nil
		}
		m.input.Reset()
		m.errText = ""
		m.status = "uploading " + filepath.Base(path) + "..."
		return m.uploadCmd(id, path)
	}

	m.input.Reset()
	m.input.Blur()
	m.errText = ""
	m.querying = true
	m.status = "querying " + m.label(id) + "..."
	return tea.Batch(m.submitCmd(value), m.spinner.Tick)
}

// syncCursor moves the picker cursor onto the selected store.
func (m *Model) syncCursor() {
	if id, ok := m.sess.Selected(); ok {
		for i, s := range m.stores {
			if s.Name == id {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(m.stores) {
		m.cursor = max(len(m.stores)-1, 0)
	}
}

func (m Model) label(id string) string {
	for _, s := range m.stores {
		if s.Name == id {
			return s.Label()
		}
	}
	return id
}

func errorText(err error) string {
	var qe *session.QueryError
	if errors.As(err, &qe) {
		return qe.Message
	}
	return err.Error()
}
