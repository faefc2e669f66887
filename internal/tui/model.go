// Package tui is the interactive chat display over a session.Session.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/session"
)

const pickerWidth = 32

type focus int

const (
	focusPicker focus = iota
	focusChat
)

// Options configures the chat model. Events is typically fed by EventSink.
type Options struct {
	Session  *session.Session
	Events   <-chan session.Event
	WordWrap int
	Context  context.Context
}

// Model is the Bubble Tea model for the chat screen. Backend calls run as
// commands and report back as messages, so Update never blocks.
type Model struct {
	sess   *session.Session
	events <-chan session.Event
	ctx    context.Context

	stores      []backend.Store
	cursor      int
	focus       focus
	querying    bool
	progress    map[string]int
	syncing     map[string]bool
	lastSources []backend.Source
	status      string
	errText     string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   styles
	wordWrap int
	width    int
	height   int
}

// New builds the chat model. The store picker has focus until a store is
// chosen.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = 80
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Ask about the selected store, or /upload <path>"
	input.CharLimit = 8000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	st := newStyles()
	sp.Style = st.badge

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(opts.WordWrap),
	)

	return Model{
		sess:     opts.Session,
		events:   opts.Events,
		ctx:      opts.Context,
		progress: make(map[string]int),
		syncing:  make(map[string]bool),
		status:   "loading stores...",
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		renderer: renderer,
		styles:   st,
		wordWrap: opts.WordWrap,
	}
}

// EventSink adapts a channel to session.Deps.OnEvent. Events are dropped
// rather than blocking the session when the channel is full.
func EventSink(ch chan<- session.Event) func(session.Event) {
	return func(ev session.Event) {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadStoresCmd(false),
		m.waitEventCmd(),
	)
}

// --- Messages ---

type storesLoadedMsg struct {
	stores []backend.Store
	err    error
}

type queryDoneMsg struct {
	prompt string
	out    session.Outcome
	err    error
}

type syncDoneMsg struct {
	storeID string
	err     error
}

type uploadDoneMsg struct {
	storeID string
	path    string
	err     error
}

type eventMsg session.Event

// --- Commands ---

func (m Model) loadStoresCmd(force bool) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		if force {
			sess.InvalidateStores()
		}
		stores, err := sess.RefreshStores(ctx)
		return storesLoadedMsg{stores: stores, err: err}
	}
}

func (m Model) submitCmd(prompt string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		out, err := sess.Submit(ctx, prompt)
		return queryDoneMsg{prompt: prompt, out: out, err: err}
	}
}

func (m Model) syncCmd(id string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		_, err := sess.Sync(ctx, id, "", "")
		return syncDoneMsg{storeID: id, err: err}
	}
}

func (m Model) uploadCmd(id, path string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		_, err := sess.Upload(ctx, id, path, nil)
		return uploadDoneMsg{storeID: id, path: path, err: err}
	}
}

func (m Model) waitEventCmd() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}
