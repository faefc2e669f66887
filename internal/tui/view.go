package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/filesearch/internal/conversation"
)

const helpLine = "enter send · tab switch pane · ctrl+s sync · ctrl+l clear · ctrl+r refresh · esc quit"

func (m Model) View() string {
	header := m.styles.title.Render("filesearch")
	if id, ok := m.sess.Selected(); ok {
		header += m.styles.status.Render("  " + m.label(id))
	}

	pickerStyle, chatStyle := m.styles.pane, m.styles.paneFocus
	if m.focus == focusPicker {
		pickerStyle, chatStyle = m.styles.paneFocus, m.styles.pane
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		pickerStyle.Width(pickerWidth).Height(m.viewport.Height).Render(m.renderPicker()),
		chatStyle.Width(m.viewport.Width).Height(m.viewport.Height).Render(m.viewport.View()),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.renderInput(),
		m.renderStatus(),
		m.styles.help.Render(helpLine),
	)
}

func (m Model) renderPicker() string {
	if len(m.stores) == 0 {
		return m.styles.status.Render("no stores")
	}
	selected, _ := m.sess.Selected()

	var b strings.Builder
	for i, s := range m.stores {
		prefix := "  "
		if i == m.cursor && m.focus == focusPicker {
			prefix = m.styles.cursor.Render("› ")
		}
		name := m.styles.store.Render(s.Label())
		if s.Name == selected {
			name = m.styles.selected.Render("● " + s.Label())
		}
		b.WriteString(prefix + name + m.badges(s.Name))
		if i < len(m.stores)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) badges(id string) string {
	var out string
	if m.syncing[id] || m.sess.IsSyncing(id) {
		out += m.styles.badge.Render(" ⟳ syncing")
	}
	if pct, ok := m.progress[id]; ok {
		out += m.styles.badge.Render(fmt.Sprintf(" ↑ %d%%", pct))
	} else if m.sess.IsUploading(id) {
		out += m.styles.badge.Render(" ↑")
	}
	return out
}

func (m Model) renderInput() string {
	if m.querying {
		return m.spinner.View() + m.styles.status.Render(" waiting for answer...")
	}
	return m.input.View()
}

func (m Model) renderStatus() string {
	if m.errText != "" {
		return m.styles.err.Render(m.errText)
	}
	return m.styles.status.Render(m.status)
}

// layout sizes the panes from the window size.
func (m *Model) layout() {
	// picker border and padding, plus the chat pane's own
	width := m.width - pickerWidth - 8
	// header, input, status, help and pane borders
	height := m.height - 6
	m.viewport.Width = max(width, 20)
	m.viewport.Height = max(height, 3)
	m.input.Width = max(m.width-4, 10)
}

func (m *Model) renderConversation() {
	msgs := m.sess.Messages()
	if len(msgs) == 0 {
		if _, ok := m.sess.Selected(); ok {
			m.viewport.SetContent(m.styles.status.Render("No messages yet. Ask something about this store."))
		} else {
			m.viewport.SetContent(m.styles.status.Render("Select a store with tab, arrows and enter."))
		}
		return
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case conversation.RoleUser:
			b.WriteString(m.styles.user.Render("You") + "\n")
			b.WriteString(msg.Content + "\n")
		default:
			b.WriteString(m.styles.assistant.Render("Assistant") + "\n")
			b.WriteString(m.renderMarkdown(msg.Content))
		}
	}
	if len(m.lastSources) > 0 {
		titles := make([]string, 0, len(m.lastSources))
		for _, s := range m.lastSources {
			switch {
			case s.Title != "":
				titles = append(titles, s.Title)
			case s.URI != "":
				titles = append(titles, s.URI)
			}
		}
		if len(titles) > 0 {
			b.WriteString("\n" + m.styles.source.Render("Sources: "+strings.Join(titles, ", ")))
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// renderMarkdown falls back to the raw text when glamour is unavailable or
// fails.
func (m Model) renderMarkdown(s string) string {
	if m.renderer == nil {
		return s + "\n"
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s + "\n"
	}
	return out
}
