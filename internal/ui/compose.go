package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.composing = false
		m.input.Blur()
		m.input.Reset()
		m.scrollToSelection()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			m.setNotice("Question is empty", nil)
			return m, nil
		}
		m.composing = false
		m.input.Blur()
		m.input.Reset()
		m.scrollToSelection()
		roomID := m.status.RoomID
		if roomID == "" && m.room != nil {
			roomID = m.room.RoomID()
		}
		return m, askCmd(m.ctx, m.actions, roomID, text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) renderCompose() string {
	styles := m.theme.Styles()
	box := styles.Box.Width(maxInt(m.width-4, 10))
	label := styles.AccentText.Background(lipgloss.Color(m.theme.SurfaceAlt)).Render("Ask")
	return box.Render(label + " " + m.input.View())
}

func askCmd(ctx context.Context, actions Actions, roomID, text string) tea.Cmd {
	return func() tea.Msg {
		if _, err := actions.CreateQuestion(ctx, roomID, text); err != nil {
			return actionMsg{text: "Question not sent", err: err}
		}
		return actionMsg{text: "Question sent"}
	}
}
