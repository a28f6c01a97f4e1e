package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/live"
	"github.com/five82/amaroom/internal/prefs"
)

// renderHeader renders the room line: name, connection badge, counts and
// the age of the last change.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	name := m.roomName
	if name == "" {
		name = "Room"
	}
	roomID := m.status.RoomID
	if roomID == "" && m.room != nil {
		roomID = m.room.RoomID()
	}

	parts := []string{
		bg.Render("AMA", styles.WarningText.Bold(true)),
		bg.Render(truncate(name, 32), styles.Text.Bold(true)),
		bg.Render("#"+roomID, styles.FaintText),
		styles.ConnStyle(m.status.Connection).Render(connLabel(m.status.Connection)),
		bg.Render(humanize.Comma(int64(m.state.Len()))+" "+plural(m.state.Len(), "question", "questions"), styles.MutedText),
	}
	if !m.state.Loaded {
		parts = append(parts, bg.Render("loading", styles.InfoText))
	}
	if !m.state.UpdatedAt.IsZero() {
		parts = append(parts, bg.Render("updated "+humanize.RelTime(m.state.UpdatedAt, m.now, "ago", "from now"), styles.FaintText))
	}

	line := bg.Spaces(1) + bg.Join(parts, "  ")
	return bg.FillLine(line, maxInt(m.width, lipgloss.Width(line)))
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)

	type hint struct{ key, desc string }
	var hints []hint
	switch m.view {
	case ViewDiagnostics:
		hints = []hint{{"esc", "Room"}, {"j/k", "Scroll"}, {"T", "Theme"}, {"h", "Help"}, {"e", "Quit"}}
	default:
		sortLabel := "Votes"
		if m.sort == prefs.SortVotes {
			sortLabel = "Arrival"
		}
		hints = []hint{
			{"u", "Upvote"}, {"a", "Ask"}, {"s", sortLabel}, {"r", "Reconnect"},
			{"R", "Reload"}, {"l", "Log"}, {"h", "Help"}, {"e", "Quit"},
		}
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, bg.Render(h.key, styles.AccentText)+bg.Spaces(1)+bg.Render(h.desc, styles.MutedText))
	}
	line := bg.Spaces(1) + bg.Join(parts, "  ")
	return bg.FillLine(line, maxInt(m.width, lipgloss.Width(line)))
}

// renderNotice shows the latest action result, else the most relevant error.
func (m Model) renderNotice() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	text, style := m.noticeText(styles)
	line := bg.Spaces(1) + bg.Render(truncate(text, maxInt(m.width-2, 10)), style)
	return bg.FillLine(line, maxInt(m.width, lipgloss.Width(line)))
}

func (m Model) noticeText(styles Styles) (string, lipgloss.Style) {
	switch {
	case m.notice != "":
		if m.noticeErr {
			return m.notice, styles.DangerText
		}
		return m.notice, styles.InfoText
	case !m.status.Active && api.IsNotFound(m.status.SnapshotErr):
		return "Room no longer exists. Press e to quit.", styles.DangerText
	case m.status.ConnErr != nil:
		return "Live updates stopped (" + m.status.ConnErr.Error() + "). Press r to reconnect.", styles.WarningText
	case m.status.SnapshotErr != nil:
		return "Could not load questions: " + m.status.SnapshotErr.Error() + ". Press R to retry.", styles.WarningText
	case m.status.Connection == live.Closed:
		return "Disconnected. Press r to reconnect.", styles.WarningText
	default:
		return "", styles.MutedText
	}
}

func connLabel(s live.State) string {
	switch s {
	case live.Open:
		return "LIVE"
	default:
		return strings.ToUpper(s.String())
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
