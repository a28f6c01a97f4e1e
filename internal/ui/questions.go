package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/prefs"
)

// visibleQuestions returns the questions in display order. Sorting by votes
// only reorders this copy; the room keeps arrival order.
func (m Model) visibleQuestions() []api.Question {
	out := api.CloneQuestions(m.state.Questions)
	if m.sort == prefs.SortVotes {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ReactionCount > out[j].ReactionCount
		})
	}
	return out
}

func (m Model) selectedIndex(questions []api.Question) int {
	for i, q := range questions {
		if q.ID == m.selectedID {
			return i
		}
	}
	return -1
}

func (m Model) selectedQuestion(questions []api.Question) (api.Question, bool) {
	idx := m.selectedIndex(questions)
	if idx < 0 {
		return api.Question{}, false
	}
	return questions[idx], true
}

func (m *Model) moveSelection(questions []api.Question, delta int) {
	if len(questions) == 0 {
		return
	}
	idx := m.selectedIndex(questions)
	if idx < 0 {
		idx = 0
	} else {
		idx = clamp(idx+delta, 0, len(questions)-1)
	}
	m.selectedID = questions[idx].ID
}

// scrollToSelection keeps the selected row inside the visible window.
func (m *Model) scrollToSelection() {
	questions := m.visibleQuestions()
	rows := m.bodyHeight()
	idx := m.selectedIndex(questions)
	if idx < 0 {
		if len(questions) > 0 {
			m.selectedID = questions[0].ID
		}
		idx = 0
	}
	if idx < m.offset {
		m.offset = idx
	}
	if idx >= m.offset+rows {
		m.offset = idx - rows + 1
	}
	m.offset = clamp(m.offset, 0, maxInt(len(questions)-rows, 0))
}

func (m Model) renderQuestions() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)
	rows := m.bodyHeight()
	width := maxInt(m.width, 20)

	questions := m.visibleQuestions()
	if len(questions) == 0 {
		msg := "No questions yet. Press a to ask the first one."
		if !m.state.Loaded {
			msg = "Loading questions..."
		}
		lines := []string{bg.FillLine(bg.Render(msg, styles.MutedText), width)}
		for len(lines) < rows {
			lines = append(lines, bg.FillLine("", width))
		}
		return strings.Join(lines, "\n")
	}

	lines := make([]string, 0, rows)
	end := minInt(m.offset+rows, len(questions))
	for _, q := range questions[m.offset:end] {
		lines = append(lines, m.renderQuestionRow(q, q.ID == m.selectedID, width))
	}
	for len(lines) < rows {
		lines = append(lines, bg.FillLine("", width))
	}
	return strings.Join(lines, "\n")
}

// renderQuestionRow lays out: marker, vote count, answered flag, text.
func (m Model) renderQuestionRow(q api.Question, selected bool, width int) string {
	bgColor := m.theme.Background
	if selected {
		bgColor = m.theme.SelectionBg
	}
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)

	marker := "  "
	if selected {
		marker = "▸ "
	}
	answered := bg.Spaces(2)
	if q.Answered {
		answered = bg.Render("✓", styles.SuccessText) + bg.Spaces(1)
	}

	votes := styles.Votes.Render(fmt.Sprintf("▲%d", q.ReactionCount))
	prefix := bg.Render(marker, styles.AccentText) + votes + bg.Spaces(1) + answered
	textWidth := maxInt(width-lipgloss.Width(prefix), 4)

	textStyle := styles.Text
	if q.Answered {
		textStyle = styles.MutedText
	}
	text := bg.Render(truncate(singleLine(q.Value), textWidth), textStyle)
	return bg.FillLine(prefix+text, width)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
