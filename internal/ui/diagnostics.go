package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/amaroom/internal/diag"
)

type diagnosticsMsg struct {
	entries []diag.Entry
	err     error
}

func loadDiagnosticsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if strings.TrimSpace(path) == "" {
			return diagnosticsMsg{}
		}
		entries, err := diag.Read(path, diagnosticLines, diag.Info)
		return diagnosticsMsg{entries: entries, err: err}
	}
}

func (m *Model) handleDiagnostics(msg diagnosticsMsg) {
	atBottom := m.diagViewport.AtBottom()
	m.diagViewport.SetContent(m.renderDiagnostics(msg))
	if atBottom {
		m.diagViewport.GotoBottom()
	}
}

func (m Model) renderDiagnostics(msg diagnosticsMsg) string {
	styles := m.theme.Styles()
	if msg.err != nil {
		return styles.DangerText.Render("Cannot read log: " + msg.err.Error())
	}
	if len(msg.entries) == 0 {
		if m.logPath == "" {
			return styles.MutedText.Render("Logging to a file is disabled.")
		}
		return styles.MutedText.Render("No log entries yet in " + m.logPath)
	}

	lines := make([]string, 0, len(msg.entries))
	for _, e := range msg.entries {
		lines = append(lines, m.renderEntry(styles, e))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEntry(styles Styles, e diag.Entry) string {
	var sev lipgloss.Style
	switch e.Severity {
	case diag.Warning:
		sev = styles.WarningText
	case diag.Error, diag.Fatal:
		sev = styles.DangerText
	default:
		sev = styles.InfoText
	}
	ts := styles.FaintText.Render(e.Time.Format("15:04:05"))
	label := sev.Render(padRight(e.Severity.String(), 5))
	return ts + " " + label + " " + styles.Text.Render(e.Message)
}
