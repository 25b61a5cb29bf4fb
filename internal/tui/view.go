package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/quillworks/quill/pkg/models"
)

const logTailLines = 8

// appStyles holds the lipgloss styles used by the run view.
type appStyles struct {
	header  lipgloss.Style
	pending lipgloss.Style
	running lipgloss.Style
	done    lipgloss.Style
	failed  lipgloss.Style
	waiting lipgloss.Style
	spinner lipgloss.Style
	logTime lipgloss.Style
	logErr  lipgloss.Style
	hint    lipgloss.Style
	sep     lipgloss.Style
	success lipgloss.Style
	errMsg  lipgloss.Style
	prompt  lipgloss.Style
	box     lipgloss.Style
}

func newAppStyles() appStyles {
	return appStyles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		pending: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		running: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		done:    lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		waiting: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		spinner: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		logTime: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		logErr:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		sep:     lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("28")).Bold(true),
		errMsg:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(a.viewTasks())
	b.WriteString("\n")
	b.WriteString(a.viewLogs())
	if a.inputOpen {
		b.WriteString("\n")
		b.WriteString(a.viewInput())
	}
	b.WriteString("\n")
	b.WriteString(a.viewFooter())
	return b.String()
}

func (a *App) viewHeader() string {
	return a.styles.header.Render("quill · " + a.title)
}

func (a *App) viewTasks() string {
	var b strings.Builder
	for i, row := range a.rows {
		glyph, style := a.statusGlyph(row.status)
		line := fmt.Sprintf("%s %d. %s", glyph, i+1, row.title)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) statusGlyph(status models.TaskStatus) (string, lipgloss.Style) {
	switch status {
	case models.TaskStatusInProgress:
		return a.spin.View(), a.styles.running
	case models.TaskStatusCompleted:
		return "✓", a.styles.done
	case models.TaskStatusFailed:
		return "✗", a.styles.failed
	case models.TaskStatusWaitingUser:
		return "⏳", a.styles.waiting
	default:
		return "○", a.styles.pending
	}
}

func (a *App) viewLogs() string {
	if len(a.logs) == 0 {
		return ""
	}
	start := 0
	if len(a.logs) > logTailLines {
		start = len(a.logs) - logTailLines
	}

	var b strings.Builder
	for _, entry := range a.logs[start:] {
		ts := a.styles.logTime.Render(entry.Timestamp.Format("15:04:05"))
		msg := entry.Message
		if entry.Level == "ERROR" {
			msg = a.styles.logErr.Render(msg)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", ts, msg))
	}
	return b.String()
}

func (a *App) viewInput() string {
	var b strings.Builder
	b.WriteString(a.styles.prompt.Render("Manual task waiting"))
	b.WriteString("\n")
	if a.instructions != "" {
		b.WriteString(a.instructions)
		b.WriteString("\n")
	}
	b.WriteString(a.styles.box.Render(a.input.View()))
	b.WriteString("\n")
	return b.String()
}

func (a *App) viewFooter() string {
	var left string
	switch {
	case a.failed:
		left = a.styles.errMsg.Render("✗ " + a.doneMsg)
	case a.done:
		left = a.styles.success.Render("✓ " + a.doneMsg)
	case a.inputOpen:
		left = a.styles.waiting.Render("⏳ waiting for input")
	default:
		left = a.styles.running.Render(a.spin.View() + " running")
	}

	tokens := a.styles.hint.Render(fmt.Sprintf("tokens %d in / %d out", a.tokensIn, a.tokensOut))
	elapsed := a.styles.hint.Render(a.elapsed().Round(time.Second).String())
	sep := a.styles.sep.Render(" │ ")
	return left + sep + tokens + sep + elapsed + sep + a.styles.hint.Render(a.keyboardHints())
}

func (a *App) keyboardHints() string {
	if a.inputOpen {
		return "enter submit · esc cancel · ctrl+c quit"
	}
	return "q quit"
}
