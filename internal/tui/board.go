package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const logPanelLines = 8

// View renders the current state to a string.
func (a *App) View() string {
	leftWidth, rightWidth := a.columns()
	var content string
	switch a.state {
	case stateRubricEditor:
		content = a.renderRubricEditor()
	case stateMapping:
		content = a.renderMapping()
	case stateConfirmReset:
		content = a.renderConfirmReset()
	default:
		content = a.renderGrading()
	}
	return a.renderStatusBoard(content, leftWidth, rightWidth)
}

func (a *App) columns() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
	}
	if leftWidth < 20 {
		leftWidth = width
		rightWidth = 0
	}
	return leftWidth, rightWidth
}

func (a *App) renderConfirmReset() string {
	return strings.Join([]string{
		warnStyle.Bold(true).Render("Reset State"),
		"",
		"This will permanently clear saved grades, rubric items, and manual PDF mappings.",
		"",
		"Continue? (y/N)",
	}, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderStatusBoard(mainContent string, leftWidth, rightWidth int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ QUIZGRADER")

	leftBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, leftWidth)).
		Render(mainContent)

	body := leftBox
	if rightWidth > 0 {
		rightBox := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1).
			Width(max(20, rightWidth)).
			Render(a.renderSummaryPanel(rightWidth - 4))
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}

	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

// renderSummaryPanel shows class-wide counts and the unmatched PDFs.
func (a *App) renderSummaryPanel(width int) string {
	counts := a.session.Counts()
	lines := []string{
		titleStyle.Render("Class"),
		fmt.Sprintf("Students: %d", counts.Total),
		fmt.Sprintf("Graded: %d/%d", counts.Graded, counts.WithSubmission),
		fmt.Sprintf("Missing (auto 0): %d", counts.Missing),
		"",
	}
	unmatched := a.session.Unmatched()
	lines = append(lines, titleStyle.Render(fmt.Sprintf("Unmatched PDFs (%d)", len(unmatched))))
	if len(unmatched) == 0 {
		lines = append(lines, labelStyle.Render("All PDFs are linked."))
	}
	for _, name := range unmatched {
		lines = append(lines, "· "+name)
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}
