package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/quizgrader/internal/grading"
)

func (a *App) updateGrading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if a.focus != focusRubrics {
		switch key {
		case "esc":
			return a, a.setFocus(focusRubrics)
		case "tab":
			if a.focus == focusExtra {
				return a, a.setFocus(focusComments)
			}
			return a, a.setFocus(focusRubrics)
		case "shift+tab":
			if a.focus == focusComments {
				return a, a.setFocus(focusExtra)
			}
			return a, a.setFocus(focusRubrics)
		}
		return a, a.updateFormInput(msg)
	}

	switch key {
	case "r", "m", "e", "R":
		if !a.session.Loaded() {
			a.statusMsg = notLoadedMsg
			return a, nil
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "n":
		a.navigate(a.session.Next)
	case "p":
		a.navigate(a.session.Previous)
	case "u":
		found, err := a.session.NextUngraded()
		a.syncForm()
		switch {
		case err != nil:
			a.fail(err)
		case !found:
			a.statusMsg = noneRemainMsg
			a.logInfo(noneRemainMsg)
		default:
			a.statusMsg = a.session.Progress().String()
		}
	case "up", "k":
		if a.rubricCursor > 0 {
			a.rubricCursor--
		}
	case "down", "j":
		if a.rubricCursor < len(a.session.RubricItems())-1 {
			a.rubricCursor++
		}
	case " ", "space", "x":
		a.toggleRubric()
	case "tab":
		if _, err := a.session.SubmissionPath(); err != nil {
			a.fail(err)
			return a, nil
		}
		return a, a.setFocus(focusExtra)
	case "o":
		a.openSubmission()
	case "r":
		a.openRubricEditor()
	case "m":
		a.openMapping()
	case "e":
		a.export()
	case "R":
		a.state = stateConfirmReset
		a.statusMsg = "Reset will permanently clear saved grades, rubric items and manual PDF mappings. Continue? (y/N)"
	}
	return a, nil
}

func (a *App) navigate(move func() error) {
	if err := move(); err != nil {
		a.fail(err)
		return
	}
	a.syncForm()
	a.statusMsg = a.session.Progress().String()
}

func (a *App) toggleRubric() {
	items := a.session.RubricItems()
	if len(items) == 0 {
		a.statusMsg = "No rubric items yet. Press r to add one."
		return
	}
	name := items[a.rubricCursor].Name
	on, err := a.session.ToggleRubric(name)
	if err != nil {
		a.fail(err)
		return
	}
	verb := "Cleared"
	if on {
		verb = "Applied"
	}
	a.statusMsg = fmt.Sprintf("%s %q · %s", verb, name, a.session.PreviewText())
}

// updateFormInput feeds a key to the focused input and autosaves when its
// value changed.
func (a *App) updateFormInput(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case focusExtra:
		before := a.extraInput.Value()
		a.extraInput, cmd = a.extraInput.Update(msg)
		if value := a.extraInput.Value(); value != before {
			if err := a.session.SetExtraDeduction(value); err != nil {
				a.fail(err)
			}
		}
	case focusComments:
		before := a.comments.Value()
		a.comments, cmd = a.comments.Update(msg)
		if value := a.comments.Value(); value != before {
			if err := a.session.SetComments(value); err != nil {
				a.fail(err)
			}
		}
	}
	return cmd
}

func (a *App) openSubmission() {
	path, err := a.session.SubmissionPath()
	if err != nil {
		a.fail(err)
		return
	}
	if err := a.viewer.Open(path); err != nil {
		a.fail(err)
		return
	}
	a.statusMsg = fmt.Sprintf("Opened %s", filepath.Base(path))
}

func (a *App) export() {
	if err := a.session.Export(a.exportPath); err != nil {
		a.fail(err)
		return
	}
	a.syncForm()
	a.statusMsg = fmt.Sprintf("Wrote: %s", a.exportPath)
}

var (
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).MarginTop(1)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	scoreStyle    = lipgloss.NewStyle().Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

func (a *App) renderGrading() string {
	st, ok := a.session.Current()
	if !ok {
		return strings.Join([]string{
			"Name: -",
			"NetID: -",
			"Email: -",
			"Submission: -",
			"Progress: No students loaded",
			"",
			"Score: -",
		}, "\n")
	}

	submissionLine := fmt.Sprintf("Submission: %s", st.SubmissionFile())
	if !st.HasSubmission() {
		submissionLine = warnStyle.Render("Submission: MISSING (auto 0)")
	}
	lines := []string{
		fmt.Sprintf("Name: %s", st.DisplayName()),
		fmt.Sprintf("NetID: %s", st.NetID),
		fmt.Sprintf("Email: %s", st.Email),
		submissionLine,
		labelStyle.Render("Progress: " + a.session.Progress().String()),
		"",
		titleStyle.Render(fmt.Sprintf("Rubric (full score %s)", grading.Format(a.session.FullScore()))),
		a.renderChecklist(st.HasSubmission()),
		"",
		a.renderField("Extra deduction:", a.extraInput.View(), a.focus == focusExtra),
		a.renderField("Comments:", "\n"+a.comments.View(), a.focus == focusComments),
		"",
		scoreStyle.Render(a.session.PreviewText()),
		hintStyle.Render("n/p next/prev · u next ungraded · space toggle · tab form · o open PDF\nr rubrics · m map PDFs · e export · R reset · q quit"),
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderChecklist(enabled bool) string {
	items := a.session.RubricItems()
	if len(items) == 0 {
		return labelStyle.Render("No rubric items. Press r to add deductions.")
	}
	draft := a.session.Draft()
	rows := make([]string, 0, len(items))
	for i, item := range items {
		box := "[ ]"
		if draft.IsSelected(item.Name) {
			box = "[x]"
		}
		row := fmt.Sprintf("%s %s (-%s)", box, item.Name, grading.Format(item.Points))
		switch {
		case !enabled:
			row = disabledStyle.Render("  " + row)
		case i == a.rubricCursor && a.focus == focusRubrics:
			row = cursorStyle.Render("> " + row)
		default:
			row = "  " + row
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func (a *App) renderField(label, body string, focused bool) string {
	if focused {
		label = cursorStyle.Render(label)
	} else {
		label = labelStyle.Render(label)
	}
	return label + " " + body
}
