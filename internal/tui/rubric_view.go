package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/rubric"
)

type editorMode int

const (
	editorBrowse editorMode = iota
	editorAdd
	editorEdit
)

// rubricEditor lists the catalog and hosts the add/edit form.
type rubricEditor struct {
	list        list.Model
	mode        editorMode
	target      string
	name        textinput.Model
	points      textinput.Model
	focusPoints bool
}

func newRubricEditor() rubricEditor {
	name := textinput.New()
	name.Placeholder = "Rubric name"
	name.CharLimit = 80
	name.Width = 40

	points := textinput.New()
	points.Placeholder = "Deduction points"
	points.CharLimit = 16
	points.Width = 12

	return rubricEditor{
		list:   newList("Rubric items"),
		name:   name,
		points: points,
	}
}

func (e *rubricEditor) refresh(items []rubric.Item) {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = listItem{
			key:   item.Name,
			title: item.Name,
			desc:  fmt.Sprintf("-%s", grading.Format(item.Points)),
		}
	}
	e.list.SetItems(listItems)
	if idx := e.list.Index(); idx >= len(listItems) && len(listItems) > 0 {
		e.list.Select(len(listItems) - 1)
	}
}

func (e *rubricEditor) startForm(mode editorMode, item rubric.Item) tea.Cmd {
	e.mode = mode
	e.target = item.Name
	e.name.SetValue(item.Name)
	e.points.SetValue("")
	if mode == editorEdit {
		e.points.SetValue(grading.Format(item.Points))
	}
	e.focusPoints = false
	e.points.Blur()
	return e.name.Focus()
}

func (e *rubricEditor) closeForm() {
	e.mode = editorBrowse
	e.target = ""
	e.name.Blur()
	e.points.Blur()
}

func (e *rubricEditor) toggleFocus() tea.Cmd {
	e.focusPoints = !e.focusPoints
	if e.focusPoints {
		e.name.Blur()
		return e.points.Focus()
	}
	e.points.Blur()
	return e.name.Focus()
}

func (e *rubricEditor) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if e.focusPoints {
		e.points, cmd = e.points.Update(msg)
	} else {
		e.name, cmd = e.name.Update(msg)
	}
	return cmd
}

func (a *App) openRubricEditor() {
	a.state = stateRubricEditor
	a.editor.closeForm()
	a.editor.refresh(a.session.RubricItems())
	a.statusMsg = "a add · e edit · d delete · esc back"
}

func (a *App) closeRubricEditor() {
	a.editor.closeForm()
	a.state = stateGrading
	a.syncForm()
	a.statusMsg = a.session.Progress().String()
}

func (a *App) updateRubricEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if a.editor.mode != editorBrowse {
		switch key {
		case "esc":
			a.editor.closeForm()
			a.statusMsg = "Edit cancelled."
			return a, nil
		case "tab", "shift+tab":
			return a, a.editor.toggleFocus()
		case "enter":
			a.submitRubricForm()
			return a, nil
		}
		return a, a.editor.updateInput(msg)
	}

	switch key {
	case "esc", "r", "q":
		a.closeRubricEditor()
		return a, nil
	case "a":
		a.statusMsg = "New rubric · tab switches field · enter saves"
		return a, a.editor.startForm(editorAdd, rubric.Item{})
	case "e", "enter":
		name := selectedKey(a.editor.list)
		if name == "" {
			a.statusMsg = "No rubric selected."
			return a, nil
		}
		item, ok := a.session.Rubric(name)
		if !ok {
			return a, nil
		}
		a.statusMsg = fmt.Sprintf("Editing %q · enter saves", name)
		return a, a.editor.startForm(editorEdit, item)
	case "d", "x", "delete":
		name := selectedKey(a.editor.list)
		if name == "" {
			a.statusMsg = "No rubric selected."
			return a, nil
		}
		if err := a.session.RemoveRubric(name); err != nil {
			a.fail(err)
			return a, nil
		}
		a.editor.refresh(a.session.RubricItems())
		a.statusMsg = fmt.Sprintf("Removed rubric %q.", name)
		return a, nil
	}

	var cmd tea.Cmd
	a.editor.list, cmd = a.editor.list.Update(msg)
	return a, cmd
}

func (a *App) submitRubricForm() {
	name := strings.TrimSpace(a.editor.name.Value())
	points := a.editor.points.Value()
	var err error
	switch a.editor.mode {
	case editorAdd:
		_, err = a.session.AddRubric(name, points)
	case editorEdit:
		_, err = a.session.EditRubric(a.editor.target, name, points)
	}
	if err != nil {
		if errors.Is(err, rubric.ErrDuplicate) {
			a.statusMsg = fmt.Sprintf("Rubric '%s' already exists.", name)
			a.logError("%s", a.statusMsg)
			return
		}
		a.fail(err)
		return
	}
	verb := "Added"
	if a.editor.mode == editorEdit {
		verb = "Updated"
	}
	a.editor.closeForm()
	a.editor.refresh(a.session.RubricItems())
	a.statusMsg = fmt.Sprintf("%s rubric %q.", verb, name)
}

func (a *App) renderRubricEditor() string {
	if a.editor.mode == editorBrowse {
		body := a.editor.list.View()
		if len(a.session.RubricItems()) == 0 {
			body = titleStyle.Render("Rubric items") + "\n\n" + labelStyle.Render("No rubric items yet.")
		}
		return lipgloss.JoinVertical(lipgloss.Left, body, hintStyle.Render("a add · e edit · d delete · esc back"))
	}
	heading := "New rubric item"
	if a.editor.mode == editorEdit {
		heading = fmt.Sprintf("Edit %q", a.editor.target)
	}
	return strings.Join([]string{
		titleStyle.Render(heading),
		"",
		a.renderField("Name:", a.editor.name.View(), !a.editor.focusPoints),
		a.renderField("Points:", a.editor.points.View(), a.editor.focusPoints),
		hintStyle.Render("tab switch field · enter save · esc cancel"),
	}, "\n")
}
