package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// mappingView pairs an unmatched PDF with a roster student.
type mappingView struct {
	files         list.Model
	students      list.Model
	focusStudents bool
}

func newMappingView() mappingView {
	return mappingView{
		files:    newList("Unmatched PDFs"),
		students: newList("Students"),
	}
}

func (a *App) refreshMapping() {
	unmatched := a.session.Unmatched()
	files := make([]list.Item, len(unmatched))
	for i, name := range unmatched {
		files[i] = listItem{key: name, title: name, desc: "not linked"}
	}
	a.mapping.files.SetItems(files)

	roster := a.session.Students()
	students := make([]list.Item, len(roster))
	for i, st := range roster {
		desc := "no submission"
		if st.HasSubmission() {
			desc = st.SubmissionFile()
		}
		students[i] = listItem{
			key:   st.NetID,
			title: fmt.Sprintf("%s | %s", st.NetID, st.DisplayName()),
			desc:  desc,
		}
	}
	a.mapping.students.SetItems(students)
}

func (a *App) openMapping() {
	a.refreshMapping()
	if len(a.session.Unmatched()) == 0 {
		a.statusMsg = "No unmatched PDFs."
		return
	}
	a.mapping.focusStudents = false
	a.state = stateMapping
	a.statusMsg = "tab switch list · enter link · esc back"
}

func (a *App) updateMapping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "m", "q":
		a.state = stateGrading
		a.syncForm()
		a.statusMsg = a.session.Progress().String()
		return a, nil
	case "tab", "shift+tab":
		a.mapping.focusStudents = !a.mapping.focusStudents
		return a, nil
	case "enter":
		a.assignMapping()
		return a, nil
	}
	var cmd tea.Cmd
	if a.mapping.focusStudents {
		a.mapping.students, cmd = a.mapping.students.Update(msg)
	} else {
		a.mapping.files, cmd = a.mapping.files.Update(msg)
	}
	return a, cmd
}

func (a *App) assignMapping() {
	filename := selectedKey(a.mapping.files)
	netid := selectedKey(a.mapping.students)
	if err := a.session.AssignMapping(filename, netid); err != nil {
		a.fail(err)
		return
	}
	a.refreshMapping()
	a.statusMsg = fmt.Sprintf("Mapped %s to %s.", filename, netid)
	if len(a.session.Unmatched()) == 0 {
		a.state = stateGrading
		a.syncForm()
	}
}

func (a *App) renderMapping() string {
	files := a.mapping.files.View()
	students := a.mapping.students.View()
	focused := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5B8DEF"))
	idle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444"))
	if a.mapping.focusStudents {
		files, students = idle.Render(files), focused.Render(students)
	} else {
		files, students = focused.Render(files), idle.Render(students)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, files, students),
		hintStyle.Render("tab switch list · enter link PDF to student · esc back"),
	)
}
