// internal/tui/app.go
//
// This is the terminal grader. It uses bubbletea, which follows The Elm
// Architecture:
//
// 1. Model: the grading session plus the widgets on screen
// 2. Update: keys and window events change the model
// 3. View: the model renders to a string
//
// Every edit goes straight to the session, which rewrites the state file,
// so quitting at any point loses nothing.

package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/logbook"
	"github.com/kingrea/quizgrader/internal/roster"
	"github.com/kingrea/quizgrader/internal/rubric"
	"github.com/kingrea/quizgrader/internal/session"
	"github.com/kingrea/quizgrader/internal/submission"
)

// appState represents which screen is showing.
type appState int

const (
	stateGrading      appState = iota // student form
	stateRubricEditor                 // add / edit / remove deductions
	stateMapping                      // link unmatched PDFs to students
	stateConfirmReset                 // y/N prompt before wiping state
)

type gradingFocus int

const (
	focusRubrics gradingFocus = iota
	focusExtra
	focusComments
)

const (
	noneRemainMsg = "No ungraded students with submissions remain."
	notLoadedMsg  = "Roster or submissions not loaded; fix the paths and restart. Saved grades are untouched."
)

// PDFOpener hands a submission to an external viewer.
type PDFOpener interface {
	Open(path string) error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook attaches the activity journal shown in the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithViewer overrides the PDF viewer.
func WithViewer(viewer PDFOpener) AppOption {
	return func(a *App) {
		if viewer != nil {
			a.viewer = viewer
		}
	}
}

// WithExportPath sets where `e` writes the CSV.
func WithExportPath(path string) AppOption {
	return func(a *App) {
		if strings.TrimSpace(path) != "" {
			a.exportPath = path
		}
	}
}

// WithLoadError shows a failed initial load in the status line.
func WithLoadError(err error) AppOption {
	return func(a *App) {
		if err != nil {
			a.statusMsg = describeError(err)
		}
	}
}

// App is the main application model.
type App struct {
	state      appState
	session    *session.Session
	logbook    *logbook.Logbook
	viewer     PDFOpener
	exportPath string

	focus        gradingFocus
	rubricCursor int
	extraInput   textinput.Model
	comments     textarea.Model

	editor  rubricEditor
	mapping mappingView

	statusMsg string
	width     int
	height    int
}

// NewApp creates the grader around a loaded (or empty) session.
func NewApp(sess *session.Session, opts ...AppOption) *App {
	extra := textinput.New()
	extra.Prompt = ""
	extra.Placeholder = "0"
	extra.CharLimit = 16
	extra.Width = 12

	comments := textarea.New()
	comments.ShowLineNumbers = false
	comments.Placeholder = "Comments for this student"
	comments.SetHeight(4)
	comments.SetWidth(60)

	app := &App{
		state:      stateGrading,
		session:    sess,
		viewer:     submission.Viewer{},
		exportPath: "grades_export.csv",
		extraInput: extra,
		comments:   comments,
		editor:     newRubricEditor(),
		mapping:    newMappingView(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.syncForm()
	if app.statusMsg == "" {
		app.statusMsg = app.session.Progress().String()
	}
	return app
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// fail shows err in the status line and journals it.
func (a *App) fail(err error) {
	a.statusMsg = describeError(err)
	a.logError("%s", a.statusMsg)
}

// describeError turns session and rubric errors into the messages a grader
// expects to read.
func describeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, rubric.ErrEmptyName):
		return "Enter a rubric name."
	case errors.Is(err, rubric.ErrInvalidPoints):
		return "Deduction points must be a non-negative number."
	case errors.Is(err, roster.ErrRosterNotFound):
		return fmt.Sprintf("Roster not found: %v", err)
	case errors.Is(err, submission.ErrSubmissionsNotFound):
		return fmt.Sprintf("Submissions folder not found: %v", err)
	case errors.Is(err, session.ErrNoSubmission):
		return "This student has no submission (auto 0)."
	case errors.Is(err, session.ErrNotLoaded):
		return notLoadedMsg
	case errors.Is(err, session.ErrNoStudents):
		return "No students loaded."
	case errors.Is(err, session.ErrInvalidFullScore):
		return "Full score must be a non-negative number."
	}
	return err.Error()
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.state {
		case stateRubricEditor:
			return a.updateRubricEditor(msg)
		case stateMapping:
			return a.updateMapping(msg)
		case stateConfirmReset:
			return a.updateConfirmReset(msg)
		default:
			return a.updateGrading(msg)
		}
	}

	// Cursor blinks and similar ticks go to whichever input has focus.
	var cmd tea.Cmd
	switch {
	case a.state == stateGrading && a.focus == focusExtra:
		a.extraInput, cmd = a.extraInput.Update(msg)
	case a.state == stateGrading && a.focus == focusComments:
		a.comments, cmd = a.comments.Update(msg)
	case a.state == stateRubricEditor && a.editor.mode != editorBrowse:
		cmd = a.editor.updateInput(msg)
	}
	return a, cmd
}

func (a *App) resize() {
	leftWidth, _ := a.columns()
	inner := max(20, leftWidth-6)
	a.comments.SetWidth(inner)
	listHeight := max(6, a.height-14)
	a.editor.list.SetSize(inner, listHeight)
	a.mapping.files.SetSize(max(20, inner/2), listHeight)
	a.mapping.students.SetSize(max(20, inner/2), listHeight)
}

// updateConfirmReset handles the y/N prompt.
func (a *App) updateConfirmReset(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.state = stateGrading
	switch msg.String() {
	case "y", "Y":
		if err := a.session.Reset(); err != nil {
			a.fail(err)
			a.syncForm()
			return a, nil
		}
		a.syncForm()
		a.statusMsg = "Saved grading state was reset."
	default:
		a.statusMsg = "Reset cancelled."
	}
	return a, nil
}

// syncForm reloads the inputs from the session's edit buffer.
func (a *App) syncForm() {
	draft := a.session.Draft()
	a.extraInput.SetValue(grading.Format(draft.ExtraDeduction))
	a.comments.SetValue(draft.Comments)
	if n := len(a.session.RubricItems()); a.rubricCursor >= n {
		a.rubricCursor = max(0, n-1)
	}
	a.setFocus(focusRubrics)
}

func (a *App) setFocus(focus gradingFocus) tea.Cmd {
	a.focus = focus
	a.extraInput.Blur()
	a.comments.Blur()
	switch focus {
	case focusExtra:
		return a.extraInput.Focus()
	case focusComments:
		return a.comments.Focus()
	}
	return nil
}

// listItem is a generic list.Item used by the editor and mapping screens.
type listItem struct {
	key   string
	title string
	desc  string
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.key }

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

func selectedKey(l list.Model) string {
	item, ok := l.SelectedItem().(listItem)
	if !ok {
		return ""
	}
	return item.key
}
