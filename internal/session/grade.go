package session

import (
	"fmt"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/history"
	"github.com/kingrea/quizgrader/internal/rubric"
)

// PersistCurrent writes the edit buffer into the current student's record
// and saves. Autosaves pass false so a graded record stays graded and an
// ungraded one stays ungraded; navigation passes true.
func (s *Session) PersistCurrent(markGraded bool) error {
	st, ok := s.Current()
	if !ok {
		return nil
	}
	before, after := s.store.Persist(st, s.draft, markGraded, s.fullScore, s.catalog.Names(), s.catalog.Points())
	if !st.HasSubmission() {
		s.draft = grading.DraftFrom(after)
	}
	if changed(before, after) {
		s.journal(history.ActionPersist, st.NetID, after, "")
		if after.Status == grading.StatusGraded && before.Status != grading.StatusGraded {
			s.opts.Activity.Info("Graded %s: %s", st.NetID, scoreText(after))
		}
	}
	return s.save()
}

// Next saves the current student as graded and moves forward, wrapping at
// the end of the roster.
func (s *Session) Next() error {
	return s.step(1)
}

// Previous saves the current student as graded and moves back, wrapping at
// the start of the roster.
func (s *Session) Previous() error {
	return s.step(-1)
}

func (s *Session) step(delta int) error {
	n := len(s.students)
	if n == 0 {
		return ErrNoStudents
	}
	if err := s.PersistCurrent(true); err != nil {
		return err
	}
	s.index = ((s.index+delta)%n + n) % n
	s.loadDraft()
	return nil
}

// NextUngraded saves the current student as graded and moves to the next
// student with a submission who is still ungraded. It reports false and
// stays put when none remain.
func (s *Session) NextUngraded() (bool, error) {
	n := len(s.students)
	if n == 0 {
		return false, ErrNoStudents
	}
	if err := s.PersistCurrent(true); err != nil {
		return false, err
	}
	for offset := 1; offset <= n; offset++ {
		i := (s.index + offset) % n
		st := s.students[i]
		if st.HasSubmission() && !s.store.GetOrCreate(st.NetID).Graded {
			s.index = i
			s.loadDraft()
			return true, nil
		}
	}
	return false, nil
}

// Jump saves the current student as graded and moves to netid.
func (s *Session) Jump(netid string) error {
	if len(s.students) == 0 {
		return ErrNoStudents
	}
	st, ok := s.Student(netid)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStudent, netid)
	}
	if err := s.PersistCurrent(true); err != nil {
		return err
	}
	s.index = s.byNetID[st.NetID]
	s.loadDraft()
	return nil
}

func (s *Session) editable() error {
	st, ok := s.Current()
	if !ok {
		return ErrNoStudents
	}
	if !st.HasSubmission() {
		return fmt.Errorf("%w: %s", ErrNoSubmission, st.NetID)
	}
	return nil
}

// ToggleRubric flips a deduction for the current student and autosaves. It
// returns whether the rubric is now selected.
func (s *Session) ToggleRubric(name string) (bool, error) {
	if err := s.editable(); err != nil {
		return false, err
	}
	if !s.catalog.Has(name) {
		return false, fmt.Errorf("%w: %q", rubric.ErrNotFound, name)
	}
	on := s.draft.Toggle(name)
	return on, s.PersistCurrent(false)
}

// SetExtraDeduction parses text as the extra deduction, treating anything
// unparseable as zero, and autosaves.
func (s *Session) SetExtraDeduction(text string) error {
	if err := s.editable(); err != nil {
		return err
	}
	value := grading.ParseNumber(text, 0)
	if value == s.draft.ExtraDeduction {
		return nil
	}
	s.draft.ExtraDeduction = value
	return s.PersistCurrent(false)
}

// SetComments replaces the comments and autosaves.
func (s *Session) SetComments(text string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if text == s.draft.Comments {
		return nil
	}
	s.draft.Comments = text
	return s.PersistCurrent(false)
}

// Preview scores the edit buffer without saving.
func (s *Session) Preview() grading.Result {
	return s.draft.Score(s.fullScore, s.catalog.Names(), s.catalog.Points())
}

// PreviewText is the live score line shown under the form.
func (s *Session) PreviewText() string {
	st, ok := s.Current()
	switch {
	case !ok:
		return "Score: -"
	case !st.HasSubmission():
		return "Score: 0 (missing submission)"
	}
	result := s.Preview()
	return fmt.Sprintf("Score: %s   (total deduction: %s)", grading.Format(result.Score), grading.Format(result.TotalDeduction))
}

// Progress describes where the grader is.
type Progress struct {
	Position       int
	Total          int
	Graded         int
	WithSubmission int
	Missing        int
	Status         grading.Status
}

// Progress summarises the roster and the current student.
func (s *Session) Progress() Progress {
	counts := s.Counts()
	p := Progress{
		Position:       s.index + 1,
		Total:          counts.Total,
		Graded:         counts.Graded,
		WithSubmission: counts.WithSubmission,
		Missing:        counts.Missing,
		Status:         grading.StatusUngraded,
	}
	if rec, ok := s.CurrentRecord(); ok {
		p.Status = rec.Status
	}
	return p
}

func (p Progress) String() string {
	if p.Total == 0 {
		return "No students loaded"
	}
	return fmt.Sprintf("student %d/%d, graded %d/%d (missing auto-0: %d), status=%s",
		p.Position, p.Total, p.Graded, p.WithSubmission, p.Missing, p.Status)
}

func scoreText(rec grading.Record) string {
	if v, ok := rec.ScoreValue(); ok {
		return grading.Format(v)
	}
	return "-"
}
