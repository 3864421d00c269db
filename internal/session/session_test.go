package session

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/history"
	"github.com/kingrea/quizgrader/internal/roster"
	"github.com/kingrea/quizgrader/internal/rubric"
	"github.com/kingrea/quizgrader/internal/state"
)

const testRoster = `Role,Net ID,First Name,Last Name,Email
Student,AB12,Ada,Byron,ab12@school.edu
Student,cd34,Cy,Dee,cd34@school.edu
Teacher,tt01,Tess,Teach,tt01@school.edu
Student,ef56,Eve,Fox,ef56@school.edu
`

type recordingJournal struct {
	events  []history.Event
	cleared int
}

func (j *recordingJournal) Record(_ context.Context, ev history.Event) error {
	j.events = append(j.events, ev)
	return nil
}

func (j *recordingJournal) Clear(context.Context) error {
	j.cleared++
	j.events = nil
	return nil
}

func newFixture(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "roster.csv")
	if err := os.WriteFile(rosterPath, []byte(testRoster), 0o644); err != nil {
		t.Fatal(err)
	}
	quiz := filepath.Join(dir, "Quiz1")
	if err := os.Mkdir(quiz, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ab12.pdf", "ef56.pdf", "scan.pdf"} {
		if err := os.WriteFile(filepath.Join(quiz, name), []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return Options{
		RosterPath:     rosterPath,
		SubmissionsDir: quiz,
		State:          state.NewRepository(filepath.Join(dir, "grading_state.json")),
	}
}

func openSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := Open(opts)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func scoreOf(t *testing.T, s *Session, netid string) (float64, bool) {
	t.Helper()
	rec, ok := s.Record(netid)
	if !ok {
		t.Fatalf("no record for %s", netid)
	}
	return rec.ScoreValue()
}

func addRubrics(t *testing.T, s *Session) {
	t.Helper()
	for _, item := range []rubric.Item{{Name: "units", Points: 0.5}, {Name: "sign", Points: 2}} {
		if _, err := s.AddRubric(item.Name, grading.Format(item.Points)); err != nil {
			t.Fatalf("add rubric %s: %v", item.Name, err)
		}
	}
}

func TestOpenAppliesDefaultsAndPositions(t *testing.T) {
	opts := newFixture(t)
	journal := &recordingJournal{}
	opts.Journal = journal
	s := openSession(t, opts)

	students := s.Students()
	if len(students) != 3 || students[0].NetID != "ab12" || students[1].NetID != "cd34" {
		t.Fatalf("students = %+v", students)
	}
	if got := s.Counts(); got != (grading.Counts{Total: 3, WithSubmission: 2, Graded: 0, Missing: 1}) {
		t.Fatalf("counts = %+v", got)
	}
	if s.CurrentIndex() != 0 {
		t.Fatalf("index = %d, want first ungraded", s.CurrentIndex())
	}
	cd34, _ := s.Record("cd34")
	if cd34.Status != grading.StatusMissing {
		t.Fatalf("cd34 = %+v", cd34)
	}
	if v, ok := cd34.ScoreValue(); !ok || v != 0 {
		t.Fatalf("missing score = %v, %v", v, ok)
	}
	if u := s.Unmatched(); len(u) != 1 || u[0] != "scan.pdf" {
		t.Fatalf("unmatched = %v", u)
	}
	if _, err := os.Stat(opts.State.(*state.Repository).Path()); err != nil {
		t.Fatalf("open should save state: %v", err)
	}
	if len(journal.events) != 1 || journal.events[0].NetID != "cd34" || journal.events[0].Action != history.ActionDefaults {
		t.Fatalf("journal = %+v", journal.events)
	}
}

func TestAutosaveKeepsStatusNavigationGrades(t *testing.T) {
	s := openSession(t, newFixture(t))
	addRubrics(t, s)

	on, err := s.ToggleRubric("sign")
	mustNoErr(t, err)
	if !on {
		t.Fatalf("toggle should select")
	}
	rec, _ := s.CurrentRecord()
	if rec.Status != grading.StatusUngraded {
		t.Fatalf("autosave graded the record: %+v", rec)
	}
	if v, _ := rec.ScoreValue(); v != 8 {
		t.Fatalf("autosaved score = %v", v)
	}
	if got := s.PreviewText(); got != "Score: 8   (total deduction: 2)" {
		t.Fatalf("preview = %q", got)
	}

	mustNoErr(t, s.Next())
	ab12, _ := s.Record("ab12")
	if ab12.Status != grading.StatusGraded || !ab12.Graded {
		t.Fatalf("navigation should grade: %+v", ab12)
	}
	if got := s.Progress().String(); got != "student 2/3, graded 1/2 (missing auto-0: 1), status=missing" {
		t.Fatalf("progress = %q", got)
	}
	if got := s.PreviewText(); got != "Score: 0 (missing submission)" {
		t.Fatalf("preview = %q", got)
	}
	if _, err := s.ToggleRubric("sign"); !errors.Is(err, ErrNoSubmission) {
		t.Fatalf("editing a missing student: %v", err)
	}

	mustNoErr(t, s.Previous())
	mustNoErr(t, s.SetComments("check units"))
	ab12, _ = s.Record("ab12")
	if ab12.Status != grading.StatusGraded || ab12.Comments != "check units" {
		t.Fatalf("autosave after grading should keep graded: %+v", ab12)
	}
}

func TestNavigationWrapsAndNextUngraded(t *testing.T) {
	s := openSession(t, newFixture(t))

	mustNoErr(t, s.Previous())
	if s.CurrentIndex() != 2 {
		t.Fatalf("previous from first should wrap, got %d", s.CurrentIndex())
	}
	mustNoErr(t, s.Next())
	if s.CurrentIndex() != 0 {
		t.Fatalf("next from last should wrap, got %d", s.CurrentIndex())
	}

	found, err := s.NextUngraded()
	mustNoErr(t, err)
	if found {
		t.Fatalf("every submission is graded after wrapping, got index %d", s.CurrentIndex())
	}
	if s.CurrentIndex() != 0 {
		t.Fatalf("index should stay put, got %d", s.CurrentIndex())
	}
}

func TestNextUngradedSkipsMissingAndGraded(t *testing.T) {
	s := openSession(t, newFixture(t))
	found, err := s.NextUngraded()
	mustNoErr(t, err)
	if !found || s.CurrentIndex() != 2 {
		t.Fatalf("found=%v index=%d, want ef56", found, s.CurrentIndex())
	}
	found, err = s.NextUngraded()
	mustNoErr(t, err)
	if found {
		t.Fatalf("nothing should remain")
	}
	mustNoErr(t, s.Jump("AB12"))
	if cur, _ := s.Current(); cur.NetID != "ab12" {
		t.Fatalf("jump landed on %s", cur.NetID)
	}
	if err := s.Jump("zz99"); !errors.Is(err, ErrUnknownStudent) {
		t.Fatalf("jump to unknown: %v", err)
	}
}

func TestMissingStudentsStayZeroAcrossReloads(t *testing.T) {
	opts := newFixture(t)
	s := openSession(t, opts)
	addRubrics(t, s)
	mustNoErr(t, s.SetFullScore("20"))
	_, err := s.RecalculateAll()
	mustNoErr(t, err)

	reopened := openSession(t, opts)
	if reopened.FullScore() != 20 {
		t.Fatalf("full score = %v", reopened.FullScore())
	}
	for _, st := range reopened.Students() {
		if st.HasSubmission() {
			continue
		}
		rec, _ := reopened.Record(st.NetID)
		v, ok := rec.ScoreValue()
		if rec.Status != grading.StatusMissing || !ok || v != 0 {
			t.Fatalf("%s without submission = %+v", st.NetID, rec)
		}
	}
}

func TestRecalculateAllIsIdempotent(t *testing.T) {
	s := openSession(t, newFixture(t))
	addRubrics(t, s)
	_, err := s.ToggleRubric("units")
	mustNoErr(t, err)
	mustNoErr(t, s.Next())

	_, err = s.EditRubric("units", "units", "1.5")
	mustNoErr(t, err)
	if v, _ := scoreOf(t, s, "ab12"); v != 8.5 {
		t.Fatalf("rescored = %v, want 8.5", v)
	}
	n, err := s.RecalculateAll()
	mustNoErr(t, err)
	if n != 0 {
		t.Fatalf("second recalculation changed %d records", n)
	}
}

func TestRenamePreservesTotalDeduction(t *testing.T) {
	s := openSession(t, newFixture(t))
	addRubrics(t, s)
	_, err := s.ToggleRubric("sign")
	mustNoErr(t, err)
	before, _ := s.Record("ab12")

	_, err = s.EditRubric("sign", "wrong sign", "2")
	mustNoErr(t, err)
	after, _ := s.Record("ab12")
	if after.TotalDeduction != before.TotalDeduction {
		t.Fatalf("total deduction %v -> %v", before.TotalDeduction, after.TotalDeduction)
	}
	if !after.HasRubric("wrong sign") || !s.Draft().IsSelected("wrong sign") {
		t.Fatalf("rename not applied to record and buffer: %+v", after)
	}
	if _, err := s.EditRubric("wrong sign", "units", "1"); !errors.Is(err, rubric.ErrDuplicate) {
		t.Fatalf("rename onto existing name: %v", err)
	}
}

func TestRemoveRubricPrunesAndRescores(t *testing.T) {
	s := openSession(t, newFixture(t))
	addRubrics(t, s)
	_, err := s.ToggleRubric("sign")
	mustNoErr(t, err)
	mustNoErr(t, s.RemoveRubric("sign"))
	rec, _ := s.Record("ab12")
	if rec.HasRubric("sign") || s.Draft().IsSelected("sign") {
		t.Fatalf("removed rubric still referenced")
	}
	if v, _ := rec.ScoreValue(); v != 10 {
		t.Fatalf("score = %v, want 10", v)
	}
	if err := s.RemoveRubric("sign"); !errors.Is(err, rubric.ErrNotFound) {
		t.Fatalf("second remove: %v", err)
	}
}

func TestSetFullScoreValidation(t *testing.T) {
	s := openSession(t, newFixture(t))
	for _, bad := range []string{"abc", "-1", "", "NaN"} {
		if err := s.SetFullScore(bad); !errors.Is(err, ErrInvalidFullScore) {
			t.Fatalf("SetFullScore(%q) = %v", bad, err)
		}
	}
	mustNoErr(t, s.SetExtraDeduction("2"))
	mustNoErr(t, s.SetFullScore("12"))
	if v, _ := scoreOf(t, s, "ab12"); v != 10 {
		t.Fatalf("rescored = %v, want 10", v)
	}
}

func TestExtraDeductionFallsBackToZero(t *testing.T) {
	s := openSession(t, newFixture(t))
	mustNoErr(t, s.SetExtraDeduction("3"))
	mustNoErr(t, s.SetExtraDeduction("three"))
	if s.Draft().ExtraDeduction != 0 {
		t.Fatalf("unparseable extra = %v", s.Draft().ExtraDeduction)
	}
	if got := s.PreviewText(); got != "Score: 10   (total deduction: 0)" {
		t.Fatalf("preview = %q", got)
	}
}

func TestAssignMappingReopensMissingStudent(t *testing.T) {
	opts := newFixture(t)
	s := openSession(t, opts)

	if err := s.AssignMapping("nope.pdf", "cd34"); err == nil {
		t.Fatalf("mapping a missing file should fail")
	}
	if err := s.AssignMapping("scan.pdf", "zz99"); !errors.Is(err, ErrUnknownStudent) {
		t.Fatalf("mapping to unknown student: %v", err)
	}
	if err := s.AssignMapping("", "cd34"); !errors.Is(err, ErrMissingSelection) {
		t.Fatalf("empty selection: %v", err)
	}
	mustNoErr(t, s.AssignMapping("scan.pdf", "CD34"))

	rec, _ := s.Record("cd34")
	if rec.Status != grading.StatusUngraded || rec.Score != nil {
		t.Fatalf("mapped student should be ungraded: %+v", rec)
	}
	if len(s.Unmatched()) != 0 || s.Mappings()["scan.pdf"] != "cd34" {
		t.Fatalf("unmatched=%v mappings=%v", s.Unmatched(), s.Mappings())
	}

	reopened := openSession(t, opts)
	st, _ := reopened.Student("cd34")
	if st.SubmissionFile() != "scan.pdf" || len(reopened.Unmatched()) != 0 {
		t.Fatalf("mapping not persisted: %+v unmatched=%v", st, reopened.Unmatched())
	}
}

func TestExportReflectsPreview(t *testing.T) {
	opts := newFixture(t)
	s := openSession(t, opts)
	addRubrics(t, s)
	_, err := s.ToggleRubric("units")
	mustNoErr(t, err)
	mustNoErr(t, s.SetExtraDeduction("1.25"))
	preview := s.Preview()
	if got := s.PreviewText(); got != "Score: 8.25   (total deduction: 1.75)" {
		t.Fatalf("preview = %q", got)
	}

	out := filepath.Join(filepath.Dir(opts.RosterPath), "grades_export.csv")
	mustNoErr(t, s.Export(out))
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d", len(rows))
	}
	ab12 := rows[1]
	if ab12[0] != "ab12" || ab12[5] != "graded" || ab12[6] != grading.Format(preview.Score) || ab12[7] != "units" || ab12[8] != "1.25" {
		t.Fatalf("ab12 row = %v", ab12)
	}
	if cd34 := rows[2]; cd34[5] != "missing" || cd34[6] != "0" || cd34[4] != "" {
		t.Fatalf("cd34 row = %v", cd34)
	}
	if ef56 := rows[3]; ef56[5] != "ungraded" || ef56[6] != "" {
		t.Fatalf("ef56 row = %v", ef56)
	}
}

func TestResetClearsStateKeepsFullScore(t *testing.T) {
	opts := newFixture(t)
	journal := &recordingJournal{}
	opts.Journal = journal
	s := openSession(t, opts)
	addRubrics(t, s)
	mustNoErr(t, s.SetFullScore("15"))
	mustNoErr(t, s.AssignMapping("scan.pdf", "cd34"))
	mustNoErr(t, s.Next())

	mustNoErr(t, s.Reset())
	if len(s.RubricItems()) != 0 || len(s.Mappings()) != 0 {
		t.Fatalf("reset left rubrics=%v mappings=%v", s.RubricItems(), s.Mappings())
	}
	if s.FullScore() != 15 {
		t.Fatalf("full score = %v", s.FullScore())
	}
	if rec, _ := s.Record("ab12"); rec.Status != grading.StatusUngraded {
		t.Fatalf("grades not cleared: %+v", rec)
	}
	if u := s.Unmatched(); len(u) != 1 || u[0] != "scan.pdf" {
		t.Fatalf("unmatched after reset = %v", u)
	}
	if journal.cleared != 1 {
		t.Fatalf("journal not cleared")
	}
}

func TestMalformedStateStartsFresh(t *testing.T) {
	opts := newFixture(t)
	path := opts.State.(*state.Repository).Path()
	if err := os.WriteFile(path, []byte("[1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := openSession(t, opts)
	if !s.Loaded() || len(s.Students()) != 3 {
		t.Fatalf("session should load despite malformed state")
	}
	if _, err := state.NewRepository(path).Load(); err != nil {
		t.Fatalf("state should be rewritten cleanly: %v", err)
	}
}

func TestOpenMissingInputs(t *testing.T) {
	opts := newFixture(t)
	opts.RosterPath = filepath.Join(t.TempDir(), "missing.csv")
	s, err := Open(opts)
	if !errors.Is(err, roster.ErrRosterNotFound) {
		t.Fatalf("missing roster: %v", err)
	}
	if s.Loaded() || s.PreviewText() != "Score: -" || s.Progress().String() != "No students loaded" {
		t.Fatalf("failed load should leave an empty session")
	}
	if err := s.Next(); !errors.Is(err, ErrNoStudents) {
		t.Fatalf("navigation without students: %v", err)
	}

	opts = newFixture(t)
	opts.SubmissionsDir = filepath.Join(t.TempDir(), "Quiz9")
	if _, err := Open(opts); err == nil {
		t.Fatalf("missing submissions folder should fail")
	}
}

func TestFailedLoadNeverOverwritesState(t *testing.T) {
	opts := newFixture(t)
	s := openSession(t, opts)
	addRubrics(t, s)
	_, err := s.ToggleRubric("units")
	mustNoErr(t, err)
	mustNoErr(t, s.Next())

	statePath := opts.State.(*state.Repository).Path()
	saved, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatal(err)
	}

	broken := opts
	broken.RosterPath = filepath.Join(t.TempDir(), "roster-typo.csv")
	b, err := Open(broken)
	if !errors.Is(err, roster.ErrRosterNotFound) {
		t.Fatalf("open with bad roster: %v", err)
	}
	exportPath := filepath.Join(t.TempDir(), "grades.csv")
	if _, err := b.AddRubric("late", "1"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("AddRubric = %v", err)
	}
	if err := b.SetFullScore("5"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("SetFullScore = %v", err)
	}
	if err := b.RemoveRubric("units"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("RemoveRubric = %v", err)
	}
	if err := b.Export(exportPath); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Export = %v", err)
	}
	if err := b.Reset(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Reset = %v", err)
	}
	if err := b.Save(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Save = %v", err)
	}
	if _, err := os.Stat(exportPath); !os.IsNotExist(err) {
		t.Fatalf("export written from an unloaded session: %v", err)
	}

	after, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("state file removed: %v", err)
	}
	if string(after) != string(saved) {
		t.Fatalf("state file changed:\nbefore %s\nafter %s", saved, after)
	}
	reopened := openSession(t, opts)
	rec, _ := reopened.Record("ab12")
	if rec.Status != grading.StatusGraded || len(reopened.RubricItems()) != 2 {
		t.Fatalf("grades lost: %+v, rubrics %v", rec, reopened.RubricItems())
	}
}

func TestZeroFullScoreIsKept(t *testing.T) {
	opts := newFixture(t)
	zero := 0.0
	opts.DefaultFullScore = &zero
	s := openSession(t, opts)
	if s.FullScore() != 0 {
		t.Fatalf("configured 0 replaced by %v", s.FullScore())
	}

	opts = newFixture(t)
	s = openSession(t, opts)
	if s.FullScore() != 10 {
		t.Fatalf("default full score = %v", s.FullScore())
	}
	mustNoErr(t, s.SetFullScore("0"))
	if reopened := openSession(t, opts); reopened.FullScore() != 0 {
		t.Fatalf("saved 0 replaced by %v", reopened.FullScore())
	}
}

func TestJournalRecordsTransitions(t *testing.T) {
	opts := newFixture(t)
	journal := &recordingJournal{}
	opts.Journal = journal
	s := openSession(t, opts)
	journal.events = nil

	mustNoErr(t, s.SetExtraDeduction("1"))
	mustNoErr(t, s.Next())
	if len(journal.events) != 2 {
		t.Fatalf("events = %+v", journal.events)
	}
	last := journal.events[1]
	if last.NetID != "ab12" || last.Status != string(grading.StatusGraded) || last.Score == nil || *last.Score != 9 {
		t.Fatalf("last event = %+v", last)
	}
}
