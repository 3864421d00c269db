// Package session drives one grading session: it ties the roster, the
// matched submissions, the rubric catalog and the grade records together,
// holds the edit buffer for the student on screen and rewrites the state
// file after every change.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/kingrea/quizgrader/internal/config"
	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/history"
	"github.com/kingrea/quizgrader/internal/logbook"
	"github.com/kingrea/quizgrader/internal/logging"
	"github.com/kingrea/quizgrader/internal/roster"
	"github.com/kingrea/quizgrader/internal/rubric"
	"github.com/kingrea/quizgrader/internal/state"
	"github.com/kingrea/quizgrader/internal/submission"
)

var (
	ErrNoStudents       = errors.New("session: no students loaded")
	ErrNoSubmission     = errors.New("session: student has no submission")
	ErrInvalidFullScore = errors.New("session: full score must be a non-negative number")
	ErrUnknownStudent   = submission.ErrUnknownStudent
	ErrMissingSelection = errors.New("session: pick both an unmatched PDF and a student")
	// ErrNotLoaded guards the state file: a session whose roster or
	// submissions failed to load must not overwrite what is on disk.
	ErrNotLoaded = errors.New("session: roster and submissions are not loaded")
)

const journalTimeout = 2 * time.Second

// StateStore loads and rewrites the persisted grading state.
type StateStore interface {
	Load() (state.Document, error)
	Save(state.Document) error
	Remove() error
}

// Journal receives grade record transitions.
type Journal interface {
	Record(ctx context.Context, ev history.Event) error
}

// Clearer is implemented by journals that can be emptied on reset.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Options configures a Session.
type Options struct {
	RosterPath       string
	SubmissionsDir   string
	// DefaultFullScore applies when the state file has none. Nil means
	// config.DefaultFullScore; 0 is a valid full score.
	DefaultFullScore *float64
	State            StateStore
	Journal          Journal
	Activity         *logbook.Logbook
	Logger           *slog.Logger
}

// OptionsFromConfig fills paths and the default full score from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	full := cfg.FullScore()
	return Options{
		RosterPath:       cfg.RosterPath(),
		SubmissionsDir:   cfg.SubmissionsDir(),
		DefaultFullScore: &full,
		State:            state.NewRepository(cfg.StatePath()),
	}
}

// Session is not safe for concurrent use; the TUI and CLI drive it from a
// single goroutine.
type Session struct {
	opts   Options
	log    *slog.Logger
	loaded bool

	students  []roster.Student
	byNetID   map[string]int
	store     *grading.Store
	catalog   *rubric.Catalog
	fullScore float64
	mappings  map[string]string
	unmatched []string

	index int
	draft grading.Draft
}

// New creates an empty session. Call Load to read the roster and state.
func New(opts Options) (*Session, error) {
	if opts.State == nil {
		return nil, errors.New("session: state store is required")
	}
	if v := opts.DefaultFullScore; v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		full := config.DefaultFullScore
		opts.DefaultFullScore = &full
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard().Logger
	}
	s := &Session{opts: opts, log: log}
	s.clear(*opts.DefaultFullScore)
	return s, nil
}

// Open creates a session and loads it.
func Open(opts Options) (*Session, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := s.Load(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Session) clear(fullScore float64) {
	s.loaded = false
	s.students = nil
	s.byNetID = map[string]int{}
	s.store = grading.NewStore(nil)
	s.catalog = rubric.NewCatalog(nil)
	s.fullScore = fullScore
	s.mappings = map[string]string{}
	s.unmatched = nil
	s.index = 0
	s.draft = grading.Draft{Selected: map[string]bool{}}
}

// Load reads the roster, the saved state and the submissions folder, fills
// in default records and positions on the first ungraded submission. On
// error the session is left unchanged.
func (s *Session) Load() error {
	return s.load(*s.opts.DefaultFullScore)
}

func (s *Session) load(fallbackFullScore float64) error {
	students, err := roster.Load(s.opts.RosterPath)
	if err != nil {
		s.opts.Activity.Error("Roster not found: %s", s.opts.RosterPath)
		return err
	}

	doc, err := s.opts.State.Load()
	if err != nil {
		if !errors.Is(err, state.ErrMalformed) {
			return fmt.Errorf("session: load state: %w", err)
		}
		s.log.Warn("state file unreadable, starting fresh", "error", err)
		s.opts.Activity.Warn("State file unreadable; starting with empty state")
		doc = state.Empty()
	}

	mappings := make(map[string]string, len(doc.ManualMappings))
	for filename, netid := range doc.ManualMappings {
		mappings[filename] = roster.NormalizeNetID(netid)
	}
	match, err := submission.Scan(s.opts.SubmissionsDir, students, mappings)
	if err != nil {
		s.opts.Activity.Error("Submissions folder not found: %s", s.opts.SubmissionsDir)
		return err
	}
	match.Apply(students)

	fullScore := fallbackFullScore
	if doc.FullScore != nil && *doc.FullScore >= 0 {
		fullScore = *doc.FullScore
	}

	s.students = students
	s.byNetID = make(map[string]int, len(students))
	for i, st := range students {
		s.byNetID[st.NetID] = i
	}
	s.store = grading.NewStore(doc.Grades)
	s.catalog = rubric.NewCatalog(doc.RubricItems)
	s.fullScore = fullScore
	s.mappings = mappings
	s.unmatched = match.Unmatched
	s.loaded = true

	before := s.store.Snapshot()
	s.store.EnsureDefaults(s.students)
	s.store.RecalculateAll(s.fullScore, s.catalog.Points())
	s.journalChanges(history.ActionDefaults, before)

	s.index = s.firstUngraded()
	s.loadDraft()

	counts := s.Counts()
	s.log.Info("session loaded",
		"students", counts.Total,
		"submissions", counts.WithSubmission,
		"unmatched", len(s.unmatched),
		"rubrics", s.catalog.Len(),
	)
	s.opts.Activity.Info("Loaded %d students, %d submissions, %d unmatched PDFs", counts.Total, counts.WithSubmission, len(s.unmatched))
	return s.save()
}

// Loaded reports whether Load has succeeded.
func (s *Session) Loaded() bool { return s.loaded }

// Save rewrites the whole state document.
func (s *Session) Save() error {
	return s.save()
}

func (s *Session) save() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	full := s.fullScore
	doc := state.Document{
		FullScore:      &full,
		RubricItems:    s.catalog.Items(),
		ManualMappings: s.Mappings(),
		Grades:         s.store.Snapshot(),
	}
	if err := s.opts.State.Save(doc); err != nil {
		s.log.Error("save state failed", "error", err)
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *Session) ready() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	return nil
}

// Students returns a copy of the roster in display order.
func (s *Session) Students() []roster.Student {
	return append([]roster.Student(nil), s.students...)
}

// Student looks up a roster entry.
func (s *Session) Student(netid string) (roster.Student, bool) {
	i, ok := s.byNetID[roster.NormalizeNetID(netid)]
	if !ok {
		return roster.Student{}, false
	}
	return s.students[i], true
}

// Current returns the student on screen.
func (s *Session) Current() (roster.Student, bool) {
	if len(s.students) == 0 {
		return roster.Student{}, false
	}
	return s.students[s.index], true
}

// CurrentIndex is the zero-based roster position on screen.
func (s *Session) CurrentIndex() int { return s.index }

// Record returns a copy of a student's grade record.
func (s *Session) Record(netid string) (grading.Record, bool) {
	return s.store.Get(roster.NormalizeNetID(netid))
}

// CurrentRecord returns the record of the student on screen.
func (s *Session) CurrentRecord() (grading.Record, bool) {
	st, ok := s.Current()
	if !ok {
		return grading.Record{}, false
	}
	return s.store.Get(st.NetID)
}

// Draft returns a copy of the edit buffer.
func (s *Session) Draft() grading.Draft { return s.draft.Clone() }

// Rubric returns the catalog item with this exact name.
func (s *Session) Rubric(name string) (rubric.Item, bool) {
	return s.catalog.Lookup(name)
}

// RubricItems returns the catalog in order.
func (s *Session) RubricItems() []rubric.Item { return s.catalog.Items() }

// FullScore returns the maximum score.
func (s *Session) FullScore() float64 { return s.fullScore }

// Unmatched lists PDFs not linked to any student.
func (s *Session) Unmatched() []string {
	return append([]string(nil), s.unmatched...)
}

// Mappings returns a copy of the manual filename to netid links.
func (s *Session) Mappings() map[string]string {
	out := make(map[string]string, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out
}

// Counts tallies the roster.
func (s *Session) Counts() grading.Counts {
	return s.store.Count(s.students)
}

// SubmissionPath returns the PDF of the student on screen.
func (s *Session) SubmissionPath() (string, error) {
	st, ok := s.Current()
	if !ok {
		return "", ErrNoStudents
	}
	if !st.HasSubmission() {
		return "", fmt.Errorf("%w: %s", ErrNoSubmission, st.NetID)
	}
	return st.Submission, nil
}

func (s *Session) loadDraft() {
	st, ok := s.Current()
	if !ok {
		s.draft = grading.Draft{Selected: map[string]bool{}}
		return
	}
	s.draft = grading.DraftFrom(*s.store.GetOrCreate(st.NetID))
}

func (s *Session) firstUngraded() int {
	for i, st := range s.students {
		if rec := s.store.GetOrCreate(st.NetID); st.HasSubmission() && !rec.Graded {
			return i
		}
	}
	return 0
}

// journalChanges records every record whose status or score differs from
// before. Records created since then are compared against a fresh record.
func (s *Session) journalChanges(action string, before map[string]grading.Record) {
	if s.opts.Journal == nil {
		return
	}
	for netid, after := range s.store.Snapshot() {
		prev, ok := before[netid]
		if !ok {
			prev = grading.NewRecord()
		}
		if !changed(prev, after) {
			continue
		}
		s.journal(action, netid, after, "")
	}
}

func (s *Session) journal(action, netid string, rec grading.Record, detail string) {
	if s.opts.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	err := s.opts.Journal.Record(ctx, history.Event{
		NetID:          netid,
		Action:         action,
		Status:         string(rec.Status),
		Score:          rec.Clone().Score,
		TotalDeduction: rec.TotalDeduction,
		Detail:         detail,
	})
	if err != nil {
		s.log.Warn("history record failed", "netid", netid, "action", action, "error", err)
	}
}

func changed(before, after grading.Record) bool {
	if before.Status != after.Status {
		return true
	}
	a, aok := before.ScoreValue()
	b, bok := after.ScoreValue()
	return aok != bok || a != b
}
