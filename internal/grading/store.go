package grading

import (
	"strings"

	"github.com/kingrea/quizgrader/internal/roster"
)

// Store holds one mutable record per student keyed by netid. Records are
// created lazily and kept for netids that have left the roster.
type Store struct {
	records map[string]*Record
}

// NewStore wraps persisted records, repairing inconsistent status fields.
func NewStore(records map[string]Record) *Store {
	s := &Store{records: make(map[string]*Record, len(records))}
	for netid, rec := range records {
		netid = roster.NormalizeNetID(netid)
		if netid == "" {
			continue
		}
		rec = rec.Clone()
		rec.normalize()
		s.records[netid] = &rec
	}
	return s
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Get returns a copy of the record for netid.
func (s *Store) Get(netid string) (Record, bool) {
	rec, ok := s.records[netid]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// GetOrCreate returns the live record for netid, creating a default one.
func (s *Store) GetOrCreate(netid string) *Record {
	rec, ok := s.records[netid]
	if !ok {
		fresh := NewRecord()
		rec = &fresh
		s.records[netid] = rec
	}
	return rec
}

// Snapshot deep-copies every record for persistence.
func (s *Store) Snapshot() map[string]Record {
	out := make(map[string]Record, len(s.records))
	for netid, rec := range s.records {
		out[netid] = rec.Clone()
	}
	return out
}

// EnsureDefaults creates records for every student and aligns the missing
// state with submission presence: no submission forces missing with score
// 0, and a missing record whose student now has a submission reopens as
// ungraded.
func (s *Store) EnsureDefaults(students []roster.Student) {
	for _, st := range students {
		rec := s.GetOrCreate(st.NetID)
		rec.normalize()
		if !st.HasSubmission() {
			rec.markMissing()
			continue
		}
		if rec.Status == StatusMissing {
			rec.reopen()
		}
	}
}

// Persist writes a draft into the student's record. markGraded promotes the
// record to graded; otherwise its previous status is kept. A student without
// a submission is always forced back to missing. The previous and new
// record are returned.
func (s *Store) Persist(st roster.Student, draft Draft, markGraded bool, fullScore float64, order []string, points map[string]float64) (before, after Record) {
	rec := s.GetOrCreate(st.NetID)
	before = rec.Clone()
	if !st.HasSubmission() {
		rec.markMissing()
		return before, rec.Clone()
	}
	selected := draft.SelectedIn(order)
	result := Calculate(fullScore, selected, points, draft.ExtraDeduction)
	rec.SelectedRubrics = selected
	rec.ExtraDeduction = draft.ExtraDeduction
	rec.TotalDeduction = result.TotalDeduction
	rec.Score = floatPtr(result.Score)
	rec.Comments = strings.TrimSpace(draft.Comments)
	if markGraded {
		rec.Graded = true
		rec.Status = StatusGraded
	}
	return before, rec.Clone()
}

// RecalculateAll reapplies the current rubric points and full score to every
// record that carries a score. Missing records stay at zero. Applying it
// twice gives the same result as applying it once.
func (s *Store) RecalculateAll(fullScore float64, points map[string]float64) int {
	changed := 0
	for _, rec := range s.records {
		before := rec.Clone()
		switch {
		case rec.Status == StatusMissing:
			rec.markMissing()
		case rec.Score != nil || rec.Status == StatusGraded:
			result := Calculate(fullScore, rec.SelectedRubrics, points, rec.ExtraDeduction)
			rec.TotalDeduction = result.TotalDeduction
			rec.Score = floatPtr(result.Score)
		default:
			rec.TotalDeduction = Calculate(fullScore, rec.SelectedRubrics, points, rec.ExtraDeduction).TotalDeduction
		}
		if !before.Equal(*rec) {
			changed++
		}
	}
	return changed
}

// RenameRubric rewrites references from one rubric name to another.
func (s *Store) RenameRubric(from, to string) {
	if from == to {
		return
	}
	for _, rec := range s.records {
		out := rec.SelectedRubrics[:0]
		seen := map[string]bool{}
		for _, name := range rec.SelectedRubrics {
			if name == from {
				name = to
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
		rec.SelectedRubrics = out
	}
}

// PruneRubric removes references to a deleted rubric.
func (s *Store) PruneRubric(name string) {
	for _, rec := range s.records {
		out := rec.SelectedRubrics[:0]
		for _, selected := range rec.SelectedRubrics {
			if selected != name {
				out = append(out, selected)
			}
		}
		rec.SelectedRubrics = out
	}
}

// Counts summarises the store for the given roster.
type Counts struct {
	Total          int
	WithSubmission int
	Graded         int
	Missing        int
}

// Count tallies graded students among those with a submission.
func (s *Store) Count(students []roster.Student) Counts {
	c := Counts{Total: len(students)}
	for _, st := range students {
		if !st.HasSubmission() {
			c.Missing++
			continue
		}
		c.WithSubmission++
		if rec, ok := s.records[st.NetID]; ok && rec.Status == StatusGraded {
			c.Graded++
		}
	}
	return c
}
