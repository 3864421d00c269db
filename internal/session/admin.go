package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/quizgrader/internal/export"
	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/history"
	"github.com/kingrea/quizgrader/internal/roster"
	"github.com/kingrea/quizgrader/internal/submission"
)

// AssignMapping links an unmatched PDF to a student. A student whose record
// was missing becomes ungraded.
func (s *Session) AssignMapping(filename, netid string) error {
	if err := s.ready(); err != nil {
		return err
	}
	filename = strings.TrimSpace(filename)
	netid = roster.NormalizeNetID(netid)
	if filename == "" || netid == "" {
		return ErrMissingSelection
	}
	i, ok := s.byNetID[netid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStudent, netid)
	}
	path, err := submission.Resolve(s.opts.SubmissionsDir, filename)
	if err != nil {
		return err
	}

	s.students[i].Submission = path
	s.mappings[filename] = netid
	kept := s.unmatched[:0]
	for _, name := range s.unmatched {
		if name != filename {
			kept = append(kept, name)
		}
	}
	s.unmatched = kept

	before := s.store.Snapshot()
	s.store.EnsureDefaults(s.students)
	s.journalChanges(history.ActionMapping, before)
	if i == s.index {
		s.loadDraft()
	}
	s.log.Info("submission mapped", "file", filename, "netid", netid)
	s.opts.Activity.Info("Mapped %s to %s", filename, netid)
	return s.save()
}

// Reset clears rubric items, manual mappings and grades, removes the state
// file and reloads. The full score is kept.
func (s *Session) Reset() error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.opts.State.Remove(); err != nil {
		s.opts.Activity.Error("Reset failed: %v", err)
		return fmt.Errorf("session: reset: %w", err)
	}
	if clearer, ok := s.opts.Journal.(Clearer); ok {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := clearer.Clear(ctx); err != nil {
			s.log.Warn("history clear failed", "error", err)
		}
	}
	fullScore := s.fullScore
	s.clear(fullScore)
	s.log.Info("state reset")
	s.opts.Activity.Warn("Saved grading state was reset")
	return s.load(fullScore)
}

// Rows builds export rows in roster order.
func (s *Session) Rows() []export.Row {
	rows := make([]export.Row, 0, len(s.students))
	for _, st := range s.students {
		rec, ok := s.store.Get(st.NetID)
		if !ok {
			rec = grading.NewRecord()
		}
		rows = append(rows, export.BuildRow(st, rec))
	}
	return rows
}

// Export saves the current student as graded and writes the CSV.
func (s *Session) Export(path string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.PersistCurrent(true); err != nil {
		return err
	}
	if err := export.WriteFile(path, s.Rows()); err != nil {
		s.opts.Activity.Error("Export failed: %v", err)
		return err
	}
	s.log.Info("exported grades", "path", path, "rows", len(s.students))
	s.opts.Activity.Info("Exported %d rows to %s", len(s.students), path)
	return nil
}
