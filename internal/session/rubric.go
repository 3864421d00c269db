package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/history"
	"github.com/kingrea/quizgrader/internal/rubric"
)

// AddRubric appends a deduction to the catalog and saves.
func (s *Session) AddRubric(name, pointsText string) (rubric.Item, error) {
	if err := s.ready(); err != nil {
		return rubric.Item{}, err
	}
	item, err := s.catalog.Add(name, pointsText)
	if err != nil {
		return rubric.Item{}, err
	}
	s.log.Info("rubric added", "name", item.Name, "points", item.Points)
	s.opts.Activity.Info("Added rubric %q (-%s)", item.Name, grading.Format(item.Points))
	return item, s.save()
}

// EditRubric renames and/or repoints a deduction. References in every
// record and in the edit buffer follow a rename, then all scores are
// recalculated.
func (s *Session) EditRubric(oldName, name, pointsText string) (rubric.Item, error) {
	if err := s.ready(); err != nil {
		return rubric.Item{}, err
	}
	rename, err := s.catalog.Edit(oldName, name, pointsText)
	if err != nil {
		return rubric.Item{}, err
	}
	if rename.Renamed() {
		s.store.RenameRubric(rename.From, rename.To)
		s.draft.Rename(rename.From, rename.To)
	}
	s.rescore(history.ActionRecalc, "rubric edited: "+rename.To)
	s.log.Info("rubric edited", "from", rename.From, "to", rename.To, "points", rename.Item.Points)
	s.opts.Activity.Info("Edited rubric %q (-%s)", rename.To, grading.Format(rename.Item.Points))
	return rename.Item, s.save()
}

// RemoveRubric deletes a deduction, drops it from every record and the edit
// buffer and recalculates all scores.
func (s *Session) RemoveRubric(name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	item, err := s.catalog.Remove(name)
	if err != nil {
		return err
	}
	s.store.PruneRubric(item.Name)
	s.draft.Drop(item.Name)
	s.rescore(history.ActionRecalc, "rubric removed: "+item.Name)
	s.log.Info("rubric removed", "name", item.Name)
	s.opts.Activity.Info("Removed rubric %q", item.Name)
	return s.save()
}

// ImportRubric adds the items of a TOML or YAML preset that are not already
// in the catalog.
func (s *Session) ImportRubric(path string) ([]rubric.Item, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	items, err := rubric.LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	added, err := s.catalog.Import(items)
	if err != nil {
		return nil, err
	}
	s.log.Info("rubric imported", "path", path, "added", len(added))
	s.opts.Activity.Info("Imported %d rubric items from %s", len(added), path)
	return added, s.save()
}

// SetFullScore parses and applies a new maximum score, then recalculates
// all scores.
func (s *Session) SetFullScore(text string) error {
	if err := s.ready(); err != nil {
		return err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidFullScore, strings.TrimSpace(text))
	}
	if value == s.fullScore {
		return nil
	}
	s.fullScore = value
	s.rescore(history.ActionFullScore, "full score "+grading.Format(value))
	s.opts.Activity.Info("Full score set to %s", grading.Format(value))
	return s.save()
}

// RecalculateAll reapplies the catalog and full score to every record and
// saves. It returns the number of records that changed.
func (s *Session) RecalculateAll() (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n := s.rescore(history.ActionRecalc, "")
	s.opts.Activity.Info("Recalculated scores (%d changed)", n)
	return n, s.save()
}

func (s *Session) rescore(action, detail string) int {
	before := s.store.Snapshot()
	n := s.store.RecalculateAll(s.fullScore, s.catalog.Points())
	for netid, after := range s.store.Snapshot() {
		if prev, ok := before[netid]; ok && changed(prev, after) {
			s.journal(action, netid, after, detail)
		}
	}
	return n
}
