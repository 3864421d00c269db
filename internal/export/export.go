// Package export writes the grade sheet CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/roster"
)

// Header is the fixed column order of the export.
var Header = []string{
	"Net ID",
	"First Name",
	"Last Name",
	"Email",
	"Submission File",
	"Status",
	"Score",
	"Selected Rubrics",
	"Extra Deduction",
	"Comments",
}

// Row is one exported student.
type Row struct {
	NetID           string   `json:"netid"`
	First           string   `json:"first"`
	Last            string   `json:"last"`
	Email           string   `json:"email"`
	SubmissionFile  string   `json:"submission_file"`
	Status          string   `json:"status"`
	Score           *float64 `json:"score"`
	SelectedRubrics []string `json:"selected_rubrics"`
	ExtraDeduction  float64  `json:"extra_deduction"`
	Comments        string   `json:"comments"`
}

// BuildRow combines a roster entry with its grade record.
func BuildRow(st roster.Student, rec grading.Record) Row {
	rec = rec.Clone()
	return Row{
		NetID:           st.NetID,
		First:           st.First,
		Last:            st.Last,
		Email:           st.Email,
		SubmissionFile:  st.SubmissionFile(),
		Status:          string(rec.Status),
		Score:           rec.Score,
		SelectedRubrics: rec.SelectedRubrics,
		ExtraDeduction:  rec.ExtraDeduction,
		Comments:        rec.Comments,
	}
}

// Fields renders the row in Header order.
func (r Row) Fields() []string {
	score := ""
	if r.Score != nil {
		score = grading.Format(*r.Score)
	}
	return []string{
		r.NetID,
		r.First,
		r.Last,
		r.Email,
		r.SubmissionFile,
		r.Status,
		score,
		strings.Join(r.SelectedRubrics, "; "),
		grading.Format(r.ExtraDeduction),
		r.Comments,
	}
}

// Write emits the header and rows as CSV.
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Fields()); err != nil {
			return fmt.Errorf("export: write %s: %w", row.NetID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// WriteFile replaces path with a freshly written export.
func WriteFile(path string, rows []Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("export: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if err := Write(tmp, rows); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("export: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("export: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("export: replace %s: %w", path, err)
	}
	return nil
}
