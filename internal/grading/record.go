package grading

import "strings"

// Status is the lifecycle state of a grade record.
type Status string

const (
	StatusUngraded Status = "ungraded"
	StatusGraded   Status = "graded"
	StatusMissing  Status = "missing"
)

// ParseStatus maps persisted text onto a Status, reporting false for
// anything unrecognised.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusUngraded:
		return StatusUngraded, true
	case StatusGraded:
		return StatusGraded, true
	case StatusMissing:
		return StatusMissing, true
	}
	return "", false
}

// Record is the grading state of one student.
type Record struct {
	SelectedRubrics []string `json:"selected_rubrics"`
	ExtraDeduction  float64  `json:"extra_deduction"`
	Comments        string   `json:"comments"`
	Graded          bool     `json:"graded"`
	Status          Status   `json:"status"`
	Score           *float64 `json:"score"`
	TotalDeduction  float64  `json:"total_deduction"`
}

// NewRecord returns the default record for a student nobody has touched.
func NewRecord() Record {
	return Record{
		SelectedRubrics: []string{},
		Status:          StatusUngraded,
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.SelectedRubrics = append([]string{}, r.SelectedRubrics...)
	if r.Score != nil {
		score := *r.Score
		out.Score = &score
	}
	return out
}

// HasRubric reports whether name is selected.
func (r Record) HasRubric(name string) bool {
	for _, selected := range r.SelectedRubrics {
		if selected == name {
			return true
		}
	}
	return false
}

// ScoreValue returns the score and whether one is set.
func (r Record) ScoreValue() (float64, bool) {
	if r.Score == nil {
		return 0, false
	}
	return *r.Score, true
}

// Equal compares the fields that matter for grading.
func (r Record) Equal(other Record) bool {
	if r.Status != other.Status || r.Graded != other.Graded ||
		r.ExtraDeduction != other.ExtraDeduction || r.TotalDeduction != other.TotalDeduction ||
		r.Comments != other.Comments || len(r.SelectedRubrics) != len(other.SelectedRubrics) {
		return false
	}
	a, aok := r.ScoreValue()
	b, bok := other.ScoreValue()
	if aok != bok || a != b {
		return false
	}
	for i := range r.SelectedRubrics {
		if r.SelectedRubrics[i] != other.SelectedRubrics[i] {
			return false
		}
	}
	return true
}

// normalize repairs records loaded from older or hand-edited state files so
// Status and Graded agree.
func (r *Record) normalize() {
	if r.SelectedRubrics == nil {
		r.SelectedRubrics = []string{}
	}
	status, ok := ParseStatus(string(r.Status))
	if !ok {
		if r.Graded {
			status = StatusGraded
		} else {
			status = StatusUngraded
		}
	}
	r.Status = status
	switch status {
	case StatusGraded, StatusMissing:
		r.Graded = true
	case StatusUngraded:
		r.Graded = false
	}
}

func (r *Record) markMissing() {
	zero := 0.0
	r.Graded = true
	r.Status = StatusMissing
	r.Score = &zero
	r.SelectedRubrics = []string{}
	r.ExtraDeduction = 0
	r.TotalDeduction = 0
	r.Comments = ""
}

func (r *Record) reopen() {
	r.Graded = false
	r.Status = StatusUngraded
	r.Score = nil
}

func floatPtr(v float64) *float64 { return &v }
