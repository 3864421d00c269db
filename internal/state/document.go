// Package state persists the grading state document: full score, rubric
// items, manual PDF mappings and per-student grade records.
package state

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/rubric"
)

// Document is the on-disk JSON layout.
type Document struct {
	FullScore      *float64                  `json:"full_score"`
	RubricItems    []rubric.Item             `json:"rubric_items"`
	ManualMappings map[string]string         `json:"manual_mappings"`
	Grades         map[string]grading.Record `json:"grades"`
}

// Empty returns a document with no saved data.
func Empty() Document {
	return Document{
		RubricItems:    []rubric.Item{},
		ManualMappings: map[string]string{},
		Grades:         map[string]grading.Record{},
	}
}

func (d *Document) fillNil() {
	if d.RubricItems == nil {
		d.RubricItems = []rubric.Item{}
	}
	if d.ManualMappings == nil {
		d.ManualMappings = map[string]string{}
	}
	if d.Grades == nil {
		d.Grades = map[string]grading.Record{}
	}
	for netid, rec := range d.Grades {
		if rec.SelectedRubrics == nil {
			rec.SelectedRubrics = []string{}
			d.Grades[netid] = rec
		}
	}
}

// decode parses a state file leniently: sections or records of the wrong
// shape are dropped and unparseable numbers fall back to their defaults.
// Only a document that is not a JSON object at all is an error.
func decode(data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Empty(), err
	}
	doc := Empty()
	if v, ok := lenientFloat(raw["full_score"]); ok {
		doc.FullScore = &v
	}

	var items []json.RawMessage
	if json.Unmarshal(raw["rubric_items"], &items) == nil {
		for _, rawItem := range items {
			var entry map[string]json.RawMessage
			if json.Unmarshal(rawItem, &entry) != nil {
				continue
			}
			var name string
			if json.Unmarshal(entry["name"], &name) != nil {
				continue
			}
			points, _ := lenientFloat(entry["points"])
			doc.RubricItems = append(doc.RubricItems, rubric.Item{Name: strings.TrimSpace(name), Points: points})
		}
	}

	var mappings map[string]json.RawMessage
	if json.Unmarshal(raw["manual_mappings"], &mappings) == nil {
		for filename, value := range mappings {
			var netid string
			if json.Unmarshal(value, &netid) == nil && strings.TrimSpace(filename) != "" {
				doc.ManualMappings[filename] = netid
			}
		}
	}

	var grades map[string]json.RawMessage
	if json.Unmarshal(raw["grades"], &grades) == nil {
		for netid, value := range grades {
			if rec, ok := decodeRecord(value); ok {
				doc.Grades[netid] = rec
			}
		}
	}
	return doc, nil
}

func decodeRecord(data json.RawMessage) (grading.Record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return grading.Record{}, false
	}
	rec := grading.NewRecord()

	var selected []any
	if json.Unmarshal(fields["selected_rubrics"], &selected) == nil {
		for _, v := range selected {
			if name, ok := v.(string); ok {
				rec.SelectedRubrics = append(rec.SelectedRubrics, name)
			}
		}
	}
	rec.ExtraDeduction, _ = lenientFloat(fields["extra_deduction"])
	rec.TotalDeduction, _ = lenientFloat(fields["total_deduction"])
	_ = json.Unmarshal(fields["comments"], &rec.Comments)
	_ = json.Unmarshal(fields["graded"], &rec.Graded)
	var status string
	if json.Unmarshal(fields["status"], &status) == nil {
		rec.Status = grading.Status(status)
	}
	if score, ok := lenientFloat(fields["score"]); ok {
		rec.Score = &score
	}
	return rec, true
}

// lenientFloat accepts JSON numbers and numeric strings. Null, absent,
// non-finite and anything else report false.
func lenientFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
