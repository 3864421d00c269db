package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/roster"
)

func TestWriteRows(t *testing.T) {
	score := 6.5
	zero := 0.0
	rows := []Row{
		BuildRow(
			roster.Student{NetID: "ab12", First: "Ada", Last: "Byron", Email: "ab12@school.edu", Submission: "/quiz/Quiz1/ab12.pdf"},
			grading.Record{SelectedRubrics: []string{"units", "sign"}, ExtraDeduction: 1, Comments: "see, p2", Status: grading.StatusGraded, Score: &score},
		),
		BuildRow(
			roster.Student{NetID: "cd34", First: "Cy", Last: "Dee"},
			grading.Record{Status: grading.StatusMissing, Score: &zero},
		),
		BuildRow(
			roster.Student{NetID: "ef56", First: "Eve", Last: "Fox", Submission: "/quiz/Quiz1/ef56.pdf"},
			grading.Record{Status: grading.StatusUngraded, ExtraDeduction: 0.25},
		),
	}

	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		Header,
		{"ab12", "Ada", "Byron", "ab12@school.edu", "ab12.pdf", "graded", "6.50", "units; sign", "1", "see, p2"},
		{"cd34", "Cy", "Dee", "", "", "missing", "0", "", "0", ""},
		{"ef56", "Eve", "Fox", "", "ef56.pdf", "ungraded", "", "", "0.25", ""},
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("csv =\n%v\nwant\n%v", records, want)
	}
}

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "grades_export.csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, nil); err != nil {
		t.Fatalf("write file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Net ID,First Name,Last Name,Email,Submission File,Status,Score,Selected Rubrics,Extra Deduction,Comments\n" {
		t.Fatalf("unexpected contents %q", data)
	}
}
