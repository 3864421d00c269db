// Package roster loads the class roster exported from the course site.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

// Roster column headers.
const (
	ColumnRole  = "Role"
	ColumnNetID = "Net ID"
	ColumnFirst = "First Name"
	ColumnLast  = "Last Name"
	ColumnEmail = "Email"

	roleStudent = "Student"
)

// ErrRosterNotFound is returned when the roster file does not exist.
var ErrRosterNotFound = errors.New("roster: file not found")

// Student is one roster entry. Submission is the linked PDF path or "".
type Student struct {
	NetID      string `json:"netid"`
	First      string `json:"first"`
	Last       string `json:"last"`
	Email      string `json:"email"`
	Submission string `json:"submission,omitempty"`
}

// HasSubmission reports whether a PDF is linked to the student.
func (s Student) HasSubmission() bool {
	return strings.TrimSpace(s.Submission) != ""
}

// DisplayName renders "Last, First".
func (s Student) DisplayName() string {
	return fmt.Sprintf("%s, %s", s.Last, s.First)
}

// SubmissionFile returns the base name of the linked PDF, or "".
func (s Student) SubmissionFile() string {
	if !s.HasSubmission() {
		return ""
	}
	return filepath.Base(s.Submission)
}

// NormalizeNetID trims and case-folds a netid so roster rows, file stems and
// saved state keys compare equal.
func NormalizeNetID(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}

// Load reads and parses the roster at path.
func Load(path string) ([]Student, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRosterNotFound, path)
		}
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()
	students, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("roster: %s: %w", path, err)
	}
	return students, nil
}

// Parse reads roster CSV rows, keeping students with a netid, sorted by
// last name, first name and netid. A leading UTF-8 BOM is stripped.
func Parse(r io.Reader) ([]Student, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColumnRole, ColumnNetID} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}
	field := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	byNetID := map[string]Student{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if field(row, ColumnRole) != roleStudent {
			continue
		}
		netid := NormalizeNetID(field(row, ColumnNetID))
		if netid == "" {
			continue
		}
		byNetID[netid] = Student{
			NetID: netid,
			First: field(row, ColumnFirst),
			Last:  field(row, ColumnLast),
			Email: field(row, ColumnEmail),
		}
	}

	students := make([]Student, 0, len(byNetID))
	for _, s := range byNetID {
		students = append(students, s)
	}
	Sort(students)
	return students, nil
}

// Sort orders students by last name, first name and netid, ignoring case.
func Sort(students []Student) {
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if c := col.CompareString(a.Last, b.Last); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.First, b.First); c != 0 {
			return c < 0
		}
		return a.NetID < b.NetID
	})
}
