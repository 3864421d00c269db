// Package submission links the PDFs in the submissions folder to roster
// students and opens them in an external viewer.
package submission

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/quizgrader/internal/roster"
)

var (
	ErrSubmissionsNotFound = errors.New("submission: folder not found")
	ErrFileNotFound        = errors.New("submission: file not found")
	ErrUnknownStudent      = errors.New("submission: net id not in roster")
)

// Match is the result of scanning the submissions folder.
type Match struct {
	// ByNetID maps a netid to the absolute path of its PDF.
	ByNetID map[string]string
	// Unmatched lists PDF file names that were not linked to anyone.
	Unmatched []string
}

// Scan lists the PDFs in dir and links them to students. A file whose stem
// equals a netid (ignoring case) belongs to that student; manual mappings
// link the rest. A mapping wins over a name match when its file exists.
func Scan(dir string, students []roster.Student, mappings map[string]string) (Match, error) {
	match := Match{ByNetID: map[string]string{}, Unmatched: []string{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return match, fmt.Errorf("%w: %s", ErrSubmissionsNotFound, dir)
		}
		return match, fmt.Errorf("submission: read %s: %w", dir, err)
	}

	known := make(map[string]bool, len(students))
	for _, st := range students {
		known[st.NetID] = true
	}

	pdfs := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !IsPDF(entry.Name()) {
			continue
		}
		name := entry.Name()
		pdfs[name] = filepath.Join(dir, name)
		if netid := Stem(name); known[netid] {
			match.ByNetID[netid] = pdfs[name]
		}
	}

	for filename, netid := range mappings {
		netid = roster.NormalizeNetID(netid)
		path, ok := pdfs[filename]
		if !ok || !known[netid] {
			continue
		}
		match.ByNetID[netid] = path
	}

	for name := range pdfs {
		if known[Stem(name)] {
			continue
		}
		if _, mapped := mappings[name]; mapped {
			continue
		}
		match.Unmatched = append(match.Unmatched, name)
	}
	sort.Strings(match.Unmatched)
	return match, nil
}

// Apply copies the scan result onto the roster.
func (m Match) Apply(students []roster.Student) {
	for i := range students {
		students[i].Submission = m.ByNetID[students[i].NetID]
	}
}

// IsPDF reports whether name has a .pdf extension in any case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Stem returns the normalized file name without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return roster.NormalizeNetID(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Resolve checks that filename is a PDF directly inside dir and returns its
// path.
func Resolve(dir, filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || filepath.Base(filename) != filename || !IsPDF(filename) {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, filename)
	}
	path := filepath.Join(dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return path, nil
}
