package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrMalformed marks a state file that exists but is not a JSON object.
// Load still returns an empty document alongside it.
var ErrMalformed = errors.New("state: malformed state file")

// Repository reads and rewrites the state document at a fixed path.
type Repository struct {
	path string
	lock *flock.Flock
}

// NewRepository creates a repository for the given state file.
func NewRepository(path string) *Repository {
	return &Repository{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the state file location.
func (r *Repository) Path() string {
	return r.path
}

// Load reads the state document. A missing file yields an empty document
// and no error.
func (r *Repository) Load() (Document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Empty(), nil
		}
		return Empty(), fmt.Errorf("state: read %s: %w", r.path, err)
	}
	doc, err := decode(data)
	if err != nil {
		return Empty(), fmt.Errorf("%w: %s: %v", ErrMalformed, r.path, err)
	}
	return doc, nil
}

// Save rewrites the whole document. The write goes through a temp file and
// a rename while holding an advisory lock, so a reader never sees a partial
// file; the last writer still wins.
func (r *Repository) Save(doc Document) error {
	doc.fillNil()
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: ensure dir: %w", err)
	}
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("state: lock %s: %w", r.path, err)
	}
	defer func() { _ = r.lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+"-*")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(append(encoded, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("state: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("state: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("state: chmod: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		cleanup()
		return fmt.Errorf("state: replace %s: %w", r.path, err)
	}
	return nil
}

// Remove deletes the state file. Removing a file that does not exist is
// not an error.
func (r *Repository) Remove() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("state: remove %s: %w", r.path, err)
	}
	_ = os.Remove(r.path + ".lock")
	return nil
}
