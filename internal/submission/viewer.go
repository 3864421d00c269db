package submission

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoViewer is returned when no viewer command is configured or found.
var ErrNoViewer = errors.New("submission: no pdf viewer available")

// Viewer opens PDFs with an external program.
type Viewer struct {
	// Command is split on whitespace; the PDF path is appended as the last
	// argument. Empty selects the platform default.
	Command string

	start func(*exec.Cmd) error
}

// DefaultViewerCommand returns the platform opener.
func DefaultViewerCommand() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}

// Open launches the viewer without waiting for it to exit.
func (v Viewer) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	command := strings.TrimSpace(v.Command)
	if command == "" {
		command = DefaultViewerCommand()
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ErrNoViewer
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return fmt.Errorf("%w: %s", ErrNoViewer, fields[0])
	}
	cmd := exec.Command(fields[0], append(fields[1:], path)...)
	start := v.start
	if start == nil {
		start = startDetached
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("submission: launch %s: %w", fields[0], err)
	}
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
