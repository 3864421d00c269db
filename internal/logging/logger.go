package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/quizgrader/internal/config"
)

// Logger writes structured lines to .quizgrader/logs/quizgrader.log so users
// can inspect failures after the TUI has closed.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates (or reuses) the log file for the configured project.
func New(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{Logger: newSlog(f, cfg.LogLevel()), file: f}, nil
}

// NewWriter builds a logger on an arbitrary writer; tests use it with a buffer.
func NewWriter(w io.Writer, level string) *Logger {
	return &Logger{Logger: newSlog(w, level)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, "error")
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Path returns the backing file, or "" for writer-backed loggers.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return filepath.Clean(l.file.Name())
}

func newSlog(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps config strings onto slog levels, defaulting to info. It
// accepts the same names as config validation.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
