// internal/config/config.go
//
// This package handles configuration and the .quizgrader directory structure.
// Every course folder that uses quizgrader gets a .quizgrader/ folder created
// in its root next to the roster and the submissions folder.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// GraderDir is the name of the directory we create in each project
	GraderDir = ".quizgrader"

	// DefaultFullScore is used when no full score is configured or saved.
	// An explicit 0 is a valid full score.
	DefaultFullScore = 10.0

	defaultRoster      = "roster.csv"
	defaultSubmissions = "Quiz1"
	defaultState       = "grading_state.json"
	defaultExport      = "grades_export.csv"
	defaultHistory     = GraderDir + "/history.db"
	defaultLogLevel    = "info"
)

const defaultProjectConfigYAML = `# quizgrader project configuration
version: 1

# Roster CSV exported from the course site (columns: Role, Net ID, First Name, Last Name, Email).
roster: roster.csv

# Folder holding one PDF per student, named <netid>.pdf.
submissions: Quiz1

# Grading state (rubric, manual mappings, grades). Rewritten on every change.
state: grading_state.json

# Destination of the CSV export.
export: grades_export.csv

full_score: 10

# Command used to open a submission. Empty means xdg-open (open on macOS).
viewer: ""

logging:
  level: info

history:
  enabled: true
  path: .quizgrader/history.db
`

// LoggingConfig controls the diagnostic log.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HistoryConfig controls the grading journal.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// ProjectConfig models .quizgrader/config.yaml.
type ProjectConfig struct {
	Version     int           `yaml:"version"`
	Roster      string        `yaml:"roster"`
	Submissions string        `yaml:"submissions"`
	State       string        `yaml:"state"`
	Export      string        `yaml:"export"`
	FullScore   *float64      `yaml:"full_score,omitempty"`
	Viewer      string        `yaml:"viewer,omitempty"`
	Logging     LoggingConfig `yaml:"logging"`
	History     HistoryConfig `yaml:"history"`
}

// Config holds the runtime configuration for quizgrader.
type Config struct {
	// ProjectDir is the course folder quizgrader runs against
	ProjectDir string

	// GraderProjectDir is ProjectDir/.quizgrader
	GraderProjectDir string

	Project ProjectConfig
}

// InitGraderDir creates the .quizgrader directory structure in the given project directory.
//
// Structure created:
// .quizgrader/
// ├── config.yaml
// └── logs/       <- diagnostic log and activity journal
func InitGraderDir(projectDir string) error {
	graderDir := filepath.Join(projectDir, GraderDir)
	if err := os.MkdirAll(filepath.Join(graderDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(graderDir, "config.yaml"))
}

// NewConfig creates a Config populated from .quizgrader/config.yaml when present.
func NewConfig(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir:       abs,
		GraderProjectDir: filepath.Join(abs, GraderDir),
		Project:          defaultProjectConfig(),
	}
	cfg.Project.normalize(abs)
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the config at an explicit path. The project directory is the
// parent of the .quizgrader folder holding the file.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	graderDir := filepath.Dir(abs)
	projectDir := filepath.Dir(graderDir)
	cfg := &Config{
		ProjectDir:       projectDir,
		GraderProjectDir: graderDir,
		Project:          defaultProjectConfig(),
	}
	cfg.Project.normalize(projectDir)
	if err := cfg.loadFrom(abs, true); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.GraderProjectDir, "config.yaml")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.GraderProjectDir, "logs")
}

// LogPath is the diagnostic log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "quizgrader.log")
}

// ActivityPath is the human readable activity journal shown in the TUI.
func (c *Config) ActivityPath() string {
	return filepath.Join(c.LogsDir(), "activity.log")
}

// RosterPath returns the absolute roster CSV path.
func (c *Config) RosterPath() string { return c.Project.Roster }

// SubmissionsDir returns the absolute submissions folder.
func (c *Config) SubmissionsDir() string { return c.Project.Submissions }

// StatePath returns the absolute grading state path.
func (c *Config) StatePath() string { return c.Project.State }

// ExportPath returns the absolute CSV export path.
func (c *Config) ExportPath() string { return c.Project.Export }

// FullScore returns the configured default full score.
func (c *Config) FullScore() float64 {
	if c.Project.FullScore == nil {
		return DefaultFullScore
	}
	return *c.Project.FullScore
}

// Viewer returns the configured viewer command, possibly empty.
func (c *Config) Viewer() string { return c.Project.Viewer }

// LogLevel returns the configured diagnostic log level.
func (c *Config) LogLevel() string { return c.Project.Logging.Level }

// HistoryEnabled reports whether the grading journal should be opened.
func (c *Config) HistoryEnabled() bool {
	return c.Project.History.Enabled == nil || *c.Project.History.Enabled
}

// HistoryPath returns the absolute grading journal database path.
func (c *Config) HistoryPath() string { return c.Project.History.Path }

// OverrideRoster replaces the roster path for this run only.
func (c *Config) OverrideRoster(path string) {
	if path = strings.TrimSpace(path); path != "" {
		c.Project.Roster = resolvePath(c.ProjectDir, path)
	}
}

// OverrideSubmissions replaces the submissions folder for this run only.
func (c *Config) OverrideSubmissions(path string) {
	if path = strings.TrimSpace(path); path != "" {
		c.Project.Submissions = resolvePath(c.ProjectDir, path)
	}
}

func (c *Config) loadProjectConfig() error {
	return c.loadFrom(c.ProjectConfigPath(), false)
}

func (c *Config) loadFrom(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Roster) == "" {
		pc.Roster = defaultRoster
	}
	if strings.TrimSpace(pc.Submissions) == "" {
		pc.Submissions = defaultSubmissions
	}
	if strings.TrimSpace(pc.State) == "" {
		pc.State = defaultState
	}
	if strings.TrimSpace(pc.Export) == "" {
		pc.Export = defaultExport
	}
	if pc.FullScore == nil {
		full := DefaultFullScore
		pc.FullScore = &full
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(pc.History.Path) == "" {
		pc.History.Path = defaultHistory
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Roster = resolvePath(base, pc.Roster)
	pc.Submissions = resolvePath(base, pc.Submissions)
	pc.State = resolvePath(base, pc.State)
	pc.Export = resolvePath(base, pc.Export)
	pc.History.Path = resolvePath(base, pc.History.Path)
	pc.Viewer = strings.TrimSpace(pc.Viewer)
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	if pc.Logging.Level == "warning" {
		pc.Logging.Level = "warn"
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if *pc.FullScore < 0 || math.IsNaN(*pc.FullScore) || math.IsInf(*pc.FullScore, 0) {
		return fmt.Errorf("full_score must be >= 0")
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn (or warning), error")
	}
	if pc.State == pc.Export {
		return fmt.Errorf("state and export must be different files")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
