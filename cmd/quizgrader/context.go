package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kingrea/quizgrader/internal/config"
	"github.com/kingrea/quizgrader/internal/history"
	"github.com/kingrea/quizgrader/internal/logbook"
	"github.com/kingrea/quizgrader/internal/logging"
	"github.com/kingrea/quizgrader/internal/session"
)

type rootFlags struct {
	config      string
	dir         string
	roster      string
	submissions string
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) projectDir() (string, error) {
	if dir := strings.TrimSpace(c.flags.dir); dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var (
			cfg *config.Config
			err error
		)
		if path := strings.TrimSpace(c.flags.config); path != "" {
			cfg, err = config.Load(path)
		} else {
			var dir string
			dir, err = c.projectDir()
			if err == nil {
				cfg, err = config.NewConfig(dir)
			}
		}
		if err != nil {
			c.configErr = err
			return
		}
		cfg.OverrideRoster(c.flags.roster)
		cfg.OverrideSubmissions(c.flags.submissions)
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles everything a command needs to drive a session.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	activity *logbook.Logbook
	journal  *history.Journal
	session  *session.Session

	// loadErr is set when the roster or submissions could not be read; the
	// session is then empty and refuses writes.
	loadErr error
}

// openRuntime wires logging, the activity journal, the grading history and
// a session. Only setup failures are returned; a failed load is kept in
// rt.loadErr.
func (c *commandContext) openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger}

	activity, err := logbook.New(cfg.ActivityPath())
	if err != nil {
		logger.Warn("activity journal unavailable", "path", cfg.ActivityPath(), "error", err)
	} else {
		rt.activity = activity
	}

	opts := session.OptionsFromConfig(cfg)
	opts.Activity = rt.activity
	opts.Logger = logger.Logger
	if cfg.HistoryEnabled() {
		journal, err := history.Open(ctx, cfg.HistoryPath())
		if err != nil {
			logger.Warn("grading history unavailable", "path", cfg.HistoryPath(), "error", err)
		} else {
			rt.journal = journal
			opts.Journal = journal
		}
	}

	sess, err := session.New(opts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.session = sess
	if err := sess.Load(); err != nil {
		logger.Error("session load failed", "error", err)
		rt.loadErr = err
	}
	return rt, nil
}

// withSession opens a loaded session, runs fn and closes everything.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(*runtime) error) error {
	rt, err := c.openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.loadErr != nil {
		return rt.loadErr
	}
	return fn(rt)
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if err := r.journal.Close(); err != nil && r.logger != nil {
		r.logger.Warn("close grading history", "error", err)
	}
	_ = r.logger.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

var errAborted = errors.New("aborted")

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
