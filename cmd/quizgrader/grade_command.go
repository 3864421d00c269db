package main

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kingrea/quizgrader/internal/submission"
	"github.com/kingrea/quizgrader/internal/tui"
)

var errNoTerminal = errors.New("grade needs an interactive terminal; use status, export or the rubric commands in scripts")

func newGradeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "grade",
		Short: "Open the interactive grader (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd, ctx)
		},
	}
}

func runGrade(cmd *cobra.Command, ctx *commandContext) error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return errNoTerminal
	}
	rt, err := ctx.openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	app := tui.NewApp(rt.session,
		tui.WithLogbook(rt.activity),
		tui.WithViewer(submission.Viewer{Command: rt.cfg.Viewer()}),
		tui.WithExportPath(rt.cfg.ExportPath()),
		tui.WithLoadError(rt.loadErr),
	)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return err
	}
	if rt.session.Loaded() {
		return rt.session.Save()
	}
	return nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
