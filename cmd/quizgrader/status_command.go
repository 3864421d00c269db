package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/quizgrader/internal/export"
	"github.com/kingrea/quizgrader/internal/grading"
)

type statusReport struct {
	Roster         string       `json:"roster"`
	Submissions    string       `json:"submissions"`
	FullScore      float64      `json:"full_score"`
	Total          int          `json:"total"`
	WithSubmission int          `json:"with_submission"`
	Graded         int          `json:"graded"`
	Missing        int          `json:"missing"`
	Unmatched      []string     `json:"unmatched"`
	Students       []export.Row `json:"students"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show grading progress for every student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				sess := rt.session
				counts := sess.Counts()
				report := statusReport{
					Roster:         rt.cfg.RosterPath(),
					Submissions:    rt.cfg.SubmissionsDir(),
					FullScore:      sess.FullScore(),
					Total:          counts.Total,
					WithSubmission: counts.WithSubmission,
					Graded:         counts.Graded,
					Missing:        counts.Missing,
					Unmatched:      sess.Unmatched(),
					Students:       sess.Rows(),
				}
				if asJSON {
					return writeJSON(cmd, report)
				}
				printStatus(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func printStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Students))
	for _, row := range report.Students {
		score := "-"
		if row.Score != nil {
			score = grading.Format(*row.Score)
		}
		rows = append(rows, []string{
			row.NetID,
			strings.TrimSpace(fmt.Sprintf("%s, %s", row.Last, row.First)),
			orDash(row.SubmissionFile),
			row.Status,
			score,
			orDash(strings.Join(row.SelectedRubrics, "; ")),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Net ID", "Name", "Submission", "Status", "Score", "Rubrics"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "Graded %d/%d with submissions, %s missing (auto 0), full score %s\n",
		report.Graded, report.WithSubmission, plural(report.Missing, "student"), grading.Format(report.FullScore))
	if len(report.Unmatched) > 0 {
		fmt.Fprintf(out, "%s not linked to a student; run `quizgrader unmatched`\n", plural(len(report.Unmatched), "PDF"))
	}
}
