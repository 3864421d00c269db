package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/quizgrader/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the grade sheet CSV",
		Long:  "Write the grade sheet CSV from saved records. Unlike the grader's export key, this does not mark anyone graded.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				path := strings.TrimSpace(out)
				if path == "" {
					path = rt.cfg.ExportPath()
				}
				rows := rt.session.Rows()
				if err := export.WriteFile(path, rows); err != nil {
					return err
				}
				rt.activity.Info("Exported %d rows to %s", len(rows), path)
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", plural(len(rows), "row"), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination CSV (default from config)")
	return cmd
}
