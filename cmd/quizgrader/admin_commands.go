package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/history"
	"github.com/kingrea/quizgrader/internal/roster"
)

func newFullScoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "full-score [value]",
		Short: "Show or set the full score and rescore everyone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				if len(args) == 1 {
					if err := rt.session.SetFullScore(args[0]); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Full score: %s\n", grading.Format(rt.session.FullScore()))
				return nil
			})
		},
	}
}

func newRecalcCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute every score from the current rubric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				n, err := rt.session.RecalculateAll()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recalculated %s\n", plural(n, "record"))
				return nil
			})
		},
	}
}

func newMapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "map <file> <netid>",
		Short: "Link an unmatched PDF to a student",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				if err := rt.session.AssignMapping(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mapped %s to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newUnmatchedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unmatched",
		Short: "List PDFs not linked to any student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				files := rt.session.Unmatched()
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No unmatched PDFs.")
					return nil
				}
				for _, name := range files {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [netid]",
		Short: "Show recorded grade changes, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.HistoryEnabled() {
				return fmt.Errorf("grading history is disabled in %s", cfg.ProjectConfigPath())
			}
			journal, err := history.Open(cmd.Context(), cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer journal.Close()

			netid := ""
			if len(args) == 1 {
				netid = roster.NormalizeNetID(args[0])
			}
			events, err := journal.List(cmd.Context(), netid, limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No grade changes recorded.")
				return nil
			}
			rows := make([][]string, len(events))
			for i, ev := range events {
				score := "-"
				if ev.Score != nil {
					score = grading.Format(*ev.Score)
				}
				rows[i] = []string{
					ev.At.Local().Format(time.DateTime),
					ev.NetID,
					ev.Action,
					ev.Status,
					score,
					orDash(ev.Detail),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "Net ID", "Action", "Status", "Score", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum events to show (0 for all)")
	return cmd
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear saved grades, rubric items and manual mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset permanently clears saved grading state; rerun with --yes: %w", errAborted)
			}
			return ctx.withSession(cmd, func(rt *runtime) error {
				if err := rt.session.Reset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Saved grading state was reset.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
