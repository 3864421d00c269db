package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags rootFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "quizgrader",
		Short:         "Grade PDF quiz submissions against a roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path (default <dir>/.quizgrader/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", "", "Course folder to grade in (default current directory)")
	rootCmd.PersistentFlags().StringVar(&flags.roster, "roster", "", "Roster CSV, overriding the config")
	rootCmd.PersistentFlags().StringVar(&flags.submissions, "submissions", "", "Submissions folder, overriding the config")

	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newGradeCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newRubricCommand(ctx))
	rootCmd.AddCommand(newFullScoreCommand(ctx))
	rootCmd.AddCommand(newRecalcCommand(ctx))
	rootCmd.AddCommand(newMapCommand(ctx))
	rootCmd.AddCommand(newUnmatchedCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newResetCommand(ctx))

	return rootCmd
}
