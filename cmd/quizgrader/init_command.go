package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kingrea/quizgrader/internal/config"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Create .quizgrader/config.yaml in the course folder",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.projectDir()
			if err != nil {
				return err
			}
			if err := config.InitGraderDir(dir); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			path := filepath.Join(dir, config.GraderDir, "config.yaml")
			fmt.Fprintf(cmd.OutOrStdout(), "Config ready at %s\n", path)
			return nil
		},
	}
}
