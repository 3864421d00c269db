package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/quizgrader/internal/grading"
	"github.com/kingrea/quizgrader/internal/rubric"
)

func newRubricCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Manage rubric deductions",
	}
	cmd.AddCommand(newRubricListCommand(ctx))
	cmd.AddCommand(newRubricAddCommand(ctx))
	cmd.AddCommand(newRubricEditCommand(ctx))
	cmd.AddCommand(newRubricRemoveCommand(ctx))
	cmd.AddCommand(newRubricImportCommand(ctx))
	cmd.AddCommand(newRubricSaveCommand(ctx))
	return cmd
}

func newRubricListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rubric items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				items := rt.session.RubricItems()
				if asJSON {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No rubric items.")
					return nil
				}
				rows := make([][]string, len(items))
				for i, item := range items {
					rows[i] = []string{item.Name, grading.Format(item.Points)}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Rubric", "Points"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newRubricAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <points>",
		Short: "Add a deduction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				item, err := rt.session.AddRubric(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q (-%s)\n", item.Name, grading.Format(item.Points))
				return nil
			})
		},
	}
}

func newRubricEditCommand(ctx *commandContext) *cobra.Command {
	var name, points string
	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Rename a deduction or change its points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				current, ok := rt.session.Rubric(strings.TrimSpace(args[0]))
				if !ok {
					return fmt.Errorf("%w: %s", rubric.ErrNotFound, args[0])
				}
				newName := current.Name
				if cmd.Flags().Changed("name") {
					newName = name
				}
				newPoints := grading.Format(current.Points)
				if cmd.Flags().Changed("points") {
					newPoints = points
				}
				item, err := rt.session.EditRubric(current.Name, newName, newPoints)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %q (-%s)\n", item.Name, grading.Format(item.Points))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&points, "points", "", "New deduction points")
	return cmd
}

func newRubricRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a deduction and rescore affected students",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				if err := rt.session.RemoveRubric(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", args[0])
				return nil
			})
		},
	}
}

func newRubricImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add deductions from a TOML or YAML preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				added, err := rt.session.ImportRubric(args[0])
				if err != nil {
					return err
				}
				names := make([]string, len(added))
				for i, item := range added {
					names[i] = item.Name
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s", plural(len(added), "item"))
				if len(names) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), ": %s", strings.Join(names, ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
}

func newRubricSaveCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Write the current rubric as a TOML preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(rt *runtime) error {
				path := args[0]
				if _, err := os.Stat(path); err == nil && !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				data, err := rubric.MarshalTOML(rt.session.RubricItems())
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("write preset: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", plural(len(rt.session.RubricItems()), "item"), path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
