package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/project"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage production projects",
	}
	cmd.AddCommand(
		newProjectCreateCommand(ctx),
		newProjectListCommand(ctx),
		newProjectShowCommand(ctx),
		newProjectDeleteCommand(ctx),
		newProjectAdvanceCommand(ctx),
		newProjectRetreatCommand(ctx),
		newProjectSetCommand(ctx),
		newProjectResetCommand(ctx),
		newProjectProgressCommand(ctx),
		newProjectExportCommand(ctx),
	)
	return cmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new project at the topic stage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return ctx.withApp(func(a *app) error {
				p, err := a.machine.Create(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.ID, p.Name)
				return nil
			})
		},
	}
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				projects, err := a.store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects")
					return nil
				}
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, []string{
						p.ID,
						truncate(p.Name, 40),
						string(p.CurrentStage),
						p.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Stage", "Updated"}, rows))
				return nil
			})
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's stage data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				p, err := a.machine.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Project %s (%s)\n", p.ID, p.Name)
				fmt.Fprintf(out, "Stage:   %s\n", p.CurrentStage)
				fmt.Fprintf(out, "Created: %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
				for _, stage := range project.NonTerminalStages() {
					bag := p.Bag(stage)
					if len(bag) == 0 {
						continue
					}
					fmt.Fprintf(out, "\n[%s]\n", stage)
					keys := make([]string, 0, len(bag))
					for k := range bag {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						fmt.Fprintf(out, "  %s = %v\n", k, bag[k])
					}
				}
				return nil
			})
		},
	}
}

func newProjectDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				deleted, err := a.store.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("project %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
				return nil
			})
		},
	}
}

func newProjectAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <project-id>",
		Short: "Advance the project to the next stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				stage, err := a.machine.Advance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Advanced to %s\n", stage)
				return nil
			})
		},
	}
}

func newProjectRetreatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retreat <project-id>",
		Short: "Move the project back one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				stage, err := a.machine.Retreat(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retreated to %s\n", stage)
				return nil
			})
		},
	}
}

func newProjectSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <project-id> <stage> <key=value>...",
		Short: "Merge key=value pairs into a stage's data",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := make(map[string]any, len(args)-2)
			for _, pair := range args[2:] {
				key, value, found := strings.Cut(pair, "=")
				if !found || strings.TrimSpace(key) == "" {
					return fmt.Errorf("expected key=value, got %q", pair)
				}
				patch[strings.TrimSpace(key)] = parseValue(value)
			}
			return ctx.withApp(func(a *app) error {
				p, err := a.machine.UpdateStage(cmd.Context(), args[0], project.Stage(args[1]), patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s data for project %s\n", args[1], p.ID)
				return nil
			})
		},
	}
}

func newProjectResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <project-id>",
		Short: "Reset the project to the topic stage with empty data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				p, err := a.machine.Reset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset project %s to %s\n", p.ID, p.CurrentStage)
				return nil
			})
		},
	}
}

func newProjectProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <project-id>",
		Short: "Show pipeline completion for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				report, err := a.machine.Progress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s): %.0f%%\n", report.Name, report.ProjectID, report.Percent)
				rows := make([][]string, 0, len(report.Stages))
				for _, s := range report.Stages {
					rows = append(rows, []string{
						fmt.Sprintf("%d", s.Number),
						string(s.Stage),
						s.Description,
						string(s.Status),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Stage", "Description", "Status"}, rows))
				return nil
			})
		},
	}
}

func newProjectExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project's document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				p, err := a.machine.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				document, err := json.MarshalIndent(p, "", "  ")
				if err != nil {
					return fmt.Errorf("encode project document: %w", err)
				}
				if outputPath == "" {
					fmt.Fprintln(cmd.OutOrStdout(), string(document))
					return nil
				}
				if err := os.WriteFile(outputPath, append(document, '\n'), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported project %s to %s\n", p.ID, outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the document to a file instead of stdout")
	return cmd
}

// parseValue promotes bare booleans so completion predicates treat them as
// flags rather than strings.
func parseValue(value string) any {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
