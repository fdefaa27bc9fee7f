package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/project"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run and inspect renders",
	}
	cmd.AddCommand(
		newRenderStartCommand(ctx),
		newRenderStatusCommand(ctx),
		newRenderCancelCommand(ctx),
	)
	return cmd
}

func newRenderStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <project-id>",
		Short: "Render the project's video and advance it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				if err := a.engine.Available(); err != nil {
					return err
				}

				projectID := args[0]
				if err := a.coordinator.StartRender(cmd.Context(), projectID); err != nil {
					return err
				}

				// The render runs in-process; cancel it if the command is
				// interrupted, then wait either way.
				done := make(chan struct{})
				go func() {
					a.coordinator.Wait(projectID)
					close(done)
				}()

				out := cmd.OutOrStdout()
				poll := time.Duration(a.cfg.Workflow.RenderPollIntervalSeconds) * time.Second
				ticker := time.NewTicker(poll)
				defer ticker.Stop()
				for {
					select {
					case <-cmd.Context().Done():
						_ = a.coordinator.Cancel(projectID)
						<-done
						return cmd.Context().Err()
					case <-ticker.C:
						if progress, err := a.coordinator.Status(cmd.Context(), projectID); err == nil && progress != nil {
							fmt.Fprintf(out, "  %.0f%% (eta %.0fs)\n", progress.Percent, progress.ETASeconds)
						}
					case <-done:
						progress, err := a.coordinator.Status(cmd.Context(), projectID)
						if err != nil {
							return err
						}
						if progress == nil || progress.Status != project.RenderStatusCompleted {
							message := "render did not complete"
							if progress != nil && progress.Message != "" {
								message = progress.Message
							}
							return fmt.Errorf("render failed: %s", message)
						}
						fmt.Fprintf(out, "Render complete: %s\n", progress.Message)
						return nil
					}
				}
			})
		},
	}
}

func newRenderStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show the latest render progress for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				progress, err := a.coordinator.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if progress == nil {
					fmt.Fprintln(out, "No render recorded")
					return nil
				}
				fmt.Fprintf(out, "Status:  %s\n", progress.Status)
				fmt.Fprintf(out, "Percent: %.0f%%\n", progress.Percent)
				if progress.Status == project.RenderStatusRendering && progress.ETASeconds > 0 {
					fmt.Fprintf(out, "ETA:     %.0fs\n", progress.ETASeconds)
				}
				if progress.Message != "" {
					fmt.Fprintf(out, "Message: %s\n", progress.Message)
				}
				fmt.Fprintf(out, "Updated: %s\n", progress.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}

func newRenderCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <project-id>",
		Short: "Cancel a running render",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				if err := a.coordinator.Cancel(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for project %s\n", args[0])
				return nil
			})
		},
	}
}
