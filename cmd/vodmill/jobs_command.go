package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"vodmill/internal/store"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect ingestion jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				var jobs []*store.Job
				var err error
				if statusFlag != "" {
					status, ok := store.ParseJobStatus(statusFlag)
					if !ok {
						return fmt.Errorf("unknown job status %q", statusFlag)
					}
					jobs, err = st.ListJobsByStatus(cmd.Context(), status, limit)
				} else {
					jobs, err = st.ListJobs(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
					return nil
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderJobsTable(jobs))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list")
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Only list jobs in this state")
	return cmd
}

func renderJobsTable(jobs []*store.Job) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Job", "Movie", "Episode", "Status", "Updated"})
	for _, job := range jobs {
		tw.AppendRow(table.Row{
			job.ID,
			job.MovieID,
			job.EpisodeID,
			string(job.Status),
			job.UpdatedAt.Local().Format(time.RFC3339),
		})
	}
	return tw.Render()
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				job, err := st.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job:        %s\n", job.ID)
				fmt.Fprintf(out, "Movie:      %s\n", job.MovieID)
				fmt.Fprintf(out, "Episode:    %s\n", job.EpisodeID)
				fmt.Fprintf(out, "Source key: %s\n", job.SourceKey)
				fmt.Fprintf(out, "Status:     %s\n", job.Status)
				if job.CallbackURL != "" {
					fmt.Fprintf(out, "Callback:   %s\n", job.CallbackURL)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:      %s\n", job.ErrorMessage)
				}
				fmt.Fprintf(out, "Created:    %s\n", job.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Updated:    %s\n", job.UpdatedAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}
}
