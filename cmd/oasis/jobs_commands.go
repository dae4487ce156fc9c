package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"oasis/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Job inspection utilities",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var userFlag string
	var statusFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's analysis jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			user := strings.TrimSpace(userFlag)
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			if statusFlag != "" && !jobs.ValidStatus(statusFlag) {
				return fmt.Errorf("unknown status %q", statusFlag)
			}

			store, err := jobs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open jobs store: %w", err)
			}
			defer store.Close()

			listed, err := store.List(cmd.Context(), user, jobs.Status(statusFlag), limitFlag)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(listed) == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}

			if !isatty.IsTerminal(os.Stdout.Fd()) {
				for _, job := range listed {
					fmt.Fprintf(out, "%s\t%s\t%s\t%.0f%%\t%s\n",
						job.ID, job.Status, job.DatasetName, job.ProgressPercent, job.ModelType)
				}
				return nil
			}

			fmt.Fprintln(out, renderJobTable(listed))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userFlag, "user", "u", "", "User whose jobs to list")
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by status (queued, processing, completed, failed)")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "Maximum number of jobs to show")
	return cmd
}

// renderJobTable renders the job listing with progress and sample counts
// right-aligned.
func renderJobTable(listed []*jobs.Job) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Status", "Dataset", "Progress", "Samples", "Model", "Created"})
	for _, job := range listed {
		tw.AppendRow(table.Row{
			job.ID,
			string(job.Status),
			job.DatasetName,
			strconv.FormatFloat(job.ProgressPercent, 'f', 0, 64) + "%",
			job.SampleCount,
			job.ModelType,
			job.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}
