package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"greenroom/internal/auth"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the job queue",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs",
	RunE:  runJobsList,
}

var jobsInspectCmd = &cobra.Command{
	Use:   "inspect <job-id>",
	Short: "Show one job in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsInspect,
}

func runJobsList(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	user, err := auth.EnsureLocalUser(rt.repos)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	jobs, err := rt.repos.Jobs.ListRecent(user.ID, limit)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println(mutedStyle.Render("No jobs yet. Dispatch one with: greenroom tools run outlier_search"))
		return nil
	}

	fmt.Println(headerStyle.Render("Recent jobs"))
	for _, job := range jobs {
		fmt.Printf("  %s  %-18s %-16s %s\n",
			job.ID[:8],
			job.Type,
			statusStyle(job.Status).Render(job.Status),
			mutedStyle.Render(job.CreatedAt.Format("2006-01-02 15:04:05")),
		)
	}
	return nil
}

func runJobsInspect(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	user, err := auth.EnsureLocalUser(rt.repos)
	if err != nil {
		return err
	}

	job, err := rt.dispatcher.GetJob(cmd.Context(), args[0], user.ID)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Job " + job.ID))
	fmt.Printf("  Type:    %s\n", job.Type)
	fmt.Printf("  Status:  %s\n", statusStyle(job.Status).Render(job.Status))
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Updated: %s\n", job.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Input:   %s\n", string(job.Input))

	if job.Output != nil {
		fmt.Printf("  Output:  %s\n", string(*job.Output))
	}
	if job.Error != nil {
		fmt.Printf("  Error:   %s\n", errorStyle.Render(*job.Error))
	}

	if job.SearchResult != nil {
		fmt.Println(headerStyle.Render("Search result " + job.SearchResult.ID))
		fmt.Printf("  Type:  %s\n", job.SearchResult.SearchType)
		fmt.Printf("  Count: %d\n", job.SearchResult.ResultsCount)
		for i, item := range job.SearchResult.Results {
			if i >= 10 {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("  ... and %d more", len(job.SearchResult.Results)-i)))
				break
			}
			fmt.Printf("  %-14s %-40s %s\n",
				item.ExternalID,
				truncate(item.Title, 40),
				mutedStyle.Render(fmt.Sprintf("%d views", item.ViewCount)),
			)
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
