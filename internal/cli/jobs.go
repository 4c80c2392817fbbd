package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// jobsCommand creates the jobs management command.
func (c *CLI) jobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect, cancel or delete persisted batch jobs",
	}

	cmd.AddCommand(c.jobsListCommand())
	cmd.AddCommand(c.jobsShowCommand())
	cmd.AddCommand(c.jobsCancelCommand())
	cmd.AddCommand(c.jobsDeleteCommand())

	return cmd
}

// jobsListCommand creates the "jobs list" subcommand.
func (c *CLI) jobsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted jobs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sums, err := store.List()
			if err != nil {
				return err
			}
			if len(sums) == 0 {
				printInfo("No jobs")
				return nil
			}
			for _, s := range sums {
				fmt.Printf("%s  %s  %s  %s\n",
					StyleDim.Render(s.ID),
					StyleValue.Render(fmt.Sprintf("%-20s", s.Title)),
					stateStyle(string(s.State)),
					StyleDim.Render(fmt.Sprintf("%d/%d  %s", s.Done, s.Total, s.UpdatedAt.Format("2006-01-02 15:04"))))
			}
			return nil
		},
	}
}

// jobsShowCommand creates the "jobs show" subcommand.
func (c *CLI) jobsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job's progress and transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("job %s not found", args[0])
			}

			done, total := job.Progress()
			printKeyValue("title", job.Title)
			printKeyValue("state", string(job.State))
			printKeyValue("template", job.Template)
			printKeyValue("progress", fmt.Sprintf("%d/%d", done, total))
			printKeyValue("artifacts", fmt.Sprintf("%d", len(job.Artifacts)))
			if len(job.Log) > 0 {
				fmt.Println()
				for _, line := range job.Log {
					printDetail("%s  %s", line.At.Format("15:04:05"), line.Message)
				}
			}
			return nil
		},
	}
}

// jobsCancelCommand creates the "jobs cancel" subcommand.
func (c *CLI) jobsCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Flag a running job for cancellation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetCancelled(args[0]); err != nil {
				return err
			}
			printSuccess("Job flagged, it stops after the current episode")
			return nil
		},
	}
}

// jobsDeleteCommand creates the "jobs delete" subcommand.
func (c *CLI) jobsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a persisted job and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}

// stateStyle colors a job state for list output.
func stateStyle(state string) string {
	switch state {
	case "completed":
		return StyleSuccess.Render(state)
	case "cancelled", "circuit_broken":
		return StyleWarning.Render(state)
	default:
		return StyleValue.Render(state)
	}
}
