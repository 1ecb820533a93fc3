package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show a job's status, or list all jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()

			if len(args) == 0 {
				jobs, err := c.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJobs(cmd.OutOrStdout(), jobs, opts.jsonOutput())
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}
			job, err := c.Status(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), job, opts.jsonOutput())
		},
	}
}
