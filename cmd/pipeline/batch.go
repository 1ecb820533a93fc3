package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBatchCmd(opts *options) *cobra.Command {
	var (
		input        string
		output       string
		pollInterval time.Duration
		timeout      time.Duration
		noWait       bool
		waitReady    bool
		readyTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run batch prediction over a directory of images",
		Long: `Submit a batch prediction job and poll its status until it completes or fails.
If --timeout elapses first the command exits with an error; the job keeps running on the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.client()
			ctx := cmd.Context()

			if waitReady {
				if err := c.WaitReady(ctx, readyTimeout); err != nil {
					return err
				}
			}

			if noWait {
				id, err := c.Submit(ctx, input, output)
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return printJSON(cmd.OutOrStdout(), map[string]string{"job_id": id.String()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Batch prediction started: %s\n", id)
				return nil
			}

			job, err := c.Run(ctx, input, output, pollInterval, timeout)
			if err != nil {
				return err
			}
			if err := printJob(cmd.OutOrStdout(), job, opts.jsonOutput()); err != nil {
				return err
			}
			if job.Error != nil {
				return fmt.Errorf("job %s failed: %s", job.ID, *job.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "directory of images on the server (required)")
	cmd.Flags().StringVar(&output, "output", "", "directory for prediction files and annotated images (required)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "time between status checks")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "give up waiting after this long")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "submit and print the job id without polling")
	cmd.Flags().BoolVar(&waitReady, "wait-ready", false, "wait for the API to become healthy before submitting")
	cmd.Flags().DurationVar(&readyTimeout, "ready-timeout", time.Minute, "how long --wait-ready waits")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
