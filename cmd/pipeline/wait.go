package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWaitCmd(opts *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the API reports healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.client().WaitReady(cmd.Context(), timeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is ready\n", opts.serverURL)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	return cmd
}
