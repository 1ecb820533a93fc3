package main

import (
	"github.com/spf13/cobra"
)

func newPredictCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "predict <image>",
		Short: "Run detection on a single local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := opts.client().Predict(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), rec, opts.jsonOutput())
		},
	}
}
