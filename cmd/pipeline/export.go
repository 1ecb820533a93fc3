package main

import (
	"fmt"

	"github.com/customsubash/image-labelling-pipeline/internal/coco"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *options) *cobra.Command {
	var predictions, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Combine prediction files into one COCO annotation file",
		Long:  `Read every *.json prediction file in --predictions, in file name order, and write a single COCO dataset to --out. Runs locally; no server is contacted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := coco.FromDir(predictions)
			if err != nil {
				return err
			}
			if err := ds.WriteFile(out); err != nil {
				return err
			}
			if opts.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"file":        out,
					"images":      len(ds.Images),
					"annotations": len(ds.Annotations),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d images and %d annotations to %s\n",
				len(ds.Images), len(ds.Annotations), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&predictions, "predictions", "", "directory of prediction files (required)")
	cmd.Flags().StringVar(&out, "out", "results/coco_results/results.json", "COCO file to write")
	_ = cmd.MarkFlagRequired("predictions")

	return cmd
}
