// Command pipeline is the command line client for the image labelling pipeline:
// it submits batch jobs, waits for them, runs single-image predictions and
// exports results to COCO.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
