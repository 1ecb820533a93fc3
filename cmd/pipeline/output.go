package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/olekukonko/tablewriter"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func printJob(w io.Writer, job *models.Job, asJSON bool) error {
	if asJSON {
		return printJSON(w, job)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	table.Append("Job ID", job.ID.String())
	table.Append("Status", job.Status)
	table.Append("Input", job.InputLocation)
	table.Append("Output", job.OutputLocation)
	table.Append("Submitted At", job.SubmittedAt.Format(time.RFC3339))
	table.Append("Started At", formatTime(job.StartedAt))
	table.Append("Completed At", formatTime(job.CompletedAt))
	if job.Usage != nil {
		table.Append("Images Processed", fmt.Sprintf("%d", job.Usage.ImagesProcessed))
		table.Append("Images Failed", fmt.Sprintf("%d", job.Usage.ImagesFailed))
	}
	if job.Error != nil {
		table.Append("Error", *job.Error)
	}
	return table.Render()
}

func printJobs(w io.Writer, jobs []*models.Job, asJSON bool) error {
	if asJSON {
		if jobs == nil {
			jobs = []*models.Job{}
		}
		return printJSON(w, jobs)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Job ID", "Status", "Input", "Images", "Submitted")
	for _, j := range jobs {
		images := "-"
		if j.Usage != nil {
			images = fmt.Sprintf("%d (%d failed)", j.Usage.ImagesProcessed, j.Usage.ImagesFailed)
		}
		table.Append(j.ID.String(), j.Status, j.InputLocation, images, j.SubmittedAt.Format(time.RFC3339))
	}
	return table.Render()
}

func printRecord(w io.Writer, rec *models.PredictionRecord, asJSON bool) error {
	if asJSON {
		return printJSON(w, rec)
	}

	fmt.Fprintf(w, "%s (%dx%d): %d detections\n", rec.FileName, rec.Width, rec.Height, len(rec.BBoxes))
	if len(rec.BBoxes) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Class", "ID", "Box (x,y,w,h)", "Score")
	for _, p := range rec.BBoxes {
		table.Append(p.ClassName, fmt.Sprintf("%d", p.CategoryID),
			fmt.Sprintf("%d,%d,%d,%d", p.BBox[0], p.BBox[1], p.BBox[2], p.BBox[3]),
			fmt.Sprintf("%.2f", p.Score))
	}
	return table.Render()
}
