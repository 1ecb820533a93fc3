package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ErrInvalidTransition is returned when a status change would leave a terminal
// state or skip backwards in the job lifecycle.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Usage summarises a completed batch run.
type Usage struct {
	ImagesProcessed int    `json:"images_processed"`
	ImagesFailed    int    `json:"images_failed"`
	InputLocation   string `json:"input_location"`
	OutputLocation  string `json:"output_location"`
}

// Job tracks an async batch prediction. The API returns a job_id on POST /batch_predict;
// the client polls GET /batch_status/{job_id} until status is completed or failed.
type Job struct {
	ID             uuid.UUID  `json:"job_id"`
	Status         string     `json:"status"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	InputLocation  string     `json:"input_location"`
	OutputLocation string     `json:"output_location"`
	Error          *string    `json:"error"`
	Usage          *Usage     `json:"usage"`
}

// NewJob returns a pending job with a fresh random id.
func NewJob(input, output string, now time.Time) *Job {
	return &Job{
		ID:             uuid.New(),
		Status:         JobStatusPending,
		SubmittedAt:    now,
		InputLocation:  input,
		OutputLocation: output,
	}
}

// IsTerminal reports whether no further transitions can occur.
func (j *Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// Start moves a pending job to running.
func (j *Job) Start(now time.Time) error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusRunning)
	}
	j.Status = JobStatusRunning
	now = notBefore(now, &j.SubmittedAt)
	j.StartedAt = &now
	return nil
}

// Complete moves a running job to completed and records its usage.
func (j *Job) Complete(now time.Time, usage Usage) error {
	if j.Status != JobStatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusCompleted)
	}
	j.Status = JobStatusCompleted
	now = notBefore(now, j.StartedAt)
	j.CompletedAt = &now
	j.Usage = &usage
	return nil
}

// Fail moves a pending or running job to failed. StartedAt is left as is, so a job
// that failed before it started keeps a nil StartedAt.
func (j *Job) Fail(now time.Time, reason string) error {
	if j.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusFailed)
	}
	j.Status = JobStatusFailed
	now = notBefore(now, &j.SubmittedAt)
	now = notBefore(now, j.StartedAt)
	j.CompletedAt = &now
	j.Error = &reason
	return nil
}

// notBefore clamps t to floor so recorded timestamps never go backwards when
// the wall clock is stepped.
func notBefore(t time.Time, floor *time.Time) time.Time {
	if floor != nil && t.Before(*floor) {
		return *floor
	}
	return t
}

// Clone returns a deep copy that shares no pointers with j.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	if j.Usage != nil {
		u := *j.Usage
		c.Usage = &u
	}
	return &c
}

// StatusRank orders statuses along the lifecycle: pending < running < terminal.
// Unknown statuses rank -1.
func StatusRank(status string) int {
	switch status {
	case JobStatusPending:
		return 0
	case JobStatusRunning:
		return 1
	case JobStatusCompleted, JobStatusFailed:
		return 2
	}
	return -1
}

// IsTerminalStatus reports whether status is completed or failed.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}
