package store

import (
	"context"
	"errors"

	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")

// Store is the job registry interface. All job state access goes through here.
// Every returned *models.Job is a snapshot owned by the caller.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, input, output string) (*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	// UpdateJob applies fn to a working copy of the job and commits it only if fn
	// returns nil. fn must not block; it runs with the store locked.
	UpdateJob(ctx context.Context, id uuid.UUID, fn JobMutation) (*models.Job, error)
}

// JobMutation changes a job in place and reports whether the change is allowed.
type JobMutation func(*models.Job) error
