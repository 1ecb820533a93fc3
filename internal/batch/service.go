package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/customsubash/image-labelling-pipeline/internal/metrics"
	"github.com/customsubash/image-labelling-pipeline/internal/store"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidInput is returned by Submit for requests rejected before any job exists.
var ErrInvalidInput = errors.New("invalid input")

// Service accepts batch submissions, hands them to the Executor in the background
// and answers status queries from the store.
type Service struct {
	store    store.Store
	executor *Executor
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewService creates a Service running at most maxConcurrent jobs at once.
// Jobs beyond that stay pending until a slot frees up.
func NewService(st store.Store, executor *Executor, maxConcurrent int, logger *zap.Logger) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Service{
		store:    st,
		executor: executor,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		logger:   logger,
	}
}

// Submit validates the locations, creates a pending job and dispatches it.
// It returns as soon as the job is recorded, before execution begins.
func (s *Service) Submit(ctx context.Context, input, output string) (*models.Job, error) {
	if input == "" {
		return nil, fmt.Errorf("%w: input_location is required", ErrInvalidInput)
	}
	if output == "" {
		return nil, fmt.Errorf("%w: output_location is required", ErrInvalidInput)
	}
	info, err := os.Stat(input)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: input folder '%s' does not exist", ErrInvalidInput, input)
	}

	job, err := s.store.CreateJob(ctx, input, output)
	if err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	s.dispatch(job.ID)
	metrics.JobsSubmitted.Inc()

	s.logger.Info("Batch job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("input_location", input),
		zap.String("output_location", output),
	)
	return job, nil
}

// dispatch schedules exactly one executor run for jobID. It never blocks.
func (s *Service) dispatch(jobID uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Runs are detached from the submitting request and are not cancellable.
		ctx := context.Background()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)
		s.executor.Run(ctx, jobID)
	}()
}

// Status returns a snapshot of job id, or store.ErrNotFound.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.store.GetJob(ctx, id)
}

// List returns snapshots of every job known to this process.
func (s *Service) List(ctx context.Context) ([]*models.Job, error) {
	return s.store.ListJobs(ctx)
}

// Predict runs detection on a single image without creating a job.
func (s *Service) Predict(ctx context.Context, img image.Image, fileName string) (models.PredictionRecord, error) {
	return s.executor.Predict(ctx, img, fileName)
}

// Wait blocks until every dispatched job has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
