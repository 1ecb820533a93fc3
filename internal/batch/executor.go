package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/customsubash/image-labelling-pipeline/internal/detect"
	"github.com/customsubash/image-labelling-pipeline/internal/metrics"
	"github.com/customsubash/image-labelling-pipeline/internal/store"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PredictionExt is appended to an image's base name to form its record file name.
const PredictionExt = ".json"

// ErrNoImages is recorded on jobs whose input directory holds no qualifying images.
var ErrNoImages = errors.New("no images found in input directory")

// ImageResult is the outcome of one image within a batch.
type ImageResult struct {
	Path   string
	Record *models.PredictionRecord
	Err    error
}

// Executor runs batch jobs: it lists the input directory, runs detection per image
// and writes a prediction record plus an annotated copy for each one.
type Executor struct {
	store    store.Store
	detector models.Detector
	classes  detect.ClassMap
	workers  int
	logger   *zap.Logger
	now      func() time.Time
}

// NewExecutor creates an Executor processing up to workers images of a job at once.
func NewExecutor(st store.Store, detector models.Detector, classes detect.ClassMap, workers int, logger *zap.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	if classes == nil {
		classes = detect.ClassMap{}
	}
	return &Executor{
		store:    st,
		detector: detector,
		classes:  classes,
		workers:  workers,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run drives job jobID from pending to completed or failed. It returns without
// doing any work if the job is not pending, so a job is only ever executed once.
// Per-image failures are logged and counted but never fail the job.
func (e *Executor) Run(ctx context.Context, jobID uuid.UUID) {
	log := e.logger.With(zap.String("job_id", jobID.String()))

	job, err := e.store.UpdateJob(ctx, jobID, func(j *models.Job) error {
		return j.Start(e.now())
	})
	if err != nil {
		log.Warn("Job not started", zap.Error(err))
		return
	}

	metrics.JobsRunning.Inc()
	start := time.Now()
	defer func() {
		metrics.JobsRunning.Dec()
		metrics.JobDuration.Observe(time.Since(start).Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in batch run", zap.Any("panic", r))
			e.fail(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	log.Info("Batch job started",
		zap.String("input_location", job.InputLocation),
		zap.String("output_location", job.OutputLocation),
	)

	if err := os.MkdirAll(job.OutputLocation, 0o755); err != nil {
		e.fail(ctx, jobID, fmt.Sprintf("creating output location: %v", err))
		return
	}

	paths, err := ListImages(job.InputLocation)
	if err != nil {
		e.fail(ctx, jobID, err.Error())
		return
	}
	if len(paths) == 0 {
		e.fail(ctx, jobID, ErrNoImages.Error())
		return
	}

	results := e.processAll(ctx, paths, job.OutputLocation)

	usage := models.Usage{
		ImagesProcessed: len(results),
		InputLocation:   job.InputLocation,
		OutputLocation:  job.OutputLocation,
	}
	for _, r := range results {
		if r.Err != nil {
			usage.ImagesFailed++
			metrics.Images.WithLabelValues("failed").Inc()
			log.Warn("Error processing image", zap.String("file", r.Path), zap.Error(r.Err))
			continue
		}
		metrics.Images.WithLabelValues("ok").Inc()
	}

	if _, err := e.store.UpdateJob(ctx, jobID, func(j *models.Job) error {
		return j.Complete(e.now(), usage)
	}); err != nil {
		log.Error("Failed to mark job completed", zap.Error(err))
		return
	}
	metrics.JobsFinished.WithLabelValues(models.JobStatusCompleted).Inc()

	log.Info("Batch job completed",
		zap.Int("images_processed", usage.ImagesProcessed),
		zap.Int("images_failed", usage.ImagesFailed),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// processAll runs ProcessImage over paths with bounded parallelism. Results are
// returned in the order of paths regardless of completion order.
func (e *Executor) processAll(ctx context.Context, paths []string, outDir string) []ImageResult {
	results := make([]ImageResult, len(paths))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, path := range paths {
		g.Go(func() error {
			rec, err := e.processImageSafe(ctx, path, outDir)
			results[i] = ImageResult{Path: path, Record: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Executor) processImageSafe(ctx context.Context, path, outDir string) (rec *models.PredictionRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.ProcessImage(ctx, path, outDir)
}

// ProcessImage runs detection on the image at path and writes
// "<outDir>/<base>.json" and the annotated "<outDir>/<base>".
func (e *Executor) ProcessImage(ctx context.Context, path, outDir string) (*models.PredictionRecord, error) {
	img, format, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	rgba := toRGBA(img)
	rec, err := e.Predict(ctx, rgba, base)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding prediction: %w", err)
	}

	// The record is written last: its presence marks the image as exported.
	annotated := filepath.Join(outDir, base)
	DrawPredictions(rgba, rec.BBoxes)
	if err := EncodeFile(annotated, rgba, format); err != nil {
		return nil, fmt.Errorf("writing annotated image: %w", err)
	}
	if err := os.WriteFile(annotated+PredictionExt, data, 0o644); err != nil {
		_ = os.Remove(annotated)
		return nil, fmt.Errorf("writing prediction: %w", err)
	}

	return &rec, nil
}

// Predict runs the detector on img and resolves class names.
func (e *Executor) Predict(ctx context.Context, img image.Image, fileName string) (models.PredictionRecord, error) {
	dets, err := e.detector.Detect(ctx, img)
	if err != nil {
		return models.PredictionRecord{}, fmt.Errorf("detecting %s: %w", fileName, err)
	}
	b := img.Bounds()
	return models.NewPredictionRecord(fileName, b.Dx(), b.Dy(), dets, e.classes.Name), nil
}

func (e *Executor) fail(ctx context.Context, jobID uuid.UUID, reason string) {
	if _, err := e.store.UpdateJob(ctx, jobID, func(j *models.Job) error {
		return j.Fail(e.now(), reason)
	}); err != nil {
		e.logger.Error("Failed to mark job failed",
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
		return
	}
	metrics.JobsFinished.WithLabelValues(models.JobStatusFailed).Inc()
	e.logger.Warn("Batch job failed",
		zap.String("job_id", jobID.String()),
		zap.String("error", reason),
	)
}
