package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/customsubash/image-labelling-pipeline/internal/api/response"
	"github.com/customsubash/image-labelling-pipeline/internal/batch"
	"github.com/customsubash/image-labelling-pipeline/internal/store"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// JobService defines what the batch handlers depend on.
type JobService interface {
	Submit(ctx context.Context, input, output string) (*models.Job, error)
	Status(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)
}

// SubmitRequest is the body of POST /batch_predict.
type SubmitRequest struct {
	InputLocation  string `json:"input_location"`
	OutputLocation string `json:"output_location"`
}

// SubmitResponse is returned once a batch job has been recorded.
type SubmitResponse struct {
	Message string    `json:"message"`
	JobID   uuid.UUID `json:"job_id"`
}

// JobList is the body of GET /batch_jobs.
type JobList struct {
	Jobs []*models.Job `json:"jobs"`
}

// NewSubmitHandler returns an http.HandlerFunc for POST /batch_predict.
func NewSubmitHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON body", nil)
			return
		}

		details := map[string]string{}
		if strings.TrimSpace(req.InputLocation) == "" {
			details["input_location"] = "input_location is required"
		}
		if strings.TrimSpace(req.OutputLocation) == "" {
			details["output_location"] = "output_location is required"
		}
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "Missing required fields", details)
			return
		}

		job, err := svc.Submit(r.Context(), req.InputLocation, req.OutputLocation)
		if err != nil {
			if errors.Is(err, batch.ErrInvalidInput) {
				response.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, SubmitResponse{
			Message: "Batch prediction started",
			JobID:   job.ID,
		})
	}
}

// NewStatusHandler returns an http.HandlerFunc for GET /batch_status/{jobID}.
func NewStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Ids this process never issued, malformed or not, are simply unknown.
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			notFound(w)
			return
		}

		job, err := svc.Status(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				notFound(w)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewListHandler returns an http.HandlerFunc for GET /batch_jobs.
func NewListHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := svc.List(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if jobs == nil {
			jobs = []*models.Job{}
		}
		response.JSON(w, JobList{Jobs: jobs})
	}
}

func notFound(w http.ResponseWriter) {
	response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
}
