package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/customsubash/image-labelling-pipeline/internal/batch"
	"github.com/customsubash/image-labelling-pipeline/internal/store"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock JobService ---

type mockJobService struct {
	submitFn func(input, output string) (*models.Job, error)
	jobs     map[uuid.UUID]*models.Job
	listErr  error
}

func (m *mockJobService) Submit(_ context.Context, input, output string) (*models.Job, error) {
	return m.submitFn(input, output)
}

func (m *mockJobService) Status(_ context.Context, id uuid.UUID) (*models.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j.Clone(), nil
	}
	return nil, store.ErrNotFound
}

func (m *mockJobService) List(_ context.Context) ([]*models.Job, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Job
	for _, j := range m.jobs {
		out = append(out, j.Clone())
	}
	return out, nil
}

// --- helpers ---

func submitReq(t *testing.T, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	r := httptest.NewRequest(http.MethodPost, "/batch_predict", &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error.Code
}

func statusRouter(svc JobService) http.Handler {
	r := chi.NewRouter()
	r.Get("/batch_status/{jobID}", NewStatusHandler(svc))
	return r
}

// --- Submit ---

func TestSubmit_Success(t *testing.T) {
	job := models.NewJob("/in", "/out", time.Now())
	var gotIn, gotOut string
	svc := &mockJobService{submitFn: func(in, out string) (*models.Job, error) {
		gotIn, gotOut = in, out
		return job, nil
	}}

	rec := httptest.NewRecorder()
	NewSubmitHandler(svc)(rec, submitReq(t, SubmitRequest{InputLocation: "/in", OutputLocation: "/out"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/in", gotIn)
	assert.Equal(t, "/out", gotOut)
	assert.JSONEq(t,
		fmt.Sprintf(`{"message":"Batch prediction started","job_id":%q}`, job.ID),
		rec.Body.String())
}

func TestSubmit_InvalidJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSubmitHandler(&mockJobService{})(rec, submitReq(t, "{not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errCode(t, rec))
}

func TestSubmit_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body SubmitRequest
	}{
		{"no input", SubmitRequest{OutputLocation: "/out"}},
		{"no output", SubmitRequest{InputLocation: "/in"}},
		{"blank input", SubmitRequest{InputLocation: "  ", OutputLocation: "/out"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockJobService{submitFn: func(_, _ string) (*models.Job, error) {
				called = true
				return nil, nil
			}}
			rec := httptest.NewRecorder()
			NewSubmitHandler(svc)(rec, submitReq(t, tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_INPUT", errCode(t, rec))
			assert.False(t, called)
		})
	}
}

func TestSubmit_InputDoesNotExist(t *testing.T) {
	svc := &mockJobService{submitFn: func(in, _ string) (*models.Job, error) {
		return nil, fmt.Errorf("%w: input folder '%s' does not exist", batch.ErrInvalidInput, in)
	}}

	rec := httptest.NewRecorder()
	NewSubmitHandler(svc)(rec, submitReq(t, SubmitRequest{InputLocation: "/nope", OutputLocation: "/out"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.Contains(t, env.Error.Message, "/nope")
}

func TestSubmit_InternalError(t *testing.T) {
	svc := &mockJobService{submitFn: func(_, _ string) (*models.Job, error) {
		return nil, errors.New("boom")
	}}

	rec := httptest.NewRecorder()
	NewSubmitHandler(svc)(rec, submitReq(t, SubmitRequest{InputLocation: "/in", OutputLocation: "/out"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errCode(t, rec))
}

// --- Status ---

func TestStatus_Found(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := models.NewJob("/in", "/out", now)
	require.NoError(t, job.Start(now.Add(time.Second)))
	require.NoError(t, job.Complete(now.Add(2*time.Second), models.Usage{
		ImagesProcessed: 1, InputLocation: "/in", OutputLocation: "/out",
	}))
	svc := &mockJobService{jobs: map[uuid.UUID]*models.Job{job.ID: job}}

	rec := httptest.NewRecorder()
	statusRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batch_status/"+job.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, job.ID.String(), body["job_id"])
	assert.Equal(t, "completed", body["status"])
	assert.Nil(t, body["error"])
	usage := body["usage"].(map[string]any)
	assert.Equal(t, float64(1), usage["images_processed"])
	assert.Equal(t, "/out", usage["output_location"])
}

func TestStatus_UnknownID(t *testing.T) {
	svc := &mockJobService{jobs: map[uuid.UUID]*models.Job{}}

	rec := httptest.NewRecorder()
	statusRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batch_status/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errCode(t, rec))
}

func TestStatus_MalformedID(t *testing.T) {
	rec := httptest.NewRecorder()
	statusRouter(&mockJobService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batch_status/not-a-uuid", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errCode(t, rec))
}

// --- List ---

func TestList_Empty(t *testing.T) {
	rec := httptest.NewRecorder()
	NewListHandler(&mockJobService{})(rec, httptest.NewRequest(http.MethodGet, "/batch_jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jobs":[]}`, rec.Body.String())
}

func TestList_Error(t *testing.T) {
	rec := httptest.NewRecorder()
	NewListHandler(&mockJobService{listErr: errors.New("x")})(rec, httptest.NewRequest(http.MethodGet, "/batch_jobs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
