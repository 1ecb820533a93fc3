package client

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/customsubash/image-labelling-pipeline/internal/api"
	"github.com/customsubash/image-labelling-pipeline/internal/api/handler"
	"github.com/customsubash/image-labelling-pipeline/internal/batch"
	"github.com/customsubash/image-labelling-pipeline/internal/detect"
	"github.com/customsubash/image-labelling-pipeline/internal/store"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- helpers ---

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(baseURL, "", 5*time.Second, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jobWithStatus(id uuid.UUID, status string) *models.Job {
	now := time.Now().UTC()
	j := models.NewJob("/in", "/out", now)
	j.ID = id
	switch status {
	case models.JobStatusRunning:
		_ = j.Start(now)
	case models.JobStatusCompleted:
		_ = j.Start(now)
		_ = j.Complete(now, models.Usage{ImagesProcessed: 3, InputLocation: "/in", OutputLocation: "/out"})
	case models.JobStatusFailed:
		_ = j.Fail(now, "no images found in input directory")
	}
	return j
}

// fakeServer serves submit and a scripted sequence of statuses.
type fakeServer struct {
	id       uuid.UUID
	statuses []string
	polls    atomic.Int64
	methods  chan string
}

func newFakeServer(t *testing.T, statuses ...string) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{id: uuid.New(), statuses: statuses, methods: make(chan string, 100)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /batch_predict", func(w http.ResponseWriter, r *http.Request) {
		fs.methods <- r.Method
		writeJSON(w, map[string]any{"message": "Batch prediction started", "job_id": fs.id})
	})
	mux.HandleFunc("GET /batch_status/{id}", func(w http.ResponseWriter, r *http.Request) {
		fs.methods <- r.Method
		n := int(fs.polls.Add(1)) - 1
		if n >= len(fs.statuses) {
			n = len(fs.statuses) - 1
		}
		writeJSON(w, jobWithStatus(fs.id, fs.statuses[n]))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

// --- Run ---

func TestRun_ReturnsTerminalSnapshot(t *testing.T) {
	fs, srv := newFakeServer(t, models.JobStatusPending, models.JobStatusRunning, models.JobStatusCompleted)
	c := newTestClient(t, srv.URL)

	job, err := c.Run(context.Background(), "/in", "/out", 10*time.Millisecond, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, fs.id, job.ID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Usage)
	assert.Equal(t, 3, job.Usage.ImagesProcessed)
	assert.Equal(t, int64(3), fs.polls.Load())
}

func TestRun_FailedIsTerminal(t *testing.T) {
	_, srv := newFakeServer(t, models.JobStatusFailed)
	c := newTestClient(t, srv.URL)

	job, err := c.Run(context.Background(), "/in", "/out", 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
}

func TestRun_TimeoutBeforeJobCompletes(t *testing.T) {
	// The job would take 10s; the client gives up after 1s even though it
	// would not poll again for 5s.
	fs, srv := newFakeServer(t, models.JobStatusRunning)
	c := newTestClient(t, srv.URL)

	start := time.Now()
	_, err := c.Run(context.Background(), "/in", "/out", 5*time.Second, time.Second)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Less(t, elapsed, 3*time.Second)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)

	close(fs.methods)
	for m := range fs.methods {
		assert.Contains(t, []string{http.MethodPost, http.MethodGet}, m, "client must not signal the server on timeout")
	}
}

func TestRun_SubmitRejected(t *testing.T) {
	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			polls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"INVALID_INPUT","message":"invalid input: input folder '/in' does not exist"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Run(context.Background(), "/in", "/out", 10*time.Millisecond, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "does not exist")
	assert.Equal(t, int64(0), polls.Load())
}

func TestRun_PollErrorIsNotRetried(t *testing.T) {
	var polls atomic.Int64
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /batch_predict", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"job_id": id})
	})
	mux.HandleFunc("GET /batch_status/{id}", func(w http.ResponseWriter, _ *http.Request) {
		polls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Run(context.Background(), "/in", "/out", 10*time.Millisecond, 5*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, int64(1), polls.Load())
}

func TestRun_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Run(context.Background(), "/in", "/out", 10*time.Millisecond, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestRun_CallerCancellation(t *testing.T) {
	_, srv := newFakeServer(t, models.JobStatusRunning)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := c.Run(ctx, "/in", "/out", time.Second, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestClient_SendsAPIKey(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, map[string]any{"jobs": []any{}})
	}))
	defer srv.Close()

	jobs, err := NewClient(srv.URL+"/", "pk_secret", time.Second, nil).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, "Bearer pk_secret", got)
}

// --- Predict ---

func TestPredict_UploadsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("expected multipart file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.Close()
		writeJSON(w, models.NewPredictionRecord(hdr.Filename, 8, 8, nil, nil))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "fish.png")
	require.NoError(t, batch.EncodeFile(path, image.NewRGBA(image.Rect(0, 0, 8, 8)), "png"))

	rec, err := newTestClient(t, srv.URL).Predict(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "fish.png", rec.FileName)
	assert.Empty(t, rec.BBoxes)
}

func TestPredict_MissingFile(t *testing.T) {
	_, err := newTestClient(t, "http://127.0.0.1:0").Predict(context.Background(), filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

// --- WaitReady ---

func TestWaitReady_EventuallyHealthy(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL).WaitReady(context.Background(), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestWaitReady_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL).WaitReady(context.Background(), 500*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

// --- against the real API ---

func TestRun_AgainstServer(t *testing.T) {
	st := store.NewMemoryStore()
	exec := batch.NewExecutor(st, detect.NewNop(), nil, 2, zap.NewNop())
	svc := batch.NewService(st, exec, 1, zap.NewNop())
	srv := httptest.NewServer(api.NewRouter(api.Dependencies{
		SubmitHandler: handler.NewSubmitHandler(svc),
		StatusHandler: handler.NewStatusHandler(svc),
	}))
	defer srv.Close()

	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, batch.EncodeFile(filepath.Join(in, "blank.png"), image.NewRGBA(image.Rect(0, 0, 100, 100)), "png"))

	job, err := newTestClient(t, srv.URL).Run(context.Background(), in, out, 20*time.Millisecond, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Usage.ImagesProcessed)
	assert.FileExists(t, filepath.Join(out, "blank.png.json"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))
}
