// Package client is the calling side of the pipeline API: it submits batch jobs
// and polls them until they finish.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sentinel errors for client failures.
var (
	// ErrTimeout means the job did not reach a terminal state in time. The job
	// is not cancelled and keeps running on the server.
	ErrTimeout = errors.New("timed out waiting for job")
	// ErrTransport covers network failures and non-2xx responses.
	ErrTransport = errors.New("transport error")
)

var errNotTerminal = errors.New("job not terminal")

// Client talks to the pipeline HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for baseURL. apiKey may be empty; requestTimeout
// bounds each individual HTTP call.
func NewClient(baseURL, apiKey string, requestTimeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

type submitRequest struct {
	InputLocation  string `json:"input_location"`
	OutputLocation string `json:"output_location"`
}

type submitResponse struct {
	Message string    `json:"message"`
	JobID   uuid.UUID `json:"job_id"`
}

type jobList struct {
	Jobs []*models.Job `json:"jobs"`
}

// Submit starts a batch job and returns its id.
func (c *Client) Submit(ctx context.Context, input, output string) (uuid.UUID, error) {
	body, err := json.Marshal(submitRequest{InputLocation: input, OutputLocation: output})
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding request: %w", err)
	}

	var out submitResponse
	if err := c.do(ctx, http.MethodPost, "/batch_predict", "application/json", bytes.NewReader(body), &out); err != nil {
		return uuid.Nil, err
	}
	return out.JobID, nil
}

// Status returns the current snapshot of job id.
func (c *Client) Status(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, http.MethodGet, "/batch_status/"+id.String(), "", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns every job the server knows about.
func (c *Client) List(ctx context.Context) ([]*models.Job, error) {
	var out jobList
	if err := c.do(ctx, http.MethodGet, "/batch_jobs", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Run submits a batch and polls its status every pollInterval until the job is
// completed or failed. If timeout elapses first, Run returns ErrTimeout and the
// job is left running. Transport failures are returned immediately, unretried.
func (c *Client) Run(ctx context.Context, input, output string, pollInterval, timeout time.Duration) (*models.Job, error) {
	id, err := c.Submit(ctx, input, output)
	if err != nil {
		return nil, err
	}
	log := c.logger.With(zap.String("job_id", id.String()))
	log.Info("Batch job submitted")

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var final *models.Job
	op := func() error {
		job, err := c.Status(pollCtx, id)
		if err != nil {
			if pollCtx.Err() != nil {
				return backoff.Permanent(pollCtx.Err())
			}
			return backoff.Permanent(err)
		}
		if job.IsTerminal() {
			final = job
			return nil
		}
		log.Debug("Job still in progress", zap.String("status", job.Status))
		return errNotTerminal
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(pollInterval), pollCtx)
	if err := backoff.Retry(op, b); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if pollCtx.Err() != nil {
			return nil, fmt.Errorf("%w: job %s not finished after %s", ErrTimeout, id, timeout)
		}
		return nil, err
	}

	log.Info("Batch job finished", zap.String("status", final.Status))
	return final, nil
}

// Predict uploads the image at path to /predict and returns its record.
func (c *Client) Predict(ctx context.Context, path string) (*models.PredictionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var rec models.PredictionRecord
	if err := c.do(ctx, http.MethodPost, "/predict", mw.FormDataContentType(), &buf, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Health performs a single /healthcheck probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthcheck", "", nil, nil)
}

// WaitReady probes /healthcheck with exponential backoff until it succeeds or
// timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	eb.MaxElapsedTime = timeout

	notify := func(err error, next time.Duration) {
		c.logger.Info("Service not ready yet", zap.Error(err), zap.Duration("retry_in", next))
	}
	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := backoff.RetryNotify(func() error { return c.Health(readyCtx) }, backoff.WithContext(eb, readyCtx), notify)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: service not ready after %s: %v", ErrTimeout, timeout, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrTransport, method, path, resp.StatusCode, errorMessage(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrTransport, path, err)
	}
	return nil
}

// errorMessage extracts the message from an error envelope, falling back to the raw body.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		return env.Error.Code + ": " + env.Error.Message
	}
	return string(bytes.TrimSpace(raw))
}
