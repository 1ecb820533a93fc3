package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/customsubash/image-labelling-pipeline/pkg/models"
)

// HTTPDetector forwards images to a remote model server that speaks the
// /predict contract: multipart field "file" in, {"bboxes": [...]} out.
type HTTPDetector struct {
	url    string
	client *http.Client
}

// NewHTTPDetector creates a detector posting to url.
func NewHTTPDetector(url string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDetector) Name() string { return "http" }

func (d *HTTPDetector) Detect(ctx context.Context, img image.Image) ([]models.Detection, error) {
	body, contentType, err := encodeUpload(img)
	if err != nil {
		return nil, fmt.Errorf("encoding upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrDetectorUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out remotePrediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	dets := make([]models.Detection, 0, len(out.BBoxes))
	for i, b := range out.BBoxes {
		if len(b.BBox) != 4 {
			return nil, fmt.Errorf("%w: bbox %d has %d coordinates", ErrInvalidResponse, i, len(b.BBox))
		}
		score := 1.0
		if b.Score != nil {
			score = *b.Score
		}
		dets = append(dets, models.Detection{
			CategoryID: b.CategoryID,
			Box:        models.BBox{int(b.BBox[0]), int(b.BBox[1]), int(b.BBox[2]), int(b.BBox[3])},
			Score:      score,
		})
	}
	return dets, nil
}

type remotePrediction struct {
	BBoxes []struct {
		CategoryID int       `json:"category_id"`
		BBox       []float64 `json:"bbox"`
		Score      *float64  `json:"score"`
	} `json:"bboxes"`
}

func encodeUpload(img image.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, "", err
	}
	if err := png.Encode(part, img); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrDetectorTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrDetectorTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	return fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
}

var _ models.Detector = (*HTTPDetector)(nil)
