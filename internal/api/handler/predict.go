package handler

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"

	"github.com/customsubash/image-labelling-pipeline/internal/api/response"
	"github.com/customsubash/image-labelling-pipeline/internal/detect"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	_ "golang.org/x/image/bmp"
)

const defaultUploadName = "upload"

// Predictor runs detection on a single decoded image.
type Predictor interface {
	Predict(ctx context.Context, img image.Image, fileName string) (models.PredictionRecord, error)
}

// NewPredictHandler returns an http.HandlerFunc for POST /predict. The image is
// taken from multipart field "file" or, for any other content type, the raw body.
func NewPredictHandler(p Predictor, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
					"Image exceeds the upload limit", map[string]int64{"max_bytes": maxBytes})
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "Could not read request body", nil)
			return
		}

		data, name, err := extractUpload(r, body)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
			return
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", "Could not decode image", nil)
			return
		}

		rec, err := p.Predict(r.Context(), img, name)
		if err != nil {
			switch {
			case errors.Is(err, detect.ErrDetectorTimeout):
				response.Error(w, http.StatusGatewayTimeout, "DETECTOR_TIMEOUT",
					"Detection took too long and was cancelled", nil)
			default:
				response.Error(w, http.StatusBadGateway, "DETECTOR_UNAVAILABLE",
					"The detector is not available", nil)
			}
			return
		}

		response.JSON(w, rec)
	}
}

func extractUpload(r *http.Request, body []byte) ([]byte, string, error) {
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if len(body) == 0 {
			return nil, "", errors.New("request body is empty")
		}
		return body, defaultUploadName, nil
	}

	if params["boundary"] == "" {
		return nil, "", errors.New("multipart boundary missing")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("multipart field 'file' is required")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	name := hdr.Filename
	if name == "" {
		name = defaultUploadName
	}
	return data, name, nil
}
