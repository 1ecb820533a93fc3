package mock

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/customsubash/image-labelling-pipeline/internal/detect"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
)

// MockDetector satisfies models.Detector for testing.
type MockDetector struct {
	Name_      string
	DetectFunc func(ctx context.Context, img image.Image) ([]models.Detection, error)

	calls atomic.Int64
}

func (m *MockDetector) Name() string { return m.Name_ }

func (m *MockDetector) Detect(ctx context.Context, img image.Image) ([]models.Detection, error) {
	m.calls.Add(1)
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, img)
	}
	return nil, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	return int(m.calls.Load())
}

// NewMockDetector returns a MockDetector that reports dets for every image.
func NewMockDetector(dets ...models.Detection) *MockDetector {
	return &MockDetector{
		Name_: "mock",
		DetectFunc: func(_ context.Context, _ image.Image) ([]models.Detection, error) {
			return dets, nil
		},
	}
}

// NewFailingDetector returns a MockDetector that always returns the given error.
func NewFailingDetector(err error) *MockDetector {
	return &MockDetector{
		Name_: "mock-failing",
		DetectFunc: func(_ context.Context, _ image.Image) ([]models.Detection, error) {
			return nil, err
		},
	}
}

// NewBlockingDetector returns a MockDetector that blocks until release is closed
// or the context is cancelled.
func NewBlockingDetector(release <-chan struct{}) *MockDetector {
	return &MockDetector{
		Name_: "mock-blocking",
		DetectFunc: func(ctx context.Context, _ image.Image) ([]models.Detection, error) {
			select {
			case <-release:
				return nil, nil
			case <-ctx.Done():
				return nil, detect.ErrDetectorTimeout
			}
		},
	}
}

// Compile-time check that MockDetector implements Detector.
var _ models.Detector = (*MockDetector)(nil)
