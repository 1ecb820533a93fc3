package detect

import (
	"context"
	"image"

	"github.com/customsubash/image-labelling-pipeline/pkg/models"
)

// Nop reports no detections for any image. It lets the pipeline run end to end
// without a model attached.
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (n *Nop) Name() string { return "none" }

func (n *Nop) Detect(ctx context.Context, _ image.Image) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

var _ models.Detector = (*Nop)(nil)
