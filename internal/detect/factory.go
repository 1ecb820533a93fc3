package detect

import (
	"fmt"

	"github.com/customsubash/image-labelling-pipeline/internal/config"
	"github.com/customsubash/image-labelling-pipeline/pkg/models"
)

// NewDetector constructs the detection backend named by cfg.Provider.
// Called once at server startup.
func NewDetector(cfg config.DetectorConfig) (models.Detector, error) {
	switch cfg.Provider {
	case "", "none":
		return NewNop(), nil
	case "http":
		return NewHTTPDetector(cfg.URL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown detector provider %q: must be one of none, http", cfg.Provider)
	}
}
