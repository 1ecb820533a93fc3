// Package models contains shared data models used across the pipeline codebase.
package models

import (
	"context"
	"image"
)

// Detector is the contract every detection backend implements.
// Handlers and executors depend on this interface, never on a concrete backend.
type Detector interface {
	// Detect returns zero or more detections for img.
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	// Name returns the backend identifier (e.g., "none", "http").
	Name() string
}

// Detection is a single raw model output before class names are resolved.
type Detection struct {
	CategoryID int
	Box        BBox
	Score      float64
}

// BBox is an axis-aligned box as [x, y, width, height] in pixels.
type BBox [4]int

// Area returns width * height.
func (b BBox) Area() int {
	return b[2] * b[3]
}

// Rect converts the box to an image.Rectangle.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b[0], b[1], b[0]+b[2], b[1]+b[3])
}
