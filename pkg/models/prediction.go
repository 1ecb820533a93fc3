package models

// PredictionRecord is the per-image detection output. One record is written per
// processed image as "<image>.json" next to the annotated copy, and is never
// modified afterwards.
type PredictionRecord struct {
	FileName string       `json:"file_name"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	BBoxes   []Prediction `json:"bboxes"`
}

// Prediction is a detection with its class name resolved.
type Prediction struct {
	CategoryID int     `json:"category_id"`
	ClassName  string  `json:"class_name"`
	BBox       BBox    `json:"bbox"`
	Score      float64 `json:"score"`
}

// NewPredictionRecord builds a record for fileName, resolving class names via names.
// BBoxes is never nil so it serialises as [].
func NewPredictionRecord(fileName string, width, height int, dets []Detection, names func(int) string) PredictionRecord {
	rec := PredictionRecord{
		FileName: fileName,
		Width:    width,
		Height:   height,
		BBoxes:   make([]Prediction, 0, len(dets)),
	}
	for _, d := range dets {
		rec.BBoxes = append(rec.BBoxes, Prediction{
			CategoryID: d.CategoryID,
			ClassName:  names(d.CategoryID),
			BBox:       d.Box,
			Score:      d.Score,
		})
	}
	return rec
}
