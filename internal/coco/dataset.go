// Package coco aggregates per-image prediction records into a single COCO
// detection dataset.
package coco

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RecordExt is the suffix identifying prediction record files.
const RecordExt = ".json"

// DefaultCategory is emitted when no annotation names a category.
var DefaultCategory = Category{ID: 0, Name: "object"}

type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type Annotation struct {
	ID         int       `json:"id"`
	ImageID    int       `json:"image_id"`
	CategoryID int       `json:"category_id"`
	BBox       []float64 `json:"bbox"`
	Score      float64   `json:"score"`
	Area       float64   `json:"area"`
	IsCrowd    int       `json:"iscrowd"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Dataset is a COCO-format export.
type Dataset struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// record mirrors models.PredictionRecord but tolerates missing fields.
type record struct {
	FileName *string `json:"file_name"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	BBoxes   []struct {
		CategoryID int       `json:"category_id"`
		ClassName  string    `json:"class_name"`
		BBox       []float64 `json:"bbox"`
		Score      *float64  `json:"score"`
	} `json:"bboxes"`
}

func isRegularFile(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FromDir reads every *.json file directly inside dir, in sorted file name
// order, and assigns image and annotation ids in that order.
func FromDir(dir string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading predictions: %w", err)
	}

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), RecordExt) && isRegularFile(filepath.Join(dir, e.Name()), e) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	ds := &Dataset{Images: []Image{}, Annotations: []Annotation{}}
	categories := map[int]string{}

	for imageID, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}

		fileName := strings.TrimSuffix(name, RecordExt)
		if rec.FileName != nil {
			fileName = *rec.FileName
		}
		ds.Images = append(ds.Images, Image{
			ID:       imageID,
			FileName: fileName,
			Width:    rec.Width,
			Height:   rec.Height,
		})

		for i, b := range rec.BBoxes {
			if len(b.BBox) != 4 {
				return nil, fmt.Errorf("%s: bbox %d has %d coordinates", name, i, len(b.BBox))
			}
			score := 1.0
			if b.Score != nil {
				score = *b.Score
			}
			ds.Annotations = append(ds.Annotations, Annotation{
				ID:         len(ds.Annotations),
				ImageID:    imageID,
				CategoryID: b.CategoryID,
				BBox:       b.BBox,
				Score:      score,
				Area:       b.BBox[2] * b.BBox[3],
				IsCrowd:    0,
			})
			if _, seen := categories[b.CategoryID]; !seen || categories[b.CategoryID] == "" {
				categories[b.CategoryID] = b.ClassName
			}
		}
	}

	ds.Categories = buildCategories(categories)
	return ds, nil
}

func buildCategories(seen map[int]string) []Category {
	if len(seen) == 0 {
		return []Category{DefaultCategory}
	}
	out := make([]Category, 0, len(seen))
	for id, name := range seen {
		if name == "" {
			name = DefaultCategory.Name
		}
		out = append(out, Category{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WriteFile writes the dataset as indented JSON, creating parent directories.
func (d *Dataset) WriteFile(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
