package batch

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	outlineWidth = 2
	labelOffset  = 15
)

var overlayColor = color.RGBA{R: 255, A: 255}

// toRGBA returns a copy of img as *image.RGBA with its origin at (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// DrawPredictions draws a red outline and a "<class> <score>" label for every
// prediction onto img.
func DrawPredictions(img *image.RGBA, preds []models.Prediction) {
	face := basicfont.Face7x13
	for _, p := range preds {
		drawOutline(img, p.BBox.Rect())

		y := p.BBox[1] - labelOffset
		if y < 0 {
			y = 0
		}
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(overlayColor),
			Face: face,
			Dot:  fixed.P(p.BBox[0], y+face.Ascent),
		}
		d.DrawString(fmt.Sprintf("%s %.2f", p.ClassName, p.Score))
	}
}

func drawOutline(img *image.RGBA, r image.Rectangle) {
	src := image.NewUniform(overlayColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+outlineWidth),
		image.Rect(r.Min.X, r.Max.Y-outlineWidth, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+outlineWidth, r.Max.Y),
		image.Rect(r.Max.X-outlineWidth, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Over)
	}
}
