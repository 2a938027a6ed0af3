// Package render draws decoded detections onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/teslashibe/go-mvision/pkg/detection"
	"gocv.io/x/gocv"
)

// filled is OpenCV's thickness value for solid shapes.
const filled = -1

// Style controls annotation colors and fonts.
type Style struct {
	BoxColor        color.RGBA
	BoxThickness    int
	LabelBackground color.RGBA
	LabelColor      color.RGBA
	TimingColor     color.RGBA
	Font            gocv.HersheyFont
	FontScale       float64
	FontThickness   int
}

// DefaultStyle returns red boxes with black captions on white.
func DefaultStyle() Style {
	return Style{
		BoxColor:        color.RGBA{R: 255, A: 255},
		BoxThickness:    2,
		LabelBackground: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		LabelColor:      color.RGBA{A: 255},
		TimingColor:     color.RGBA{R: 255, A: 255},
		Font:            gocv.FontHersheySimplex,
		FontScale:       0.5,
		FontThickness:   1,
	}
}

// LabelText returns the caption for b, e.g. "car: 0.900000".
// ok is false when the box has no label; such boxes get no caption.
func LabelText(b detection.Box) (string, bool) {
	if !b.Labeled {
		return "", false
	}
	return fmt.Sprintf("%s: %f", b.Label, b.Confidence), true
}

// TimingText formats the inference time banner.
func TimingText(d time.Duration) string {
	return fmt.Sprintf("detection time: %g ms", float64(d)/float64(time.Millisecond))
}

// Annotate draws a rectangle for every box and a caption for labelled ones.
func Annotate(img *gocv.Mat, boxes []detection.Box, style Style) {
	for _, b := range boxes {
		gocv.Rectangle(img, b.Rect(), style.BoxColor, style.BoxThickness)

		label, ok := LabelText(b)
		if !ok {
			continue
		}

		size, baseline := gocv.GetTextSizeWithBaseline(label, style.Font, style.FontScale, style.FontThickness)
		origin := image.Pt(b.X, b.Y)
		gocv.Rectangle(img, labelBackground(origin, size, baseline), style.LabelBackground, filled)
		gocv.PutText(img, label, image.Pt(b.X, b.Y+size.Y), style.Font, style.FontScale, style.LabelColor, style.FontThickness)
	}
}

// labelBackground is the caption box anchored at the detection's top-left
// corner, tall enough for text plus baseline.
func labelBackground(origin, text image.Point, baseline int) image.Rectangle {
	return image.Rectangle{
		Min: origin,
		Max: origin.Add(image.Pt(text.X, text.Y+baseline)),
	}
}

// DrawTiming writes the inference time in the top-left corner.
func DrawTiming(img *gocv.Mat, d time.Duration, style Style) {
	gocv.PutText(img, TimingText(d), image.Pt(20, 20), style.Font, style.FontScale, style.TimingColor, style.FontThickness)
}
