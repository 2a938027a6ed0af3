// Package detection turns raw detection-network output into pixel-space
// boxes.
//
// Each matrix row holds a normalized box (center x, center y, width, height)
// followed by one confidence per class. The decoder picks the best class per
// row, drops rows at or below the threshold and converts the rest to integer
// pixel rectangles. It does no suppression or reordering: output follows
// input row order.
package detection

import (
	"fmt"
	"image"
)

// Column layout of a detection row.
const (
	// DefaultScoreOffset is the first class-score column for plain
	// [cx, cy, w, h, scores...] rows.
	DefaultScoreOffset = 4

	// DarknetScoreOffset skips the objectness column Darknet region
	// layers emit at index 4.
	DarknetScoreOffset = 5

	geometryCols = 4
)

// Box is a decoded detection in pixel coordinates.
type Box struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`

	// Label is the class name, empty when Labeled is false.
	Label string `json:"label,omitempty"`
	// Labeled reports whether Class was inside the label table. Boxes
	// with an unknown class are still drawn, just without a caption.
	Labeled bool `json:"labeled"`
}

// Rect returns the box corners. The rectangle is not canonicalized, so a
// row with negative size keeps Min at (x0, y0).
func (b Box) Rect() image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(b.X, b.Y),
		Max: image.Pt(b.X+b.Width, b.Y+b.Height),
	}
}

// Config holds decoder settings.
type Config struct {
	// Threshold is the exclusive minimum confidence, in (0, 1).
	Threshold float32 `yaml:"threshold" json:"threshold"`

	// Labels names the classes. Classes past the end are left unlabeled.
	Labels LabelTable `yaml:"-" json:"-"`

	// ScoreOffset is the first class-score column. 0 means DefaultScoreOffset.
	ScoreOffset int `yaml:"score_offset" json:"score_offset"`

	// ClassCount, when positive, is the number of score columns the model
	// is expected to produce. 0 means every column after ScoreOffset.
	ClassCount int `yaml:"class_count" json:"class_count"`
}

// DefaultConfig returns the decoder defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:   0.5,
		ScoreOffset: DefaultScoreOffset,
	}
}

// Validate checks the threshold and layout.
func (c Config) Validate() error {
	if !(c.Threshold > 0 && c.Threshold < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Threshold)
	}
	if c.ScoreOffset != 0 && c.ScoreOffset < geometryCols {
		return fmt.Errorf("%w: score offset %d overlaps box geometry", ErrInputShape, c.ScoreOffset)
	}
	if c.ClassCount < 0 {
		return fmt.Errorf("%w: negative class count %d", ErrInputShape, c.ClassCount)
	}
	return nil
}

func (c Config) scoreOffset() int {
	if c.ScoreOffset == 0 {
		return DefaultScoreOffset
	}
	return c.ScoreOffset
}

// Decoder decodes detection matrices with a fixed configuration.
// It holds no mutable state and is safe for concurrent use.
type Decoder struct {
	cfg Config
}

// NewDecoder validates cfg and returns a decoder.
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{cfg: cfg}, nil
}

// Config returns the decoder configuration.
func (d *Decoder) Config() Config { return d.cfg }

// Labels returns the decoder's label table.
func (d *Decoder) Labels() LabelTable { return d.cfg.Labels }

// Decode converts m into boxes for an image of width x height pixels.
func (d *Decoder) Decode(m Matrix, width, height int) ([]Box, error) {
	return decode(m, width, height, d.cfg)
}

// Decode validates cfg and decodes m in one call.
func Decode(m Matrix, width, height int, cfg Config) ([]Box, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return decode(m, width, height, cfg)
}

func decode(m Matrix, width, height int, cfg Config) ([]Box, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidImageSize, width, height)
	}

	// The zero Matrix carries no shape and decodes to nothing.
	if m.Rows() == 0 && m.Cols() == 0 {
		return []Box{}, nil
	}

	offset := cfg.scoreOffset()
	if m.Cols() < offset {
		return nil, fmt.Errorf("%w: %d columns, need at least %d", ErrInputShape, m.Cols(), offset)
	}
	end := m.Cols()
	if cfg.ClassCount > 0 {
		end = offset + cfg.ClassCount
		if m.Cols() < end {
			return nil, fmt.Errorf("%w: %d columns for %d classes at offset %d",
				ErrInputShape, m.Cols(), cfg.ClassCount, offset)
		}
	}

	boxes := []Box{}
	w, h := float32(width), float32(height)
	for i := 0; i < m.Rows(); i++ {
		row, err := m.Row(i)
		if err != nil {
			return nil, err
		}

		class, confidence, ok := argmax(row[offset:end])
		if !ok || confidence <= cfg.Threshold {
			continue
		}

		cx, cy, bw, bh := row[0], row[1], row[2], row[3]
		x0 := int((cx - bw/2) * w)
		y0 := int((cy - bh/2) * h)
		x1 := int((cx + bw/2) * w)
		y1 := int((cy + bh/2) * h)

		label, labeled := cfg.Labels.Lookup(class)
		boxes = append(boxes, Box{
			X:          x0,
			Y:          y0,
			Width:      x1 - x0,
			Height:     y1 - y0,
			Class:      class,
			Confidence: confidence,
			Label:      label,
			Labeled:    labeled,
		})
	}
	return boxes, nil
}

// argmax returns the index and value of the largest score. Ties go to the
// lowest index. ok is false for an empty slice.
func argmax(scores []float32) (idx int, value float32, ok bool) {
	if len(scores) == 0 {
		return 0, 0, false
	}
	for j := 1; j < len(scores); j++ {
		if scores[j] > scores[idx] {
			idx = j
		}
	}
	return idx, scores[idx], true
}
