// Package inference loads a detection network into OpenCV's dnn module and
// turns its output into decoded boxes.
//
// Two model formats are supported:
//   - Darknet (.cfg + .weights), output rows [cx, cy, w, h, objectness, scores...]
//   - ONNX, output rows [cx, cy, w, h, scores...], optionally channel-major
//
// The network owns tensor layout and normalization; Config must match what
// the model was trained with.
package inference

import (
	"fmt"
)

// Format identifies the on-disk model format.
type Format string

const (
	// FormatDarknet is a Darknet .cfg/.weights pair.
	FormatDarknet Format = "darknet"
	// FormatONNX is a single .onnx file.
	FormatONNX Format = "onnx"
)

// Config holds network configuration.
type Config struct {
	// Format selects the loader. Default: darknet
	Format Format `yaml:"format" json:"format"`

	// ModelPath is the weights file (.weights or .onnx).
	ModelPath string `yaml:"model" json:"model"`

	// ConfigPath is the Darknet network description (.cfg). Unused for ONNX.
	ConfigPath string `yaml:"config" json:"config"`

	// Network input size in pixels.
	InputWidth  int `yaml:"input_width" json:"input_width"`
	InputHeight int `yaml:"input_height" json:"input_height"`

	// Blob construction parameters.
	Scale  float64 `yaml:"scale" json:"scale"`
	Mean   float64 `yaml:"mean" json:"mean"`
	SwapRB bool    `yaml:"swap_rb" json:"swap_rb"`
	Crop   bool    `yaml:"crop" json:"crop"`

	// InputName is the input layer name, empty for the default input.
	InputName string `yaml:"input_name" json:"input_name"`

	// Backend and Target are passed to gocv.ParseNetBackend/ParseNetTarget.
	// Examples: "default", "opencv", "cuda"; "cpu", "fp16", "cuda".
	Backend string `yaml:"backend" json:"backend"`
	Target  string `yaml:"target" json:"target"`

	// Transposed marks channel-major output ([fields x candidates]),
	// as produced by YOLOv8 exports.
	Transposed bool `yaml:"transposed" json:"transposed"`
}

// DefaultConfig returns defaults for a 416x416 Darknet YOLO model.
func DefaultConfig() Config {
	return Config{
		Format:      FormatDarknet,
		ModelPath:   "models/darknet.weights",
		ConfigPath:  "models/darknet.cfg",
		InputWidth:  416,
		InputHeight: 416,
		Scale:       1.0 / 255.0,
		Mean:        0,
		SwapRB:      true,
		InputName:   "data",
		Backend:     "default",
		Target:      "cpu",
	}
}

// ONNXConfig returns defaults for a 640x640 YOLOv8 ONNX export.
func ONNXConfig(path string) Config {
	cfg := DefaultConfig()
	cfg.Format = FormatONNX
	cfg.ModelPath = path
	cfg.ConfigPath = ""
	cfg.InputWidth = 640
	cfg.InputHeight = 640
	cfg.InputName = ""
	cfg.Transposed = true
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatDarknet:
		if c.ConfigPath == "" {
			return fmt.Errorf("darknet model requires a config path")
		}
	case FormatONNX:
	default:
		return fmt.Errorf("unsupported model format: %q", c.Format)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	return nil
}
