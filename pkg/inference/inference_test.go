package inference

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-mvision/pkg/detection"
	"gocv.io/x/gocv"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate: %v", err)
	}
	if cfg.Format != FormatDarknet {
		t.Errorf("Format: got %q, want %q", cfg.Format, FormatDarknet)
	}
	if cfg.InputWidth != 416 || cfg.InputHeight != 416 {
		t.Errorf("input size: got %dx%d, want 416x416", cfg.InputWidth, cfg.InputHeight)
	}
	if !cfg.SwapRB {
		t.Error("SwapRB should default to true")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"onnx without cfg", func(c *Config) { *c = ONNXConfig("m.onnx") }, false},
		{"darknet without cfg", func(c *Config) { c.ConfigPath = "" }, true},
		{"unknown format", func(c *Config) { c.Format = "tflite" }, true},
		{"no model", func(c *Config) { c.ModelPath = "" }, true},
		{"zero input", func(c *Config) { c.InputWidth = 0 }, true},
		{"zero scale", func(c *Config) { c.Scale = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate: got %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfigPath = "/nonexistent/darknet.cfg"
	cfg.ModelPath = "/nonexistent/darknet.weights"

	_, err := Load(cfg)
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Path != cfg.ConfigPath {
		t.Errorf("expected LoadError for %s, got %v", cfg.ConfigPath, err)
	}
}

func TestOpen_InvalidThreshold(t *testing.T) {
	_, err := Open(DefaultConfig(), detection.Config{Threshold: 2})
	if !errors.Is(err, detection.ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestMatToMatrix(t *testing.T) {
	m := gocv.NewMatWithSize(2, 6, gocv.MatTypeCV32F)
	defer m.Close()

	values := [][]float32{
		{0.5, 0.5, 0.2, 0.4, 0.02, 0.9},
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
	}
	for r, row := range values {
		for c, v := range row {
			m.SetFloatAt(r, c, v)
		}
	}

	out, err := matToMatrix(m)
	if err != nil {
		t.Fatalf("matToMatrix failed: %v", err)
	}
	if out.Rows() != 2 || out.Cols() != 6 {
		t.Fatalf("shape: got %dx%d, want 2x6", out.Rows(), out.Cols())
	}
	if v, _ := out.At(0, 5); v != 0.9 {
		t.Errorf("At(0,5): got %v, want 0.9", v)
	}
	if v, _ := out.At(1, 2); v != 0.3 {
		t.Errorf("At(1,2): got %v, want 0.3", v)
	}
}

func TestMatToMatrix_WrongType(t *testing.T) {
	m := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8U)
	defer m.Close()

	if _, err := matToMatrix(m); !errors.Is(err, ErrOutputLayout) {
		t.Errorf("expected ErrOutputLayout, got %v", err)
	}
}

func TestDetector_RealModel(t *testing.T) {
	cfg, ok := findDarknetModel()
	if !ok {
		t.Skip("darknet model not found, skipping test")
	}

	det, err := Open(cfg, detection.Config{Threshold: 0.5, Labels: detection.LabelTable{"car"}})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer det.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	res, err := det.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.ImageWidth != 320 || res.ImageHeight != 240 {
		t.Errorf("image size: got %dx%d", res.ImageWidth, res.ImageHeight)
	}
	if len(res.Boxes) > 0 {
		t.Errorf("expected no cars in a solid image, got %d", len(res.Boxes))
	}
}

func TestDetector_EmptyInput(t *testing.T) {
	cfg, ok := findDarknetModel()
	if !ok {
		t.Skip("darknet model not found, skipping test")
	}

	det, err := Open(cfg, detection.Config{Threshold: 0.5})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := det.DetectJPEG(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}

	det.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := det.Detect(empty); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

// findDarknetModel walks up from the test directory looking for
// models/darknet.cfg and models/darknet.weights.
func findDarknetModel() (Config, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, false
	}
	for dir := cwd; dir != "/"; dir = filepath.Dir(dir) {
		cfg := DefaultConfig()
		cfg.ConfigPath = filepath.Join(dir, "models", "darknet.cfg")
		cfg.ModelPath = filepath.Join(dir, "models", "darknet.weights")
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			continue
		}
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			continue
		}
		return cfg, true
	}
	return Config{}, false
}
