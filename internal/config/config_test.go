package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/teslashibe/go-mvision/pkg/camera"
	"github.com/teslashibe/go-mvision/pkg/detection"
	"github.com/teslashibe/go-mvision/pkg/record"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Detector.Threshold != DefaultThreshold {
		t.Errorf("threshold: got %v", cfg.Detector.Threshold)
	}
	if diff := cmp.Diff(camera.DefaultParams(), cfg.Camera.Params); diff != "" {
		t.Errorf("camera params mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileWithExpansion(t *testing.T) {
	t.Setenv("MODEL_DIR", "/opt/models")

	path := writeFile(t, "mvision.yaml", `
model:
  model: ${MODEL_DIR}/yolov4-tiny.weights
  config: ${MODEL_DIR}/yolov4-tiny.cfg
detector:
  threshold: 0.4
  labels: [car, truck, bus]
camera:
  backend: mock
  grab_timeout: 500ms
  params:
    exposure_mode: off
    exposure_time: 20000
record:
  enabled: true
  backend: ffmpeg
  bitrate: 2048
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Model.ModelPath != "/opt/models/yolov4-tiny.weights" || cfg.Model.ConfigPath != "/opt/models/yolov4-tiny.cfg" {
		t.Errorf("paths not expanded: %q %q", cfg.Model.ModelPath, cfg.Model.ConfigPath)
	}
	if cfg.Model.InputWidth != 416 {
		t.Errorf("unset fields should keep defaults, input width %d", cfg.Model.InputWidth)
	}
	if cfg.Detector.Threshold != 0.4 {
		t.Errorf("threshold: got %v", cfg.Detector.Threshold)
	}
	if cfg.Camera.Backend != camera.BackendMock || cfg.Camera.GrabTimeout != 500*time.Millisecond {
		t.Errorf("camera: got %+v", cfg.Camera)
	}
	if cfg.Camera.Params.ExposureMode != camera.ModeOff || cfg.Camera.Params.ExposureTime != 20000 {
		t.Errorf("camera params: got %+v", cfg.Camera.Params)
	}
	if cfg.Camera.Params.FrameRate != 15 {
		t.Errorf("unset params should keep defaults, frame rate %v", cfg.Camera.Params.FrameRate)
	}
	if !cfg.Record.Enabled || cfg.Record.Backend != record.BackendFFmpeg || cfg.Record.Bitrate != record.BitrateMedium {
		t.Errorf("record: got %+v", cfg.Record)
	}

	labels, err := cfg.Detector.LoadLabels()
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if diff := cmp.Diff(detection.LabelTable{"car", "truck", "bus"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	labels := writeFile(t, "coco.names", "person\nbicycle\ncar\n")
	t.Setenv(EnvThreshold, "0.25")
	t.Setenv(EnvCamera, "rtsp://cam.local/stream")
	t.Setenv(EnvWebPort, "9090")
	t.Setenv(EnvLabels, labels)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Detector.Threshold != 0.25 {
		t.Errorf("threshold: got %v", cfg.Detector.Threshold)
	}
	if cfg.Camera.Device != "rtsp://cam.local/stream" {
		t.Errorf("camera: got %q", cfg.Camera.Device)
	}
	if cfg.Web.Addr != ":9090" {
		t.Errorf("web addr: got %q", cfg.Web.Addr)
	}

	table, err := cfg.Detector.LoadLabels()
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("labels file should replace inline labels, got %v", table)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		env    map[string]string
		noFile bool
	}{
		{name: "missing file", noFile: true},
		{name: "bad yaml", file: "detector: [unclosed"},
		{name: "threshold out of range", file: "detector:\n  threshold: 1.5\n"},
		{name: "unknown camera backend", file: "camera:\n  backend: gige\n"},
		{name: "bad record when enabled", file: "record:\n  enabled: true\n  fps: 0\n"},
		{name: "bad threshold env", env: map[string]string{EnvThreshold: "high"}},
		{name: "bad port env", env: map[string]string{EnvWebPort: "http"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			switch {
			case tc.noFile:
				path = filepath.Join(t.TempDir(), "missing.yaml")
			case tc.file != "":
				path = writeFile(t, "mvision.yaml", tc.file)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_DisabledRecordIsNotValidated(t *testing.T) {
	path := writeFile(t, "mvision.yaml", "record:\n  fps: 0\n")
	if _, err := Load(path); err != nil {
		t.Errorf("disabled recording should not be validated: %v", err)
	}
}
