package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/teslashibe/go-mvision/pkg/api"
	"github.com/teslashibe/go-mvision/pkg/camera"
	"github.com/teslashibe/go-mvision/pkg/detection"
	"github.com/teslashibe/go-mvision/pkg/inference"
	"github.com/teslashibe/go-mvision/pkg/pipeline"
)

type fakeCamera struct {
	params camera.Params
	got    map[string]interface{}
	err    error
}

func (f *fakeCamera) Applied() camera.Params { return f.params }

func (f *fakeCamera) Update(fields map[string]interface{}) error {
	f.got = fields
	if f.err != nil {
		return f.err
	}
	if v, ok := fields["frame_rate"].(float64); ok {
		f.params.FrameRate = v
	}
	return nil
}

type fakeControl struct {
	paused bool
}

func (f *fakeControl) Stats() pipeline.Stats {
	return pipeline.Stats{Frames: 42, FPS: 14.5, LastInference: 25 * time.Millisecond, LastDetections: 2}
}
func (f *fakeControl) Pause()       { f.paused = true }
func (f *fakeControl) Resume()      { f.paused = false }
func (f *fakeControl) Paused() bool { return f.paused }

func newTestServer(cam Camera, control Control) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(DefaultConfig(), cam, control, detection.LabelTable{"car", "truck"}, logger)
}

func do(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func TestStatus(t *testing.T) {
	control := &fakeControl{paused: true}
	s := newTestServer(nil, control)

	code, body := do(t, s, http.MethodGet, "/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}

	var st api.Status
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Frames != 42 || st.FPS != 14.5 || st.LastInferenceMS != 25 || st.LastDetections != 2 || !st.Paused {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestCamera(t *testing.T) {
	cam := &fakeCamera{params: camera.DefaultParams()}
	s := newTestServer(cam, nil)

	code, body := do(t, s, http.MethodGet, "/api/camera", "")
	if code != http.StatusOK {
		t.Fatalf("GET status %d: %s", code, body)
	}
	var state api.CameraState
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := api.CameraParams{ExposureTime: 10000, ExposureMode: "continuous", GainMode: "continuous", FrameRate: 15}
	if diff := cmp.Diff(want, state.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if len(state.Presets) != len(camera.PresetNames()) {
		t.Errorf("presets: got %v", state.Presets)
	}

	code, body = do(t, s, http.MethodPut, "/api/camera", `{"frame_rate": 10}`)
	if code != http.StatusOK {
		t.Fatalf("PUT status %d: %s", code, body)
	}
	if cam.params.FrameRate != 10 {
		t.Errorf("update not applied, frame rate %v", cam.params.FrameRate)
	}
}

func TestCamera_Errors(t *testing.T) {
	tests := []struct {
		name   string
		cam    Camera
		body   string
		status int
	}{
		{"not configured", nil, `{}`, http.StatusServiceUnavailable},
		{"bad json", &fakeCamera{}, `{"frame_rate":`, http.StatusBadRequest},
		{"rejected", &fakeCamera{err: errors.New("unknown preset: x")}, `{"preset":"x"}`, http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(tc.cam, nil)
			code, body := do(t, s, http.MethodPut, "/api/camera", tc.body)
			if code != tc.status {
				t.Errorf("status: got %d, want %d (%s)", code, tc.status, body)
			}
		})
	}
}

func TestLabels(t *testing.T) {
	s := newTestServer(nil, nil)

	code, body := do(t, s, http.MethodGet, "/api/labels", "")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var labels []string
	if err := json.Unmarshal(body, &labels); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"car", "truck"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestDetections(t *testing.T) {
	s := newTestServer(nil, nil)

	if code, _ := do(t, s, http.MethodGet, "/api/detections", ""); code != http.StatusNoContent {
		t.Errorf("before any frame: got %d, want 204", code)
	}

	box := detection.Box{X: 160, Y: 90, Width: 80, Height: 120, Class: 1, Confidence: 0.9, Label: "truck", Labeled: true}
	s.PublishDetections(7, inference.Result{
		Boxes:         []detection.Box{box},
		InferenceTime: 12500 * time.Microsecond,
		ImageWidth:    640,
		ImageHeight:   480,
	})

	code, body := do(t, s, http.MethodGet, "/api/detections", "")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var d api.Detections
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Seq != 7 || d.Width != 640 || d.InferenceMS != 12.5 {
		t.Errorf("unexpected detections %+v", d)
	}
	if diff := cmp.Diff([]detection.Box{box}, d.Boxes); diff != "" {
		t.Errorf("boxes mismatch (-want +got):\n%s", diff)
	}
}

func TestPauseResume(t *testing.T) {
	control := &fakeControl{}
	s := newTestServer(nil, control)

	if code, _ := do(t, s, http.MethodPost, "/api/pause", ""); code != http.StatusOK || !control.paused {
		t.Errorf("pause: code %d, paused %v", code, control.paused)
	}
	if code, _ := do(t, s, http.MethodPost, "/api/resume", ""); code != http.StatusOK || control.paused {
		t.Errorf("resume: code %d, paused %v", code, control.paused)
	}

	code, body := do(t, s, http.MethodPost, api.PathPause, "")
	var ps api.PauseState
	if err := json.Unmarshal(body, &ps); err != nil || code != http.StatusOK || !ps.Paused {
		t.Errorf("pause body: code %d, %s", code, body)
	}

	bare := newTestServer(nil, nil)
	if code, _ := do(t, bare, http.MethodPost, "/api/pause", ""); code != http.StatusServiceUnavailable {
		t.Errorf("pause without pipeline: got %d", code)
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(nil, nil)
	if code, _ := do(t, s, http.MethodGet, "/ws/frames", ""); code != http.StatusUpgradeRequired {
		t.Errorf("got %d, want 426", code)
	}
}
