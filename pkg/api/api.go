// Package api holds the JSON payloads and routes of the mvision dashboard.
// It depends only on pkg/detection so clients build without OpenCV.
package api

import (
	"time"

	"github.com/teslashibe/go-mvision/pkg/detection"
)

// Dashboard routes.
const (
	PathStatus     = "/api/status"
	PathCamera     = "/api/camera"
	PathLabels     = "/api/labels"
	PathDetections = "/api/detections"
	PathPause      = "/api/pause"
	PathResume     = "/api/resume"

	PathFramesWS     = "/ws/frames"
	PathDetectionsWS = "/ws/detections"
)

// Status is the /api/status payload.
type Status struct {
	Frames          uint64  `json:"frames"`
	FPS             float64 `json:"fps"`
	LastInferenceMS float64 `json:"last_inference_ms"`
	LastDetections  int     `json:"last_detections"`
	Clients         int     `json:"clients"`
	Paused          bool    `json:"paused"`
	Uptime          string  `json:"uptime"`
}

// CameraParams mirrors the camera's acquisition parameters. Modes are
// "off", "once" or "continuous".
type CameraParams struct {
	ExposureTime float64 `json:"exposure_time"`
	ExposureMode string  `json:"exposure_mode"`
	Gain         float64 `json:"gain"`
	GainMode     string  `json:"gain_mode"`
	FrameRate    float64 `json:"frame_rate"`
}

// CameraState is the /api/camera payload.
type CameraState struct {
	Params  CameraParams `json:"params"`
	Presets []string     `json:"presets"`
}

// PauseState is returned by the pause and resume routes.
type PauseState struct {
	Paused bool `json:"paused"`
}

// Detections is one published frame worth of boxes.
type Detections struct {
	Seq         uint64          `json:"seq"`
	Time        time.Time       `json:"time"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	InferenceMS float64         `json:"inference_ms"`
	Boxes       []detection.Box `json:"boxes"`
}
