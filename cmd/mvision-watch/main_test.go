package main

import (
	"strings"
	"testing"

	"github.com/teslashibe/go-mvision/pkg/api"
	"github.com/teslashibe/go-mvision/pkg/detection"
)

func TestFormatDetections(t *testing.T) {
	d := api.Detections{
		Seq:         3,
		Width:       400,
		Height:      300,
		InferenceMS: 12.5,
		Boxes: []detection.Box{
			{X: 10, Y: 20, Width: 30, Height: 40, Class: 0, Confidence: 0.9},
			{X: 160, Y: 90, Width: 80, Height: 120, Class: 1, Confidence: 0.9},
		},
	}

	// the table style may upper-case titles and footers
	out := strings.ToLower(formatDetections(d, detection.LabelTable{"car"}))

	for _, want := range []string{"frame 3", "400x300", "12.5 ms", "car", "<1>", "0.900"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestControlPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"pause", api.PathPause, false},
		{"resume", api.PathResume, false},
		{"stop", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := controlPath(tc.in)
			if (err != nil) != tc.wantErr || got != tc.want {
				t.Errorf("controlPath(%q) = %q, %v", tc.in, got, err)
			}
		})
	}
}
