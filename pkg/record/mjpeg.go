package record

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MJPEGWriter writes Motion-JPEG .avi files through OpenCV.
type MJPEGWriter struct {
	path string
	size image.Point

	mu     sync.Mutex
	w      *gocv.VideoWriter
	frames int
}

// NewMJPEG opens path for writing.
func NewMJPEG(path string, fps float64, size image.Point) (*MJPEGWriter, error) {
	w, err := gocv.VideoWriterFile(path, "MJPG", fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("record: open %s: writer not opened", path)
	}
	return &MJPEGWriter{path: path, size: size, w: w}, nil
}

// Path returns the output file.
func (m *MJPEGWriter) Path() string { return m.path }

// Frames returns how many frames were written.
func (m *MJPEGWriter) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Write implements Recorder.
func (m *MJPEGWriter) Write(img gocv.Mat) error {
	if err := checkFrame(img, m.size); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		return ErrClosed
	}
	if err := m.w.Write(img); err != nil {
		return fmt.Errorf("record: write: %w", err)
	}
	m.frames++
	return nil
}

// Close implements Recorder.
func (m *MJPEGWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		return nil
	}
	err := m.w.Close()
	m.w = nil
	return err
}
