package record

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockRecorder counts frames for testing. It keeps no pixel data.
type MockRecorder struct {
	mu     sync.Mutex
	sizes  []image.Point
	closed bool

	// Err, when set, is returned by Write.
	Err error
}

// NewMockRecorder creates an empty MockRecorder.
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

// Write implements Recorder.
func (m *MockRecorder) Write(img gocv.Mat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.Err != nil {
		return m.Err
	}
	m.sizes = append(m.sizes, image.Pt(img.Cols(), img.Rows()))
	return nil
}

// Close implements Recorder.
func (m *MockRecorder) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Frames returns the size of every written frame.
func (m *MockRecorder) Frames() []image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.Point(nil), m.sizes...)
}

// Closed reports whether Close was called.
func (m *MockRecorder) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
