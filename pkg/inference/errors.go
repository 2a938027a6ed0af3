package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrModelNotFound is returned when a model file does not exist.
	ErrModelNotFound = errors.New("inference: model file not found")

	// ErrEmptyNetwork is returned when OpenCV fails to build a network.
	ErrEmptyNetwork = errors.New("inference: network is empty")

	// ErrEmptyImage is returned for empty or undecodable input frames.
	ErrEmptyImage = errors.New("inference: empty image")

	// ErrOutputLayout is returned when an output blob cannot be read as
	// a 2D float32 detection matrix.
	ErrOutputLayout = errors.New("inference: unexpected output layout")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("inference: detector closed")
)

// LoadError wraps a model loading failure with the offending path.
type LoadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("inference: load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
