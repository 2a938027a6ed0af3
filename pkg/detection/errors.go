package detection

import "errors"

// Sentinel errors returned by the decoder and its helpers.
var (
	// ErrInputShape is returned when a matrix does not have enough columns
	// for the box geometry and the configured class scores.
	ErrInputShape = errors.New("detection: input shape")

	// ErrInvalidThreshold is returned when the confidence threshold is
	// outside the open interval (0, 1).
	ErrInvalidThreshold = errors.New("detection: threshold must be in (0, 1)")

	// ErrInvalidImageSize is returned for non-positive image dimensions.
	ErrInvalidImageSize = errors.New("detection: image size must be positive")

	// ErrOutOfRange is returned by Matrix accessors for bad indices.
	ErrOutOfRange = errors.New("detection: index out of range")
)
