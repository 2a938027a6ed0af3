// Package record writes annotated frames to video files.
//
// Backends:
//   - MJPEG (gocv VideoWriter) - .avi, no external tools
//   - FFmpeg (ffmpeg-go) - H.264 .mp4 with a target bitrate
package record

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Errors
var (
	ErrClosed         = errors.New("record: writer closed")
	ErrFrameSize      = errors.New("record: frame size does not match writer")
	ErrFrameType      = errors.New("record: frame must be 8-bit BGR")
	ErrInvalidBitrate = errors.New("record: bitrate out of range")
	ErrFFmpegNotFound = errors.New("record: ffmpeg not found in PATH")
)

// Recorder consumes frames of a fixed size.
type Recorder interface {
	Write(img gocv.Mat) error
	Close() error
}

// Bitrate is an encoder target in kbps.
type Bitrate int

const (
	BitrateMinimum Bitrate = 128
	BitrateLow     Bitrate = 1024
	BitrateMedium  Bitrate = 2048
	BitrateDefault Bitrate = 4096
	BitrateHigh    Bitrate = 6144
	BitrateUltra   Bitrate = 8192
	// BitrateMaximum is the highest rate camera encoders commonly accept.
	BitrateMaximum Bitrate = 16383
)

// Validate checks that b lies within [BitrateMinimum, BitrateMaximum].
func (b Bitrate) Validate() error {
	if b < BitrateMinimum || b > BitrateMaximum {
		return fmt.Errorf("%w: %d kbps (want %d..%d)", ErrInvalidBitrate, int(b), int(BitrateMinimum), int(BitrateMaximum))
	}
	return nil
}

// Backend represents the recorder backend type.
type Backend string

const (
	BackendMJPEG  Backend = "mjpeg"
	BackendFFmpeg Backend = "ffmpeg"
)

// Config holds recording configuration.
type Config struct {
	// Enabled turns recording on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Backend selects the encoder. Default: "mjpeg"
	Backend Backend `yaml:"backend" json:"backend"`

	// Path is the output file. Empty generates a name inside Dir.
	Path string `yaml:"path" json:"path"`

	// Dir receives generated file names.
	Dir string `yaml:"dir" json:"dir"`

	// FPS written into the container.
	FPS float64 `yaml:"fps" json:"fps"`

	// Bitrate for the ffmpeg backend.
	Bitrate Bitrate `yaml:"bitrate" json:"bitrate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMJPEG,
		Dir:     "recordings",
		FPS:     15,
		Bitrate: BitrateDefault,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMJPEG:
	case BackendFFmpeg:
		if err := c.Bitrate.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported recorder backend: %q", c.Backend)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %v", c.FPS)
	}
	if c.Path == "" && c.Dir == "" {
		return errors.New("either path or dir must be set")
	}
	return nil
}

// Extension returns the container suffix for the backend.
func (b Backend) Extension() string {
	if b == BackendFFmpeg {
		return ".mp4"
	}
	return ".avi"
}

// FileName returns a unique recording name inside dir, e.g.
// recordings/20260101-120000-1b4e28ba.avi.
func FileName(dir, ext string) string {
	id := uuid.NewString()[:8]
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", time.Now().Format("20060102-150405"), id, ext))
}

// Open creates the configured recorder for frames of the given size.
// ctx bounds the ffmpeg process; the MJPEG writer ignores it.
func Open(ctx context.Context, cfg Config, size image.Point) (Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := cfg.Path
	if path == "" {
		path = FileName(cfg.Dir, cfg.Backend.Extension())
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("record: %w", err)
		}
	}

	switch cfg.Backend {
	case BackendFFmpeg:
		return NewFFmpeg(ctx, path, cfg.FPS, size, cfg.Bitrate)
	default:
		return NewMJPEG(path, cfg.FPS, size)
	}
}

// checkFrame verifies img fits a writer of the given size.
func checkFrame(img gocv.Mat, size image.Point) error {
	if img.Type() != gocv.MatTypeCV8UC3 {
		return ErrFrameType
	}
	if img.Cols() != size.X || img.Rows() != size.Y {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, img.Cols(), img.Rows(), size.X, size.Y)
	}
	return nil
}
