// Package camera controls an industrial camera through a small set of
// acquisition parameters: exposure, gain, frame rate and their automatic
// modes.
//
// Devices speak a C-style protocol: every call returns a numeric Status.
// Controller turns those codes into errors, logs failures and keeps the
// grabbing state. Backends:
//   - OpenCV (gocv VideoCapture) - UVC and GenICam-over-OpenCV cameras
//   - Mock - CI/testing without hardware
package camera

import (
	"fmt"
	"strings"
	"time"
)

// Mode is an automatic-control mode shared by gain and exposure.
type Mode uint32

const (
	// ModeOff disables automatic control; the manual value is used.
	ModeOff Mode = 0
	// ModeOnce runs the automatic control once, then holds.
	ModeOnce Mode = 1
	// ModeContinuous keeps adjusting every frame.
	ModeContinuous Mode = 2
)

// Valid reports whether m is one of the three defined modes.
func (m Mode) Valid() bool {
	return m <= ModeContinuous
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeOnce:
		return "once"
	case ModeContinuous:
		return "continuous"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(m))
	}
}

// ParseMode parses "off", "once" or "continuous" (or 0, 1, 2).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "0", "":
		return ModeOff, nil
	case "once", "1":
		return ModeOnce, nil
	case "continuous", "2":
		return ModeContinuous, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, uint32(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Range is a float parameter with its device limits.
type Range struct {
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Params is the persisted acquisition state (a "feature file").
type Params struct {
	// ExposureTime is the manual exposure in microseconds.
	// Applied only when ExposureMode is off; 0 leaves it unchanged.
	ExposureTime float64 `yaml:"exposure_time" json:"exposure_time"`
	ExposureMode Mode    `yaml:"exposure_mode" json:"exposure_mode"`

	// Gain is the manual gain in dB, applied only when GainMode is off.
	Gain     float64 `yaml:"gain" json:"gain"`
	GainMode Mode    `yaml:"gain_mode" json:"gain_mode"`

	// FrameRate is the acquisition rate in frames per second; 0 leaves it
	// unchanged.
	FrameRate float64 `yaml:"frame_rate" json:"frame_rate"`
}

// Validate checks parameter ranges. Returns a list of problems, or nil.
func (p *Params) Validate() []string {
	var errors []string

	if !p.ExposureMode.Valid() {
		errors = append(errors, "exposure_mode must be off, once, or continuous")
	}
	if !p.GainMode.Valid() {
		errors = append(errors, "gain_mode must be off, once, or continuous")
	}
	if p.ExposureTime < 0 {
		errors = append(errors, "exposure_time must not be negative")
	}
	if p.Gain < 0 {
		errors = append(errors, "gain must not be negative")
	}
	if p.FrameRate < 0 {
		errors = append(errors, "frame_rate must not be negative")
	}

	return errors
}

// Backend represents the camera backend type.
type Backend string

const (
	// BackendOpenCV captures through gocv.VideoCapture.
	BackendOpenCV Backend = "opencv"
	// BackendMock uses a synthetic camera for testing.
	BackendMock Backend = "mock"
)

// DefaultGrabTimeout is how long Frame waits for an image.
const DefaultGrabTimeout = 1000 * time.Millisecond

// Config holds camera configuration.
type Config struct {
	// Backend selects the device implementation. Default: "opencv"
	Backend Backend `yaml:"backend" json:"backend"`

	// Device is the backend-specific identifier.
	// Examples:
	//   - OpenCV: "0" (device index), "rtsp://...", "video.avi"
	//   - Mock: ignored
	Device string `yaml:"device" json:"device"`

	// Requested frame size; 0 keeps the device default.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// GrabTimeout bounds each Frame call.
	GrabTimeout time.Duration `yaml:"grab_timeout" json:"grab_timeout"`

	// FeatureFile, when set, is loaded instead of Params at startup.
	FeatureFile string `yaml:"feature_file" json:"feature_file"`

	// Params applied at startup.
	Params Params `yaml:"params" json:"params"`
}

// DefaultParams returns the startup sequence of the car detection rig:
// continuous auto gain and exposure, 10 ms manual exposure fallback,
// 15 fps.
func DefaultParams() Params {
	return Params{
		ExposureTime: 10000,
		ExposureMode: ModeContinuous,
		GainMode:     ModeContinuous,
		FrameRate:    15,
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendOpenCV,
		Device:      "0",
		Width:       1440,
		Height:      1080,
		GrabTimeout: DefaultGrabTimeout,
		Params:      DefaultParams(),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenCV, BackendMock:
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("frame size must not be negative, got %dx%d", c.Width, c.Height)
	}
	if c.GrabTimeout < 0 {
		return fmt.Errorf("grab_timeout must not be negative, got %v", c.GrabTimeout)
	}
	if errs := c.Params.Validate(); len(errs) > 0 {
		return fmt.Errorf("params: %s", strings.Join(errs, "; "))
	}
	return nil
}
