package camera

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// MockDevice is an in-memory camera for testing.
// Frames are gray with a white square that moves one step per grab.
type MockDevice struct {
	width, height int

	mu       sync.Mutex
	opened   bool
	grabbing bool
	floats   map[FloatParam]Range
	enums    map[EnumParam]uint32
	failures map[string]Status

	// Stats
	grabs atomic.Int64
}

// MockDeviceOption configures a MockDevice.
type MockDeviceOption func(*MockDevice)

// WithFailure makes the named method ("Open", "Grab", "SetFloat", ...)
// return s.
func WithFailure(method string, s Status) MockDeviceOption {
	return func(m *MockDevice) {
		m.failures[method] = s
	}
}

// WithUnsupported removes a feature so calls on it report
// StatusNotSupported.
func WithUnsupported(name EnumParam) MockDeviceOption {
	return func(m *MockDevice) {
		delete(m.enums, name)
	}
}

// NewMockDevice creates a mock camera. Zero sizes default to 640x480.
func NewMockDevice(width, height int, opts ...MockDeviceOption) *MockDevice {
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}
	m := &MockDevice{
		width:  width,
		height: height,
		floats: map[FloatParam]Range{
			ParamExposureTime: {Current: 5000, Min: 15, Max: 9999500},
			ParamGain:         {Current: 0, Min: 0, Max: 17},
			ParamFrameRate:    {Current: 30, Min: 1, Max: 100},
		},
		enums: map[EnumParam]uint32{
			ParamExposureAuto: uint32(ModeOff),
			ParamGainAuto:     uint32(ModeOff),
		},
		failures: make(map[string]Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Grabs returns how many frames were delivered.
func (m *MockDevice) Grabs() int64 {
	return m.grabs.Load()
}

// SetEnumRaw stores any value, including invalid ones, for testing readers.
func (m *MockDevice) SetEnumRaw(name EnumParam, value uint32) {
	m.mu.Lock()
	m.enums[name] = value
	m.mu.Unlock()
}

func (m *MockDevice) failure(method string) Status {
	if s, ok := m.failures[method]; ok {
		return s
	}
	return StatusOK
}

// Open implements Device.
func (m *MockDevice) Open() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.failure("Open"); !s.OK() {
		return s
	}
	m.opened = true
	return StatusOK
}

// Close implements Device.
func (m *MockDevice) Close() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return StatusHandle
	}
	m.opened = false
	m.grabbing = false
	return m.failure("Close")
}

// StartGrabbing implements Device.
func (m *MockDevice) StartGrabbing() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return StatusHandle
	}
	if s := m.failure("StartGrabbing"); !s.OK() {
		return s
	}
	m.grabbing = true
	return StatusOK
}

// StopGrabbing implements Device.
func (m *MockDevice) StopGrabbing() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.grabbing {
		return StatusCallOrder
	}
	m.grabbing = false
	return m.failure("StopGrabbing")
}

// Grab implements Device.
func (m *MockDevice) Grab(dst *gocv.Mat, _ time.Duration) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return StatusHandle
	}
	if !m.grabbing {
		return StatusCallOrder
	}
	if s := m.failure("Grab"); !s.OK() {
		return s
	}

	n := int(m.grabs.Add(1))
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(64, 64, 64, 0), m.height, m.width, gocv.MatTypeCV8UC3)
	defer frame.Close()

	side := m.height / 8
	if side < 1 {
		side = 1
	}
	span := m.width - side
	if span < 1 {
		span = 1
	}
	x := (n * 8) % span
	y := (m.height - side) / 2
	gocv.Rectangle(&frame, image.Rect(x, y, x+side, y+side), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	frame.CopyTo(dst)
	return StatusOK
}

// SetFloat implements Device. Values outside the range are rejected.
func (m *MockDevice) SetFloat(name FloatParam, value float64) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return StatusHandle
	}
	if s := m.failure("SetFloat"); !s.OK() {
		return s
	}
	r, ok := m.floats[name]
	if !ok {
		return StatusNotSupported
	}
	if value < r.Min || value > r.Max {
		return StatusParam
	}
	r.Current = value
	m.floats[name] = r
	return StatusOK
}

// GetFloat implements Device.
func (m *MockDevice) GetFloat(name FloatParam) (Range, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return Range{}, StatusHandle
	}
	if s := m.failure("GetFloat"); !s.OK() {
		return Range{}, s
	}
	r, ok := m.floats[name]
	if !ok {
		return Range{}, StatusNotSupported
	}
	return r, StatusOK
}

// SetEnum implements Device.
func (m *MockDevice) SetEnum(name EnumParam, value uint32) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return StatusHandle
	}
	if s := m.failure("SetEnum"); !s.OK() {
		return s
	}
	if _, ok := m.enums[name]; !ok {
		return StatusNotSupported
	}
	if !Mode(value).Valid() {
		return StatusParam
	}
	m.enums[name] = value
	return StatusOK
}

// GetEnum implements Device.
func (m *MockDevice) GetEnum(name EnumParam) (uint32, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return 0, StatusHandle
	}
	if s := m.failure("GetEnum"); !s.OK() {
		return 0, s
	}
	v, ok := m.enums[name]
	if !ok {
		return 0, StatusNotSupported
	}
	return v, StatusOK
}
