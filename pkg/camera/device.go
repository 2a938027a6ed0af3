package camera

import (
	"time"

	"gocv.io/x/gocv"
)

// FloatParam names a float feature. Names follow GenICam SFNC.
type FloatParam string

// EnumParam names an enumeration feature.
type EnumParam string

const (
	ParamExposureTime FloatParam = "ExposureTime"
	ParamGain         FloatParam = "Gain"
	ParamFrameRate    FloatParam = "AcquisitionFrameRate"

	ParamExposureAuto EnumParam = "ExposureAuto"
	ParamGainAuto     EnumParam = "GainAuto"
)

// Device is the camera collaborator. Implementations wrap a vendor or
// OpenCV handle and report every call as a Status.
type Device interface {
	Open() Status
	Close() Status

	StartGrabbing() Status
	StopGrabbing() Status

	// Grab reads the next frame into dst, waiting at most timeout.
	Grab(dst *gocv.Mat, timeout time.Duration) Status

	SetFloat(name FloatParam, value float64) Status
	GetFloat(name FloatParam) (Range, Status)

	SetEnum(name EnumParam, value uint32) Status
	GetEnum(name EnumParam) (uint32, Status)
}
