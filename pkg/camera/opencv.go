package camera

import (
	"strconv"
	"time"

	"gocv.io/x/gocv"
)

// V4L2 encodes manual/auto exposure as 0.25/0.75 through OpenCV.
const (
	cvExposureManual = 0.25
	cvExposureAuto   = 0.75
)

// OpenCVDevice captures through gocv.VideoCapture. OpenCV exposes no
// limits and no gain automation, so ranges carry only Current and GainAuto
// reports StatusNotSupported. Reads block until the driver delivers a
// frame; the timeout is not enforced.
type OpenCVDevice struct {
	source        string
	width, height int

	vc       *gocv.VideoCapture
	grabbing bool
}

// NewOpenCVDevice creates an unopened device. source is a device index
// ("0") or any URL or file OpenCV accepts.
func NewOpenCVDevice(source string, width, height int) *OpenCVDevice {
	return &OpenCVDevice{source: source, width: width, height: height}
}

// Open implements Device.
func (d *OpenCVDevice) Open() Status {
	if d.vc != nil {
		return StatusOK
	}

	var id interface{} = d.source
	if idx, err := strconv.Atoi(d.source); err == nil {
		id = idx
	}
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return StatusHandle
	}
	if !vc.IsOpened() {
		vc.Close()
		return StatusHandle
	}

	if d.width > 0 && d.height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	}
	d.vc = vc
	return StatusOK
}

// Close implements Device.
func (d *OpenCVDevice) Close() Status {
	if d.vc == nil {
		return StatusHandle
	}
	err := d.vc.Close()
	d.vc = nil
	d.grabbing = false
	if err != nil {
		return StatusUnknown
	}
	return StatusOK
}

// StartGrabbing implements Device.
func (d *OpenCVDevice) StartGrabbing() Status {
	if d.vc == nil {
		return StatusHandle
	}
	d.grabbing = true
	return StatusOK
}

// StopGrabbing implements Device.
func (d *OpenCVDevice) StopGrabbing() Status {
	if d.vc == nil {
		return StatusHandle
	}
	d.grabbing = false
	return StatusOK
}

// Grab implements Device.
func (d *OpenCVDevice) Grab(dst *gocv.Mat, _ time.Duration) Status {
	if d.vc == nil {
		return StatusHandle
	}
	if !d.grabbing {
		return StatusCallOrder
	}
	if ok := d.vc.Read(dst); !ok || dst.Empty() {
		return StatusNoData
	}
	return StatusOK
}

func cvFloatProp(name FloatParam) (gocv.VideoCaptureProperties, bool) {
	switch name {
	case ParamExposureTime:
		return gocv.VideoCaptureExposure, true
	case ParamGain:
		return gocv.VideoCaptureGain, true
	case ParamFrameRate:
		return gocv.VideoCaptureFPS, true
	}
	return 0, false
}

// SetFloat implements Device.
func (d *OpenCVDevice) SetFloat(name FloatParam, value float64) Status {
	if d.vc == nil {
		return StatusHandle
	}
	prop, ok := cvFloatProp(name)
	if !ok {
		return StatusNotSupported
	}
	d.vc.Set(prop, value)
	return StatusOK
}

// GetFloat implements Device.
func (d *OpenCVDevice) GetFloat(name FloatParam) (Range, Status) {
	if d.vc == nil {
		return Range{}, StatusHandle
	}
	prop, ok := cvFloatProp(name)
	if !ok {
		return Range{}, StatusNotSupported
	}
	return Range{Current: d.vc.Get(prop)}, StatusOK
}

// SetEnum implements Device. Only ExposureAuto off/continuous map onto
// OpenCV.
func (d *OpenCVDevice) SetEnum(name EnumParam, value uint32) Status {
	if d.vc == nil {
		return StatusHandle
	}
	if name != ParamExposureAuto {
		return StatusNotSupported
	}
	switch Mode(value) {
	case ModeOff:
		d.vc.Set(gocv.VideoCaptureAutoExposure, cvExposureManual)
	case ModeContinuous:
		d.vc.Set(gocv.VideoCaptureAutoExposure, cvExposureAuto)
	case ModeOnce:
		return StatusNotSupported
	default:
		return StatusParam
	}
	return StatusOK
}

// GetEnum implements Device.
func (d *OpenCVDevice) GetEnum(name EnumParam) (uint32, Status) {
	if d.vc == nil {
		return 0, StatusHandle
	}
	if name != ParamExposureAuto {
		return 0, StatusNotSupported
	}
	if d.vc.Get(gocv.VideoCaptureAutoExposure) > 0.5 {
		return uint32(ModeContinuous), StatusOK
	}
	return uint32(ModeOff), StatusOK
}
