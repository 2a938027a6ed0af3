package camera

import (
	"errors"
	"fmt"
)

// Status is a device return code. Values follow the usual machine-vision
// SDK convention: 0 is success, errors have the high bit set.
type Status uint32

// Device status codes.
const (
	StatusOK           Status = 0x00000000
	StatusHandle       Status = 0x80000000 // invalid or closed handle
	StatusNotSupported Status = 0x80000001 // feature not supported by the device
	StatusCallOrder    Status = 0x80000003 // e.g. grab before start
	StatusParam        Status = 0x80000004 // bad parameter value
	StatusNoData       Status = 0x80000007 // no frame within timeout
	StatusUnknown      Status = 0x800000FF
)

// OK reports whether s is StatusOK.
func (s Status) OK() bool { return s == StatusOK }

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusHandle:
		return "invalid handle"
	case StatusNotSupported:
		return "not supported"
	case StatusCallOrder:
		return "call order"
	case StatusParam:
		return "invalid parameter"
	case StatusNoData:
		return "no data"
	default:
		return "unknown"
	}
}

// Sentinel errors for conditions detected before calling the device.
var (
	// ErrInvalidMode is returned for gain/exposure modes outside 0..2.
	ErrInvalidMode = errors.New("camera: mode must be off (0), once (1) or continuous (2)")

	// ErrNotGrabbing is returned by Frame before Start.
	ErrNotGrabbing = errors.New("camera: not grabbing")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("camera: closed")
)

// StatusError is a failed device call.
type StatusError struct {
	// Op names the operation, e.g. "set exposure time".
	Op string

	// Code is the device return code.
	Code Status
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("camera: %s failed (%s). nRet [%x]", e.Op, e.Code, uint32(e.Code))
}

// IsNotSupported reports whether the device lacks the feature.
func (e *StatusError) IsNotSupported() bool {
	return e.Code == StatusNotSupported
}

// IsTimeout reports whether no frame arrived in time.
func (e *StatusError) IsTimeout() bool {
	return e.Code == StatusNoData
}

// check converts a device status into an error.
func check(op string, s Status) error {
	if s.OK() {
		return nil
	}
	return &StatusError{Op: op, Code: s}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code Status) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
