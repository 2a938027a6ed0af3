package camera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Controller wraps a Device: one device call per operation, status checked,
// failures logged and returned as *StatusError.
type Controller struct {
	dev     Device
	logger  *slog.Logger
	timeout time.Duration

	// devMu serializes device calls; OpenCV handles are not thread-safe.
	devMu sync.Mutex

	mu       sync.RWMutex
	params   Params
	grabbing bool
	closed   bool

	// Callback when parameters change (for persisting or broadcasting)
	OnChange func(p Params) error
}

// NewController wraps an already opened device.
func NewController(dev Device, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		dev:     dev,
		logger:  logger.With("component", "camera"),
		timeout: DefaultGrabTimeout,
	}
}

// SetGrabTimeout changes the default Frame timeout. Non-positive values
// restore DefaultGrabTimeout.
func (c *Controller) SetGrabTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultGrabTimeout
	}
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// fail converts s to an error and logs it.
func (c *Controller) fail(op string, s Status) error {
	err := check(op, s)
	if err == nil {
		return nil
	}
	if s == StatusNoData {
		c.logger.Debug("camera call failed", "op", op, "nRet", fmt.Sprintf("%x", uint32(s)))
	} else {
		c.logger.Error("camera call failed", "op", op, "nRet", fmt.Sprintf("%x", uint32(s)), "status", s.String())
	}
	return err
}

func (c *Controller) usable() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Start begins grabbing. Calling Start twice is a no-op.
func (c *Controller) Start() error {
	if err := c.usable(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.grabbing {
		return nil
	}

	c.devMu.Lock()
	s := c.dev.StartGrabbing()
	c.devMu.Unlock()
	if err := c.fail("start grabbing", s); err != nil {
		return err
	}
	c.grabbing = true
	c.logger.Info("grabbing started")
	return nil
}

// Stop ends grabbing. Calling Stop when idle is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.grabbing {
		return nil
	}

	c.devMu.Lock()
	s := c.dev.StopGrabbing()
	c.devMu.Unlock()
	if err := c.fail("stop grabbing", s); err != nil {
		return err
	}
	c.grabbing = false
	c.logger.Info("grabbing stopped")
	return nil
}

// Grabbing reports whether Start has succeeded and Stop has not been called.
func (c *Controller) Grabbing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grabbing
}

// Close stops grabbing and releases the device. Safe to call twice.
func (c *Controller) Close() error {
	if err := c.usable(); err != nil {
		return nil
	}
	stopErr := c.Stop()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.devMu.Lock()
	s := c.dev.Close()
	c.devMu.Unlock()
	return errors.Join(stopErr, c.fail("close device", s))
}

// Frame reads the next image into dst using the default timeout, shortened
// to the context deadline if that comes first.
func (c *Controller) Frame(ctx context.Context, dst *gocv.Mat) error {
	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()
	return c.FrameTimeout(ctx, dst, timeout)
}

// FrameTimeout is Frame with an explicit timeout.
func (c *Controller) FrameTimeout(ctx context.Context, dst *gocv.Mat, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.RLock()
	closed, grabbing := c.closed, c.grabbing
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !grabbing {
		return ErrNotGrabbing
	}

	if deadline, ok := ctx.Deadline(); ok {
		if rem := time.Until(deadline); rem < timeout {
			timeout = rem
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	c.devMu.Lock()
	s := c.dev.Grab(dst, timeout)
	c.devMu.Unlock()
	return c.fail("grab frame", s)
}

func (c *Controller) setFloat(op string, name FloatParam, v float64) error {
	if err := c.usable(); err != nil {
		return err
	}
	c.devMu.Lock()
	s := c.dev.SetFloat(name, v)
	c.devMu.Unlock()
	return c.fail(op, s)
}

func (c *Controller) getFloat(op string, name FloatParam, describe bool) (Range, error) {
	if err := c.usable(); err != nil {
		return Range{}, err
	}
	c.devMu.Lock()
	r, s := c.dev.GetFloat(name)
	c.devMu.Unlock()
	if err := c.fail(op, s); err != nil {
		return Range{}, err
	}
	if describe {
		c.logger.Info(string(name), "current", r.Current, "min", r.Min, "max", r.Max)
	}
	return r, nil
}

func (c *Controller) setMode(op string, name EnumParam, m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%s: %w", op, ErrInvalidMode)
	}
	if err := c.usable(); err != nil {
		return err
	}
	c.devMu.Lock()
	s := c.dev.SetEnum(name, uint32(m))
	c.devMu.Unlock()
	return c.fail(op, s)
}

func (c *Controller) getMode(op string, name EnumParam, describe bool) (Mode, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}
	c.devMu.Lock()
	v, s := c.dev.GetEnum(name)
	c.devMu.Unlock()
	if err := c.fail(op, s); err != nil {
		return 0, err
	}
	m := Mode(v)
	if describe {
		c.logger.Info(string(name), "mode", m.String())
	}
	if !m.Valid() {
		return m, fmt.Errorf("%s: device reported %d: %w", op, v, ErrInvalidMode)
	}
	return m, nil
}

// SetExposureTime sets the manual exposure in microseconds.
func (c *Controller) SetExposureTime(us float64) error {
	return c.setFloat("set exposure time", ParamExposureTime, us)
}

// ExposureTime reads the exposure; describe logs current/min/max.
func (c *Controller) ExposureTime(describe bool) (Range, error) {
	return c.getFloat("get exposure time", ParamExposureTime, describe)
}

// SetGain sets the manual gain in dB.
func (c *Controller) SetGain(db float64) error {
	return c.setFloat("set gain", ParamGain, db)
}

// Gain reads the gain; describe logs current/min/max.
func (c *Controller) Gain(describe bool) (Range, error) {
	return c.getFloat("get gain", ParamGain, describe)
}

// SetFrameRate sets the acquisition frame rate.
func (c *Controller) SetFrameRate(fps float64) error {
	return c.setFloat("set frame rate", ParamFrameRate, fps)
}

// FrameRate reads the frame rate; describe logs current/min/max.
func (c *Controller) FrameRate(describe bool) (Range, error) {
	return c.getFloat("get frame rate", ParamFrameRate, describe)
}

// SetGainMode sets automatic gain control. Modes above 2 are rejected
// without touching the device.
func (c *Controller) SetGainMode(m Mode) error {
	return c.setMode("set gain mode", ParamGainAuto, m)
}

// GainMode reads automatic gain control.
func (c *Controller) GainMode(describe bool) (Mode, error) {
	return c.getMode("get gain mode", ParamGainAuto, describe)
}

// SetExposureMode sets automatic exposure. Modes above 2 are rejected
// without touching the device.
func (c *Controller) SetExposureMode(m Mode) error {
	return c.setMode("set exposure mode", ParamExposureAuto, m)
}

// ExposureMode reads automatic exposure.
func (c *Controller) ExposureMode(describe bool) (Mode, error) {
	return c.getMode("get exposure mode", ParamExposureAuto, describe)
}

// Apply writes p to the device in startup order: gain mode, gain, exposure
// mode, exposure time, frame rate. Manual values are written only when the
// matching mode is off and the value is set. Every step is attempted;
// unsupported features are skipped and the remaining failures are joined.
func (c *Controller) Apply(p Params) error {
	if errs := p.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	var errs []error
	keep := func(err error) {
		if err != nil && !IsStatus(err, StatusNotSupported) {
			errs = append(errs, err)
		}
	}

	keep(c.SetGainMode(p.GainMode))
	if p.GainMode == ModeOff && p.Gain > 0 {
		keep(c.SetGain(p.Gain))
	}
	keep(c.SetExposureMode(p.ExposureMode))
	if p.ExposureMode == ModeOff && p.ExposureTime > 0 {
		keep(c.SetExposureTime(p.ExposureTime))
	}
	if p.FrameRate > 0 {
		keep(c.SetFrameRate(p.FrameRate))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.mu.Lock()
	c.params = p
	callback := c.OnChange
	c.mu.Unlock()

	if callback != nil {
		if err := callback(p); err != nil {
			return fmt.Errorf("failed to apply params: %w", err)
		}
	}
	return nil
}

// Applied returns the parameters of the last successful Apply.
func (c *Controller) Applied() Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// Params reads the current state back from the device. Features the device
// does not support are left at their zero value.
func (c *Controller) Params() (Params, error) {
	var (
		p    Params
		errs []error
	)
	keep := func(err error) bool {
		if err == nil {
			return true
		}
		if !IsStatus(err, StatusNotSupported) {
			errs = append(errs, err)
		}
		return false
	}

	if r, err := c.ExposureTime(false); keep(err) {
		p.ExposureTime = r.Current
	}
	if m, err := c.ExposureMode(false); keep(err) {
		p.ExposureMode = m
	}
	if r, err := c.Gain(false); keep(err) {
		p.Gain = r.Current
	}
	if m, err := c.GainMode(false); keep(err) {
		p.GainMode = m
	}
	if r, err := c.FrameRate(false); keep(err) {
		p.FrameRate = r.Current
	}
	return p, errors.Join(errs...)
}

// Update changes specific parameters. Accepts a map of field names to
// values, as decoded from a JSON request body.
func (c *Controller) Update(fields map[string]interface{}) error {
	p := c.Applied()

	// Check for preset first
	if presetName, ok := fields["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		p = *preset
	}

	for key, value := range fields {
		switch key {
		case "preset":
		case "exposure_time":
			if v, ok := toFloat(value); ok {
				p.ExposureTime = v
			}
		case "gain":
			if v, ok := toFloat(value); ok {
				p.Gain = v
			}
		case "frame_rate":
			if v, ok := toFloat(value); ok {
				p.FrameRate = v
			}
		case "exposure_mode":
			m, err := toMode(value)
			if err != nil {
				return fmt.Errorf("exposure_mode: %w", err)
			}
			p.ExposureMode = m
		case "gain_mode":
			m, err := toMode(value)
			if err != nil {
				return fmt.Errorf("gain_mode: %w", err)
			}
			p.GainMode = m
		default:
			return fmt.Errorf("unknown camera parameter: %s", key)
		}
	}

	return c.Apply(p)
}

// Helper functions for type conversion

func toMode(v interface{}) (Mode, error) {
	if s, ok := v.(string); ok {
		return ParseMode(s)
	}
	i, ok := toInt(v)
	if !ok || i < 0 || !Mode(i).Valid() {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMode, v)
	}
	return Mode(i), nil
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
