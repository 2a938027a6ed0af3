package camera

import (
	"fmt"
	"log/slog"
)

// NewDevice creates an unopened device for the configured backend.
func NewDevice(cfg Config) (Device, error) {
	switch cfg.Backend {
	case BackendOpenCV:
		return NewOpenCVDevice(cfg.Device, cfg.Width, cfg.Height), nil
	case BackendMock:
		return NewMockDevice(cfg.Width, cfg.Height), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %q", cfg.Backend)
	}
}

// Open creates the device, opens it and applies the startup parameters:
// the feature file when configured, cfg.Params otherwise. Failed parameter
// writes are logged; the camera stays usable.
func Open(cfg Config, logger *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("camera config: %w", err)
	}

	dev, err := NewDevice(cfg)
	if err != nil {
		return nil, err
	}

	c := NewController(dev, logger)
	c.SetGrabTimeout(cfg.GrabTimeout)
	if err := c.fail("open device", dev.Open()); err != nil {
		return nil, err
	}

	if cfg.FeatureFile != "" {
		err = c.LoadFeatures(cfg.FeatureFile)
	} else {
		err = c.Apply(cfg.Params)
	}
	if err != nil {
		c.logger.Warn("startup parameters not fully applied", "error", err)
	}

	c.logger.Info("camera opened", "backend", cfg.Backend, "device", cfg.Device)
	return c, nil
}
