package camera

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFeatures reads a feature file and applies it. Keys missing from the
// file keep their currently applied value.
func (c *Controller) LoadFeatures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load features: %w", err)
	}

	p := c.Applied()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("load features %s: %w", path, err)
	}
	if err := c.Apply(p); err != nil {
		return fmt.Errorf("load features %s: %w", path, err)
	}
	c.logger.Info("features loaded", "path", path)
	return nil
}

// SaveFeatures reads the device state and writes it to path as YAML.
func (c *Controller) SaveFeatures(path string) error {
	p, err := c.Params()
	if err != nil {
		return fmt.Errorf("save features: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("save features: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save features: %w", err)
	}
	c.logger.Info("features saved", "path", path)
	return nil
}
