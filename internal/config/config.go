// Package config loads the mvision configuration file.
//
// Files are YAML with ${VAR} expansion; MVISION_* environment variables
// override individual fields after parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/a8m/envsubst"
	"github.com/teslashibe/go-mvision/internal/log"
	"github.com/teslashibe/go-mvision/pkg/camera"
	"github.com/teslashibe/go-mvision/pkg/detection"
	"github.com/teslashibe/go-mvision/pkg/inference"
	"github.com/teslashibe/go-mvision/pkg/pipeline"
	"github.com/teslashibe/go-mvision/pkg/record"
	"github.com/teslashibe/go-mvision/pkg/web"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvModelCfg     = "MVISION_MODEL_CFG"
	EnvModelWeights = "MVISION_MODEL_WEIGHTS"
	EnvLabels       = "MVISION_LABELS"
	EnvThreshold    = "MVISION_THRESHOLD"
	EnvCamera       = "MVISION_CAMERA"
	EnvWebPort      = "MVISION_WEB_PORT"
	EnvLogLevel     = "MVISION_LOG_LEVEL"
)

// DefaultThreshold keeps nearly every candidate, as the car rig did.
const DefaultThreshold = 0.01

// DetectorConfig is the decoder section.
type DetectorConfig struct {
	Threshold   float32 `yaml:"threshold"`
	ScoreOffset int     `yaml:"score_offset"`
	ClassCount  int     `yaml:"class_count"`

	// Labels is the inline label table; LabelsFile, when set, replaces it.
	Labels     []string `yaml:"labels"`
	LabelsFile string   `yaml:"labels_file"`
}

// LogConfig is the logging section.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// FileOptions converts the section for log.InitWithFile.
func (l LogConfig) FileOptions() log.FileOptions {
	return log.FileOptions{
		Path:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		Compress:   l.Compress,
	}
}

// Config is the whole file.
type Config struct {
	Model    inference.Config `yaml:"model"`
	Detector DetectorConfig   `yaml:"detector"`
	Camera   camera.Config    `yaml:"camera"`
	Record   record.Config    `yaml:"record"`
	Pipeline pipeline.Config  `yaml:"pipeline"`
	Web      web.Config       `yaml:"web"`
	Log      LogConfig        `yaml:"log"`
}

// Default returns the built-in configuration: a single-class "car" Darknet
// model read from a local camera.
func Default() Config {
	return Config{
		Model: inference.DefaultConfig(),
		Detector: DetectorConfig{
			Threshold: DefaultThreshold,
			Labels:    []string{"car"},
		},
		Camera:   camera.DefaultConfig(),
		Record:   record.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Web:      web.DefaultConfig(),
		Log:      LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 3},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path uses the defaults only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := envsubst.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Env returns the value of key, or def when unset.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) applyEnv() error {
	c.Model.ConfigPath = Env(EnvModelCfg, c.Model.ConfigPath)
	c.Model.ModelPath = Env(EnvModelWeights, c.Model.ModelPath)
	c.Detector.LabelsFile = Env(EnvLabels, c.Detector.LabelsFile)
	c.Camera.Device = Env(EnvCamera, c.Camera.Device)
	c.Log.Level = Env(EnvLogLevel, c.Log.Level)

	if port := os.Getenv(EnvWebPort); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("config: %s: invalid port %q", EnvWebPort, port)
		}
		c.Web.Addr = ":" + port
	}

	if v := os.Getenv(EnvThreshold); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvThreshold, err)
		}
		c.Detector.Threshold = float32(t)
	}
	return nil
}

// Validate checks every section. Recording and web are checked only when
// enabled.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Model.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("model: %w", err))
	}
	dc := c.DecoderConfig(nil)
	if err := dc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	if err := c.Camera.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	}
	if c.Record.Enabled {
		if err := c.Record.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("record: %w", err))
		}
	}
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		errs = append(errs, errors.New("web: addr is required when enabled"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LoadLabels returns the label table: the file when configured, the inline
// list otherwise.
func (d DetectorConfig) LoadLabels() (detection.LabelTable, error) {
	if d.LabelsFile != "" {
		return detection.LoadLabels(d.LabelsFile)
	}
	return detection.LabelTable(d.Labels), nil
}

// DecoderConfig builds the decoder configuration with the given labels.
func (c *Config) DecoderConfig(labels detection.LabelTable) detection.Config {
	return detection.Config{
		Threshold:   c.Detector.Threshold,
		Labels:      labels,
		ScoreOffset: c.Detector.ScoreOffset,
		ClassCount:  c.Detector.ClassCount,
	}
}
