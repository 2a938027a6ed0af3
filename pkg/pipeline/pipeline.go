// Package pipeline runs the detection loop: grab a frame, detect, annotate,
// hand the result to every sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-mvision/pkg/camera"
	"github.com/teslashibe/go-mvision/pkg/inference"
	"github.com/teslashibe/go-mvision/pkg/render"
	"gocv.io/x/gocv"
)

// ErrStop is returned by a sink to end Run without error (e.g. ESC).
var ErrStop = errors.New("pipeline: stop requested")

// idleInterval is how often paused pipelines poll Idler sinks.
const idleInterval = 50 * time.Millisecond

// Source delivers frames. *camera.Controller satisfies it.
type Source interface {
	Frame(ctx context.Context, dst *gocv.Mat) error
}

// Detector finds boxes in a frame. *inference.Detector satisfies it.
type Detector interface {
	Detect(img gocv.Mat) (inference.Result, error)
}

// Frame is one processed image. Image is annotated and only valid for the
// duration of Sink.Consume.
type Frame struct {
	Seq    uint64
	Time   time.Time
	Image  gocv.Mat
	Result inference.Result
}

// Sink consumes processed frames.
type Sink interface {
	Consume(f Frame) error
	Close() error
}

// Idler is implemented by sinks that need polling while paused.
type Idler interface {
	Idle() error
}

// Config holds pipeline configuration.
type Config struct {
	// ShowWindow opens a preview window (ESC exits, space pauses).
	ShowWindow bool   `yaml:"show_window" json:"show_window"`
	WindowName string `yaml:"window_name" json:"window_name"`

	// PublishInterval throttles web frames; 0 publishes every frame.
	PublishInterval time.Duration `yaml:"publish_interval" json:"publish_interval"`

	// JPEGQuality for published frames, 1-100.
	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ShowWindow:      true,
		WindowName:      "Darknet",
		PublishInterval: 100 * time.Millisecond,
		JPEGQuality:     80,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.ShowWindow && c.WindowName == "" {
		return errors.New("window_name is required when show_window is set")
	}
	if c.PublishInterval < 0 {
		return fmt.Errorf("publish_interval must not be negative, got %v", c.PublishInterval)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be 1-100, got %d", c.JPEGQuality)
	}
	return nil
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Frames         uint64        `json:"frames"`
	Timeouts       uint64        `json:"timeouts"`
	FPS            float64       `json:"fps"`
	LastInference  time.Duration `json:"last_inference"`
	LastDetections int           `json:"last_detections"`
	Started        time.Time     `json:"started"`
}

// Pipeline wires a source and a detector to sinks.
type Pipeline struct {
	src    Source
	det    Detector
	style  render.Style
	logger *slog.Logger

	sinksMu sync.Mutex
	sinks   []Sink

	paused atomic.Bool

	statsMu      sync.RWMutex
	stats        Stats
	windowStart  time.Time
	windowFrames int
}

// New creates a pipeline. Sinks can also be added later with AddSink.
func New(src Source, det Detector, logger *slog.Logger, sinks ...Sink) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		src:    src,
		det:    det,
		style:  render.DefaultStyle(),
		logger: logger.With("component", "pipeline"),
		sinks:  sinks,
	}
}

// SetStyle changes the annotation style. Call before Run.
func (p *Pipeline) SetStyle(s render.Style) {
	p.style = s
}

// AddSink appends a sink. Call before Run.
func (p *Pipeline) AddSink(s Sink) {
	p.sinksMu.Lock()
	p.sinks = append(p.sinks, s)
	p.sinksMu.Unlock()
}

// Pause stops grabbing until Resume.
func (p *Pipeline) Pause() {
	if !p.paused.Swap(true) {
		p.logger.Info("paused")
	}
}

// Resume continues after Pause.
func (p *Pipeline) Resume() {
	if p.paused.Swap(false) {
		p.logger.Info("resumed")
	}
}

// TogglePause flips the paused state.
func (p *Pipeline) TogglePause() {
	if p.Paused() {
		p.Resume()
	} else {
		p.Pause()
	}
}

// Paused reports whether the pipeline is paused.
func (p *Pipeline) Paused() bool {
	return p.paused.Load()
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

// Run processes frames until ctx is cancelled, a sink returns ErrStop, or
// the source or detector fails. Grab timeouts are logged and retried.
// Sinks are closed when Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	img := gocv.NewMat()
	defer img.Close()
	defer p.closeSinks()

	now := time.Now()
	p.statsMu.Lock()
	p.stats = Stats{Started: now}
	p.windowStart = now
	p.windowFrames = 0
	p.statsMu.Unlock()

	p.logger.Info("pipeline started")
	defer p.logger.Info("pipeline stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if p.Paused() {
			if err := p.idle(ctx); err != nil {
				return stopped(err)
			}
			continue
		}

		if err := p.src.Frame(ctx, &img); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if transient(err) {
				p.countTimeout()
				p.logger.Debug("grab timed out, retrying", "error", err)
				continue
			}
			return fmt.Errorf("pipeline: grab: %w", err)
		}

		res, err := p.det.Detect(img)
		if err != nil {
			return fmt.Errorf("pipeline: detect: %w", err)
		}

		render.Annotate(&img, res.Boxes, p.style)
		render.DrawTiming(&img, res.InferenceTime, p.style)

		frame := Frame{
			Seq:    p.countFrame(res),
			Time:   time.Now(),
			Image:  img,
			Result: res,
		}
		if err := p.dispatch(frame); err != nil {
			return stopped(err)
		}
	}
}

// transient reports grab failures worth retrying.
func transient(err error) bool {
	return camera.IsStatus(err, camera.StatusNoData) || errors.Is(err, context.DeadlineExceeded)
}

// stopped maps ErrStop to a clean exit.
func stopped(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func (p *Pipeline) dispatch(f Frame) error {
	p.sinksMu.Lock()
	sinks := p.sinks
	p.sinksMu.Unlock()

	for _, s := range sinks {
		if err := s.Consume(f); err != nil {
			if errors.Is(err, ErrStop) {
				return err
			}
			p.logger.Warn("sink failed", "sink", fmt.Sprintf("%T", s), "seq", f.Seq, "error", err)
		}
	}
	return nil
}

func (p *Pipeline) idle(ctx context.Context) error {
	p.sinksMu.Lock()
	sinks := p.sinks
	p.sinksMu.Unlock()

	polled := false
	for _, s := range sinks {
		if idler, ok := s.(Idler); ok {
			polled = true
			if err := idler.Idle(); err != nil {
				return err
			}
		}
	}
	if polled {
		return nil
	}

	select {
	case <-ctx.Done():
	case <-time.After(idleInterval):
	}
	return nil
}

func (p *Pipeline) closeSinks() {
	p.sinksMu.Lock()
	defer p.sinksMu.Unlock()
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			p.logger.Warn("sink close failed", "sink", fmt.Sprintf("%T", s), "error", err)
		}
	}
}

func (p *Pipeline) countFrame(res inference.Result) uint64 {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.stats.Frames++
	p.stats.LastInference = res.InferenceTime
	p.stats.LastDetections = len(res.Boxes)

	p.windowFrames++
	if elapsed := time.Since(p.windowStart); elapsed >= time.Second {
		p.stats.FPS = float64(p.windowFrames) / elapsed.Seconds()
		p.windowStart = time.Now()
		p.windowFrames = 0
	}
	return p.stats.Frames
}

func (p *Pipeline) countTimeout() {
	p.statsMu.Lock()
	p.stats.Timeouts++
	p.statsMu.Unlock()
}
