// Package web serves the live detection dashboard: a JSON API for status
// and camera parameters plus websocket feeds for annotated frames and
// detections.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-mvision/pkg/api"
	"github.com/teslashibe/go-mvision/pkg/camera"
	"github.com/teslashibe/go-mvision/pkg/detection"
	"github.com/teslashibe/go-mvision/pkg/hub"
	"github.com/teslashibe/go-mvision/pkg/inference"
	"github.com/teslashibe/go-mvision/pkg/pipeline"
)

// Config holds web server configuration.
type Config struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`

	// StaticDir, when set, is served at /.
	StaticDir string `yaml:"static_dir" json:"static_dir"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Addr: ":8080"}
}

// Camera is the subset of camera.Controller the API needs.
type Camera interface {
	Applied() camera.Params
	Update(fields map[string]interface{}) error
}

// Control is the subset of pipeline.Pipeline the API needs.
type Control interface {
	Stats() pipeline.Stats
	Pause()
	Resume()
	Paused() bool
}

// Server is the dashboard server
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	camera  Camera
	control Control
	labels  detection.LabelTable
	started time.Time

	latest   *api.Detections
	latestMu sync.RWMutex

	// Hubs for websocket broadcast
	frameHub     *hub.Hub
	detectionHub *hub.Hub
}

// NewServer creates a dashboard server. cam and control may be nil; the
// matching routes then answer 503.
func NewServer(cfg Config, cam Camera, control Control, labels detection.LabelTable, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "web")

	s := &Server{
		addr:         cfg.Addr,
		logger:       logger,
		camera:       cam,
		control:      control,
		labels:       labels,
		started:      time.Now(),
		frameHub:     hub.New("frames", logger),
		detectionHub: hub.New("detections", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "mvision",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	app.Get(api.PathStatus, s.handleStatus)
	app.Get(api.PathCamera, s.handleGetCamera)
	app.Put(api.PathCamera, s.handleUpdateCamera)
	app.Get(api.PathLabels, s.handleLabels)
	app.Get(api.PathDetections, s.handleDetections)
	app.Post(api.PathPause, s.handlePause)
	app.Post(api.PathResume, s.handleResume)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get(api.PathFramesWS, websocket.New(s.handleFramesWS))
	app.Get(api.PathDetectionsWS, websocket.New(s.handleDetectionsWS))

	s.app = app
	return s
}

// Start runs the hubs and serves until Shutdown. Hubs stop with ctx.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("web dashboard listening", "addr", s.addr)

	go s.frameHub.Run(ctx)
	go s.detectionHub.Run(ctx)

	return s.app.Listen(s.addr)
}

// PublishFrame sends an annotated JPEG to all frame clients.
func (s *Server) PublishFrame(jpeg []byte) {
	s.frameHub.BroadcastJPEG(jpeg)
}

// PublishDetections stores res as the latest result and broadcasts it.
func (s *Server) PublishDetections(seq uint64, res inference.Result) {
	d := &api.Detections{
		Seq:         seq,
		Time:        time.Now(),
		Width:       res.ImageWidth,
		Height:      res.ImageHeight,
		InferenceMS: float64(res.InferenceTime) / float64(time.Millisecond),
		Boxes:       res.Boxes,
	}

	s.latestMu.Lock()
	s.latest = d
	s.latestMu.Unlock()

	if err := s.detectionHub.BroadcastJSON(d); err != nil {
		s.logger.Warn("encode detections", "error", err)
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return s.frameHub.ClientCount() + s.detectionHub.ClientCount()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
