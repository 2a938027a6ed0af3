package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-mvision/pkg/api"
	"github.com/teslashibe/go-mvision/pkg/camera"
	"github.com/teslashibe/go-mvision/pkg/hub"
)

// cameraState converts controller params to the wire form.
func cameraState(p camera.Params) api.CameraState {
	return api.CameraState{
		Params: api.CameraParams{
			ExposureTime: p.ExposureTime,
			ExposureMode: p.ExposureMode.String(),
			Gain:         p.Gain,
			GainMode:     p.GainMode.String(),
			FrameRate:    p.FrameRate,
		},
		Presets: camera.PresetNames(),
	}
}

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " not configured",
	})
}

// handleStatus returns pipeline counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := api.Status{
		Clients: s.Clients(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if s.control != nil {
		stats := s.control.Stats()
		st.Frames = stats.Frames
		st.FPS = stats.FPS
		st.LastInferenceMS = float64(stats.LastInference) / float64(time.Millisecond)
		st.LastDetections = stats.LastDetections
		st.Paused = s.control.Paused()
	}
	return c.JSON(st)
}

// handleGetCamera returns the applied camera parameters
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return unavailable(c, "camera")
	}
	return c.JSON(cameraState(s.camera.Applied()))
}

// handleUpdateCamera applies a partial parameter update, e.g.
// {"preset": "lowlight", "frame_rate": 10}
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return unavailable(c, "camera")
	}

	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid body: " + err.Error(),
		})
	}

	if err := s.camera.Update(fields); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.logger.Info("camera parameters updated", "fields", len(fields))
	return s.handleGetCamera(c)
}

// handleLabels returns the class names
func (s *Server) handleLabels(c *fiber.Ctx) error {
	labels := []string(s.labels)
	if labels == nil {
		labels = []string{}
	}
	return c.JSON(labels)
}

// handleDetections returns the most recent detections
func (s *Server) handleDetections(c *fiber.Ctx) error {
	s.latestMu.RLock()
	latest := s.latest
	s.latestMu.RUnlock()

	if latest == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(latest)
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	if s.control == nil {
		return unavailable(c, "pipeline")
	}
	s.control.Pause()
	return c.JSON(api.PauseState{Paused: true})
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	if s.control == nil {
		return unavailable(c, "pipeline")
	}
	s.control.Resume()
	return c.JSON(api.PauseState{Paused: false})
}

// handleFramesWS streams annotated JPEG frames
func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frameHub, c).Run()
}

// handleDetectionsWS streams detections as JSON, starting with the latest
func (s *Server) handleDetectionsWS(c *websocket.Conn) {
	s.latestMu.RLock()
	latest := s.latest
	s.latestMu.RUnlock()

	if latest != nil {
		if err := c.WriteJSON(latest); err != nil {
			return
		}
	}
	hub.NewClient(s.detectionHub, c).Run()
}
