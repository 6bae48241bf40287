package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/armkit/go-armteleop/pkg/hub"
)

// handleStatus returns the full session view.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleSuppressions returns the safety counters on their own, for
// scripts that only watch the gate.
func (s *Server) handleSuppressions(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.suppressions)
}

// handleLimits returns the immutable session limits.
func (s *Server) handleLimits(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.limits)
}

// handleEStop latches the emergency stop from the dashboard. Always
// answers 202: the latch is asynchronous to the control cycle and
// idempotent, so there is no failure to report.
func (s *Server) handleEStop(c *fiber.Ctx) error {
	if s.OnEStop == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "emergency stop not wired",
		})
	}
	s.logger.Warn("emergency stop requested via dashboard", "ip", c.IP())
	s.OnEStop()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"estop": "latched"})
}

// handleStatusWS streams status envelopes to a dashboard viewer.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}
