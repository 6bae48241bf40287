// Package web serves the operator dashboard: session status over REST
// and websocket, plus an out-of-band emergency stop endpoint.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/armkit/go-armteleop/internal/log"
	"github.com/armkit/go-armteleop/pkg/hub"
	"github.com/armkit/go-armteleop/pkg/safety"
	"github.com/armkit/go-armteleop/pkg/teleop"
)

// Status is the full dashboard view of the session.
type Status struct {
	Session      teleop.Snapshot `json:"session"`
	Suppressions safety.Counters `json:"suppressions"`
	Limits       safety.Limits   `json:"limits"`
	Model        string          `json:"model"`
	Viewers      int             `json:"viewers"`
}

// Server is the dashboard server. It never touches the driver: the
// only write path it exposes is the emergency stop callback.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	statusHub *hub.Hub

	mu           sync.RWMutex
	session      teleop.Snapshot
	suppressions safety.Counters
	limits       safety.Limits
	model        string

	// OnEStop fires the loop's emergency stop. Required before Start.
	OnEStop func()
}

// NewServer creates the dashboard server for the given listen address.
func NewServer(addr string, limits safety.Limits, model string) *Server {
	s := &Server{
		addr:      addr,
		logger:    log.Component("web"),
		statusHub: hub.New("status"),
		limits:    limits,
		model:     model,
	}

	app := fiber.New(fiber.Config{
		AppName:               "armteleop dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/suppressions", s.handleSuppressions)
	api.Get("/limits", s.handleLimits)
	api.Post("/estop", s.handleEStop)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the hub and blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", s.addr)
	go s.statusHub.Run()
	return s.app.Listen(s.addr)
}

// StartAsync serves in a goroutine. Dashboard failures never take the
// control loop down.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server failed", "err", err)
		}
	}()
}

// Publish stores the latest cycle's snapshot and counters and fans
// them out to websocket viewers. Called from the loop's notify hook;
// must not block.
func (s *Server) Publish(snap teleop.Snapshot, counters safety.Counters) {
	s.mu.Lock()
	estopChanged := snap.EStopLatched != s.session.EStopLatched
	s.session = snap
	s.suppressions = counters
	s.mu.Unlock()

	if err := s.statusHub.BroadcastEvent(hub.EventStatus, s.status()); err != nil {
		s.logger.Warn("status broadcast failed", "err", err)
	}
	if estopChanged {
		s.statusHub.BroadcastEvent(hub.EventEStop, fiber.Map{"latched": snap.EStopLatched})
	}
}

func (s *Server) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Session:      s.session,
		Suppressions: s.suppressions,
		Limits:       s.limits,
		Model:        s.model,
		Viewers:      s.statusHub.ClientCount(),
	}
}

// Shutdown stops the HTTP server and disconnects viewers.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	return s.app.Shutdown()
}
