// Package web provides the real-time face dashboard: a REST surface for
// snapshots and guardrail adjustments, plus a websocket mirror stream of
// everything the engine emits.
package web

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/engine"
	"github.com/teslashibe/go-reachy-face/pkg/face"
	"github.com/teslashibe/go-reachy-face/pkg/guardrail"
	"github.com/teslashibe/go-reachy-face/pkg/hub"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
)

// Server is the dashboard server. It observes one engine and mirrors its
// output; it never owns face state.
type Server struct {
	app    *fiber.App
	port   string
	engine *engine.Engine

	stateHub *hub.Hub
}

// NewServer creates a dashboard server bound to an engine.
func NewServer(port string, eng *engine.Engine) *Server {
	s := &Server{
		port:     port,
		engine:   eng,
		stateHub: hub.New("state"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Face Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/adjustments", s.handleAdjustments)
	api.Post("/event", s.handleEvent)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	s.attach(eng)
	return s
}

// attach subscribes to the engine's observer callbacks and republishes them
// on the websocket hub.
func (s *Server) attach(eng *engine.Engine) {
	eng.OnSnapshot(func(st face.State) {
		s.publish(protocol.TypeState, st)
	})
	eng.OnCommand(func(raw []byte) {
		s.publish(protocol.TypeCommand, protocol.CommandData{Raw: raw})
	})
	eng.OnConvChange(func(from, to face.ConvState, session string) {
		s.publish(protocol.TypeConv, protocol.ConvData{
			From: from.String(), To: to.String(), Session: session,
		})
	})
	eng.OnAdjustment(func(a guardrail.Adjustment) {
		s.publish(protocol.TypeAdjustment, a)
	})
}

func (s *Server) publish(t protocol.MessageType, data any) {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		log.Warn("dashboard: encode failed", "type", string(t), "err", err)
		return
	}
	s.stateHub.Broadcast(msg)
}

// Start runs the hub and the HTTP listener. Blocks.
func (s *Server) Start() error {
	go s.stateHub.Run()
	log.Info("dashboard listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the HTTP listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ClientCount returns the number of connected dashboard clients.
func (s *Server) ClientCount() int {
	return s.stateHub.ClientCount()
}

func (s *Server) handleStateWS(c *websocket.Conn) {
	client := hub.NewClient(s.stateHub, c)
	client.OnMessage = func(data []byte) {
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("dashboard: bad inbound message", "err", err)
			return
		}
		if msg.Type != protocol.TypeEvent {
			return
		}
		var ed protocol.EventData
		if err := msg.ParseData(&ed); err != nil {
			log.Warn("dashboard: bad event payload", "err", err)
			return
		}
		if err := s.inject(ed); err != nil {
			log.Warn("dashboard: event rejected", "err", err)
		}
	}
	client.Run()
}

// inject converts a dashboard event payload into a session event and hands
// it to the engine queue.
func (s *Server) inject(ed protocol.EventData) error {
	ev, err := parseEvent(ed)
	if err != nil {
		return fmt.Errorf("parse event %q: %w", ed.Name, err)
	}
	s.engine.Dispatch(ev)
	return nil
}
