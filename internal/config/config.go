// Package config provides environment-driven configuration for the face
// engine hosts.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Engine holds the tunables shared by the simulator and mirror hosts.
type Engine struct {
	// TickRateHz is the engine tick rate. The control host runs 50, the
	// render target 30; both step the same core.
	TickRateHz int `env:"FACE_TICK_HZ" envDefault:"50"`

	// QueueSize bounds the inbound session event queue.
	QueueSize int `env:"FACE_QUEUE_SIZE" envDefault:"64"`

	// DashboardPort is the HTTP/WebSocket dashboard port.
	DashboardPort string `env:"FACE_DASHBOARD_PORT" envDefault:"8090"`

	// MirrorURL is the dashboard websocket a mirror client attaches to.
	MirrorURL string `env:"FACE_MIRROR_URL" envDefault:"ws://127.0.0.1:8090/ws/state"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"FACE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the engine configuration from the environment.
func Load() (Engine, error) {
	var cfg Engine
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse engine config: %w", err)
	}
	if cfg.TickRateHz <= 0 {
		return cfg, fmt.Errorf("invalid FACE_TICK_HZ: %d", cfg.TickRateHz)
	}
	return cfg, nil
}
