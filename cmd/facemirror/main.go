// facemirror attaches to a running dashboard and mirrors the face state
// from the wire command stream, logging every change. It is the
// reference consumer for the packed command contract.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-reachy-face/internal/config"
	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/face"
	"github.com/teslashibe/go-reachy-face/pkg/mirror"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "err", err)
		return
	}

	url := flag.String("url", cfg.MirrorURL, "dashboard state websocket URL")
	level := flag.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)

	m := mirror.New(*url)

	// The stream updates every tick; only log when something a viewer
	// would notice changes.
	var last face.State
	m.OnUpdate = func(st face.State) {
		if st.Mood == last.Mood && st.Conv == last.Conv &&
			st.Talking == last.Talking && st.Flags == last.Flags {
			return
		}
		last = st
		log.Info("face",
			"mood", st.Mood.String(),
			"intensity", st.Intensity,
			"conv", st.Conv.String(),
			"talking", st.Talking,
			"flags", uint8(st.Flags),
		)
	}
	m.OnGesture = func(g protocol.Gesture) {
		log.Info("gesture", "id", g.ID, "duration_ms", g.DurationMs)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := m.Run(ctx); err != nil && err != context.Canceled {
		log.Error("mirror exited", "err", err)
	}
}
