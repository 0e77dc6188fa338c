// Package mirror rebuilds a face state from the dashboard command stream.
//
// The mirror is the third execution target sharing the arbitration core's
// wire contract: it applies the same packed commands the firmware decodes,
// so any divergence between what the engine decided and what a remote viewer
// shows is a protocol bug, not a reimplementation drift.
package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/face"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
)

// reconnectWait is the delay between connection attempts.
const reconnectWait = 2 * time.Second

// Mirror maintains a read-only copy of the face state driven entirely by
// decoded wire commands.
type Mirror struct {
	url string

	mu    sync.RWMutex
	state face.State

	// OnGesture, if set, receives decoded gesture commands (they are
	// transient and not part of the state snapshot).
	OnGesture func(protocol.Gesture)

	// OnUpdate, if set, fires after every applied command.
	OnUpdate func(face.State)
}

// New creates a mirror for the given dashboard websocket URL.
func New(url string) *Mirror {
	return &Mirror{url: url, state: face.DefaultState()}
}

// State returns a copy of the mirrored face state.
func (m *Mirror) State() face.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Run connects to the dashboard stream and applies messages until ctx is
// done, reconnecting on failure.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.session(ctx); err != nil {
			log.Warn("mirror: connection lost", "url", m.url, "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectWait):
		}
	}
}

func (m *Mirror) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("mirror connected", "url", m.url)

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("mirror: bad message", "err", err)
			continue
		}
		m.apply(msg)
	}
}

// apply folds one dashboard message into the mirrored state.
func (m *Mirror) apply(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeCommand:
		var cd protocol.CommandData
		if err := msg.ParseData(&cd); err != nil {
			log.Warn("mirror: bad command payload", "err", err)
			return
		}
		m.applyCommand(cd.Raw)

	case protocol.TypeState:
		// Full snapshots resync the mirror after reconnects; commands
		// keep it current between them.
		var st face.State
		if err := msg.ParseData(&st); err != nil {
			log.Warn("mirror: bad state payload", "err", err)
			return
		}
		m.mu.Lock()
		m.state = st
		m.mu.Unlock()
		m.notify()
	}
}

// applyCommand decodes a packed command and folds it into the state,
// exactly as the firmware renderer would.
func (m *Mirror) applyCommand(raw []byte) {
	decoded, err := protocol.Decode(raw)
	if err != nil {
		log.Warn("mirror: undecodable command", "err", err)
		return
	}

	m.mu.Lock()
	switch c := decoded.(type) {
	case protocol.SetState:
		m.state.Mood = face.Mood(c.Mood)
		m.state.Intensity = float64(c.Intensity) / 255
		m.state.Gaze = face.Gaze{X: protocol.GazeFloat(c.GazeX), Y: protocol.GazeFloat(c.GazeY)}
		m.state.Brightness = c.Brightness
	case protocol.SetFlags:
		m.state.Flags = face.Flags(c.Flags)
	case protocol.SetConv:
		m.state.Conv = face.ConvState(c.State)
	case protocol.SetTalking:
		m.state.Talking = c.Talking != 0
		m.state.Energy = c.Energy
	case protocol.Gesture:
		m.mu.Unlock()
		if m.OnGesture != nil {
			m.OnGesture(c)
		}
		return
	}
	m.mu.Unlock()
	m.notify()
}

func (m *Mirror) notify() {
	if m.OnUpdate != nil {
		m.OnUpdate(m.State())
	}
}
