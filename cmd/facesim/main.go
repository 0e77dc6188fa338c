// facesim is the design simulator: it runs the face arbitration engine at
// the control rate, serves the dashboard, and can loop a scripted
// conversation so designers can watch moods, guardrails and choreography
// without a robot attached.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-reachy-face/internal/config"
	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/convstate"
	"github.com/teslashibe/go-reachy-face/pkg/engine"
	"github.com/teslashibe/go-reachy-face/pkg/face"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
	"github.com/teslashibe/go-reachy-face/pkg/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "err", err)
		return
	}

	port := flag.String("port", cfg.DashboardPort, "dashboard port")
	rateHz := flag.Int("rate", cfg.TickRateHz, "engine tick rate in Hz")
	seed := flag.Int64("seed", 1, "idle autonomy seed")
	script := flag.Bool("script", false, "loop a scripted conversation")
	level := flag.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)

	eng := engine.New(engine.Options{
		Sink:      debugSink{},
		QueueSize: cfg.QueueSize,
		IdleSeed:  *seed,
	})
	srv := web.NewServer(*port, eng)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	rate := time.Second / time.Duration(*rateHz)
	g.Go(func() error {
		return eng.Run(ctx, rate)
	})

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return ctx.Err()
		case err := <-errCh:
			return err
		}
	})

	if *script {
		g.Go(func() error {
			return runScript(ctx, eng)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("simulator exited", "err", err)
	}
}

// runScript loops one full conversation: greet, listen, think, speak with an
// emotion, and wind down. Timings are generous so the choreography is
// visible on the dashboard.
func runScript(ctx context.Context, eng *engine.Engine) error {
	steps := []struct {
		wait time.Duration
		ev   convstate.Event
	}{
		{3 * time.Second, convstate.Event{Type: convstate.EventWakeWord}},
		{3 * time.Second, convstate.Event{Type: convstate.EventEndOfUtterance}},
		{1 * time.Second, convstate.Event{
			Type: convstate.EventAIEmotion, Mood: face.MoodHappy, Intensity: 0.8,
		}},
		{1 * time.Second, convstate.Event{Type: convstate.EventTTSStarted}},
	}

	for {
		for _, step := range steps {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(step.wait):
			}
			eng.Dispatch(step.ev)
		}

		// Speaking: feed talking energy for a couple of seconds, then end
		// the turn.
		talk := time.NewTicker(50 * time.Millisecond)
		deadline := time.After(2 * time.Second)
	talking:
		for energy := uint8(40); ; energy += 13 {
			select {
			case <-ctx.Done():
				talk.Stop()
				return ctx.Err()
			case <-deadline:
				break talking
			case <-talk.C:
				eng.Propose(face.TalkingProposal(face.SourceTalking, true, energy))
			}
		}
		talk.Stop()
		eng.Propose(face.TalkingProposal(face.SourceTalking, false, 0))
		eng.Dispatch(convstate.Event{
			Type: convstate.EventTTSFinished, Reason: convstate.ReasonDone,
		})
	}
}

// debugSink logs outbound commands at debug level; the simulator has no
// physical transport.
type debugSink struct{}

func (debugSink) SetState(c protocol.SetState) {
	log.Debug("cmd set_state", "mood", c.Mood, "intensity", c.Intensity,
		"gx", c.GazeX, "gy", c.GazeY)
}

func (debugSink) Gesture(c protocol.Gesture) {
	log.Debug("cmd gesture", "id", c.ID, "duration_ms", c.DurationMs)
}

func (debugSink) SetFlags(c protocol.SetFlags) {
	log.Debug("cmd set_flags", "flags", c.Flags)
}

func (debugSink) SetConv(c protocol.SetConv) {
	log.Debug("cmd set_conv", "state", c.State)
}

func (debugSink) SetTalking(c protocol.SetTalking) {
	log.Debug("cmd set_talking", "talking", c.Talking, "energy", c.Energy)
}
