// Package engine owns the face arbitration tick loop. Each tick it drains
// queued session events, collects proposals from every source, runs one
// arbitration pass per channel, filters the mood winner through the
// guardrails, advances the choreography sequencer and the conversation
// tracker, and emits wire commands for channels whose winner changed.
//
// All state is single-owner: nothing is read or written outside Tick, so
// the core needs no locks of its own. The mutex here only guards the
// staging areas producers write into between ticks, and the published
// snapshot readers copy out.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/arbiter"
	"github.com/teslashibe/go-reachy-face/pkg/convstate"
	"github.com/teslashibe/go-reachy-face/pkg/face"
	"github.com/teslashibe/go-reachy-face/pkg/guardrail"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
	"github.com/teslashibe/go-reachy-face/pkg/sequencer"
)

// Sink is the outbound boundary toward rendering/transport. Implementations
// must not block; the engine calls them from inside the tick.
type Sink interface {
	SetState(protocol.SetState)
	Gesture(protocol.Gesture)
	SetFlags(protocol.SetFlags)
	SetConv(protocol.SetConv)
	SetTalking(protocol.SetTalking)
}

// faultMood is the visible error expression used when a fault preempts
// in-flight choreography.
const (
	faultMood      = face.MoodConfused
	faultIntensity = 0.4
)

// Options configures an Engine.
type Options struct {
	// Sink receives outbound commands. Optional.
	Sink Sink

	// QueueSize bounds the session event queue (default 64).
	QueueSize int

	// IdleSeed seeds idle autonomy for replayable runs.
	IdleSeed int64
}

// Engine is the arbitration core shared by firmware, simulator and mirror
// hosts.
type Engine struct {
	mu     sync.Mutex
	queue  *eventQueue
	staged []face.Proposal
	shot   face.State // published snapshot, copied out under mu

	arb   *arbiter.Arbiter
	guard *guardrail.Engine
	seq   *sequencer.Sequencer
	conv  *convstate.Tracker

	state    face.State
	spring   *face.GazeSpring
	gestures *face.GestureQueue
	sink     Sink

	idle    *idleSource
	overlay OverlayMode

	recovery *face.Proposal

	lastConv     face.ConvState
	lastSetState protocol.SetState
	sentSetState bool
	lastTalking  protocol.SetTalking
	sentTalking  bool

	onSnapshot   func(face.State)
	onConv       func(from, to face.ConvState, session string)
	onAdjustment func(guardrail.Adjustment)
	onCommand    func(raw []byte)

	tickCount uint64
}

// New returns an engine at the boot face state.
func New(opts Options) *Engine {
	st := face.DefaultState()
	e := &Engine{
		queue:    newEventQueue(opts.QueueSize),
		arb:      arbiter.New(st),
		guard:    guardrail.New(),
		seq:      sequencer.New(st.Mood, st.Intensity),
		conv:     convstate.New(),
		state:    st,
		shot:     st,
		spring:   face.NewGazeSpring(),
		gestures: face.NewGestureQueue(8),
		sink:     opts.Sink,
		idle:     newIdleSource(opts.IdleSeed),
		lastConv: st.Conv,
	}
	return e
}

// Dispatch enqueues a session event from any goroutine. The event is applied
// at the start of the next tick; events never mutate state mid-tick.
func (e *Engine) Dispatch(ev convstate.Event) {
	e.mu.Lock()
	ok := e.queue.push(ev)
	e.mu.Unlock()
	if !ok {
		log.Warn("event queue full, dropped event", "type", ev.Type.String())
	}
}

// Propose stages one source proposal for the next tick. Unknown moods are
// dropped with a warning and the channel keeps its previous value; the
// internal guardrail source is rejected.
func (e *Engine) Propose(p face.Proposal) {
	if p.Source == face.SourceGuardrail {
		log.Warn("rejecting external proposal on guardrail source")
		return
	}
	if p.Channel == face.ChannelMood && !p.Mood.Valid() {
		log.Warn("dropping proposal with unknown mood", "id", uint8(p.Mood), "source", p.Source.String())
		return
	}
	e.mu.Lock()
	e.staged = append(e.staged, p)
	e.mu.Unlock()
}

// SetOverlay activates a system overlay (boot, error, low battery, updating,
// shutdown). OverlayNone clears it.
func (e *Engine) SetOverlay(m OverlayMode) {
	e.mu.Lock()
	e.overlay = m
	e.mu.Unlock()
	log.Info("system overlay", "mode", m.String())
}

// OnSnapshot registers a per-tick snapshot callback (dashboard broadcast).
func (e *Engine) OnSnapshot(fn func(face.State)) { e.onSnapshot = fn }

// OnConvChange registers a conversation-transition callback.
func (e *Engine) OnConvChange(fn func(from, to face.ConvState, session string)) { e.onConv = fn }

// OnAdjustment registers a guardrail adjustment callback.
func (e *Engine) OnAdjustment(fn func(guardrail.Adjustment)) { e.onAdjustment = fn }

// OnCommand registers a raw wire command callback (mirror stream).
func (e *Engine) OnCommand(fn func(raw []byte)) { e.onCommand = fn }

// Snapshot returns a copy of the last published face state. Safe from any
// goroutine.
func (e *Engine) Snapshot() face.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shot
}

// Adjustments returns a copy of the recent guardrail adjustments.
func (e *Engine) Adjustments() []guardrail.Adjustment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.guard.Recent()
}

// ConvState returns the current conversation state.
func (e *Engine) ConvState() face.ConvState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shot.Conv
}

// Tick advances the engine by dtMs milliseconds. Event drain, arbitration,
// guardrails, sequencing, conversation timeouts and command emission all
// happen here, atomically with respect to producers.
func (e *Engine) Tick(dtMs int) {
	e.mu.Lock()
	events := e.queue.drain()
	staged := e.staged
	e.staged = nil
	overlay := e.overlay
	e.mu.Unlock()

	e.tickCount++

	// 1. Apply queued session events through the conversation tracker.
	fault := false
	for _, ev := range events {
		out := e.conv.Apply(ev)
		e.applyOutcome(out)
		fault = fault || out.Fault
	}

	// 2. Tick-counted conversation timeouts.
	e.applyOutcome(e.conv.Advance(dtMs))

	// 3. A fault preempts in-flight choreography immediately.
	if fault {
		e.seq.Preempt(faultMood, faultIntensity)
		e.arb.CommitMood(faultMood, faultIntensity)
	}

	// 4. Collect this tick's proposals: conversation overrides, external
	// sources, system overlay, idle autonomy, pending auto-recovery.
	for _, p := range e.conv.Overrides() {
		e.arb.Submit(p)
	}
	for _, p := range staged {
		e.arb.Submit(p)
	}
	if overlay != OverlayNone {
		for _, p := range overlay.proposals() {
			e.arb.Submit(p)
		}
	}
	if e.conv.State() == face.ConvIdle && e.state.Flags.Has(face.FlagIdleWander) && overlay == OverlayNone {
		gaze, blink := e.idle.tick(dtMs)
		e.arb.Submit(face.GazeProposal(face.SourceIdle, gaze))
		if blink && e.state.Flags.Has(face.FlagAutoblink) {
			e.pushGesture(face.Gesture{ID: face.GestureBlink, DurationMs: 150})
		}
	}
	if e.recovery != nil {
		e.arb.Submit(*e.recovery)
		e.recovery = nil
		// Without this the speaking hint would re-propose the capped mood
		// next tick and the recovery would never land.
		e.conv.ClearMoodHint()
	}

	// 5. One arbitration pass per channel.
	res := e.arb.Resolve()

	// 6. Guardrails on the mood winner, then hand it to the sequencer.
	if res.MoodFresh {
		prevMood, prevInt := e.arb.Mood()
		mood, intensity := e.guard.Filter(
			face.Proposal{Source: res.MoodSource, Channel: face.ChannelMood, Mood: res.Mood, Intensity: res.Intensity},
			e.conv.State(), prevMood, prevInt,
		)
		e.seq.Set(mood, intensity)
		e.arb.CommitMood(mood, intensity)
	}

	// 7. Duration caps run against the committed target, not the
	// interpolated display value.
	targetMood, _ := e.arb.Mood()
	if rec, ok := e.guard.Advance(targetMood, dtMs); ok {
		e.recovery = &rec
	}

	// 8. Advance choreography and the gaze spring.
	out := e.seq.Advance(dtMs)
	if out.Blink {
		e.pushGesture(face.Gesture{ID: face.GestureBlink, DurationMs: 150})
	}
	e.state.Mood = out.Mood
	e.state.Intensity = out.Intensity
	e.state.Gaze = e.spring.Step(res.Gaze, dtMs)
	e.state.Flags = res.Flags
	e.state.Talking = res.Talking
	e.state.Energy = res.Energy
	e.state.Conv = e.conv.State()
	e.state.Brightness = overlay.brightness()

	// 9. Emit commands for changed channels and publish the snapshot.
	e.emit(res)
	e.publish()
}

// applyOutcome routes tracker side effects: gestures to the FIFO, proposals
// to the arbiter.
func (e *Engine) applyOutcome(out convstate.Outcome) {
	for _, g := range out.Gestures {
		e.pushGesture(g)
	}
	for _, p := range out.Proposals {
		e.arb.Submit(p)
	}
}

func (e *Engine) pushGesture(g face.Gesture) {
	if err := e.gestures.Push(g); err != nil {
		log.Warn("gesture dropped", "gesture", g.ID.String(), "err", err)
	}
}

// emit sends wire commands. State-class channels transmit only when the
// arbiter reports a change (or the quantized payload moved); gestures are
// FIFO and always transmit.
func (e *Engine) emit(res arbiter.Resolution) {
	// SET_CONV_STATE: transitions only, never per tick.
	if e.state.Conv != e.lastConv {
		from := e.lastConv
		e.lastConv = e.state.Conv
		cmd := protocol.SetConv{State: uint8(e.state.Conv)}
		if e.sink != nil {
			e.sink.SetConv(cmd)
		}
		e.notifyCommand(cmd.Encode())
		if e.onConv != nil {
			e.onConv(from, e.state.Conv, e.conv.SessionID().String())
		}
	}

	if res.FlagsChanged || e.tickCount == 1 {
		cmd := protocol.SetFlags{Flags: uint8(e.state.Flags)}
		if e.sink != nil {
			e.sink.SetFlags(cmd)
		}
		e.notifyCommand(cmd.Encode())
	}

	// SET_TALKING: independent high-rate channel, deduped on value.
	talk := protocol.SetTalking{Energy: e.state.Energy}
	if e.state.Talking {
		talk.Talking = 1
	}
	if !e.sentTalking || talk != e.lastTalking {
		e.sentTalking = true
		e.lastTalking = talk
		if e.sink != nil {
			e.sink.SetTalking(talk)
		}
		e.notifyCommand(talk.Encode())
	}

	// GESTURE: drain the FIFO in order.
	for {
		g, ok := e.gestures.Pop()
		if !ok {
			break
		}
		cmd := protocol.Gesture{ID: uint8(g.ID), DurationMs: g.DurationMs}
		if e.sink != nil {
			e.sink.Gesture(cmd)
		}
		e.notifyCommand(cmd.Encode())
	}

	// SET_STATE: deduped on the quantized payload so ramps transmit every
	// tick but a resting face stays quiet.
	st := protocol.SetStateFrom(e.state)
	if !e.sentSetState || st != e.lastSetState {
		e.sentSetState = true
		e.lastSetState = st
		if e.sink != nil {
			e.sink.SetState(st)
		}
		e.notifyCommand(st.Encode())
	}
}

func (e *Engine) notifyCommand(raw []byte) {
	if e.onCommand != nil {
		e.onCommand(raw)
	}
}

// publish copies the state out for cross-goroutine readers and fires the
// snapshot/adjustment callbacks.
func (e *Engine) publish() {
	e.mu.Lock()
	e.shot = e.state
	e.mu.Unlock()

	if e.onSnapshot != nil {
		e.onSnapshot(e.state)
	}
	if e.onAdjustment != nil {
		for _, a := range e.guard.TakeFresh() {
			e.onAdjustment(a)
		}
	}
}

// Run drives Tick at the given rate until ctx is done. Hosts that own their
// own loop (firmware, tests) call Tick directly instead.
func (e *Engine) Run(ctx context.Context, rate time.Duration) error {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	dtMs := int(rate / time.Millisecond)
	log.Info("face engine running", "rate", rate.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("face engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.Tick(dtMs)
		}
	}
}
