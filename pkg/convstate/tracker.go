// Package convstate tracks the phase of a spoken interaction through an
// 8-state machine and translates each phase into gaze, flag and mood-hint
// overrides for the arbiter.
//
// The tracker is event-driven with tick-counted timeouts: external session
// events (wake word, end of utterance, TTS lifecycle, buttons, faults) move
// it between states, and a few states advance on elapsed milliseconds alone
// so behavior is deterministic under simulated clocks.
package convstate

import (
	"github.com/google/uuid"

	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/face"
)

// Tick-counted timeouts, in milliseconds.
const (
	// AttentionTimeoutMs moves ATTENTION to LISTENING when no further
	// event arrives.
	AttentionTimeoutMs = 2000

	// ErrorSettleMs is how long the ERROR expression shows before DONE.
	ErrorSettleMs = 1500

	// DoneSettleMs is how long DONE takes to release back to IDLE.
	DoneSettleMs = 500

	// ThinkingDeadlineMs bounds how long THINKING waits for a response
	// before giving up into ERROR.
	ThinkingDeadlineMs = 10000

	// errorAvertMs is the brief gaze aversion at ERROR entry.
	errorAvertMs = 300
)

// Gaze targets used by the override table.
var (
	gazeCenter   = face.Gaze{}
	gazeThinking = face.Gaze{X: 0.5, Y: -0.3}
	gazeAverted  = face.Gaze{X: -0.3, Y: 0}
)

type hint struct {
	mood      face.Mood
	intensity float64
}

// Outcome reports the side effects of applying an event or advancing the
// clock: gestures to enqueue, proposals to submit at their native priority,
// and whether a fault preempted in-flight choreography.
type Outcome struct {
	Transitioned bool
	Gestures     []face.Gesture
	Proposals    []face.Proposal
	Fault        bool
}

// Tracker is the conversation state machine. Owned by the engine tick loop;
// not safe for concurrent use.
type Tracker struct {
	state   face.ConvState
	stateMs int

	session uuid.UUID

	// AI emotion buffered during LISTENING/THINKING, released as the
	// SPEAKING mood hint so emotional expression co-occurs with the
	// robot's own speech.
	buffered *hint
	speaking *hint
}

// New returns a tracker in IDLE.
func New() *Tracker {
	return &Tracker{state: face.ConvIdle}
}

// State returns the current conversation state.
func (t *Tracker) State() face.ConvState {
	return t.state
}

// StateMs returns the elapsed time in the current state.
func (t *Tracker) StateMs() int {
	return t.stateMs
}

// SessionID returns the id of the active session, or uuid.Nil in IDLE.
func (t *Tracker) SessionID() uuid.UUID {
	return t.session
}

// Apply feeds one session event through the transition table.
func (t *Tracker) Apply(ev Event) Outcome {
	var out Outcome

	switch ev.Type {
	case EventFault:
		// Accepted at any point, regardless of state. The flash keeps the
		// preemption visible instead of a silent freeze.
		log.Warn("conversation fault", "kind", ev.Fault, "state", t.state.String())
		out.Gestures = append(out.Gestures, face.Gesture{ID: face.GestureFlash, DurationMs: 200})
		out.Fault = true
		t.transition(face.ConvError, &out)
		return out

	case EventButton:
		return t.applyButton(ev)

	case EventAIEmotion:
		return t.applyEmotion(ev)

	case EventPlannerEmote:
		if ev.HasGesture {
			if !ev.Gesture.Valid() {
				log.Warn("dropping unknown planner gesture", "id", uint8(ev.Gesture))
				return out
			}
			out.Gestures = append(out.Gestures, face.Gesture{ID: ev.Gesture, DurationMs: 600})
			return out
		}
		if !ev.Mood.Valid() {
			log.Warn("dropping unknown planner mood", "id", uint8(ev.Mood))
			return out
		}
		out.Proposals = append(out.Proposals,
			face.MoodProposal(face.SourcePlanner, ev.Mood, ev.Intensity))
		return out

	case EventAIDone:
		if t.state != face.ConvIdle {
			t.transition(face.ConvDone, &out)
		}
		return out
	}

	switch t.state {
	case face.ConvIdle:
		if ev.Type == EventWakeWord {
			t.session = uuid.New()
			t.transition(face.ConvAttention, &out)
		}

	case face.ConvAttention:
		switch ev.Type {
		case EventEndOfUtterance:
			t.transition(face.ConvThinking, &out)
		case EventTTSStarted:
			t.transition(face.ConvSpeaking, &out)
		}

	case face.ConvListening:
		switch ev.Type {
		case EventEndOfUtterance:
			t.transition(face.ConvThinking, &out)
		case EventTTSStarted:
			t.transition(face.ConvSpeaking, &out)
		}

	case face.ConvPTT:
		// Exits via the release button; other events are ignored while held.

	case face.ConvThinking:
		if ev.Type == EventTTSStarted {
			t.transition(face.ConvSpeaking, &out)
		}

	case face.ConvSpeaking:
		if ev.Type == EventTTSFinished {
			if ev.Reason == ReasonDone {
				t.transition(face.ConvDone, &out)
			} else {
				// Multi-turn: loop back for the next utterance.
				t.transition(face.ConvListening, &out)
			}
		}

	case face.ConvError, face.ConvDone:
		// Settle on their own timers; only fault/button/ai events above
		// can still move them.
	}

	return out
}

// applyButton implements the context-gated buttons: ACTION cancels an active
// session but greets from idle; PTT is hold-to-talk.
func (t *Tracker) applyButton(ev Event) Outcome {
	var out Outcome

	switch ev.Button {
	case ButtonAction:
		if ev.Action != ButtonPress && ev.Action != ButtonClick {
			return out
		}
		if t.state == face.ConvIdle {
			out.Gestures = append(out.Gestures, face.Gesture{ID: face.GestureGreet, DurationMs: 800})
			return out
		}
		t.transition(face.ConvDone, &out)

	case ButtonPTT:
		switch ev.Action {
		case ButtonPress:
			if t.state == face.ConvIdle || t.state == face.ConvAttention {
				if t.state == face.ConvIdle {
					t.session = uuid.New()
				}
				t.transition(face.ConvPTT, &out)
			}
		case ButtonRelease:
			if t.state == face.ConvPTT {
				t.transition(face.ConvThinking, &out)
			}
		}
	}

	return out
}

// applyEmotion buffers AI emotion while the child is talking or the robot is
// thinking, and passes it through elsewhere.
func (t *Tracker) applyEmotion(ev Event) Outcome {
	var out Outcome

	if !ev.Mood.Valid() {
		log.Warn("dropping unknown ai mood", "id", uint8(ev.Mood))
		return out
	}

	switch t.state {
	case face.ConvListening, face.ConvThinking:
		// Newest wins; the buffer is one slot deep.
		t.buffered = &hint{mood: ev.Mood, intensity: ev.Intensity}
		log.Debug("buffered ai emotion until speaking", "mood", ev.Mood.String())
	case face.ConvSpeaking:
		// Already speaking: the new emotion replaces the held hint so it
		// is not shadowed by an earlier release.
		t.speaking = &hint{mood: ev.Mood, intensity: ev.Intensity}
	default:
		out.Proposals = append(out.Proposals,
			face.MoodProposal(face.SourceAIEmotion, ev.Mood, ev.Intensity))
	}

	return out
}

// ClearMoodHint drops the held speaking emotion hint. Called when a duration
// cap recovers the mood, so the hint does not re-trigger the capped
// expression on the next tick.
func (t *Tracker) ClearMoodHint() {
	t.speaking = nil
	t.buffered = nil
}

// Advance moves the tick-counted timeouts forward.
func (t *Tracker) Advance(dtMs int) Outcome {
	var out Outcome
	t.stateMs += dtMs

	switch t.state {
	case face.ConvAttention:
		if t.stateMs >= AttentionTimeoutMs {
			t.transition(face.ConvListening, &out)
		}
	case face.ConvThinking:
		if t.stateMs >= ThinkingDeadlineMs {
			log.Warn("response deadline exceeded", "deadline_ms", ThinkingDeadlineMs)
			t.transition(face.ConvError, &out)
		}
	case face.ConvError:
		if t.stateMs >= ErrorSettleMs {
			t.transition(face.ConvDone, &out)
		}
	case face.ConvDone:
		if t.stateMs >= DoneSettleMs {
			t.transition(face.ConvIdle, &out)
		}
	}

	return out
}

// transition performs entry actions for the next state.
func (t *Tracker) transition(next face.ConvState, out *Outcome) {
	if next == t.state {
		return
	}
	prev := t.state
	t.state = next
	t.stateMs = 0
	out.Transitioned = true

	switch next {
	case face.ConvSpeaking:
		// Release the queued emotion exactly here so the expression lands
		// with the robot's own speech.
		t.speaking = t.buffered
		t.buffered = nil
	case face.ConvIdle:
		t.session = uuid.Nil
		t.buffered = nil
		t.speaking = nil
	case face.ConvDone, face.ConvError:
		t.buffered = nil
		if next == face.ConvError {
			t.speaking = nil
		}
	}

	log.Info("conversation state", "from", prev.String(), "to", next.String(),
		"session", t.session.String())
}

// Overrides returns this state's channel overrides, regenerated every tick
// and submitted at conversation priority. The conversation-border channel
// always carries the current state so the renderer's border tracks it.
func (t *Tracker) Overrides() []face.Proposal {
	src := face.SourceConversation
	out := []face.Proposal{face.ConvProposal(src, t.state)}

	// Every non-idle phase owns the gaze and parks idle wandering; the
	// border glow marks an active session.
	sessionFlags := func() face.Proposal {
		return face.FlagsProposal(src, face.FlagEdgeGlow, face.FlagIdleWander)
	}

	switch t.state {
	case face.ConvIdle:
		// Idle autonomy owns the channels.

	case face.ConvAttention, face.ConvListening:
		out = append(out, face.GazeProposal(src, gazeCenter), sessionFlags())
		if t.state == face.ConvListening {
			out = append(out, face.MoodProposal(src, face.MoodNeutral, 0.3))
		}

	case face.ConvPTT:
		out = append(out, face.GazeProposal(src, gazeCenter), sessionFlags())

	case face.ConvThinking:
		out = append(out, face.GazeProposal(src, gazeThinking), sessionFlags(),
			face.MoodProposal(src, face.MoodThinking, 0.5))

	case face.ConvSpeaking:
		out = append(out, face.GazeProposal(src, gazeCenter),
			face.FlagsProposal(src, face.FlagEdgeGlow|face.FlagShowMouth, face.FlagIdleWander))
		if t.speaking != nil {
			out = append(out, face.MoodProposal(src, t.speaking.mood, t.speaking.intensity))
		}

	case face.ConvError:
		g := gazeCenter
		if t.stateMs < errorAvertMs {
			g = gazeAverted
		}
		out = append(out, face.GazeProposal(src, g), sessionFlags())

	case face.ConvDone:
		out = append(out, face.MoodProposal(src, face.MoodNeutral, 0.3))
		if t.stateMs >= DoneSettleMs/2 {
			// Second half of the settle window: hand the flags back.
			out = append(out, face.FlagsProposal(src, face.IdleDefault,
				face.FlagEdgeGlow|face.FlagShowMouth|face.FlagSparkle))
		}
	}

	return out
}
