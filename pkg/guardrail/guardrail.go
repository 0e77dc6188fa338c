// Package guardrail enforces the child-safety policy on mood commands:
// negative expressions are gated outside conversations, capped in intensity,
// and capped in duration with an automatic recovery to neutral.
//
// Guardrail actions are policy, not failures. Every adjustment is recorded
// and logged, and the corrected value flows on; upstream sources never see an
// error.
package guardrail

import (
	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/face"
)

// Recovery values injected when a duration cap fires.
const (
	RecoveryMood      = face.MoodNeutral
	RecoveryIntensity = 0.3
)

// intensityCaps holds the per-mood intensity ceilings. Moods absent from the
// map are uncapped (1.0).
var intensityCaps = map[face.Mood]float64{
	face.MoodAngry:     0.5,
	face.MoodScared:    0.6,
	face.MoodSad:       0.7,
	face.MoodSurprised: 0.8,
}

// durationCapsMs holds how long a guarded mood may stay continuously active
// before auto-recovery.
var durationCapsMs = map[face.Mood]int{
	face.MoodSad:       4000,
	face.MoodScared:    2000,
	face.MoodAngry:     2000,
	face.MoodSurprised: 3000,
}

// IntensityCap returns the ceiling for m.
func IntensityCap(m face.Mood) float64 {
	if cap, ok := intensityCaps[m]; ok {
		return cap
	}
	return 1.0
}

// DurationCapMs returns the duration cap for m in milliseconds, or 0 when m
// has no cap.
func DurationCapMs(m face.Mood) int {
	return durationCapsMs[m]
}

// AdjustmentKind classifies a guardrail action.
type AdjustmentKind string

const (
	AdjustContextGate  AdjustmentKind = "context_gate"
	AdjustIntensityCap AdjustmentKind = "intensity_cap"
	AdjustDurationCap  AdjustmentKind = "duration_cap"
)

// Adjustment records one guardrail action for diagnostics and the dashboard.
type Adjustment struct {
	Kind      AdjustmentKind `json:"kind"`
	Requested face.Mood      `json:"requested"`
	ReqLevel  float64        `json:"requested_intensity"`
	Applied   face.Mood      `json:"applied"`
	Level     float64        `json:"applied_intensity"`
	Source    face.Source    `json:"source"`
}

// historyCap bounds the adjustment ring kept for the dashboard.
const historyCap = 64

// Engine is the guardrail state. Owned by the engine tick loop; not safe for
// concurrent use.
type Engine struct {
	timerMood face.Mood
	elapsedMs int

	history []Adjustment
	fresh   []Adjustment
}

// New returns a guardrail engine with an idle timer.
func New() *Engine {
	return &Engine{timerMood: face.MoodNeutral}
}

// Filter applies the context gate and intensity cap to an accepted mood
// proposal and returns the value that may proceed to the sequencer. prevMood
// and prevIntensity are the current committed mood, used as the replacement
// when the gate rejects.
//
// The internal auto-recovery source bypasses filtering: its values are
// synthesized here and already conformant.
func (e *Engine) Filter(p face.Proposal, conv face.ConvState, prevMood face.Mood, prevIntensity float64) (face.Mood, float64) {
	if p.Source == face.SourceGuardrail {
		return p.Mood, p.Intensity
	}

	mood, intensity := p.Mood, p.Intensity

	// Context gate: negative moods need an active conversation. SURPRISED
	// is allowed anywhere but still duration/intensity capped.
	if conv == face.ConvIdle && mood.Negative() {
		e.record(Adjustment{
			Kind: AdjustContextGate, Requested: mood, ReqLevel: intensity,
			Applied: prevMood, Level: prevIntensity, Source: p.Source,
		})
		log.Info("guardrail: context gate rejected mood",
			"mood", mood.String(), "source", p.Source.String())
		return prevMood, prevIntensity
	}

	if cap := IntensityCap(mood); intensity > cap {
		e.record(Adjustment{
			Kind: AdjustIntensityCap, Requested: mood, ReqLevel: intensity,
			Applied: mood, Level: cap, Source: p.Source,
		})
		log.Info("guardrail: intensity capped",
			"mood", mood.String(), "requested", intensity, "cap", cap)
		intensity = cap
	}

	return mood, intensity
}

// Advance drives the duration timer for the currently committed mood. It
// must be called exactly once per tick. When a guarded mood has been
// continuously active for its cap, Advance returns an auto-recovery proposal
// to be injected as the highest-priority mood bid on the next tick.
func (e *Engine) Advance(active face.Mood, dtMs int) (face.Proposal, bool) {
	if active != e.timerMood {
		e.timerMood = active
		e.elapsedMs = 0
	}

	cap := DurationCapMs(active)
	if cap == 0 {
		return face.Proposal{}, false
	}

	e.elapsedMs += dtMs
	if e.elapsedMs < cap {
		return face.Proposal{}, false
	}

	e.record(Adjustment{
		Kind: AdjustDurationCap, Requested: active, ReqLevel: 0,
		Applied: RecoveryMood, Level: RecoveryIntensity, Source: face.SourceGuardrail,
	})
	log.Info("guardrail: duration cap, auto-recovery to neutral",
		"mood", active.String(), "active_ms", e.elapsedMs, "cap_ms", cap)

	// Reset so the recovery itself starts a fresh window if upstream
	// re-proposes the same mood.
	e.timerMood = RecoveryMood
	e.elapsedMs = 0

	return face.MoodProposal(face.SourceGuardrail, RecoveryMood, RecoveryIntensity), true
}

// ActiveMs returns how long the current timer mood has been active.
func (e *Engine) ActiveMs() int {
	return e.elapsedMs
}

// Recent returns a copy of the recorded adjustments, oldest first.
func (e *Engine) Recent() []Adjustment {
	out := make([]Adjustment, len(e.history))
	copy(out, e.history)
	return out
}

// TakeFresh returns the adjustments recorded since the last call.
func (e *Engine) TakeFresh() []Adjustment {
	out := e.fresh
	e.fresh = nil
	return out
}

func (e *Engine) record(a Adjustment) {
	if len(e.history) >= historyCap {
		e.history = e.history[1:]
	}
	e.history = append(e.history, a)
	e.fresh = append(e.fresh, a)
}
