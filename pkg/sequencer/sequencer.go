// Package sequencer turns accepted mood changes into timed choreography
// instead of instant snaps: an anticipation blink, a ramp-down of the old
// mood, the switch, and a ramp-up of the new mood.
//
// The sequencer is tick-driven with explicit elapsed-ms accounting so the
// same code steps identically at the 50 Hz control rate and the 30 Hz render
// rate, and deterministically in tests.
package sequencer

import "github.com/teslashibe/go-reachy-face/pkg/face"

// Phase is the choreography stage.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAnticipation
	PhaseRampDown
	PhaseSwitch
	PhaseRampUp
)

var phaseNames = []string{"idle", "anticipation", "rampdown", "switch", "rampup"}

func (p Phase) String() string {
	if int(p) >= len(phaseNames) {
		return "phase(?)"
	}
	return phaseNames[p]
}

// Phase durations and the minimum hold between completed switches.
const (
	AnticipationMs = 100
	RampDownMs     = 150
	RampUpMs       = 200
	MinHoldMs      = 500
)

// Output is what the face should show after one Advance.
type Output struct {
	Mood      face.Mood
	Intensity float64

	// Blink is set on the tick the anticipation blink gesture fires.
	Blink bool

	// Switched is set on the tick the displayed mood flipped to the new
	// value.
	Switched bool
}

type pending struct {
	mood      face.Mood
	intensity float64
}

// Sequencer drives one face's mood choreography. Owned by the engine tick
// loop; not safe for concurrent use.
type Sequencer struct {
	phase Phase

	// Displayed values, live-interpolated.
	mood      face.Mood
	intensity float64

	// Transition in flight.
	target     face.Mood
	targetInt  float64
	rampStart  float64 // intensity at ramp-down start
	phaseMs    int
	blinkArmed bool

	// Time since the last completed ramp-up. Seeded past the hold window
	// so the first change after boot applies immediately.
	sinceSwitchMs int

	// One-slot queue for changes arriving inside the hold window. Newest
	// overwrites older.
	queued *pending
}

// New returns a sequencer resting at the given mood.
func New(mood face.Mood, intensity float64) *Sequencer {
	return &Sequencer{
		phase:         PhaseIdle,
		mood:          mood,
		intensity:     intensity,
		target:        mood,
		targetInt:     intensity,
		sinceSwitchMs: MinHoldMs,
	}
}

// Set hands the sequencer a newly accepted mood change.
//
// Same-mood calls only retarget the intensity; the face glides there without
// a blink or switch. A different mood starts (or, if a transition is already
// in flight, restarts) the choreography. A restart picks up from the live
// interpolated intensity so an interrupted fade never dips back to full and
// never jumps.
func (s *Sequencer) Set(mood face.Mood, intensity float64) {
	if mood == s.mood && s.phase == PhaseIdle {
		s.target = mood
		s.targetInt = intensity
		return
	}
	if mood == s.target && s.phase != PhaseIdle {
		// Already heading there; just update the landing intensity.
		s.targetInt = intensity
		return
	}

	if s.phase == PhaseIdle && s.sinceSwitchMs < MinHoldMs {
		s.queued = &pending{mood: mood, intensity: intensity}
		return
	}

	s.begin(mood, intensity)
}

// Preempt cancels any in-flight choreography and queued change and snaps to
// the given mood on the next tick. Reserved for the fault path; everything
// else goes through Set.
func (s *Sequencer) Preempt(mood face.Mood, intensity float64) {
	s.queued = nil
	s.phase = PhaseIdle
	s.mood = mood
	s.intensity = intensity
	s.target = mood
	s.targetInt = intensity
	s.sinceSwitchMs = MinHoldMs
}

// begin starts the anticipation phase from the live intensity.
func (s *Sequencer) begin(mood face.Mood, intensity float64) {
	s.target = mood
	s.targetInt = intensity
	s.rampStart = s.intensity
	s.phase = PhaseAnticipation
	s.phaseMs = 0
	s.blinkArmed = true
}

// Advance steps the choreography by dtMs and returns the displayed values.
func (s *Sequencer) Advance(dtMs int) Output {
	out := Output{}
	s.sinceSwitchMs += dtMs

	if s.blinkArmed {
		out.Blink = true
		s.blinkArmed = false
	}

	// Release the held change once the hold window expires.
	if s.phase == PhaseIdle && s.queued != nil && s.sinceSwitchMs >= MinHoldMs {
		q := *s.queued
		s.queued = nil
		s.begin(q.mood, q.intensity)
		out.Blink = true
		s.blinkArmed = false
	}

	remaining := dtMs
	for s.phase != PhaseIdle && (remaining > 0 || s.phase == PhaseSwitch) {
		switch s.phase {
		case PhaseAnticipation:
			step := min(remaining, AnticipationMs-s.phaseMs)
			s.phaseMs += step
			remaining -= step
			if s.phaseMs >= AnticipationMs {
				s.phase = PhaseRampDown
				s.phaseMs = 0
			}

		case PhaseRampDown:
			step := min(remaining, RampDownMs-s.phaseMs)
			s.phaseMs += step
			remaining -= step
			s.intensity = s.rampStart * (1 - float64(s.phaseMs)/RampDownMs)
			if s.phaseMs >= RampDownMs {
				s.phase = PhaseSwitch
			}

		case PhaseSwitch:
			s.mood = s.target
			s.intensity = 0
			out.Switched = true
			s.phase = PhaseRampUp
			s.phaseMs = 0

		case PhaseRampUp:
			step := min(remaining, RampUpMs-s.phaseMs)
			s.phaseMs += step
			remaining -= step
			s.intensity = s.targetInt * float64(s.phaseMs) / RampUpMs
			if s.phaseMs >= RampUpMs {
				s.intensity = s.targetInt
				s.phase = PhaseIdle
				s.sinceSwitchMs = 0
			}
		}
	}

	// Intensity-only glide while idle, at the ramp-up slope.
	if s.phase == PhaseIdle && s.intensity != s.targetInt {
		step := float64(dtMs) / RampUpMs
		if s.intensity < s.targetInt {
			s.intensity += step
			if s.intensity > s.targetInt {
				s.intensity = s.targetInt
			}
		} else {
			s.intensity -= step
			if s.intensity < s.targetInt {
				s.intensity = s.targetInt
			}
		}
	}

	out.Mood = s.mood
	out.Intensity = s.intensity
	return out
}

// Phase returns the current choreography phase.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Mood returns the currently displayed mood and intensity.
func (s *Sequencer) Mood() (face.Mood, float64) {
	return s.mood, s.intensity
}

// Target returns the mood the sequencer is heading toward.
func (s *Sequencer) Target() (face.Mood, float64) {
	return s.target, s.targetInt
}
