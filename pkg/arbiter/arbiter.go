// Package arbiter resolves, per tick and per channel, which command source
// wins. Priority is data (the face.Source order), not call order: sources
// submit proposals in any order during a tick and a single Resolve pass picks
// the highest-priority bid for each channel.
//
// Channels are sticky. A channel nobody bids for keeps its previous resolved
// value, and a missing proposal is never an error.
package arbiter

import "github.com/teslashibe/go-reachy-face/pkg/face"

// Resolution is the outcome of one arbitration pass.
//
// For the mood channel the winner is reported but not committed: the
// guardrail engine may still attenuate or reject it. The engine calls
// CommitMood with the post-guardrail value so the sticky "previous mood" is
// always the value that actually reached the sequencer.
type Resolution struct {
	// Mood winner this tick. Fresh is false when no source bid, in which
	// case Mood/Intensity echo the last committed values.
	Mood       face.Mood
	Intensity  float64
	MoodSource face.Source
	MoodFresh  bool

	Gaze        face.Gaze
	GazeChanged bool

	Flags        face.Flags
	FlagsChanged bool

	Talking        bool
	Energy         uint8
	TalkingChanged bool

	Conv        face.ConvState
	ConvChanged bool
}

// Arbiter holds the sticky per-channel resolved values and the bids staged
// for the current tick. Not safe for concurrent use; the engine owns it and
// touches it only inside the tick.
type Arbiter struct {
	pending [face.ChannelCount]*face.Proposal

	mood      face.Mood
	intensity float64
	gaze      face.Gaze
	flags     face.Flags
	talking   bool
	energy    uint8
	conv      face.ConvState
}

// New returns an arbiter seeded with the given resolved state.
func New(initial face.State) *Arbiter {
	return &Arbiter{
		mood:      initial.Mood,
		intensity: initial.Intensity,
		gaze:      initial.Gaze,
		flags:     initial.Flags,
		talking:   initial.Talking,
		energy:    initial.Energy,
		conv:      initial.Conv,
	}
}

// Submit stages a proposal for the current tick. A later submission for the
// same channel wins only if its source outranks the staged one; equal-source
// resubmission replaces (a source has at most one live bid per channel).
func (a *Arbiter) Submit(p face.Proposal) {
	if int(p.Channel) >= face.ChannelCount {
		return
	}
	cur := a.pending[p.Channel]
	if cur == nil || p.Source <= cur.Source {
		cp := p
		a.pending[p.Channel] = &cp
	}
}

// Resolve runs the arbitration pass, updates the sticky values for every
// channel except mood, clears the staged bids, and returns the outcome.
func (a *Arbiter) Resolve() Resolution {
	res := Resolution{
		Mood:      a.mood,
		Intensity: a.intensity,
		Gaze:      a.gaze,
		Flags:     a.flags,
		Talking:   a.talking,
		Energy:    a.energy,
		Conv:      a.conv,
	}

	if p := a.pending[face.ChannelMood]; p != nil {
		res.Mood = p.Mood
		res.Intensity = p.Intensity
		res.MoodSource = p.Source
		res.MoodFresh = true
	}

	if p := a.pending[face.ChannelGaze]; p != nil {
		g := p.Gaze.Clamp()
		res.GazeChanged = g != a.gaze
		res.Gaze = g
		a.gaze = g
	}

	if p := a.pending[face.ChannelFlags]; p != nil {
		f := a.flags.Apply(p.SetFlags, p.ClearFlags)
		res.FlagsChanged = f != a.flags
		res.Flags = f
		a.flags = f
	}

	if p := a.pending[face.ChannelTalking]; p != nil {
		res.TalkingChanged = p.Talking != a.talking || p.Energy != a.energy
		res.Talking = p.Talking
		res.Energy = p.Energy
		a.talking = p.Talking
		a.energy = p.Energy
	}

	if p := a.pending[face.ChannelConv]; p != nil {
		res.ConvChanged = p.Conv != a.conv
		res.Conv = p.Conv
		a.conv = p.Conv
	}

	a.pending = [face.ChannelCount]*face.Proposal{}
	return res
}

// CommitMood records the post-guardrail mood as the sticky resolved value.
func (a *Arbiter) CommitMood(m face.Mood, intensity float64) {
	a.mood = m
	a.intensity = intensity
}

// Mood returns the last committed mood and intensity.
func (a *Arbiter) Mood() (face.Mood, float64) {
	return a.mood, a.intensity
}
