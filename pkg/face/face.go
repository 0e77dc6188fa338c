// Package face defines the shared expression model for the Reachy Mini face:
// moods, command sources, output channels, feature flags, gaze, proposals and
// the resolved State snapshot.
//
// This model is the contract shared by the firmware loop, the design
// simulator and the dashboard mirror. It contains no hardware or transport
// calls; everything here is plain data plus a few pure helpers.
package face

import "fmt"

// Mood is one of the 13 discrete expressions the face can show.
type Mood uint8

const (
	MoodNeutral Mood = iota
	MoodHappy
	MoodExcited
	MoodCurious
	MoodLove
	MoodSilly
	MoodSleepy
	MoodThinking
	MoodSurprised
	MoodConfused
	MoodSad
	MoodScared
	MoodAngry

	// MoodCount is the number of valid moods.
	MoodCount = 13
)

var moodNames = [MoodCount]string{
	"neutral", "happy", "excited", "curious", "love", "silly", "sleepy",
	"thinking", "surprised", "confused", "sad", "scared", "angry",
}

// String returns the lowercase mood name.
func (m Mood) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mood(%d)", uint8(m))
	}
	return moodNames[m]
}

// Valid reports whether m is one of the defined moods.
func (m Mood) Valid() bool {
	return m < MoodCount
}

// Negative reports whether m belongs to the negative-affect set that is
// subject to the guardrail context gate.
func (m Mood) Negative() bool {
	switch m {
	case MoodSad, MoodScared, MoodAngry, MoodConfused:
		return true
	}
	return false
}

// ParseMood returns the mood for a lowercase name.
func ParseMood(name string) (Mood, error) {
	for i, n := range moodNames {
		if n == name {
			return Mood(i), nil
		}
	}
	return MoodNeutral, fmt.Errorf("%w: %q", ErrUnknownMood, name)
}

// Source identifies where a proposal came from. Lower value = higher
// priority. The order is total: ties cannot occur.
type Source uint8

const (
	// SourceGuardrail is the internal auto-recovery injector. It exists so
	// a duration-cap recovery beats every upstream source for exactly one
	// transition; external callers must not submit with it.
	SourceGuardrail Source = iota

	// SourceSystem is the system overlay (boot, error, low battery,
	// updating, shutdown).
	SourceSystem

	// SourceTalking is the TTS energy driver.
	SourceTalking

	// SourceConversation is the conversation-phase override emitted by the
	// conversation state tracker.
	SourceConversation

	// SourceAIEmotion is the AI-conversation emotion stream.
	SourceAIEmotion

	// SourcePlanner is the behavior-planner emote/gesture stream.
	SourcePlanner

	// SourceIdle is idle autonomy (wander, ambient blinking).
	SourceIdle

	// SourceCount is the number of sources.
	SourceCount = 7
)

var sourceNames = [SourceCount]string{
	"guardrail", "system", "talking", "conversation", "ai", "planner", "idle",
}

func (s Source) String() string {
	if int(s) >= SourceCount {
		return fmt.Sprintf("source(%d)", uint8(s))
	}
	return sourceNames[s]
}

// Channel is one independently-arbitrated output lane.
type Channel uint8

const (
	ChannelMood Channel = iota
	ChannelGaze
	ChannelFlags
	ChannelConv
	ChannelTalking

	// ChannelCount is the number of channels.
	ChannelCount = 5
)

var channelNames = [ChannelCount]string{"mood", "gaze", "flags", "conv", "talking"}

func (c Channel) String() string {
	if int(c) >= ChannelCount {
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
	return channelNames[c]
}

// Flags is the face feature bitset carried by SET_FLAGS.
type Flags uint8

const (
	FlagIdleWander Flags = 1 << iota
	FlagAutoblink
	FlagSolidEye
	FlagShowMouth
	FlagEdgeGlow
	FlagSparkle
	FlagAfterglow
)

// IdleDefault is the flag set the face returns to between conversations.
const IdleDefault = FlagIdleWander | FlagAutoblink

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Apply returns f with clear bits removed and set bits added, in that order.
func (f Flags) Apply(set, clear Flags) Flags {
	return (f &^ clear) | set
}

// ConvState is the phase of an active spoken interaction.
type ConvState uint8

const (
	ConvIdle ConvState = iota
	ConvAttention
	ConvListening
	ConvPTT
	ConvThinking
	ConvSpeaking
	ConvError
	ConvDone

	// ConvStateCount is the number of conversation states.
	ConvStateCount = 8
)

var convNames = [ConvStateCount]string{
	"idle", "attention", "listening", "ptt", "thinking", "speaking", "error", "done",
}

func (s ConvState) String() string {
	if int(s) >= ConvStateCount {
		return fmt.Sprintf("conv(%d)", uint8(s))
	}
	return convNames[s]
}
