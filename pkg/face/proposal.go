package face

// Proposal is one source's bid for one channel on one tick. Priority is
// carried by Source; the arbiter never inspects call order. Only the fields
// matching Channel are meaningful.
type Proposal struct {
	Source  Source
	Channel Channel

	// ChannelMood
	Mood      Mood
	Intensity float64

	// ChannelGaze
	Gaze Gaze

	// ChannelFlags: mask semantics over the previously resolved byte.
	SetFlags   Flags
	ClearFlags Flags

	// ChannelTalking
	Talking bool
	Energy  uint8

	// ChannelConv
	Conv ConvState
}

// MoodProposal bids for the mood channel.
func MoodProposal(src Source, mood Mood, intensity float64) Proposal {
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return Proposal{Source: src, Channel: ChannelMood, Mood: mood, Intensity: intensity}
}

// GazeProposal bids for the gaze channel.
func GazeProposal(src Source, g Gaze) Proposal {
	return Proposal{Source: src, Channel: ChannelGaze, Gaze: g.Clamp()}
}

// FlagsProposal bids for the flags channel with set/clear masks.
func FlagsProposal(src Source, set, clear Flags) Proposal {
	return Proposal{Source: src, Channel: ChannelFlags, SetFlags: set, ClearFlags: clear}
}

// ConvProposal bids for the conversation-border channel.
func ConvProposal(src Source, c ConvState) Proposal {
	return Proposal{Source: src, Channel: ChannelConv, Conv: c}
}

// TalkingProposal bids for the talking channel.
func TalkingProposal(src Source, talking bool, energy uint8) Proposal {
	return Proposal{Source: src, Channel: ChannelTalking, Talking: talking, Energy: energy}
}
