package convstate

import "github.com/teslashibe/go-reachy-face/pkg/face"

// EventType identifies an inbound session event.
type EventType uint8

const (
	// EventWakeWord fires when the wake word is detected.
	EventWakeWord EventType = iota

	// EventEndOfUtterance fires when the child stops speaking.
	EventEndOfUtterance

	// EventTTSStarted fires when the robot's speech playback begins.
	EventTTSStarted

	// EventTTSFinished fires when playback ends; Reason "done" closes the
	// session, anything else loops back to listening for another turn.
	EventTTSFinished

	// EventAIEmotion carries an emotion impulse from the conversation AI.
	EventAIEmotion

	// EventAIDone signals the AI ended the session.
	EventAIDone

	// EventPlannerEmote carries a behavior-planner emote or gesture.
	EventPlannerEmote

	// EventButton carries a physical button event.
	EventButton

	// EventFault signals a transport or session fault.
	EventFault
)

var eventNames = []string{
	"wake_word", "end_of_utterance", "tts_started", "tts_finished",
	"ai_emotion", "ai_done", "planner_emote", "button", "fault",
}

func (t EventType) String() string {
	if int(t) >= len(eventNames) {
		return "event(?)"
	}
	return eventNames[t]
}

// Button identifies a physical button.
type Button uint8

const (
	ButtonPTT Button = iota
	ButtonAction
)

// ButtonActionType is what happened to the button.
type ButtonActionType uint8

const (
	ButtonPress ButtonActionType = iota
	ButtonRelease
	ButtonClick
)

// Event is one inbound session event. Only the fields matching Type are
// meaningful.
type Event struct {
	Type EventType

	// EventAIEmotion, EventPlannerEmote (mood form)
	Mood      face.Mood
	Intensity float64

	// EventPlannerEmote (gesture form)
	Gesture    face.GestureID
	HasGesture bool

	// EventTTSFinished, EventAIDone
	Reason string

	// EventButton
	Button Button
	Action ButtonActionType

	// EventFault
	Fault string
}

// Critical reports whether the event must survive queue overflow. Faults and
// TTS completion carry session integrity: losing either strands the state
// machine.
func (e Event) Critical() bool {
	return e.Type == EventFault || e.Type == EventTTSFinished
}

// ReasonDone is the tts_finished / ai_done reason that closes the session.
const ReasonDone = "done"
