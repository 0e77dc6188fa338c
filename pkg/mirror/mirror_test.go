package mirror

import (
	"testing"

	"github.com/teslashibe/go-reachy-face/pkg/face"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
)

func TestApplyCommandFoldsState(t *testing.T) {
	m := New("ws://unused")

	m.applyCommand(protocol.SetState{
		Mood: uint8(face.MoodHappy), Intensity: 204, GazeX: 25, GazeY: -38, Brightness: 255,
	}.Encode())
	m.applyCommand(protocol.SetFlags{Flags: uint8(face.FlagEdgeGlow | face.FlagShowMouth)}.Encode())
	m.applyCommand(protocol.SetConv{State: uint8(face.ConvSpeaking)}.Encode())
	m.applyCommand(protocol.SetTalking{Talking: 1, Energy: 180}.Encode())

	st := m.State()
	if st.Mood != face.MoodHappy {
		t.Errorf("mood = %v, want happy", st.Mood)
	}
	if d := st.Intensity - 0.8; d > 0.01 || d < -0.01 {
		t.Errorf("intensity = %v, want ~0.8", st.Intensity)
	}
	if d := st.Gaze.X - 0.2; d > 0.01 || d < -0.01 {
		t.Errorf("gaze x = %v, want ~0.2", st.Gaze.X)
	}
	if !st.Flags.Has(face.FlagShowMouth) || st.Flags.Has(face.FlagIdleWander) {
		t.Errorf("flags = %08b", st.Flags)
	}
	if st.Conv != face.ConvSpeaking {
		t.Errorf("conv = %v, want speaking", st.Conv)
	}
	if !st.Talking || st.Energy != 180 {
		t.Errorf("talking = %v energy = %d", st.Talking, st.Energy)
	}
}

func TestGestureCommandsAreTransient(t *testing.T) {
	m := New("ws://unused")

	var got []protocol.Gesture
	m.OnGesture = func(g protocol.Gesture) { got = append(got, g) }

	before := m.State()
	m.applyCommand(protocol.Gesture{ID: uint8(face.GestureNod), DurationMs: 600}.Encode())

	if len(got) != 1 || got[0].ID != uint8(face.GestureNod) || got[0].DurationMs != 600 {
		t.Fatalf("gesture callback = %+v", got)
	}
	if m.State() != before {
		t.Error("gesture must not touch the mirrored state")
	}
}

func TestUndecodableCommandIgnored(t *testing.T) {
	m := New("ws://unused")
	before := m.State()

	m.applyCommand([]byte{0xFF, 0x01})
	m.applyCommand(nil)

	if m.State() != before {
		t.Error("bad command mutated state")
	}
}

func TestStateMessageResyncs(t *testing.T) {
	m := New("ws://unused")

	want := face.DefaultState()
	want.Mood = face.MoodCurious
	want.Intensity = 0.7
	want.Conv = face.ConvListening

	msg, err := protocol.NewMessage(protocol.TypeState, want)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	var updates int
	m.OnUpdate = func(face.State) { updates++ }
	m.apply(msg)

	st := m.State()
	if st.Mood != face.MoodCurious || st.Conv != face.ConvListening {
		t.Errorf("resync state = %+v", st)
	}
	if updates != 1 {
		t.Errorf("updates = %d, want 1", updates)
	}
}

func TestCommandMessageRoundTrip(t *testing.T) {
	m := New("ws://unused")

	raw := protocol.SetConv{State: uint8(face.ConvThinking)}.Encode()
	msg, err := protocol.NewMessage(protocol.TypeCommand, protocol.CommandData{Raw: raw})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	// Through the JSON envelope, as it travels on the wire.
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m.apply(parsed)

	if st := m.State(); st.Conv != face.ConvThinking {
		t.Errorf("conv = %v, want thinking", st.Conv)
	}
}
