package convstate

import (
	"testing"

	"github.com/google/uuid"

	"github.com/teslashibe/go-reachy-face/pkg/face"
)

func TestHappyPathSession(t *testing.T) {
	tr := New()

	// Wake word opens the session.
	out := tr.Apply(Event{Type: EventWakeWord})
	if !out.Transitioned || tr.State() != face.ConvAttention {
		t.Fatalf("after wake: %v", tr.State())
	}
	if tr.SessionID() == uuid.Nil {
		t.Error("session id not minted")
	}
	session := tr.SessionID()

	// No follow-up event: attention times out into listening.
	out = tr.Advance(AttentionTimeoutMs)
	if !out.Transitioned || tr.State() != face.ConvListening {
		t.Fatalf("after timeout: %v", tr.State())
	}

	tr.Apply(Event{Type: EventEndOfUtterance})
	if tr.State() != face.ConvThinking {
		t.Fatalf("after end of utterance: %v", tr.State())
	}

	tr.Apply(Event{Type: EventTTSStarted})
	if tr.State() != face.ConvSpeaking {
		t.Fatalf("after tts start: %v", tr.State())
	}

	tr.Apply(Event{Type: EventTTSFinished, Reason: ReasonDone})
	if tr.State() != face.ConvDone {
		t.Fatalf("after tts done: %v", tr.State())
	}
	if tr.SessionID() != session {
		t.Error("session id changed mid-session")
	}

	// Done settles back to idle and the session closes.
	tr.Advance(DoneSettleMs)
	if tr.State() != face.ConvIdle {
		t.Fatalf("after settle: %v", tr.State())
	}
	if tr.SessionID() != uuid.Nil {
		t.Error("session id not cleared in idle")
	}
}

func TestMultiTurnLoopsToListening(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventEndOfUtterance})
	tr.Apply(Event{Type: EventTTSStarted})

	// Any reason other than "done" keeps the session open.
	tr.Apply(Event{Type: EventTTSFinished, Reason: "continue"})
	if tr.State() != face.ConvListening {
		t.Fatalf("multi-turn: %v, want listening", tr.State())
	}
	if tr.SessionID() == uuid.Nil {
		t.Error("session must stay open across turns")
	}
}

func TestAttentionDirectToSpeaking(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})

	// Barge-in TTS with no utterance: straight to speaking.
	tr.Apply(Event{Type: EventTTSStarted})
	if tr.State() != face.ConvSpeaking {
		t.Fatalf("got %v, want speaking", tr.State())
	}
}

func TestPTTHoldToTalk(t *testing.T) {
	tr := New()

	out := tr.Apply(Event{Type: EventButton, Button: ButtonPTT, Action: ButtonPress})
	if !out.Transitioned || tr.State() != face.ConvPTT {
		t.Fatalf("after press: %v", tr.State())
	}
	if tr.SessionID() == uuid.Nil {
		t.Error("ptt press from idle must mint a session")
	}

	// Events other than the release are ignored while held.
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventEndOfUtterance})
	if tr.State() != face.ConvPTT {
		t.Fatalf("ptt must hold: %v", tr.State())
	}

	tr.Apply(Event{Type: EventButton, Button: ButtonPTT, Action: ButtonRelease})
	if tr.State() != face.ConvThinking {
		t.Fatalf("after release: %v, want thinking", tr.State())
	}
}

func TestPTTReleaseWithoutPressIgnored(t *testing.T) {
	tr := New()
	out := tr.Apply(Event{Type: EventButton, Button: ButtonPTT, Action: ButtonRelease})
	if out.Transitioned || tr.State() != face.ConvIdle {
		t.Errorf("stray release moved state: %v", tr.State())
	}
}

func TestActionButtonGreetsFromIdle(t *testing.T) {
	tr := New()
	out := tr.Apply(Event{Type: EventButton, Button: ButtonAction, Action: ButtonClick})
	if tr.State() != face.ConvIdle {
		t.Errorf("greet moved state: %v", tr.State())
	}
	if len(out.Gestures) != 1 || out.Gestures[0].ID != face.GestureGreet {
		t.Errorf("expected a greet gesture, got %+v", out.Gestures)
	}
}

func TestActionButtonKinds(t *testing.T) {
	// Press and click both trigger the action button; release does nothing.
	kinds := []struct {
		action ButtonActionType
		greets bool
	}{
		{ButtonPress, true},
		{ButtonClick, true},
		{ButtonRelease, false},
	}

	for _, k := range kinds {
		tr := New()
		out := tr.Apply(Event{Type: EventButton, Button: ButtonAction, Action: k.action})
		if got := len(out.Gestures) == 1; got != k.greets {
			t.Errorf("action %d: greet = %v, want %v", k.action, got, k.greets)
		}
	}
}

func TestActionButtonCancelsSession(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventEndOfUtterance})

	tr.Apply(Event{Type: EventButton, Button: ButtonAction, Action: ButtonPress})
	if tr.State() != face.ConvDone {
		t.Errorf("action during session: %v, want done", tr.State())
	}
}

func TestEmotionBufferedUntilSpeaking(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Advance(AttentionTimeoutMs)

	// Emotion while the child is talking: buffered, no proposal.
	out := tr.Apply(Event{Type: EventAIEmotion, Mood: face.MoodHappy, Intensity: 0.9})
	if len(out.Proposals) != 0 {
		t.Fatalf("emotion leaked during listening: %+v", out.Proposals)
	}

	// Newest wins in the one-slot buffer.
	tr.Apply(Event{Type: EventAIEmotion, Mood: face.MoodExcited, Intensity: 0.8})

	tr.Apply(Event{Type: EventEndOfUtterance})
	tr.Apply(Event{Type: EventTTSStarted})

	// Released as the speaking mood hint.
	hint := moodOverride(tr)
	if hint == nil {
		t.Fatal("no mood hint while speaking")
	}
	if hint.Mood != face.MoodExcited || hint.Intensity != 0.8 {
		t.Errorf("hint = %v@%v, want excited@0.8 (newest buffered)", hint.Mood, hint.Intensity)
	}
}

func TestEmotionDuringSpeakingReplacesHint(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventTTSStarted})

	out := tr.Apply(Event{Type: EventAIEmotion, Mood: face.MoodScared, Intensity: 0.9})
	if len(out.Proposals) != 0 {
		t.Fatalf("speaking emotion must become the hint, not a one-shot proposal: %+v", out.Proposals)
	}
	hint := moodOverride(tr)
	if hint == nil || hint.Mood != face.MoodScared {
		t.Errorf("hint = %+v, want scared", hint)
	}
}

func TestEmotionPassesThroughInIdle(t *testing.T) {
	tr := New()
	out := tr.Apply(Event{Type: EventAIEmotion, Mood: face.MoodHappy, Intensity: 0.7})
	if len(out.Proposals) != 1 {
		t.Fatalf("expected one proposal, got %+v", out.Proposals)
	}
	p := out.Proposals[0]
	if p.Source != face.SourceAIEmotion || p.Mood != face.MoodHappy || p.Intensity != 0.7 {
		t.Errorf("proposal = %+v", p)
	}
}

func TestClearMoodHint(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventTTSStarted})
	tr.Apply(Event{Type: EventAIEmotion, Mood: face.MoodScared, Intensity: 0.6})

	tr.ClearMoodHint()
	if moodOverride(tr) != nil {
		t.Error("hint survived ClearMoodHint")
	}
}

func TestInvalidEmotionDropped(t *testing.T) {
	tr := New()
	out := tr.Apply(Event{Type: EventAIEmotion, Mood: face.Mood(200), Intensity: 0.5})
	if len(out.Proposals) != 0 || out.Transitioned {
		t.Errorf("invalid mood must be dropped: %+v", out)
	}
}

func TestPlannerEmote(t *testing.T) {
	tr := New()

	out := tr.Apply(Event{Type: EventPlannerEmote, Mood: face.MoodCurious, Intensity: 0.6})
	if len(out.Proposals) != 1 || out.Proposals[0].Source != face.SourcePlanner {
		t.Fatalf("planner mood: %+v", out.Proposals)
	}

	out = tr.Apply(Event{Type: EventPlannerEmote, Gesture: face.GestureNod, HasGesture: true})
	if len(out.Gestures) != 1 || out.Gestures[0].ID != face.GestureNod {
		t.Fatalf("planner gesture: %+v", out.Gestures)
	}

	out = tr.Apply(Event{Type: EventPlannerEmote, Gesture: face.GestureID(99), HasGesture: true})
	if len(out.Gestures) != 0 {
		t.Errorf("unknown gesture must be dropped: %+v", out.Gestures)
	}
}

func TestFaultFromAnyState(t *testing.T) {
	states := []func(tr *Tracker){
		func(tr *Tracker) {}, // idle
		func(tr *Tracker) { tr.Apply(Event{Type: EventWakeWord}) },
		func(tr *Tracker) {
			tr.Apply(Event{Type: EventWakeWord})
			tr.Apply(Event{Type: EventTTSStarted})
		},
	}

	for i, setup := range states {
		tr := New()
		setup(tr)

		out := tr.Apply(Event{Type: EventFault, Fault: "transport"})
		if !out.Fault {
			t.Errorf("case %d: fault not flagged", i)
		}
		if tr.State() != face.ConvError {
			t.Errorf("case %d: state = %v, want error", i, tr.State())
		}
		if len(out.Gestures) != 1 || out.Gestures[0].ID != face.GestureFlash {
			t.Errorf("case %d: expected a flash gesture, got %+v", i, out.Gestures)
		}
	}
}

func TestErrorSettlesThroughDoneToIdle(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventFault, Fault: "tts"})

	tr.Advance(ErrorSettleMs - 100)
	if tr.State() != face.ConvError {
		t.Fatalf("settled early: %v", tr.State())
	}
	tr.Advance(100)
	if tr.State() != face.ConvDone {
		t.Fatalf("after error settle: %v, want done", tr.State())
	}
	tr.Advance(DoneSettleMs)
	if tr.State() != face.ConvIdle {
		t.Fatalf("after done settle: %v, want idle", tr.State())
	}
}

func TestThinkingDeadlineFailsToError(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventEndOfUtterance})

	tr.Advance(ThinkingDeadlineMs - 100)
	if tr.State() != face.ConvThinking {
		t.Fatalf("timed out early: %v", tr.State())
	}
	tr.Advance(100)
	if tr.State() != face.ConvError {
		t.Fatalf("after deadline: %v, want error", tr.State())
	}
}

func TestAIDoneEndsSession(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventAIDone, Reason: ReasonDone})
	if tr.State() != face.ConvDone {
		t.Errorf("got %v, want done", tr.State())
	}

	// In idle there is no session to end.
	tr = New()
	out := tr.Apply(Event{Type: EventAIDone, Reason: ReasonDone})
	if out.Transitioned || tr.State() != face.ConvIdle {
		t.Errorf("ai_done in idle moved state: %v", tr.State())
	}
}

func TestOverridesPerState(t *testing.T) {
	tr := New()

	// Idle: only the border channel, everything else belongs to autonomy.
	ov := tr.Overrides()
	if len(ov) != 1 || ov[0].Channel != face.ChannelConv {
		t.Errorf("idle overrides: %+v", ov)
	}

	tr.Apply(Event{Type: EventWakeWord})
	if !hasGazeOverride(tr, face.Gaze{}) {
		t.Error("attention must lock gaze to center")
	}
	if !parksIdleWander(tr) {
		t.Error("attention must park idle wandering")
	}

	tr.Apply(Event{Type: EventEndOfUtterance})
	if !hasGazeOverride(tr, face.Gaze{X: 0.5, Y: -0.3}) {
		t.Error("thinking must look up-and-aside")
	}
	hint := moodOverride(tr)
	if hint == nil || hint.Mood != face.MoodThinking || hint.Intensity != 0.5 {
		t.Errorf("thinking hint = %+v, want thinking@0.5", hint)
	}

	tr.Apply(Event{Type: EventTTSStarted})
	if !setsFlag(tr, face.FlagShowMouth) {
		t.Error("speaking must raise show_mouth")
	}
}

func TestErrorGazeAvertsBriefly(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventFault, Fault: "x"})

	if !hasGazeOverride(tr, face.Gaze{X: -0.3, Y: 0}) {
		t.Error("error entry must avert the gaze")
	}
	tr.Advance(errorAvertMs)
	if !hasGazeOverride(tr, face.Gaze{}) {
		t.Error("gaze must return to center after the aversion")
	}
}

func TestDoneRestoresFlagsLate(t *testing.T) {
	tr := New()
	tr.Apply(Event{Type: EventWakeWord})
	tr.Apply(Event{Type: EventButton, Button: ButtonAction, Action: ButtonClick})

	// First half of the settle window: no flag restore yet.
	if flagsOverride(tr) != nil {
		t.Error("flags restored too early")
	}
	tr.Advance(DoneSettleMs / 2)
	p := flagsOverride(tr)
	if p == nil || p.SetFlags != face.IdleDefault {
		t.Errorf("late done override = %+v, want idle defaults restored", p)
	}
}

func moodOverride(tr *Tracker) *face.Proposal {
	for _, p := range tr.Overrides() {
		if p.Channel == face.ChannelMood {
			return &p
		}
	}
	return nil
}

func flagsOverride(tr *Tracker) *face.Proposal {
	for _, p := range tr.Overrides() {
		if p.Channel == face.ChannelFlags {
			return &p
		}
	}
	return nil
}

func hasGazeOverride(tr *Tracker, want face.Gaze) bool {
	for _, p := range tr.Overrides() {
		if p.Channel == face.ChannelGaze && p.Gaze == want {
			return true
		}
	}
	return false
}

func parksIdleWander(tr *Tracker) bool {
	p := flagsOverride(tr)
	return p != nil && p.ClearFlags.Has(face.FlagIdleWander)
}

func setsFlag(tr *Tracker, f face.Flags) bool {
	p := flagsOverride(tr)
	return p != nil && p.SetFlags.Has(f)
}
