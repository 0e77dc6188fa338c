package web

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-reachy-face/pkg/convstate"
	"github.com/teslashibe/go-reachy-face/pkg/face"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
)

// handleState returns the current face snapshot.
func (s *Server) handleState(c *fiber.Ctx) error {
	st := s.engine.Snapshot()
	return c.JSON(fiber.Map{
		"mood":       st.Mood.String(),
		"intensity":  st.Intensity,
		"gaze":       st.Gaze,
		"flags":      uint8(st.Flags),
		"talking":    st.Talking,
		"energy":     st.Energy,
		"brightness": st.Brightness,
		"conv":       st.Conv.String(),
	})
}

// handleAdjustments returns the recent guardrail adjustments.
func (s *Server) handleAdjustments(c *fiber.Ctx) error {
	return c.JSON(s.engine.Adjustments())
}

// handleEvent injects a session event, the simulator's scripted-scenario
// entry point.
func (s *Server) handleEvent(c *fiber.Ctx) error {
	var ed protocol.EventData
	if err := c.BodyParser(&ed); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.inject(ed); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// parseEvent maps the JSON event payload onto a session event.
func parseEvent(ed protocol.EventData) (convstate.Event, error) {
	var ev convstate.Event

	switch ed.Name {
	case "wake_word":
		ev.Type = convstate.EventWakeWord
	case "end_of_utterance":
		ev.Type = convstate.EventEndOfUtterance
	case "tts_started":
		ev.Type = convstate.EventTTSStarted
	case "tts_finished":
		ev.Type = convstate.EventTTSFinished
		ev.Reason = ed.Reason
	case "ai_emotion":
		ev.Type = convstate.EventAIEmotion
		mood, err := face.ParseMood(ed.Mood)
		if err != nil {
			return ev, err
		}
		ev.Mood = mood
		ev.Intensity = ed.Intensity
	case "ai_done":
		ev.Type = convstate.EventAIDone
		ev.Reason = ed.Reason
	case "planner_emote":
		ev.Type = convstate.EventPlannerEmote
		mood, err := face.ParseMood(ed.Mood)
		if err != nil {
			return ev, err
		}
		ev.Mood = mood
		ev.Intensity = ed.Intensity
	case "button":
		ev.Type = convstate.EventButton
		switch ed.Button {
		case "ptt":
			ev.Button = convstate.ButtonPTT
		case "action":
			ev.Button = convstate.ButtonAction
		default:
			return ev, fmt.Errorf("unknown button %q", ed.Button)
		}
		switch ed.Action {
		case "press":
			ev.Action = convstate.ButtonPress
		case "release":
			ev.Action = convstate.ButtonRelease
		case "click":
			ev.Action = convstate.ButtonClick
		default:
			return ev, fmt.Errorf("unknown button action %q", ed.Action)
		}
	case "fault":
		ev.Type = convstate.EventFault
		ev.Fault = ed.Fault
	default:
		return ev, fmt.Errorf("unknown event %q", ed.Name)
	}

	return ev, nil
}
