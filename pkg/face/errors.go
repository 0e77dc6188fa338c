package face

import "errors"

var (
	// ErrUnknownMood is returned when a mood name or id is not recognized.
	ErrUnknownMood = errors.New("unknown mood")

	// ErrUnknownGesture is returned when a gesture id is not recognized.
	ErrUnknownGesture = errors.New("unknown gesture")

	// ErrQueueFull is returned when the gesture queue cannot accept more.
	ErrQueueFull = errors.New("gesture queue full")
)
