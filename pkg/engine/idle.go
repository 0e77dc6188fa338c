package engine

import (
	"math/rand"

	"github.com/teslashibe/go-reachy-face/pkg/face"
)

// idleSource is the lowest-priority command source: slow gaze wandering and
// ambient blinks while nothing else is going on. Seeded explicitly so
// simulator runs replay identically.
type idleSource struct {
	rng *rand.Rand

	target    face.Gaze
	shiftInMs int
	blinkInMs int
}

func newIdleSource(seed int64) *idleSource {
	s := &idleSource{rng: rand.New(rand.NewSource(seed))}
	s.shiftInMs = s.nextShift()
	s.blinkInMs = s.nextBlink()
	return s
}

func (s *idleSource) nextShift() int {
	return 1500 + s.rng.Intn(2500)
}

func (s *idleSource) nextBlink() int {
	return 2000 + s.rng.Intn(4000)
}

// tick advances the idle clocks and returns this tick's bids plus whether an
// ambient blink fires.
func (s *idleSource) tick(dtMs int) (gaze face.Gaze, blink bool) {
	s.shiftInMs -= dtMs
	if s.shiftInMs <= 0 {
		// Wander stays inside ±0.6 so the eyes never pin to a corner.
		s.target = face.Gaze{
			X: (s.rng.Float64()*2 - 1) * 0.6,
			Y: (s.rng.Float64()*2 - 1) * 0.6,
		}
		s.shiftInMs = s.nextShift()
	}

	s.blinkInMs -= dtMs
	if s.blinkInMs <= 0 {
		blink = true
		s.blinkInMs = s.nextBlink()
	}

	return s.target, blink
}
