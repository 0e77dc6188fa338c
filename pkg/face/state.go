package face

// Gaze is a look target in normalized screen coordinates, x and y in [-1,1].
// (0,0) is straight ahead.
type Gaze struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp returns g with both axes limited to [-1,1].
func (g Gaze) Clamp() Gaze {
	return Gaze{X: clamp1(g.X), Y: clamp1(g.Y)}
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// GazeSpring smooths gaze movement with a critically damped spring so the
// eyes glide to a new target instead of snapping.
type GazeSpring struct {
	Pos Gaze
	vel Gaze

	// Omega is the natural frequency in rad/s. Higher = snappier.
	Omega float64
}

// DefaultGazeOmega gives ~200ms settle, matching the firmware renderer.
const DefaultGazeOmega = 14.0

// NewGazeSpring returns a spring at rest at center.
func NewGazeSpring() *GazeSpring {
	return &GazeSpring{Omega: DefaultGazeOmega}
}

// Step advances the spring toward target by dtMs and returns the new
// position. Semi-implicit Euler with critical damping; stable at both the
// 50 Hz control rate and the 30 Hz render rate.
func (s *GazeSpring) Step(target Gaze, dtMs int) Gaze {
	dt := float64(dtMs) / 1000.0
	target = target.Clamp()

	ax := s.Omega*s.Omega*(target.X-s.Pos.X) - 2*s.Omega*s.vel.X
	ay := s.Omega*s.Omega*(target.Y-s.Pos.Y) - 2*s.Omega*s.vel.Y

	s.vel.X += ax * dt
	s.vel.Y += ay * dt
	s.Pos.X += s.vel.X * dt
	s.Pos.Y += s.vel.Y * dt
	s.Pos = s.Pos.Clamp()
	return s.Pos
}

// Snap moves the spring instantly to pos with zero velocity.
func (s *GazeSpring) Snap(pos Gaze) {
	s.Pos = pos.Clamp()
	s.vel = Gaze{}
}

// State is the resolved, externally visible face snapshot. It is owned by
// the engine tick loop and mutated only at tick boundaries; everyone else
// sees copies.
type State struct {
	Mood      Mood    `json:"mood"`
	Intensity float64 `json:"intensity"`
	Gaze      Gaze    `json:"gaze"`
	Flags     Flags   `json:"flags"`

	Talking bool  `json:"talking"`
	Energy  uint8 `json:"energy"`

	// Brightness is the display brightness, 0-255. The system overlay dims
	// it for low battery and shutdown.
	Brightness uint8 `json:"brightness"`

	Conv ConvState `json:"conv"`
}

// DefaultState is the face at boot: neutral, centered, idle flags, full
// brightness.
func DefaultState() State {
	return State{
		Mood:       MoodNeutral,
		Intensity:  0.3,
		Flags:      IdleDefault,
		Brightness: 255,
		Conv:       ConvIdle,
	}
}
