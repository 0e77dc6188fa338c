package face

// GestureID identifies a one-shot gesture animation. Unlike the state
// channels, gestures are FIFO: every accepted gesture plays, in order.
type GestureID uint8

const (
	GestureBlink GestureID = iota
	GestureGreet
	GestureNod
	GestureShake
	GestureFlash
	GestureSparkle

	gestureCount = 6
)

var gestureNames = [gestureCount]string{
	"blink", "greet", "nod", "shake", "flash", "sparkle",
}

func (g GestureID) String() string {
	if int(g) >= gestureCount {
		return "gesture(?)"
	}
	return gestureNames[g]
}

// Valid reports whether g is a defined gesture.
func (g GestureID) Valid() bool {
	return int(g) < gestureCount
}

// Gesture is a queued gesture with its play duration.
type Gesture struct {
	ID         GestureID `json:"id"`
	DurationMs uint16    `json:"duration_ms"`
}

// GestureQueue is a small bounded FIFO. The zero value is not usable; call
// NewGestureQueue.
type GestureQueue struct {
	items []Gesture
	cap   int
}

// NewGestureQueue returns a queue holding at most capacity gestures.
func NewGestureQueue(capacity int) *GestureQueue {
	if capacity <= 0 {
		capacity = 8
	}
	return &GestureQueue{cap: capacity}
}

// Push appends g. Returns ErrQueueFull when the queue is at capacity; the
// gesture is dropped rather than evicting an older one, so queued gestures
// always play in submission order.
func (q *GestureQueue) Push(g Gesture) error {
	if len(q.items) >= q.cap {
		return ErrQueueFull
	}
	q.items = append(q.items, g)
	return nil
}

// Pop removes and returns the oldest gesture.
func (q *GestureQueue) Pop() (Gesture, bool) {
	if len(q.items) == 0 {
		return Gesture{}, false
	}
	g := q.items[0]
	q.items = q.items[1:]
	return g, true
}

// Len returns the number of queued gestures.
func (q *GestureQueue) Len() int {
	return len(q.items)
}
