// Package protocol defines the outbound face command payloads and the JSON
// message envelope for the dashboard stream.
//
// The packed encodings are bit-exact contracts: the firmware renderer, the
// design simulator and the dashboard mirror all decode the same bytes.
// Transport framing (COBS/CRC) is layered elsewhere.
package protocol

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-reachy-face/pkg/face"
)

// CommandID is the first byte of every packed command.
type CommandID uint8

const (
	CmdSetState   CommandID = 0x01
	CmdGesture    CommandID = 0x02
	CmdSetFlags   CommandID = 0x03
	CmdSetConv    CommandID = 0x04
	CmdSetTalking CommandID = 0x05
)

// Payload sizes including the leading CommandID byte.
const (
	SetStateLen   = 6
	GestureLen    = 4
	SetFlagsLen   = 2
	SetConvLen    = 2
	SetTalkingLen = 3
)

// IntensityByte quantizes a [0,1] intensity to u8.
func IntensityByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

// GazeByte quantizes a [-1,1] gaze axis to i8 (-127..127).
func GazeByte(v float64) int8 {
	if v <= -1 {
		return -127
	}
	if v >= 1 {
		return 127
	}
	return int8(math.Round(v * 127))
}

// GazeFloat expands an i8 gaze axis back to [-1,1].
func GazeFloat(v int8) float64 {
	return float64(v) / 127
}

// SetState carries the resolved mood/gaze snapshot. Last-value-wins;
// transmitted only when the quantized payload changes.
type SetState struct {
	Mood       uint8 `json:"mood"`
	Intensity  uint8 `json:"intensity"`
	GazeX      int8  `json:"gaze_x"`
	GazeY      int8  `json:"gaze_y"`
	Brightness uint8 `json:"brightness"`
}

// SetStateFrom quantizes a face snapshot.
func SetStateFrom(s face.State) SetState {
	return SetState{
		Mood:       uint8(s.Mood),
		Intensity:  IntensityByte(s.Intensity),
		GazeX:      GazeByte(s.Gaze.X),
		GazeY:      GazeByte(s.Gaze.Y),
		Brightness: s.Brightness,
	}
}

// Encode packs the command.
func (c SetState) Encode() []byte {
	return []byte{byte(CmdSetState), c.Mood, c.Intensity, byte(c.GazeX), byte(c.GazeY), c.Brightness}
}

// Gesture carries one queued gesture. FIFO; every accepted gesture is
// transmitted.
type Gesture struct {
	ID         uint8  `json:"id"`
	DurationMs uint16 `json:"duration_ms"`
}

// Encode packs the command, duration little-endian.
func (c Gesture) Encode() []byte {
	return []byte{byte(CmdGesture), c.ID, byte(c.DurationMs), byte(c.DurationMs >> 8)}
}

// SetFlags carries the feature bitset.
type SetFlags struct {
	Flags uint8 `json:"flags"`
}

// Encode packs the command.
func (c SetFlags) Encode() []byte {
	return []byte{byte(CmdSetFlags), c.Flags}
}

// SetConv carries the conversation-border state. Emitted on transitions
// only, never per tick.
type SetConv struct {
	State uint8 `json:"state"`
}

// Encode packs the command.
func (c SetConv) Encode() []byte {
	return []byte{byte(CmdSetConv), c.State}
}

// SetTalking carries the talking flag and mouth energy. High rate,
// independent channel.
type SetTalking struct {
	Talking uint8 `json:"talking"`
	Energy  uint8 `json:"energy"`
}

// Encode packs the command.
func (c SetTalking) Encode() []byte {
	return []byte{byte(CmdSetTalking), c.Talking, c.Energy}
}

// Decode parses a packed command back into its payload struct. The mirror
// uses this to rebuild face state from the dashboard stream.
func Decode(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode: empty command")
	}
	switch CommandID(raw[0]) {
	case CmdSetState:
		if len(raw) != SetStateLen {
			return nil, fmt.Errorf("decode set_state: want %d bytes, got %d", SetStateLen, len(raw))
		}
		return SetState{
			Mood: raw[1], Intensity: raw[2],
			GazeX: int8(raw[3]), GazeY: int8(raw[4]), Brightness: raw[5],
		}, nil
	case CmdGesture:
		if len(raw) != GestureLen {
			return nil, fmt.Errorf("decode gesture: want %d bytes, got %d", GestureLen, len(raw))
		}
		return Gesture{ID: raw[1], DurationMs: uint16(raw[2]) | uint16(raw[3])<<8}, nil
	case CmdSetFlags:
		if len(raw) != SetFlagsLen {
			return nil, fmt.Errorf("decode set_flags: want %d bytes, got %d", SetFlagsLen, len(raw))
		}
		return SetFlags{Flags: raw[1]}, nil
	case CmdSetConv:
		if len(raw) != SetConvLen {
			return nil, fmt.Errorf("decode set_conv: want %d bytes, got %d", SetConvLen, len(raw))
		}
		return SetConv{State: raw[1]}, nil
	case CmdSetTalking:
		if len(raw) != SetTalkingLen {
			return nil, fmt.Errorf("decode set_talking: want %d bytes, got %d", SetTalkingLen, len(raw))
		}
		return SetTalking{Talking: raw[1], Energy: raw[2]}, nil
	}
	return nil, fmt.Errorf("decode: unknown command id 0x%02x", raw[0])
}
