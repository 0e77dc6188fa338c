package protocol

import (
	"bytes"
	"testing"

	"github.com/teslashibe/go-reachy-face/pkg/face"
)

func TestSetStateEncoding(t *testing.T) {
	c := SetState{Mood: 1, Intensity: 204, GazeX: 25, GazeY: -38, Brightness: 255}
	raw := c.Encode()

	want := []byte{0x01, 0x01, 0xCC, 0x19, 0xDA, 0xFF}
	if !bytes.Equal(raw, want) {
		t.Fatalf("encoded % X, want % X", raw, want)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.(SetState) != c {
		t.Errorf("round trip: %+v != %+v", decoded, c)
	}
}

func TestGestureEncodingLittleEndian(t *testing.T) {
	c := Gesture{ID: 3, DurationMs: 0x0212} // 530 ms
	raw := c.Encode()

	want := []byte{0x02, 0x03, 0x12, 0x02}
	if !bytes.Equal(raw, want) {
		t.Fatalf("encoded % X, want % X", raw, want)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g := decoded.(Gesture); g.DurationMs != 530 {
		t.Errorf("duration = %d, want 530", g.DurationMs)
	}
}

func TestShortCommandEncodings(t *testing.T) {
	cases := []struct {
		raw  []byte
		want []byte
	}{
		{SetFlags{Flags: 0b00010011}.Encode(), []byte{0x03, 0x13}},
		{SetConv{State: 5}.Encode(), []byte{0x04, 0x05}},
		{SetTalking{Talking: 1, Energy: 200}.Encode(), []byte{0x05, 0x01, 0xC8}},
	}
	for i, tc := range cases {
		if !bytes.Equal(tc.raw, tc.want) {
			t.Errorf("case %d: encoded % X, want % X", i, tc.raw, tc.want)
		}
		if _, err := Decode(tc.raw); err != nil {
			t.Errorf("case %d: decode: %v", i, err)
		}
	}
}

func TestIntensityQuantization(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{0, 0}, {-0.5, 0}, {1, 255}, {1.7, 255}, {0.5, 128}, {0.8, 204},
	}
	for _, tc := range cases {
		if got := IntensityByte(tc.in); got != tc.want {
			t.Errorf("IntensityByte(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestGazeQuantization(t *testing.T) {
	cases := []struct {
		in   float64
		want int8
	}{
		{0, 0}, {1, 127}, {-1, -127}, {2, 127}, {-3, -127}, {0.2, 25}, {-0.3, -38},
	}
	for _, tc := range cases {
		if got := GazeByte(tc.in); got != tc.want {
			t.Errorf("GazeByte(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}

	// The expansion stays within quantization error.
	for _, v := range []float64{-1, -0.42, 0, 0.2, 0.99} {
		back := GazeFloat(GazeByte(v))
		if d := back - v; d > 1.0/127 || d < -1.0/127 {
			t.Errorf("round trip %v -> %v drifts more than one step", v, back)
		}
	}
}

func TestSetStateFromSnapshot(t *testing.T) {
	st := face.DefaultState()
	st.Mood = face.MoodHappy
	st.Intensity = 0.8
	st.Gaze = face.Gaze{X: 0.2, Y: -0.3}

	c := SetStateFrom(st)
	if c.Mood != uint8(face.MoodHappy) || c.Intensity != 204 || c.GazeX != 25 || c.GazeY != -38 {
		t.Errorf("quantized snapshot = %+v", c)
	}
	if c.Brightness != 255 {
		t.Errorf("brightness = %d, want 255", c.Brightness)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0x01, 0x00},             // set_state truncated
		{0x02, 0x01, 0x00},       // gesture truncated
		{0x03},                   // set_flags missing payload
		{0xFF, 0x00},             // unknown id
		{0x05, 0x01, 0x02, 0x03}, // set_talking too long
	}
	for i, raw := range cases {
		if _, err := Decode(raw); err == nil {
			t.Errorf("case %d: Decode(% X) accepted malformed input", i, raw)
		}
	}
}

func TestMessageEnvelope(t *testing.T) {
	msg, err := NewMessage(TypeCommand, CommandData{Raw: SetConv{State: 2}.Encode()})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Type != TypeCommand {
		t.Fatalf("type = %v, want command", parsed.Type)
	}

	var cd CommandData
	if err := parsed.ParseData(&cd); err != nil {
		t.Fatalf("parse data: %v", err)
	}
	decoded, err := Decode(cd.Raw)
	if err != nil {
		t.Fatalf("decode nested command: %v", err)
	}
	if decoded.(SetConv).State != 2 {
		t.Errorf("nested command = %+v", decoded)
	}
}
