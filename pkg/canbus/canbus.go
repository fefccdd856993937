// Package canbus sends actuator commands to the drive controller over CAN.
//
// Two frame types are defined: drive (ID 0x100) carrying signed wheel power
// percentages, and emotion (ID 0x107) carrying the face display state. The
// Bus interface abstracts the transport so the brain can run against the
// real SocketCAN interface or a logging stub on a bench.
package canbus

import (
	"context"
	"fmt"

	"go.einride.tech/can"
)

// CAN arbitration IDs understood by the drive controller firmware.
const (
	driveFrameID   = 0x100
	emotionFrameID = 0x107
)

// Emotion is a face display state.
type Emotion string

const (
	EmotionIdle     Emotion = "idle"
	EmotionHappy    Emotion = "happy"
	EmotionThinking Emotion = "thinking"
	EmotionSad      Emotion = "sad"
	EmotionAngry    Emotion = "angry"
)

// emotionCodes is the wire encoding. The zero value is idle so an
// uninitialized display shows a neutral face.
var emotionCodes = map[Emotion]byte{
	EmotionIdle:     0,
	EmotionHappy:    1,
	EmotionThinking: 2,
	EmotionSad:      3,
	EmotionAngry:    4,
}

// Bus sends actuator frames. Implementations must be safe for concurrent
// use.
type Bus interface {
	// Drive sets wheel power. Values are normalized to [-1, 1] and clamped.
	Drive(ctx context.Context, left, right float64) error
	// SetEmotion switches the face display. Unknown labels are an error; the
	// caller decides whether to skip or abort.
	SetEmotion(ctx context.Context, e Emotion) error
	// Close releases the transport.
	Close() error
}

// driveFrame encodes wheel power as two int8 percentages.
func driveFrame(left, right float64) can.Frame {
	return can.Frame{
		ID:     driveFrameID,
		Length: 2,
		Data:   can.Data{byte(int8(clamp(left) * 100)), byte(int8(clamp(right) * 100))},
	}
}

// emotionFrame encodes a face display state.
func emotionFrame(e Emotion) (can.Frame, error) {
	code, ok := emotionCodes[e]
	if !ok {
		return can.Frame{}, fmt.Errorf("canbus: unknown emotion %q", e)
	}
	return can.Frame{
		ID:     emotionFrameID,
		Length: 1,
		Data:   can.Data{code},
	}, nil
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
