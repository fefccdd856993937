package canbus

import (
	"context"
	"log/slog"
	"sync"

	"go.einride.tech/can"
)

// Stub is a Bus that logs frames instead of transmitting them. It records
// everything it would have sent so tests can assert on the traffic.
type Stub struct {
	log *slog.Logger

	mu     sync.Mutex
	frames []can.Frame
}

// NewStub creates a logging stub bus.
func NewStub(log *slog.Logger) *Stub {
	if log == nil {
		log = slog.Default()
	}
	return &Stub{log: log.With("component", "canbus")}
}

func (b *Stub) Drive(_ context.Context, left, right float64) error {
	frame := driveFrame(left, right)
	b.record(frame)
	b.log.Info("stub drive", "left", int8(frame.Data[0]), "right", int8(frame.Data[1]))
	return nil
}

func (b *Stub) SetEmotion(_ context.Context, e Emotion) error {
	frame, err := emotionFrame(e)
	if err != nil {
		return err
	}
	b.record(frame)
	b.log.Info("stub emotion", "emotion", string(e))
	return nil
}

func (b *Stub) Close() error {
	return nil
}

// Frames returns a copy of everything sent so far.
func (b *Stub) Frames() []can.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]can.Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

func (b *Stub) record(frame can.Frame) {
	b.mu.Lock()
	b.frames = append(b.frames, frame)
	b.mu.Unlock()
}
