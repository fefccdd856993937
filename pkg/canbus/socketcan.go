package canbus

import (
	"context"
	"fmt"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// SocketCAN is a Bus over a Linux SocketCAN interface.
type SocketCAN struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

// DialSocketCAN opens the named CAN interface, e.g. "can0".
func DialSocketCAN(ctx context.Context, iface string) (*SocketCAN, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("canbus: dial %s: %w", iface, err)
	}
	return &SocketCAN{conn: conn, tx: socketcan.NewTransmitter(conn)}, nil
}

func (b *SocketCAN) Drive(ctx context.Context, left, right float64) error {
	return b.transmit(ctx, driveFrame(left, right))
}

func (b *SocketCAN) SetEmotion(ctx context.Context, e Emotion) error {
	frame, err := emotionFrame(e)
	if err != nil {
		return err
	}
	return b.transmit(ctx, frame)
}

func (b *SocketCAN) transmit(ctx context.Context, frame can.Frame) error {
	if err := b.tx.TransmitFrame(ctx, frame); err != nil {
		return fmt.Errorf("canbus: transmit 0x%03X: %w", frame.ID, err)
	}
	return nil
}

func (b *SocketCAN) Close() error {
	return b.conn.Close()
}
