// Package speaker plays synthesized speech on the physical audio output.
//
// The output device runs at a fixed hardware rate; Play accepts PCM at
// whatever rate the synthesizer produced and converts it on the way through.
// Playback is pull-based: the device data callback drains an internal byte
// buffer and fills silence when the buffer runs dry, so a slow producer
// causes a gap rather than an underrun error.
package speaker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
	"github.com/chaosbotics/chaos/pkg/audio/resampler"
)

// Config describes the output device.
type Config struct {
	// Rate is the hardware sample rate in Hz.
	Rate int
	// Stereo selects two-channel output. Speech is mono; it is upmixed when
	// the device wants stereo.
	Stereo bool
}

// Player owns the playback device. Safe for use by one Play call at a time.
type Player struct {
	fmt pcm.Format
	log *slog.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	buf    []byte
	closed bool
}

// Open initializes the playback device and starts its data callback. The
// device keeps running between Play calls, emitting silence while idle.
func Open(cfg Config, log *slog.Logger) (*Player, error) {
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("speaker: invalid sample rate %d", cfg.Rate)
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Player{
		fmt: pcm.Format{SampleRate: cfg.Rate, Stereo: cfg.Stereo},
		log: log.With("component", "speaker"),
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("speaker: init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(p.fmt.Channels())
	deviceConfig.SampleRate = uint32(cfg.Rate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			p.fill(output)
		},
	}
	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("speaker: init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("speaker: start playback device: %w", err)
	}

	p.ctx = ctx
	p.device = device
	p.log.Info("playback started", "rate", cfg.Rate, "channels", p.fmt.Channels())
	return p, nil
}

// fill is the device data callback: drain buffered bytes, pad with silence.
func (p *Player) fill(output []byte) {
	p.mu.Lock()
	n := copy(output, p.buf)
	p.buf = p.buf[:copy(p.buf, p.buf[n:])]
	p.mu.Unlock()

	for i := n; i < len(output); i++ {
		output[i] = 0
	}
}

// Play converts the PCM stream from srcFmt to the device format and blocks
// until the audio has been handed to the device, the stream ends, or ctx is
// done. Cancelation discards whatever is still buffered.
func (p *Player) Play(ctx context.Context, src io.Reader, srcFmt pcm.Format) error {
	conv, err := resampler.New(src, srcFmt, p.fmt)
	if err != nil {
		return err
	}
	defer conv.Close()

	chunk := make([]byte, p.fmt.FrameBytes()*p.fmt.SampleRate/10)
	for {
		if err := ctx.Err(); err != nil {
			p.Flush()
			return err
		}
		n, err := conv.Read(chunk)
		if n > 0 {
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				return errors.New("speaker: player closed")
			}
			p.buf = append(p.buf, chunk[:n]...)
			p.mu.Unlock()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("speaker: read source: %w", err)
		}
	}
	return p.drain(ctx)
}

// drain waits for the device callback to consume the buffer.
func (p *Player) drain(ctx context.Context) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		p.mu.Lock()
		pending := len(p.buf)
		p.mu.Unlock()
		if pending == 0 {
			return nil
		}
		select {
		case <-tick.C:
		case <-ctx.Done():
			p.Flush()
			return ctx.Err()
		}
	}
}

// Flush discards buffered audio so the device goes silent immediately.
func (p *Player) Flush() {
	p.mu.Lock()
	p.buf = p.buf[:0]
	p.mu.Unlock()
}

// Close stops the device and releases the audio context.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.buf = nil

	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	if p.ctx != nil {
		p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
	return nil
}
