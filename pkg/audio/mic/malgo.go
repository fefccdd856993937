package mic

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// DeviceConfig selects and configures the physical capture device.
type DeviceConfig struct {
	// Index selects the capture device from the enumerated list; -1 uses the
	// system default.
	Index int
	// Rate is the hardware sample rate in Hz.
	Rate int
	// BlockSamples is the number of frames per data callback.
	BlockSamples int
}

// Device is a Source backed by a miniaudio capture device. Exactly one
// Device is opened for the lifetime of the process.
type Device struct {
	cfg DeviceConfig

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	closed bool
}

// NewDevice creates an unopened capture device source.
func NewDevice(cfg DeviceConfig) *Device {
	return &Device{cfg: cfg}
}

// Start opens the capture device and begins delivering S16LE mono blocks to
// onData from the audio thread.
func (d *Device) Start(onData func(block []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("mic: device closed")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("mic: init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(d.cfg.Rate)
	deviceConfig.PeriodSizeInFrames = uint32(d.cfg.BlockSamples)
	deviceConfig.Alsa.NoMMap = 1

	if d.cfg.Index >= 0 {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("mic: list capture devices: %w", err)
		}
		if d.cfg.Index >= len(infos) {
			ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("mic: capture device index %d out of range (%d devices)",
				d.cfg.Index, len(infos))
		}
		id := infos[d.cfg.Index].ID
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			onData(input)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("mic: init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("mic: start capture device: %w", err)
	}

	d.ctx = ctx
	d.device = device
	return nil
}

// Close stops the device and releases the audio context.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
	return nil
}
