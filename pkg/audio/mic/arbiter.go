// Package mic owns the single physical audio input stream and arbitrates it
// between two mutually exclusive consumers: the continuous wake-phrase
// scanner and the episodic fixed-duration capture used for speech
// recognition.
//
// The device delivers raw hardware-rate blocks to a data callback. The
// callback resamples each block to the model rate, assembles fixed-size
// chunks, and routes complete chunks according to the current mode:
//
//	Listening: chunks go to a small bounded queue read by NextChunk. When
//	  the queue is full the oldest chunk is dropped so the scanner always
//	  sees fresh audio.
//	Capturing: chunks accumulate into the capture buffer until the
//	  requested count is reached, then the arbiter flips back to Listening
//	  and wakes the caller of Capture.
//
// Exactly one capture may be in flight; a concurrent Capture call fails with
// ErrCaptureInProgress rather than queueing.
package mic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
)

// Mode is the current exclusive consumer assignment of the audio device.
type Mode int32

const (
	// Listening routes chunks to the wake-phrase scanner queue.
	Listening Mode = iota
	// Capturing routes chunks to the in-progress capture buffer.
	Capturing
)

func (m Mode) String() string {
	switch m {
	case Listening:
		return "listening"
	case Capturing:
		return "capturing"
	}
	return fmt.Sprintf("Mode(%d)", int32(m))
}

// ErrCaptureInProgress is returned by Capture when another capture has not
// finished yet.
var ErrCaptureInProgress = errors.New("mic: capture already in progress")

// detectQueueCap bounds the scanner queue. Small on purpose: under
// backpressure detection favors freshness over completeness.
const detectQueueCap = 4

// Source delivers raw hardware-rate S16LE mono blocks to a data callback.
// Implementations must invoke the callback from a single goroutine (or the
// device's audio thread) and must never call it after Close returns.
type Source interface {
	// Start begins delivery. The callback must not block.
	Start(onData func(block []byte)) error
	// Close stops delivery and releases the device.
	Close() error
}

// Config describes the rates of the arbitrated stream.
type Config struct {
	// HardwareRate is the device sample rate in Hz.
	HardwareRate int
	// ModelRate is the sample rate consumers expect, in Hz.
	ModelRate int
	// ChunkSamples is the fixed model-rate chunk length. Constant for the
	// lifetime of the arbiter.
	ChunkSamples int
}

// capture is one in-flight capture request. Capture hands it to the data
// callback through an atomic pointer; a cancelled request is detached by
// swapping the pointer back to nil, so a callback still holding the old
// request can fill its buffer but can never complete a later capture.
type capture struct {
	need int
	buf  []float32
	done chan struct{}
}

// Arbiter is the single owner of the hardware audio stream.
type Arbiter struct {
	cfg Config
	src Source
	rs  *pcm.Resampler
	log *slog.Logger

	detectCh chan []float32

	// Chunk assembly state, touched only from the data callback.
	assembly []float32
	decode   []float32

	// capActive serializes Capture callers; inflight carries the current
	// request to the callback.
	capActive atomic.Bool
	inflight  atomic.Pointer[capture]

	chunkCount uint64
}

// Open validates cfg, creates the arbiter, and starts the source. A source
// that cannot be started is fatal at this layer; no recovery is attempted.
func Open(cfg Config, src Source, log *slog.Logger) (*Arbiter, error) {
	if cfg.ChunkSamples <= 0 {
		return nil, fmt.Errorf("mic: invalid chunk length %d", cfg.ChunkSamples)
	}
	rs, err := pcm.NewResampler(cfg.HardwareRate, cfg.ModelRate)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Arbiter{
		cfg:      cfg,
		src:      src,
		rs:       rs,
		log:      log.With("component", "mic"),
		detectCh: make(chan []float32, detectQueueCap),
		assembly: make([]float32, 0, 2*cfg.ChunkSamples),
		decode:   make([]float32, 0, cfg.ChunkSamples*cfg.HardwareRate/cfg.ModelRate+1),
	}
	if err := a.src.Start(a.feed); err != nil {
		return nil, fmt.Errorf("mic: start source: %w", err)
	}
	a.log.Info("stream started",
		"hardware_rate", cfg.HardwareRate,
		"model_rate", cfg.ModelRate,
		"chunk_samples", cfg.ChunkSamples)
	return a, nil
}

// Mode returns the current mode.
func (a *Arbiter) Mode() Mode {
	if a.inflight.Load() != nil {
		return Capturing
	}
	return Listening
}

// ChunkSamples returns the fixed chunk length in model-rate samples.
func (a *Arbiter) ChunkSamples() int {
	return a.cfg.ChunkSamples
}

// NextChunk returns the oldest undelivered detection chunk, blocking until
// one arrives or ctx is done. While a capture is in progress no detection
// chunks are produced, so callers simply wait.
func (a *Arbiter) NextChunk(ctx context.Context) ([]float32, error) {
	select {
	case chunk := <-a.detectCh:
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Capture records d worth of audio starting at the time of the call and
// returns exactly ceil(d*ModelRate/ChunkSamples)*ChunkSamples samples.
// Detection chunks queued before the call are discarded so the captured
// window begins now. Only the calling goroutine blocks; the device callback
// and other consumers keep running.
func (a *Arbiter) Capture(ctx context.Context, d time.Duration) ([]float32, error) {
	if d <= 0 {
		return nil, fmt.Errorf("mic: invalid capture duration %v", d)
	}
	if !a.capActive.CompareAndSwap(false, true) {
		return nil, ErrCaptureInProgress
	}
	defer a.capActive.Store(false)

	samples := pcm.Format{SampleRate: a.cfg.ModelRate}.SamplesInDuration(d)
	need := (samples + a.cfg.ChunkSamples - 1) / a.cfg.ChunkSamples
	if need < 1 {
		need = 1
	}

	req := &capture{
		need: need,
		buf:  make([]float32, 0, need*a.cfg.ChunkSamples),
		done: make(chan struct{}),
	}

	// Drain stale detection chunks so the capture starts from now.
	for drained := false; !drained; {
		select {
		case <-a.detectCh:
		default:
			drained = true
		}
	}

	a.inflight.Store(req)
	a.log.Debug("capture started", "chunks", need, "duration", d)

	select {
	case <-req.done:
		a.log.Debug("capture complete", "samples", len(req.buf))
		return req.buf, nil
	case <-ctx.Done():
		// Detach the abandoned request. A callback that already loaded it
		// may keep appending to its buffer, which nobody reads.
		a.inflight.CompareAndSwap(req, nil)
		return nil, ctx.Err()
	}
}

// Close stops the source. The arbiter must not be used afterwards.
func (a *Arbiter) Close() error {
	return a.src.Close()
}

// feed is the device data callback. It must never block and does only
// fixed-size arithmetic and bounded queue operations: decode to float32,
// resample to model rate, assemble chunks, route by mode.
func (a *Arbiter) feed(block []byte) {
	a.decode = pcm.AppendDecodedS16LE(a.decode[:0], block)
	a.assembly = append(a.assembly, a.rs.Resample(a.decode)...)

	for len(a.assembly) >= a.cfg.ChunkSamples {
		chunk := make([]float32, a.cfg.ChunkSamples)
		copy(chunk, a.assembly[:a.cfg.ChunkSamples])
		a.assembly = a.assembly[:copy(a.assembly, a.assembly[a.cfg.ChunkSamples:])]
		a.routeChunk(chunk)
	}
}

func (a *Arbiter) routeChunk(chunk []float32) {
	a.chunkCount++

	if req := a.inflight.Load(); req != nil {
		req.buf = append(req.buf, chunk...)
		if len(req.buf) >= req.need*a.cfg.ChunkSamples {
			// Only the request still installed completes; a detached
			// (cancelled) one is dropped on the floor.
			if a.inflight.CompareAndSwap(req, nil) {
				close(req.done)
			}
		}
		return
	}

	// Listening: drop the oldest queued chunk when full so the scanner
	// never stalls the callback and always sees the freshest audio.
	select {
	case a.detectCh <- chunk:
		return
	default:
	}
	select {
	case <-a.detectCh:
	default:
	}
	select {
	case a.detectCh <- chunk:
	default:
	}
}
