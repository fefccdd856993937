// Package resampler provides streaming sample-rate and channel conversion
// for 16-bit PCM byte streams.
//
// It wraps an io.Reader and converts audio from a source format to a
// destination format on the fly. This is the playback-path converter: the
// speech synthesizer emits PCM at its own rate and the output device runs at
// the hardware rate, and neither side cares about exact per-block sample
// counts. The microphone path uses pcm.Resampler instead, which guarantees
// exact rational block accounting.
package resampler

import (
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
)

// Reader resamples audio read from an underlying stream. It must be closed
// to release resources.
type Reader struct {
	src    *frameReader
	srcFmt pcm.Format
	dstFmt pcm.Format

	mu       sync.Mutex
	closeErr error
	conv     resampling.Resampler // nil when rates match
	leftover []byte
	readBuf  []byte
}

// New creates a Reader that converts audio from srcFmt to dstFmt. It supports
// sample rate conversion and mono<->stereo channel conversion. Samples must
// be 16-bit signed little-endian.
func New(src io.Reader, srcFmt, dstFmt pcm.Format) (*Reader, error) {
	r := &Reader{
		src:    newFrameReader(src, srcFmt.FrameBytes()),
		srcFmt: srcFmt,
		dstFmt: dstFmt,
	}
	if srcFmt.SampleRate != dstFmt.SampleRate {
		conv, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.Channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
		r.conv = conv
	}
	return r, nil
}

// Read copies converted audio into p. It returns the number of bytes written
// and any error from the underlying stream. Not safe for concurrent use with
// itself; Close may be called concurrently.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < r.dstFmt.FrameBytes() {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/r.dstFmt.FrameBytes()*r.dstFmt.FrameBytes()]

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	if r.closeErr != nil {
		return 0, r.closeErr
	}

	src, readErr := r.fillSource(len(p))
	if len(src) == 0 {
		if readErr == nil {
			readErr = io.EOF
		}
		return 0, readErr
	}

	out := src
	if r.conv != nil {
		converted, err := r.convert(src)
		if err != nil {
			return 0, err
		}
		out = converted
	}

	n := copy(p, out)
	if len(out) > n {
		r.leftover = append(r.leftover, out[n:]...)
	}
	return n, readErr
}

// fillSource reads enough source bytes (after channel conversion) to produce
// roughly dstLen output bytes.
func (r *Reader) fillSource(dstLen int) ([]byte, error) {
	want := dstLen
	if r.conv != nil {
		ratio := float64(r.srcFmt.SampleRate) / float64(r.dstFmt.SampleRate)
		want = int(float64(dstLen)*ratio) + 4*r.srcFmt.FrameBytes()
	}

	switch {
	case r.srcFmt.Stereo && !r.dstFmt.Stereo:
		want *= 2
		r.grow(want)
		n, err := r.src.Read(r.readBuf[:want])
		return r.readBuf[:downmix(r.readBuf[:n])], err
	case !r.srcFmt.Stereo && r.dstFmt.Stereo:
		r.grow(want)
		n, err := r.src.Read(r.readBuf[:want/2])
		return r.readBuf[:upmix(r.readBuf[:n*2])], err
	default:
		r.grow(want)
		n, err := r.src.Read(r.readBuf[:want])
		return r.readBuf[:n], err
	}
}

func (r *Reader) grow(n int) {
	if cap(r.readBuf) < n {
		r.readBuf = make([]byte, n)
	}
	r.readBuf = r.readBuf[:cap(r.readBuf)]
}

// convert runs 16-bit bytes through the rate converter.
func (r *Reader) convert(src []byte) ([]byte, error) {
	in := make([]float64, len(src)/2)
	for i := range in {
		s := int16(src[i*2]) | int16(src[i*2+1])<<8
		in[i] = float64(s) / 32768
	}
	out, err := r.conv.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	buf := make([]byte, len(out)/r.dstFmt.Channels()*r.dstFmt.FrameBytes())
	for i, v := range out {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf, nil
}

// Close releases resources. Subsequent reads return io.ErrClosedPipe.
func (r *Reader) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases resources with a custom error returned by
// subsequent reads.
func (r *Reader) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.conv = nil
	return nil
}

// downmix averages L/R pairs in place, returning the mono byte count.
func downmix(b []byte) int {
	frames := len(b) / 4
	for i := 0; i < frames; i++ {
		l := int16(b[i*4]) | int16(b[i*4+1])<<8
		r := int16(b[i*4+2]) | int16(b[i*4+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[i*2] = byte(m)
		b[i*2+1] = byte(m >> 8)
	}
	return frames * 2
}

// upmix duplicates mono samples into L/R pairs in place; b must have room for
// the stereo result. Returns the stereo byte count.
func upmix(b []byte) int {
	samples := len(b) / 4
	for i := samples - 1; i >= 0; i-- {
		s0, s1 := b[i*2], b[i*2+1]
		b[i*4], b[i*4+1] = s0, s1
		b[i*4+2], b[i*4+3] = s0, s1
	}
	return samples * 4
}
