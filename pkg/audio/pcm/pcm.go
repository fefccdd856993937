// Package pcm provides linear PCM sample handling for the audio pipeline:
// format math, 16-bit wire encoding, and rational-ratio resampling.
//
// The microphone and speaker devices exchange 16-bit signed little-endian
// samples; everything above the device layer works on normalized float32
// samples in [-1, 1].
package pcm

import (
	"time"
)

// Format describes a linear PCM stream of 16-bit signed little-endian samples.
type Format struct {
	// SampleRate is the sample rate in Hz (e.g., 16000, 44100, 48000).
	SampleRate int

	// Stereo indicates stereo (2 channels) if true, mono (1 channel) if false.
	Stereo bool
}

// Channels returns the number of channels.
func (f Format) Channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// FrameBytes returns the number of bytes per frame (one sample per channel).
func (f Format) FrameBytes() int {
	return 2 * f.Channels()
}

// SamplesInDuration returns the number of per-channel samples in d.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(time.Duration(f.SampleRate) * d / time.Second)
}

// Duration returns the duration of n per-channel samples.
func (f Format) Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(f.SampleRate)
}

// DecodeS16LE converts 16-bit signed little-endian bytes to normalized
// float32 samples. A trailing odd byte is ignored.
func DecodeS16LE(data []byte) []float32 {
	return AppendDecodedS16LE(make([]float32, 0, len(data)/2), data)
}

// AppendDecodedS16LE appends decoded samples to dst and returns the extended
// slice. It allocates only when dst lacks capacity, so a caller with a
// preallocated buffer can decode without allocating.
func AppendDecodedS16LE(dst []float32, data []byte) []float32 {
	n := len(data) / 2
	for i := 0; i < n; i++ {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		dst = append(dst, float32(s)/32768)
	}
	return dst
}

// EncodeS16LE converts normalized float32 samples to 16-bit signed
// little-endian bytes, clamping to [-1, 1].
func EncodeS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
