package resampler

import (
	"bytes"
	"io"
	"testing"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
)

func s16le(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func TestReader_passthrough(t *testing.T) {
	fmt16k := pcm.Format{SampleRate: 16000}
	src := s16le(100, -100, 32000, -32000)
	r, err := New(bytes.NewReader(src), fmt16k, fmt16k)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("passthrough changed data: got %v, want %v", got, src)
	}
}

func TestReader_monoToStereo(t *testing.T) {
	mono := pcm.Format{SampleRate: 16000}
	stereo := pcm.Format{SampleRate: 16000, Stereo: true}
	r, err := New(bytes.NewReader(s16le(7, -7)), mono, stereo)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := s16le(7, 7, -7, -7)
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReader_stereoToMono(t *testing.T) {
	mono := pcm.Format{SampleRate: 16000}
	stereo := pcm.Format{SampleRate: 16000, Stereo: true}
	r, err := New(bytes.NewReader(s16le(100, 200, -100, -200)), stereo, mono)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := s16le(150, -150)
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReader_shortBuffer(t *testing.T) {
	stereo := pcm.Format{SampleRate: 16000, Stereo: true}
	r, err := New(bytes.NewReader(s16le(1, 2)), stereo, stereo)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.Read(make([]byte, 2)); err != io.ErrShortBuffer {
		t.Errorf("Read(2 bytes) error = %v, want io.ErrShortBuffer", err)
	}
}

func TestReader_closedReturnsError(t *testing.T) {
	fmt16k := pcm.Format{SampleRate: 16000}
	r, err := New(bytes.NewReader(s16le(1)), fmt16k, fmt16k)
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
	if _, err := r.Read(make([]byte, 4)); err == nil {
		t.Error("Read after Close = nil error, want error")
	}
}
