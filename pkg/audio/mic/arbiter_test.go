package mic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chaosbotics/chaos/pkg/audio/pcm"
)

// scriptedSource lets tests drive the data callback directly instead of a
// real device.
type scriptedSource struct {
	onData  func([]byte)
	started bool
	closed  bool
}

func (s *scriptedSource) Start(f func([]byte)) error {
	s.onData = f
	s.started = true
	return nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

// push feeds one block of float32 samples through the S16LE wire encoding.
func (s *scriptedSource) push(samples []float32) {
	s.onData(pcm.EncodeS16LE(samples))
}

func block(n int, value float32) []float32 {
	b := make([]float32, n)
	for i := range b {
		b[i] = value
	}
	return b
}

func openTestArbiter(t *testing.T, cfg Config) (*Arbiter, *scriptedSource) {
	t.Helper()
	src := &scriptedSource{}
	a, err := Open(cfg, src, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	if !src.started {
		t.Fatal("source not started")
	}
	return a, src
}

func waitForMode(t *testing.T, a *Arbiter, want Mode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for a.Mode() != want {
		if time.Now().After(deadline) {
			t.Fatalf("mode = %v, want %v", a.Mode(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestArbiter_captureExactSampleCount(t *testing.T) {
	// ModelRate 8 Hz, 4-sample chunks: capture(d) must return
	// ceil(d*8/4)*4 samples for any d.
	tests := []struct {
		name     string
		duration time.Duration
		want     int
	}{
		{"whole chunks", time.Second, 8},
		{"rounds up to chunk boundary", 1500 * time.Millisecond, 12},
		{"sub-chunk duration", 100 * time.Millisecond, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, src := openTestArbiter(t, Config{HardwareRate: 8, ModelRate: 8, ChunkSamples: 4})

			result := make(chan []float32, 1)
			go func() {
				buf, err := a.Capture(context.Background(), tt.duration)
				if err != nil {
					t.Errorf("Capture: %v", err)
				}
				result <- buf
			}()
			waitForMode(t, a, Capturing)

			for a.Mode() == Capturing {
				src.push(block(4, 0.25))
			}
			buf := <-result
			if len(buf) != tt.want {
				t.Errorf("Capture(%v) = %d samples, want %d", tt.duration, len(buf), tt.want)
			}
		})
	}
}

func TestArbiter_captureDrainsStaleChunks(t *testing.T) {
	a, src := openTestArbiter(t, Config{HardwareRate: 8, ModelRate: 8, ChunkSamples: 4})

	// Queue stale detection chunks before the capture begins.
	src.push(block(4, -0.5))
	src.push(block(4, -0.5))

	result := make(chan []float32, 1)
	go func() {
		buf, err := a.Capture(context.Background(), time.Second)
		if err != nil {
			t.Errorf("Capture: %v", err)
		}
		result <- buf
	}()
	waitForMode(t, a, Capturing)

	for a.Mode() == Capturing {
		src.push(block(4, 0.5))
	}
	buf := <-result
	for i, v := range buf {
		if v < 0 {
			t.Fatalf("sample %d = %f from before the capture call", i, v)
		}
	}

	// The stale chunks must also be gone from the detection queue.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if chunk, err := a.NextChunk(ctx); err == nil {
		t.Errorf("NextChunk returned stale chunk %v, want timeout", chunk[:1])
	}
}

func TestArbiter_detectionQueueDropsOldest(t *testing.T) {
	a, src := openTestArbiter(t, Config{HardwareRate: 8, ModelRate: 8, ChunkSamples: 4})

	// Push ten distinguishable chunks without consuming any.
	for i := 0; i < 10; i++ {
		src.push(block(4, float32(i+1)/100))
	}
	if n := len(a.detectCh); n > detectQueueCap {
		t.Fatalf("queue length %d exceeds bound %d", n, detectQueueCap)
	}

	// Only the newest four survive, in arrival order.
	for want := 7; want <= 10; want++ {
		chunk, err := a.NextChunk(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		got := int(chunk[0]*100 + 0.5)
		if got != want {
			t.Errorf("chunk value = %d, want %d", got, want)
		}
	}
}

func TestArbiter_secondCaptureRejected(t *testing.T) {
	a, _ := openTestArbiter(t, Config{HardwareRate: 8, ModelRate: 8, ChunkSamples: 4})

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		close(started)
		ctx, cancel := context.WithCancel(context.Background())
		go func() { <-release; cancel() }()
		a.Capture(ctx, time.Hour)
	}()
	<-started
	waitForMode(t, a, Capturing)

	if _, err := a.Capture(context.Background(), time.Second); !errors.Is(err, ErrCaptureInProgress) {
		t.Errorf("concurrent Capture error = %v, want ErrCaptureInProgress", err)
	}
	close(release)
}

func TestArbiter_captureIdempotent(t *testing.T) {
	a, src := openTestArbiter(t, Config{HardwareRate: 8, ModelRate: 8, ChunkSamples: 4})

	capture := func() int {
		result := make(chan []float32, 1)
		go func() {
			buf, err := a.Capture(context.Background(), time.Second)
			if err != nil {
				t.Errorf("Capture: %v", err)
			}
			result <- buf
		}()
		waitForMode(t, a, Capturing)
		for a.Mode() == Capturing {
			src.push(block(4, 0.1))
		}
		return len(<-result)
	}

	if len(a.assembly) != 0 {
		t.Fatalf("assembly buffer has %d samples before capture", len(a.assembly))
	}
	first := capture()
	if len(a.assembly) != 0 {
		t.Errorf("assembly buffer has %d samples after capture", len(a.assembly))
	}
	second := capture()
	if first != second {
		t.Errorf("capture lengths differ: %d vs %d", first, second)
	}
}

func TestArbiter_cancelledCaptureIsIsolated(t *testing.T) {
	a, src := openTestArbiter(t, Config{HardwareRate: 8, ModelRate: 8, ChunkSamples: 4})

	// First capture wants 3 chunks but is cancelled after receiving one.
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := a.Capture(ctx, 1500*time.Millisecond)
		errs <- err
	}()
	waitForMode(t, a, Capturing)
	src.push(block(4, -0.5))
	cancel()
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled Capture = %v, want context.Canceled", err)
	}
	waitForMode(t, a, Listening)

	// The next capture must return exactly its own chunks: nothing carried
	// over from the abandoned buffer, and no early completion.
	result := make(chan []float32, 1)
	go func() {
		buf, err := a.Capture(context.Background(), time.Second)
		if err != nil {
			t.Errorf("Capture: %v", err)
		}
		result <- buf
	}()
	waitForMode(t, a, Capturing)
	for a.Mode() == Capturing {
		src.push(block(4, 0.5))
	}
	buf := <-result
	if len(buf) != 8 {
		t.Fatalf("Capture = %d samples, want 8", len(buf))
	}
	for i, v := range buf {
		if v < 0 {
			t.Fatalf("sample %d = %f from the cancelled capture", i, v)
		}
	}
}

func TestArbiter_resamplesHardwareBlocks(t *testing.T) {
	// 16 Hz hardware, 8 Hz model: a 16-sample hardware block is one second,
	// which must produce exactly two 4-sample model chunks.
	a, src := openTestArbiter(t, Config{HardwareRate: 16, ModelRate: 8, ChunkSamples: 4})

	src.push(block(16, 0.5))
	for i := 0; i < 2; i++ {
		chunk, err := a.NextChunk(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(chunk) != 4 {
			t.Errorf("chunk %d has %d samples, want 4", i, len(chunk))
		}
	}
	if len(a.detectCh) != 0 {
		t.Errorf("queue has %d extra chunks, want 0", len(a.detectCh))
	}
}

func TestArbiter_closeClosesSource(t *testing.T) {
	a, src := openTestArbiter(t, Config{HardwareRate: 8, ModelRate: 8, ChunkSamples: 4})
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if !src.closed {
		t.Error("source not closed")
	}
}
