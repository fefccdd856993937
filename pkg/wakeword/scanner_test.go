package wakeword

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeEmbedder returns a scripted vector, or errors for the first n calls.
type fakeEmbedder struct {
	vec     []float32
	failFor int
	calls   int
}

func (f *fakeEmbedder) Embed([]float32) ([]float32, error) {
	f.calls++
	if f.calls <= f.failFor {
		return nil, errors.New("embed failed")
	}
	return f.vec, nil
}

// chanSource feeds chunks from a channel.
type chanSource struct {
	ch      chan []float32
	samples int
}

func newChanSource(chunkSamples int) *chanSource {
	return &chanSource{ch: make(chan []float32, 64), samples: chunkSamples}
}

func (s *chanSource) NextChunk(ctx context.Context) ([]float32, error) {
	select {
	case c := <-s.ch:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSource) ChunkSamples() int { return s.samples }

func (s *chanSource) pushN(n int) {
	for i := 0; i < n; i++ {
		s.ch <- make([]float32, s.samples)
	}
}

func runScanner(t *testing.T, s *Scanner) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	}()
	t.Cleanup(func() { cancel(); <-done })
	return cancel
}

func TestScanner_detectsAboveThreshold(t *testing.T) {
	ref := &Profile{Name: "p", Embedding: []float32{1, 0}}
	src := newChanSource(4)
	s, err := NewScanner(ScannerConfig{Threshold: 0.8, WindowChunks: 3},
		src, &fakeEmbedder{vec: []float32{1, 0}}, ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	runScanner(t, s)

	src.pushN(3)
	select {
	case det := <-s.Detections():
		if det.Score < 0.999 {
			t.Errorf("detection score = %f, want ~1", det.Score)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no detection")
	}
}

func TestScanner_belowThresholdStaysSilent(t *testing.T) {
	ref := &Profile{Name: "p", Embedding: []float32{1, 0}}
	src := newChanSource(4)
	// Orthogonal embedding scores 0, well below threshold.
	s, err := NewScanner(ScannerConfig{Threshold: 0.8, WindowChunks: 2},
		src, &fakeEmbedder{vec: []float32{0, 1}}, ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	runScanner(t, s)

	src.pushN(8)
	select {
	case det := <-s.Detections():
		t.Fatalf("unexpected detection with score %f", det.Score)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScanner_windowClearedAfterDetection(t *testing.T) {
	ref := &Profile{Name: "p", Embedding: []float32{1, 0}}
	src := newChanSource(4)
	s, err := NewScanner(ScannerConfig{Threshold: 0.8, WindowChunks: 3},
		src, &fakeEmbedder{vec: []float32{1, 0}}, ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	runScanner(t, s)

	src.pushN(3)
	select {
	case <-s.Detections():
	case <-time.After(2 * time.Second):
		t.Fatal("no first detection")
	}

	// The window restarts empty: two more chunks are not enough to fire.
	src.pushN(2)
	select {
	case <-s.Detections():
		t.Fatal("detection fired before the window refilled")
	case <-time.After(100 * time.Millisecond):
	}

	// A third chunk completes the window again.
	src.pushN(1)
	select {
	case <-s.Detections():
	case <-time.After(2 * time.Second):
		t.Fatal("no second detection")
	}
}

func TestScanner_coalescesUndeliveredDetections(t *testing.T) {
	ref := &Profile{Name: "p", Embedding: []float32{1, 0}}
	src := newChanSource(4)
	s, err := NewScanner(ScannerConfig{Threshold: 0.8, WindowChunks: 1},
		src, &fakeEmbedder{vec: []float32{1, 0}}, ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	runScanner(t, s)

	// Every chunk fires; nobody consumes. The channel holds at most one.
	src.pushN(10)
	time.Sleep(100 * time.Millisecond)
	if n := len(s.detections); n != 1 {
		t.Errorf("pending detections = %d, want 1", n)
	}
}

func TestScanner_embedErrorSkipsChunk(t *testing.T) {
	ref := &Profile{Name: "p", Embedding: []float32{1, 0}}
	src := newChanSource(4)
	// First two embeds fail; the loop must keep running and detect later.
	s, err := NewScanner(ScannerConfig{Threshold: 0.8, WindowChunks: 1},
		src, &fakeEmbedder{vec: []float32{1, 0}, failFor: 2}, ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	runScanner(t, s)

	src.pushN(3)
	select {
	case <-s.Detections():
	case <-time.After(2 * time.Second):
		t.Fatal("no detection after transient embed errors")
	}
}

func TestNewScanner_validation(t *testing.T) {
	src := newChanSource(4)
	emb := &fakeEmbedder{vec: []float32{1}}
	ref := &Profile{Name: "p", Embedding: []float32{1}}

	if _, err := NewScanner(ScannerConfig{Threshold: 0, WindowChunks: 1}, src, emb, ref, nil); err == nil {
		t.Error("threshold 0 accepted")
	}
	if _, err := NewScanner(ScannerConfig{Threshold: 0.5, WindowChunks: 0}, src, emb, ref, nil); err == nil {
		t.Error("zero window accepted")
	}
	if _, err := NewScanner(ScannerConfig{Threshold: 0.5, WindowChunks: 1}, src, emb, &Profile{Name: "e"}, nil); err == nil {
		t.Error("empty profile accepted")
	}
}
