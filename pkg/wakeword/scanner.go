package wakeword

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ChunkSource supplies fixed-length model-rate audio chunks. Satisfied by
// the microphone arbiter.
type ChunkSource interface {
	NextChunk(ctx context.Context) ([]float32, error)
	ChunkSamples() int
}

// Detection is one above-threshold match of the enrolled phrase.
type Detection struct {
	Score float64
	At    time.Time
}

// ScannerConfig tunes the detection loop.
type ScannerConfig struct {
	// Threshold is the cosine similarity above which a detection fires.
	Threshold float64
	// WindowChunks is the number of chunks the sliding analysis window spans.
	// It should cover roughly the spoken length of the wake phrase.
	WindowChunks int
}

// Scanner runs the continuous wake-phrase detection loop.
//
// Detections are delivered on a 1-buffered channel: if the consumer has not
// taken the previous detection yet, a new one replaces nothing and is
// coalesced away. After a detection fires the window is cleared so the same
// utterance cannot trigger twice.
type Scanner struct {
	cfg ScannerConfig
	src ChunkSource
	emb Embedder
	ref []float32
	log *slog.Logger

	window     [][]float32
	detections chan Detection
}

// NewScanner creates a scanner matching against the given profile.
func NewScanner(cfg ScannerConfig, src ChunkSource, emb Embedder, profile *Profile, log *slog.Logger) (*Scanner, error) {
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("wakeword: threshold %v out of (0, 1)", cfg.Threshold)
	}
	if cfg.WindowChunks < 1 {
		return nil, fmt.Errorf("wakeword: window of %d chunks", cfg.WindowChunks)
	}
	if len(profile.Embedding) == 0 {
		return nil, fmt.Errorf("wakeword: profile %q has no embedding", profile.Name)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		cfg:        cfg,
		src:        src,
		emb:        emb,
		ref:        profile.Embedding,
		log:        log.With("component", "wakeword"),
		detections: make(chan Detection, 1),
	}, nil
}

// Detections returns the channel detections are delivered on.
func (s *Scanner) Detections() <-chan Detection {
	return s.detections
}

// Run pulls chunks until ctx is done. Per-chunk embedding failures are
// logged and skipped; only source errors caused by ctx end the loop.
func (s *Scanner) Run(ctx context.Context) error {
	s.log.Info("scanning", "threshold", s.cfg.Threshold, "window_chunks", s.cfg.WindowChunks)
	for {
		chunk, err := s.src.NextChunk(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("chunk read failed", "error", err)
			continue
		}
		s.push(chunk)
		if len(s.window) < s.cfg.WindowChunks {
			continue
		}

		score, err := s.score()
		if err != nil {
			s.log.Warn("embedding failed", "error", err)
			continue
		}
		if score < s.cfg.Threshold {
			continue
		}

		s.window = s.window[:0]
		det := Detection{Score: score, At: time.Now()}
		select {
		case s.detections <- det:
			s.log.Info("wake phrase detected", "score", score)
		default:
			// Consumer still holds an undelivered detection; coalesce.
		}
	}
}

// push appends a chunk, evicting the oldest when the window is full.
func (s *Scanner) push(chunk []float32) {
	if len(s.window) == s.cfg.WindowChunks {
		copy(s.window, s.window[1:])
		s.window = s.window[:len(s.window)-1]
	}
	s.window = append(s.window, chunk)
}

// score embeds the current window and compares it to the reference.
func (s *Scanner) score() (float64, error) {
	samples := make([]float32, 0, s.cfg.WindowChunks*s.src.ChunkSamples())
	for _, c := range s.window {
		samples = append(samples, c...)
	}
	vec, err := s.emb.Embed(samples)
	if err != nil {
		return 0, err
	}
	return Cosine(vec, s.ref), nil
}
