package wakeword

import (
	"errors"
	"math"
	"testing"

	"github.com/chaosbotics/chaos/pkg/audio/fbank"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scale invariant", []float32{1, 1}, []float32{5, 5}, 1},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Cosine = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFbankEmbedder(t *testing.T) {
	e := NewFbankEmbedder(fbank.DefaultConfig())

	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	vec, err := e.Embed(samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != fbank.DefaultConfig().NumMels {
		t.Errorf("embedding dimension = %d, want %d", len(vec), fbank.DefaultConfig().NumMels)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-4 {
		t.Errorf("embedding L2 norm = %f, want 1", math.Sqrt(norm))
	}

	// Same input must embed identically.
	vec2, err := e.Embed(samples)
	if err != nil {
		t.Fatal(err)
	}
	if Cosine(vec, vec2) < 0.999999 {
		t.Error("embedding is not deterministic")
	}
}

func TestFbankEmbedder_shortWindow(t *testing.T) {
	e := NewFbankEmbedder(fbank.DefaultConfig())
	if _, err := e.Embed(make([]float32, 100)); !errors.Is(err, ErrWindowTooShort) {
		t.Errorf("Embed(short) = %v, want ErrWindowTooShort", err)
	}
}
