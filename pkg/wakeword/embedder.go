// Package wakeword detects an enrolled wake phrase in the continuous
// microphone stream.
//
// Audio chunks are folded into a sliding window, the window is reduced to a
// fixed-length embedding vector, and the embedding is compared against the
// enrolled reference by cosine similarity. A score above the configured
// threshold raises a detection.
package wakeword

import (
	"errors"
	"math"

	"github.com/chaosbotics/chaos/pkg/audio/fbank"
)

// Embedder reduces a window of model-rate samples to a fixed-length vector.
// Vectors from the same Embedder are comparable by cosine similarity.
type Embedder interface {
	Embed(samples []float32) ([]float32, error)
}

// ErrWindowTooShort is returned when the audio window holds fewer samples
// than one analysis frame.
var ErrWindowTooShort = errors.New("wakeword: audio window too short to embed")

// FbankEmbedder is the built-in Embedder: log-mel filterbank features with
// cepstral mean-variance normalization, mean-pooled over time and
// L2-normalized. Dimension equals the filterbank size.
type FbankEmbedder struct {
	ex *fbank.Extractor
}

// NewFbankEmbedder creates an embedder over the given feature config.
func NewFbankEmbedder(cfg fbank.Config) *FbankEmbedder {
	return &FbankEmbedder{ex: fbank.New(cfg)}
}

func (e *FbankEmbedder) Embed(samples []float32) ([]float32, error) {
	features := e.ex.Extract(samples)
	if len(features) == 0 {
		return nil, ErrWindowTooShort
	}
	fbank.CMVN(features)

	dim := len(features[0])
	vec := make([]float32, dim)
	for _, frame := range features {
		for i, v := range frame {
			vec[i] += v
		}
	}
	n := float32(len(features))
	for i := range vec {
		vec[i] /= n
	}
	normalize(vec)
	return vec, nil
}

// normalize scales vec to unit L2 norm in place. Zero vectors stay zero.
func normalize(vec []float32) {
	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sq))
	for i := range vec {
		vec[i] *= inv
	}
}

// Cosine returns the cosine similarity of two vectors in [-1, 1]. Mismatched
// lengths or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
