// Package fbank computes log mel filterbank features from PCM audio.
//
// This is the acoustic front end for the wake-phrase embedder: a one-second
// chunk of 16 kHz audio becomes a [T, numMels] float32 matrix which the
// embedder pools into a fixed-size vector for cosine comparison.
//
// Default parameters follow the Kaldi convention:
//
//	SampleRate:  16000
//	WindowSize:  400 (25 ms)
//	HopSize:     160 (10 ms)
//	FFTSize:     512
//	NumMels:     40
//	LowFreq:     20
//	HighFreq:    7600
//	PreEmphasis: 0.97
package fbank

import "math"

// Config controls mel filterbank extraction parameters.
type Config struct {
	SampleRate  int     // audio sample rate in Hz
	WindowSize  int     // analysis window length in samples
	HopSize     int     // hop length in samples
	FFTSize     int     // FFT size, power of two, >= WindowSize
	NumMels     int     // number of mel bins
	LowFreq     float64 // lowest mel frequency in Hz
	HighFreq    float64 // highest mel frequency in Hz
	PreEmphasis float64 // pre-emphasis coefficient
}

// DefaultConfig returns the standard 16 kHz wake-word front-end config.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     40,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
	}
}

// Extractor computes mel filterbank features from PCM samples.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
}

// New creates an Extractor with the given config.
func New(cfg Config) *Extractor {
	return &Extractor{
		cfg:     cfg,
		window:  hammingWindow(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
	}
}

// NumMels returns the number of mel bins per frame.
func (e *Extractor) NumMels() int { return e.cfg.NumMels }

// Extract computes log mel filterbank features from normalized float32
// samples in [-1, 1]. The result has (len(samples)-WindowSize)/HopSize + 1
// rows of NumMels values; input shorter than one window yields nil.
func (e *Extractor) Extract(samples []float32) [][]float32 {
	cfg := e.cfg
	if len(samples) < cfg.WindowSize {
		return nil
	}

	numFrames := (len(samples)-cfg.WindowSize)/cfg.HopSize + 1
	halfFFT := cfg.FFTSize/2 + 1

	features := make([][]float32, numFrames)
	re := make([]float64, cfg.FFTSize)
	im := make([]float64, cfg.FFTSize)
	power := make([]float64, halfFFT)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize

		for i := 0; i < cfg.WindowSize; i++ {
			s := float64(samples[start+i])
			if i > 0 {
				s -= cfg.PreEmphasis * float64(samples[start+i-1])
			}
			re[i] = s * e.window[i]
			im[i] = 0
		}
		for i := cfg.WindowSize; i < cfg.FFTSize; i++ {
			re[i] = 0
			im[i] = 0
		}

		fft(re, im)
		for i := 0; i < halfFFT; i++ {
			power[i] = re[i]*re[i] + im[i]*im[i]
		}

		mel := make([]float32, cfg.NumMels)
		for m := 0; m < cfg.NumMels; m++ {
			sum := 0.0
			for k, w := range e.melBank[m] {
				sum += w * power[k]
			}
			if sum < 1e-10 {
				sum = 1e-10 // log floor
			}
			mel[m] = float32(math.Log(sum))
		}
		features[t] = mel
	}
	return features
}

// CMVN applies cepstral mean and variance normalization in place: per mel
// dimension, subtract the mean and divide by the standard deviation across
// frames. This removes channel and loudness effects so embeddings recorded
// on different microphones stay comparable.
func CMVN(features [][]float32) {
	if len(features) == 0 {
		return
	}
	numMels := len(features[0])
	n := float64(len(features))

	for m := 0; m < numMels; m++ {
		sum := 0.0
		for _, f := range features {
			sum += float64(f[m])
		}
		mean := sum / n

		varSum := 0.0
		for _, f := range features {
			d := float64(f[m]) - mean
			varSum += d * d
		}
		std := math.Sqrt(varSum / n)
		if std < 1e-10 {
			std = 1e-10
		}

		for _, f := range features {
			f[m] = float32((float64(f[m]) - mean) / std)
		}
	}
}
