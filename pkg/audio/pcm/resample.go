package pcm

import (
	"fmt"
	"math"
)

// Resampler converts mono float32 samples between two fixed sample rates
// using rational-ratio polyphase filtering: upsample by L, low-pass at the
// lower Nyquist frequency, downsample by D, where L/D = to/from in lowest
// terms.
//
// Output length is exact: resampling n input samples yields
// ceil(n*L/D) output samples, so a block of k*from/gcd input samples always
// yields k*to/gcd output samples. Each block is filtered independently
// (zero-padded at the edges), which is what the chunk-oriented microphone
// callback needs.
//
// Resample does no allocation beyond the output slice, making it safe to
// call from the device data callback.
type Resampler struct {
	from, to int
	up, down int
	taps     []float64
	center   int
}

// NewResampler creates a Resampler for the given rates. Both rates must be
// positive. When from == to, Resample copies its input.
func NewResampler(from, to int) (*Resampler, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("pcm: invalid resample rates %d -> %d", from, to)
	}
	g := gcd(from, to)
	r := &Resampler{
		from: from,
		to:   to,
		up:   to / g,
		down: from / g,
	}
	if r.up != r.down {
		r.taps, r.center = designLowpass(r.up, r.down)
	}
	return r, nil
}

// Ratio returns the conversion ratio in lowest terms (up, down).
func (r *Resampler) Ratio() (up, down int) { return r.up, r.down }

// OutLen returns the number of output samples produced for n input samples.
func (r *Resampler) OutLen(n int) int {
	if r.up == r.down {
		return n
	}
	return (n*r.up + r.down - 1) / r.down
}

// Resample converts one block of mono samples from the source rate to the
// destination rate. The input is not modified.
func (r *Resampler) Resample(in []float32) []float32 {
	if r.up == r.down {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	out := make([]float32, r.OutLen(len(in)))
	n := len(r.taps)
	for m := range out {
		// Position on the upsampled grid, shifted by the filter's group
		// delay so output sample 0 aligns with input sample 0.
		t := m*r.down + r.center
		kHi := t / r.up
		if kHi > len(in)-1 {
			kHi = len(in) - 1
		}
		kLo := (t - (n - 1) + r.up - 1) / r.up
		if kLo < 0 {
			kLo = 0
		}
		var acc float64
		for k := kLo; k <= kHi; k++ {
			acc += r.taps[t-k*r.up] * float64(in[k])
		}
		out[m] = float32(acc)
	}
	return out
}

// designLowpass builds the windowed-sinc anti-aliasing filter for a
// polyphase up/down converter. Cutoff is at the lower of the two Nyquist
// frequencies; passband gain is up so upsampled energy is preserved.
func designLowpass(up, down int) (taps []float64, center int) {
	maxRate := up
	if down > maxRate {
		maxRate = down
	}
	half := 10 * maxRate
	n := 2*half + 1
	fc := 1 / float64(maxRate)
	taps = make([]float64, n)
	for i := range taps {
		t := float64(i - half)
		// Hamming-windowed sinc.
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		taps[i] = float64(up) * fc * sinc(fc*t) * w
	}
	return taps, half
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
