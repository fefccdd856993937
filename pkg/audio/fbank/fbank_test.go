package fbank

import (
	"math"
	"testing"
)

func TestExtract_frameCount(t *testing.T) {
	e := New(DefaultConfig())

	tests := []struct {
		name    string
		samples int
		frames  int
	}{
		{"one second", 16000, (16000-400)/160 + 1},
		{"one window", 400, 1},
		{"below one window", 399, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(make([]float32, tt.samples))
			if len(got) != tt.frames {
				t.Errorf("Extract(%d samples) = %d frames, want %d",
					tt.samples, len(got), tt.frames)
			}
			for i, row := range got {
				if len(row) != e.NumMels() {
					t.Fatalf("frame %d has %d mels, want %d", i, len(row), e.NumMels())
				}
			}
		})
	}
}

func TestExtract_toneHasEnergyNearToneBin(t *testing.T) {
	e := New(DefaultConfig())

	// 1 kHz tone should put its peak energy in a low-middle mel bin, well
	// below the top of the bank.
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/16000))
	}
	features := e.Extract(samples)
	if len(features) == 0 {
		t.Fatal("no frames extracted")
	}

	mid := features[len(features)/2]
	peak := 0
	for m := range mid {
		if mid[m] > mid[peak] {
			peak = m
		}
	}
	if peak == 0 || peak > e.NumMels()/2 {
		t.Errorf("1 kHz tone peak at mel bin %d, want within (0, %d]", peak, e.NumMels()/2)
	}
}

func TestCMVN_normalizes(t *testing.T) {
	features := [][]float32{
		{1, 10},
		{3, 20},
		{5, 30},
	}
	CMVN(features)

	for m := 0; m < 2; m++ {
		var sum, sq float64
		for _, f := range features {
			sum += float64(f[m])
			sq += float64(f[m]) * float64(f[m])
		}
		if math.Abs(sum) > 1e-5 {
			t.Errorf("mel %d mean = %f, want 0", m, sum/3)
		}
		if math.Abs(sq/3-1) > 1e-5 {
			t.Errorf("mel %d variance = %f, want 1", m, sq/3)
		}
	}
}

func TestCMVN_emptyInput(t *testing.T) {
	CMVN(nil) // must not panic
}
