// ABOUTME: Tests for the shared DSP primitives: windowing, framing, spectra, correlation, robust statistics

package dsp

import (
	"math"
	"testing"
)

func TestHannWindowEndpointsAreZero(t *testing.T) {
	w := HannWindow(8)

	if w[0] != 0 {
		t.Errorf("expected first sample to be 0, got %v", w[0])
	}

	if math.Abs(w[len(w)-1]) > 1e-9 {
		t.Errorf("expected last sample near 0, got %v", w[len(w)-1])
	}

	mid := w[len(w)/2]
	if mid < 0.9 {
		t.Errorf("expected a peak near the window center, got %v", mid)
	}
}

func TestHannWindowSingleSample(t *testing.T) {
	w := HannWindow(1)
	if len(w) != 1 || w[0] != 1 {
		t.Errorf("expected a single unity sample, got %v", w)
	}
}

func TestFrameZeroPadsPastSignalEnd(t *testing.T) {
	samples := []float32{1, 1, 1, 1}
	window := []float64{1, 1, 1, 1, 1, 1}

	frame := Frame(samples, 2, 6, window)

	want := []float64{1, 1, 0, 0, 0, 0}
	for i := range want {
		if frame[i] != want[i] {
			t.Errorf("frame[%d] = %v, want %v", i, frame[i], want[i])
		}
	}
}

func TestNumFrames(t *testing.T) {
	cases := []struct {
		n, frameSize, hopSize, want int
	}{
		{100, 50, 25, 3},
		{10, 50, 25, 0},
		{50, 50, 25, 1},
	}

	for _, tc := range cases {
		got := NumFrames(tc.n, tc.frameSize, tc.hopSize)
		if got != tc.want {
			t.Errorf("NumFrames(%d,%d,%d) = %d, want %d", tc.n, tc.frameSize, tc.hopSize, got, tc.want)
		}
	}
}

func TestMagnitudeFindsDominantFrequency(t *testing.T) {
	const (
		sampleRate = 8000
		frameSize  = 256
		freqHz     = 1000.0
	)

	frame := make([]float64, frameSize)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * freqHz * float64(i) / sampleRate)
	}

	mag := Magnitude(frame)

	peakBin := 0
	for i := 1; i < len(mag); i++ {
		if mag[i] > mag[peakBin] {
			peakBin = i
		}
	}

	gotFreq := BinFrequency(peakBin, frameSize, sampleRate)
	if math.Abs(gotFreq-freqHz) > sampleRate/float64(frameSize) {
		t.Errorf("expected peak near %v Hz, got %v Hz (bin %d)", freqHz, gotFreq, peakBin)
	}
}

func TestPearsonCorrelationIdenticalSignalsIsOne(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}

	got := PearsonCorrelation(a, a)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("expected correlation 1 for identical signals, got %v", got)
	}
}

func TestPearsonCorrelationMismatchedLengthsIsZero(t *testing.T) {
	if got := PearsonCorrelation([]float64{1, 2}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %v", got)
	}
}

func TestTrimmedMeanDiscardsOutliers(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1000}

	got := TrimmedMean(values, 0.1)
	if got > 10 {
		t.Errorf("expected the 1000 outlier to be trimmed, got mean %v", got)
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-1, 0},
		{0.5, 0.5},
		{2, 1},
	}

	for _, tc := range cases {
		if got := Clamp01(tc.in); got != tc.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{5, 1, 3}); got != 3 {
		t.Errorf("Median odd count = %v, want 3", got)
	}

	if got := Median([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Median even count = %v, want 2.5", got)
	}
}
