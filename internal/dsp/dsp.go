// ABOUTME: Low-level DSP building blocks shared by the tempo, key and energy estimators
// ABOUTME: Wraps gonum's real FFT and Pearson correlation; window/frame helpers are grounded on the pack's hand-rolled DSP code

// Package dsp provides the shared numerical primitives C1 needs: windowing,
// framing, a real-input FFT (via gonum.org/v1/gonum/dsp/fourier), magnitude
// spectra, and Pearson correlation (via gonum.org/v1/gonum/stat) for the
// Krumhansl-Schmuckler key-profile match.
package dsp

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HannWindow returns an n-sample Hann window.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1

		return w
	}

	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}

	return w
}

// Frame extracts one windowed frame of length frameSize starting at start
// from samples, zero-padding past the end of the signal.
func Frame(samples []float32, start, frameSize int, window []float64) []float64 {
	out := make([]float64, frameSize)

	for i := 0; i < frameSize; i++ {
		idx := start + i
		if idx >= len(samples) {
			break
		}

		out[i] = float64(samples[idx]) * window[i]
	}

	return out
}

// NumFrames returns the number of non-overlapping/overlapping frames of
// frameSize with the given hopSize that fit within n samples.
func NumFrames(n, frameSize, hopSize int) int {
	if n < frameSize {
		return 0
	}

	return (n-frameSize)/hopSize + 1
}

// Magnitude computes the magnitude spectrum of a real-valued frame using
// gonum's real FFT. The returned slice has len(frame)/2+1 bins (DC through
// Nyquist).
func Magnitude(frame []float64) []float64 {
	fft := fourier.NewFFT(len(frame))

	coeff := fft.Coefficients(nil, frame)
	mag := make([]float64, len(coeff))

	for i, c := range coeff {
		mag[i] = cmplx.Abs(c)
	}

	return mag
}

// BinFrequency returns the frequency in Hz of FFT bin i for a frame of
// length frameSize sampled at sampleRate.
func BinFrequency(i, frameSize, sampleRate int) float64 {
	return float64(i) * float64(sampleRate) / float64(frameSize)
}

// PearsonCorrelation is a thin wrapper over gonum/stat.Correlation with the
// unweighted signature the key-profile matcher needs.
func PearsonCorrelation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	return stat.Correlation(a, b, nil)
}

// TrimmedMean returns the mean of values after discarding the bottom and
// top trimFraction of sorted values (§4.1.3: trim bottom/top 5%).
func TrimmedMean(values []float64, trimFraction float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	trim := int(float64(n) * trimFraction)

	lo, hi := trim, n-trim
	if hi <= lo {
		lo, hi = 0, n
	}

	return floats.Sum(sorted[lo:hi]) / float64(hi-lo)
}

// Clamp01 clamps x to [0,1].
func Clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// Median returns the median of values (a copy is sorted; values is left unchanged).
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}
