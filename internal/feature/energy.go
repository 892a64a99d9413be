// ABOUTME: RMS energy and bass-intensity estimation (§4.1.3)
// ABOUTME: RMS uses 1s non-overlapping frames with trimmed mean; bass ratio uses a 2048/512 STFT

package feature

import (
	"math"

	"github.com/stojg/crateforge/internal/dsp"
)

const (
	bassFrameSize = 2048
	bassHopSize   = 512

	bassLoHz = 20.0
	bassHiHz = 200.0

	trimFraction = 0.05
)

// EstimateEnergy computes the mean RMS energy over non-overlapping
// one-second frames, trimming the bottom and top 5% (§4.1.3).
func EstimateEnergy(samples []float32, sampleRate int) float64 {
	frameSize := sampleRate
	if frameSize <= 0 || len(samples) < frameSize {
		return rmsOf(samples)
	}

	n := len(samples) / frameSize
	values := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		frame := samples[i*frameSize : (i+1)*frameSize]
		values = append(values, rmsOf(frame))
	}

	return dsp.Clamp01(dsp.TrimmedMean(values, trimFraction))
}

func rmsOf(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := 0.0

	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// EstimateBassIntensity computes the mean ratio, across STFT frames (window
// 2048, hop 512), of magnitude summed in [20,200]Hz over magnitude summed in
// [20, sr/2]Hz (§4.1.3).
func EstimateBassIntensity(samples []float32, sampleRate int) float64 {
	n := dsp.NumFrames(len(samples), bassFrameSize, bassHopSize)
	if n <= 0 {
		return 0
	}

	window := dsp.HannWindow(bassFrameSize)
	nyquist := float64(sampleRate) / 2

	ratios := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		frame := dsp.Frame(samples, i*bassHopSize, bassFrameSize, window)
		mag := dsp.Magnitude(frame)

		var bassSum, totalSum float64

		for bin := 1; bin < len(mag); bin++ {
			freq := dsp.BinFrequency(bin, bassFrameSize, sampleRate)
			if freq < bassLoHz || freq > nyquist {
				continue
			}

			totalSum += mag[bin]

			if freq <= bassHiHz {
				bassSum += mag[bin]
			}
		}

		if totalSum > 0 {
			ratios = append(ratios, bassSum/totalSum)
		}
	}

	if len(ratios) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range ratios {
		sum += r
	}

	return dsp.Clamp01(sum / float64(len(ratios)))
}
