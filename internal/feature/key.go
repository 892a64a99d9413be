// ABOUTME: Key detection via chroma vector correlated against Krumhansl-Schmuckler profiles (§4.1.2)
// ABOUTME: Chroma binning follows the pack's hand-rolled pitch-class-from-frequency approach; correlation via gonum/stat

package feature

import (
	"errors"
	"math"

	"github.com/stojg/crateforge/internal/camelot"
	"github.com/stojg/crateforge/internal/dsp"
)

const (
	keyFrameSize = 4096
	keyHopSize   = 2048

	chromaMinHz = 65.0
	chromaMaxHz = 4000.0

	// middleFraction is the central portion of the signal chroma is
	// averaged over (§4.1.2: "middle 80% of the signal").
	middleFraction = 0.8
)

// ErrKeyUnresolved is returned when there isn't enough signal to build a
// chroma vector.
var ErrKeyUnresolved = errors.New("key: unable to compute chroma vector")

// krumhanslMajor and krumhanslMinor are the classic Krumhansl-Schmuckler
// tonal hierarchy coefficients for C major and C minor (rotate for the
// other 11 roots).
var krumhanslMajor = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
var krumhanslMinor = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}

// chromaVector computes a 12-dimensional chroma vector averaged over the
// middle 80% of the signal.
func chromaVector(samples []float32, sampleRate int) ([12]float64, error) {
	var chroma [12]float64

	lo := int(float64(len(samples)) * (1 - middleFraction) / 2)
	hi := len(samples) - lo

	if hi-lo < keyFrameSize {
		return chroma, ErrKeyUnresolved
	}

	middle := samples[lo:hi]

	n := dsp.NumFrames(len(middle), keyFrameSize, keyHopSize)
	if n <= 0 {
		return chroma, ErrKeyUnresolved
	}

	window := dsp.HannWindow(keyFrameSize)

	for i := 0; i < n; i++ {
		frame := dsp.Frame(middle, i*keyHopSize, keyFrameSize, window)
		mag := dsp.Magnitude(frame)

		for bin := 1; bin < len(mag); bin++ {
			freq := dsp.BinFrequency(bin, keyFrameSize, sampleRate)
			if freq < chromaMinHz || freq > chromaMaxHz {
				continue
			}

			semitones := 12 * math.Log2(freq/261.63) // relative to middle C
			pc := ((int(math.Round(semitones)) % 12) + 12) % 12
			chroma[pc] += mag[bin]
		}
	}

	return chroma, nil
}

// rotate returns profile rotated so index 0 corresponds to pitch class root.
func rotate(profile [12]float64, root int) []float64 {
	out := make([]float64, 12)
	for i := range out {
		out[i] = profile[((i-root)%12+12)%12]
	}

	return out
}

// EstimateKey implements §4.1.2: compute the chroma vector, correlate
// against all 24 Krumhansl-Schmuckler rotations, and return the
// best-correlating (root pitch class, mode) pair plus its Camelot code.
func EstimateKey(samples []float32, sampleRate int) (root int, mode string, code camelot.Code, err error) {
	chroma, err := chromaVector(samples, sampleRate)
	if err != nil {
		return 0, "", camelot.Code{}, err
	}

	chromaSlice := chroma[:]

	bestCorr := -2.0
	bestRoot := 0
	bestMode := "major"

	for root := 0; root < 12; root++ {
		majCorr := dsp.PearsonCorrelation(chromaSlice, rotate(krumhanslMajor, root))
		if majCorr > bestCorr {
			bestCorr = majCorr
			bestRoot = root
			bestMode = "major"
		}

		minCorr := dsp.PearsonCorrelation(chromaSlice, rotate(krumhanslMinor, root))
		if minCorr > bestCorr {
			bestCorr = minCorr
			bestRoot = root
			bestMode = "minor"
		}
	}

	if bestCorr < -1 {
		return 0, "", camelot.Code{}, ErrKeyUnresolved
	}

	code, err = camelot.FromKey(bestRoot, bestMode)
	if err != nil {
		return 0, "", camelot.Code{}, err
	}

	return bestRoot, bestMode, code, nil
}
