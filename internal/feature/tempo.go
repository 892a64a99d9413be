// ABOUTME: BPM estimation via onset-envelope autocorrelation with octave-error correction (§4.1.1)
// ABOUTME: Algorithm grounded on the pack's hand-rolled onset/autocorrelation DSP (vividhyeok-djbot goworker/dsp.go), FFT via gonum

package feature

import (
	"errors"
	"math"

	"github.com/stojg/crateforge/internal/dsp"
)

const (
	onsetFrameSize = 1024
	onsetHopSize   = 512

	bpmMin = 40.0
	bpmMax = 220.0

	// biasCenter/biasLow/biasHigh define the triangular window biasing candidate
	// lags toward the common dance-music tempo band.
	biasCenter = 120.0
	biasLow    = 90.0
	biasHigh   = 150.0

	// prominenceRatio is the minimum ratio of the top autocorrelation peak
	// to the median envelope value required to accept a BPM estimate.
	prominenceRatio = 1.5
)

// ErrLowConfidence is returned when the tempo estimate's peak prominence is
// too weak to trust (§4.1.1 failure policy).
var ErrLowConfidence = errors.New("tempo: peak prominence below confidence threshold")

// onsetEnvelope computes the spectral-flux onset strength envelope used as
// the basis for autocorrelation-based tempo estimation.
func onsetEnvelope(samples []float32, sampleRate int) []float64 {
	n := dsp.NumFrames(len(samples), onsetFrameSize, onsetHopSize)
	if n <= 0 {
		return nil
	}

	window := dsp.HannWindow(onsetFrameSize)
	envelope := make([]float64, n)

	var prevMag []float64

	for i := 0; i < n; i++ {
		frame := dsp.Frame(samples, i*onsetHopSize, onsetFrameSize, window)
		mag := dsp.Magnitude(frame)

		flux := 0.0

		if prevMag != nil {
			for j := range mag {
				if d := mag[j] - prevMag[j]; d > 0 {
					flux += d
				}
			}
		}

		envelope[i] = flux
		prevMag = mag
	}

	return envelope
}

// triangularBias returns a weight in (0,1] that peaks at biasCenter BPM and
// falls off linearly to the edges of [biasLow, biasHigh], flattening to a
// small constant outside that band so distant candidates are still
// comparable, never zeroed out.
func triangularBias(bpm float64) float64 {
	switch {
	case bpm >= biasLow && bpm <= biasCenter:
		return 0.4 + 0.6*(bpm-biasLow)/(biasCenter-biasLow)
	case bpm > biasCenter && bpm <= biasHigh:
		return 0.4 + 0.6*(biasHigh-bpm)/(biasHigh-biasCenter)
	default:
		return 0.4
	}
}

// EstimateBPM implements §4.1.1: weighted autocorrelation over the onset
// envelope, triangular bias toward [90,150], octave-error correction, and a
// prominence-based confidence check.
func EstimateBPM(samples []float32, sampleRate int) (float64, error) {
	envelope := onsetEnvelope(samples, sampleRate)
	if len(envelope) < 8 {
		return 0, ErrLowConfidence
	}

	minLag := int(float64(sampleRate) * 60 / (bpmMax * onsetHopSize))
	maxLag := int(float64(sampleRate) * 60 / (bpmMin * onsetHopSize))

	if minLag < 1 {
		minLag = 1
	}

	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}

	if maxLag <= minLag {
		return 0, ErrLowConfidence
	}

	bestLag := minLag
	bestScore := -1.0
	scores := make([]float64, maxLag+1)

	for lag := minLag; lag <= maxLag; lag++ {
		corr := autocorrelationAtLag(envelope, lag)
		bpm := 60.0 * float64(sampleRate) / (float64(lag) * onsetHopSize)
		score := corr * triangularBias(bpm)
		scores[lag] = score

		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	// Refine the best integer lag to the score-weighted centroid of it and its
	// two neighbours; adjacent integer lags lie several BPM apart near 128.
	lag := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		lo, hi := math.Max(scores[bestLag-1], 0), math.Max(scores[bestLag+1], 0)
		if sum := lo + bestScore + hi; sum > 0 {
			lag += (hi - lo) / sum
		}
	}

	bpm := 60.0 * float64(sampleRate) / (lag * onsetHopSize)

	bpm = correctOctaveError(envelope, sampleRate, bpm)

	median := dsp.Median(envelope)
	if bestScore <= 0 || bestScore < prominenceRatio*median {
		return 0, ErrLowConfidence
	}

	return math.Round(bpm*10) / 10, nil
}

func autocorrelationAtLag(envelope []float64, lag int) float64 {
	sum := 0.0
	count := 0

	for i := 0; i+lag < len(envelope); i++ {
		sum += envelope[i] * envelope[i+lag]
		count++
	}

	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// correctOctaveError implements §4.1.1's octave correction: below 80, prefer
// 2x if its score is within 10% of the candidate's; above 180, symmetrically
// prefer half.
func correctOctaveError(envelope []float64, sampleRate int, bpm float64) float64 {
	scoreFor := func(candidateBPM float64) float64 {
		lag := int(math.Round(60.0 * float64(sampleRate) / (candidateBPM * onsetHopSize)))
		if lag < 1 || lag >= len(envelope) {
			return -1
		}

		return autocorrelationAtLag(envelope, lag)
	}

	switch {
	case bpm < 80:
		doubled := bpm * 2
		if doubled <= bpmMax {
			base, dbl := scoreFor(bpm), scoreFor(doubled)
			if dbl >= base*0.9 {
				return doubled
			}
		}
	case bpm > 180:
		halved := bpm / 2
		if halved >= bpmMin {
			base, half := scoreFor(bpm), scoreFor(halved)
			if half >= base*0.9 {
				return halved
			}
		}
	}

	return bpm
}
