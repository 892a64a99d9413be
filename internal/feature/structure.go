// ABOUTME: Section boundary detection via penalty-based changepoint segmentation, labeling, and mix-point derivation (§4.1.4)
// ABOUTME: Falls back to a single-verse structure with quantized mix points when segmentation yields fewer than 3 segments

package feature

import (
	"math"

	"github.com/stojg/crateforge/internal/domain"
)

const (
	structureFrameSeconds = 1.0

	minSegments = 4
	maxSegments = 8

	barsPerPhrase = 16
	beatsPerBar   = 4
)

// smoothedEnvelope computes a per-second RMS envelope, smoothed with a
// 3-frame moving average.
func smoothedEnvelope(samples []float32, sampleRate int) []float64 {
	frameSize := int(float64(sampleRate) * structureFrameSeconds)
	if frameSize <= 0 {
		return nil
	}

	n := len(samples) / frameSize
	if n == 0 {
		return nil
	}

	raw := make([]float64, n)
	for i := 0; i < n; i++ {
		raw[i] = rmsOf(samples[i*frameSize : (i+1)*frameSize])
	}

	smoothed := make([]float64, n)

	for i := range raw {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}

		if hi >= n {
			hi = n - 1
		}

		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += raw[j]
		}

		smoothed[i] = sum / float64(hi-lo+1)
	}

	return smoothed
}

// changePoints runs a penalty-based binary segmentation over envelope,
// splitting recursively while the reduction in squared error from a split
// exceeds a penalty proportional to the signal's variance, capped at
// maxSegments-1 splits. It returns segment boundary frame indices
// (exclusive of 0 and len(envelope)), sorted ascending.
func changePoints(envelope []float64) []int {
	if len(envelope) < 2 {
		return nil
	}

	variance := varianceOf(envelope)
	penalty := variance * math.Log(float64(len(envelope))+1) * 2

	var bounds []int

	var recurse func(lo, hi int)
	recurse = func(lo, hi int) {
		if hi-lo < 2 || len(bounds) >= maxSegments-1 {
			return
		}

		bestSplit := -1
		bestGain := 0.0
		baseCost := segmentCost(envelope[lo:hi])

		for split := lo + 1; split < hi; split++ {
			cost := segmentCost(envelope[lo:split]) + segmentCost(envelope[split:hi])
			gain := baseCost - cost

			if gain > bestGain {
				bestGain = gain
				bestSplit = split
			}
		}

		if bestSplit == -1 || bestGain <= penalty {
			return
		}

		bounds = append(bounds, bestSplit)
		recurse(lo, bestSplit)
		recurse(bestSplit, hi)
	}

	recurse(0, len(envelope))

	return sortInts(bounds)
}

func segmentCost(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	sse := 0.0
	for _, v := range values {
		d := v - mean
		sse += d * d
	}

	return sse
}

func varianceOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}

	return sum / float64(len(values))
}

func sortInts(xs []int) []int {
	out := append([]int(nil), xs...)

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}

	return out
}

// barLength returns the duration in seconds of one bar at bpm in 4/4 time.
func barLength(bpm float64) float64 {
	return 240.0 / bpm
}

// phraseLength returns the duration in seconds of one 16-bar phrase.
func phraseLength(bpm float64) float64 {
	return float64(barsPerPhrase) * barLength(bpm)
}

// quantizeUpToPhrase rounds t up to the nearest multiple of phrase.
func quantizeUpToPhrase(t, phrase float64) float64 {
	if phrase <= 0 {
		return t
	}

	return math.Ceil(t/phrase) * phrase
}

// quantizeDownToPhrase rounds t down to the nearest multiple of phrase.
func quantizeDownToPhrase(t, phrase float64) float64 {
	if phrase <= 0 {
		return t
	}

	return math.Floor(t/phrase) * phrase
}

// DeriveStructure implements §4.1.4: segment the energy envelope, label the
// segments, and compute mix-in/mix-out points quantized to phrase
// boundaries. On segmentation failure (fewer than 3 segments) it falls back
// to a single-verse structure per the documented fallback policy, setting
// structureFallback to true.
func DeriveStructure(samples []float32, sampleRate int, bpm, durationS float64) (sections []domain.Section, mixInS, mixOutS float64, structureFallback bool) {
	envelope := smoothedEnvelope(samples, sampleRate)
	bounds := changePoints(envelope)

	phrase := phraseLength(bpm)

	if len(bounds)+1 < 3 {
		return fallbackStructure(durationS, phrase)
	}

	boundariesS := make([]float64, 0, len(bounds)+2)
	boundariesS = append(boundariesS, 0)

	for _, b := range bounds {
		boundariesS = append(boundariesS, float64(b)*structureFrameSeconds)
	}

	boundariesS = append(boundariesS, durationS)

	segEnergy := make([]float64, len(boundariesS)-1)

	for i := 0; i < len(boundariesS)-1; i++ {
		startFrame := int(boundariesS[i] / structureFrameSeconds)
		endFrame := int(boundariesS[i+1] / structureFrameSeconds)

		if endFrame > len(envelope) {
			endFrame = len(envelope)
		}

		if endFrame <= startFrame {
			segEnergy[i] = 0

			continue
		}

		sum := 0.0
		for _, v := range envelope[startFrame:endFrame] {
			sum += v
		}

		segEnergy[i] = sum / float64(endFrame-startFrame)
	}

	labels := labelSegments(segEnergy)

	bar := barLength(bpm)
	sections = make([]domain.Section, len(labels))

	for i := range sections {
		start, end := boundariesS[i], boundariesS[i+1]
		sections[i] = domain.Section{
			Label:     labels[i],
			StartS:    start,
			EndS:      end,
			StartBar:  int(math.Round(start/bar)),
			EndBar:    int(math.Round(end / bar)),
			AvgEnergy: segEnergy[i],
		}
	}

	introEnd := sections[0].EndS
	outroStart := sections[len(sections)-1].StartS

	mixInS = clampMixIn(quantizeUpToPhrase(introEnd, phrase), durationS)
	mixOutS = clampMixOut(quantizeDownToPhrase(outroStart, phrase), durationS)

	// Short tracks can clamp both points to the same instant; use the fallback
	// mix points then so that mix-in stays strictly before mix-out.
	if mixInS >= mixOutS {
		_, mixInS, mixOutS, _ = fallbackStructure(durationS, phrase)
	}

	return sections, mixInS, mixOutS, false
}

// fallbackStructure implements §4.1.4's fallback policy for when structure
// detection yields fewer than 3 segments.
func fallbackStructure(durationS, phrase float64) ([]domain.Section, float64, float64, bool) {
	mixInS := math.Min(phrase, durationS*0.15)
	mixOutS := math.Max(durationS-phrase, durationS*0.85)

	if mixOutS <= mixInS {
		mixInS, mixOutS = durationS*0.15, durationS*0.85
	}

	sections := []domain.Section{
		{Label: domain.SectionIntro, StartS: 0, EndS: durationS / 3},
		{Label: domain.SectionVerse, StartS: durationS / 3, EndS: 2 * durationS / 3},
		{Label: domain.SectionOutro, StartS: 2 * durationS / 3, EndS: durationS},
	}

	return sections, mixInS, mixOutS, true
}

func clampMixIn(t, durationS float64) float64 {
	half := durationS / 2
	if t > half {
		return half
	}

	if t < 0 {
		return 0
	}

	return t
}

func clampMixOut(t, durationS float64) float64 {
	half := durationS / 2
	if t < half {
		return half
	}

	if t > durationS {
		return durationS
	}

	return t
}

// labelSegments implements the §4.1.4 labeling rule: first=intro,
// last=outro, max-energy middle segment=drop, a below-half-median middle
// segment flanked by higher energy=breakdown, remaining=verse.
func labelSegments(energy []float64) []domain.SectionLabel {
	labels := make([]domain.SectionLabel, len(energy))
	labels[0] = domain.SectionIntro
	labels[len(labels)-1] = domain.SectionOutro

	if len(labels) <= 2 {
		return labels
	}

	middle := energy[1 : len(energy)-1]

	overallMedian := medianOf(energy)

	dropIdx := 1
	maxE := middle[0]

	for i, e := range middle {
		if e > maxE {
			maxE = e
			dropIdx = i + 1
		}
	}

	for i := 1; i < len(labels)-1; i++ {
		if i == dropIdx {
			labels[i] = domain.SectionDrop

			continue
		}

		isBreakdown := energy[i] < overallMedian/2 && energy[i-1] > energy[i] && energy[i+1] > energy[i]
		if isBreakdown {
			labels[i] = domain.SectionBreakdown

			continue
		}

		labels[i] = domain.SectionVerse
	}

	return labels
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	if len(sorted) == 0 {
		return 0
	}

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}
