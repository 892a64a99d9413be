// ABOUTME: Quality-metrics computation for a sequenced playlist (§4.4.3)
// ABOUTME: energy_correlation compares the realized energy curve against the strategy's intended direction signal

package sequencer

import (
	"math"
	"sort"
	"strings"

	"github.com/stojg/crateforge/internal/domain"
	"github.com/stojg/crateforge/internal/dsp"
)

// ComputeMetrics implements §4.4.3 for a fully ordered playlist.
func ComputeMetrics(tracks []domain.Record, strategy Strategy, p Params) domain.QualityMetrics {
	n := len(tracks)
	if n < 2 {
		return domain.QualityMetrics{MeanCompatValid: false}
	}

	direction := IntendedDirection(strategy, p)

	compats := make([]float64, 0, n-1)
	bpmJumps := make([]float64, 0, n-1)
	harmonicHits := 0
	genreSwitches := 0

	for i := 0; i < n-1; i++ {
		a, b := tracks[i], tracks[i+1]

		d := direction(i, n)
		compats = append(compats, Score(a, b, p, d))
		bpmJumps = append(bpmJumps, math.Abs(b.BPM-a.BPM))

		if HarmonicHit(a, b, p.AllowExperimental) {
			harmonicHits++
		}

		if !strings.EqualFold(strings.TrimSpace(a.Genre), strings.TrimSpace(b.Genre)) {
			genreSwitches++
		}
	}

	realized := make([]float64, n)
	intended := make([]float64, n)
	cursor := 0.0

	for i, t := range tracks {
		realized[i] = t.Energy

		if i > 0 {
			switch direction(i-1, n) {
			case DirectionUp:
				cursor++
			case DirectionDown:
				cursor--
			}
		}

		intended[i] = cursor
	}

	return domain.QualityMetrics{
		MeanCompat:        mean(compats),
		MeanCompatValid:   true,
		HarmonicHitRate:   float64(harmonicHits) / float64(n-1),
		BPMJumpMax:        maxOf(bpmJumps),
		BPMJumpP95:        percentile95(bpmJumps),
		BPMJumpMean:       mean(bpmJumps),
		EnergyCorrelation: dsp.PearsonCorrelation(realized, intended),
		GenreSwitches:     genreSwitches,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if v > m {
			m = v
		}
	}

	return m
}

// percentile95 implements nearest-rank P95 over bpm jump magnitudes.
func percentile95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}

	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}
