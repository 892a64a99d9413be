// ABOUTME: Pairwise compatibility scoring c(A,B) of §4.4.1: weighted harmonic/BPM/energy/bass/genre factors
// ABOUTME: Strictness shifts weight from BPM into harmonic; weights always renormalize to 1

package sequencer

import (
	"math"

	"github.com/stojg/crateforge/internal/camelot"
	"github.com/stojg/crateforge/internal/domain"
	"github.com/stojg/crateforge/internal/genre"
)

// Direction is the intended sign of the energy transition a strategy wants
// at a given position: rising, falling, or flat/don't-care.
type Direction int

const (
	DirectionFlat Direction = iota
	DirectionUp
	DirectionDown
)

// Params holds the §4.4.1 numeric parameters, shared by every strategy.
type Params struct {
	BPMTolerance       float64
	HarmonicStrictness int // 1..10
	GenreWeight        float64 // 0..1
	AllowExperimental  bool
	PeakPosition       float64 // percent, 0..100, used by Peak-Time Enhanced
}

// DefaultParams returns reasonable defaults for the numeric parameters
// §4.4 leaves to the caller.
func DefaultParams() Params {
	return Params{
		BPMTolerance:       4,
		HarmonicStrictness: 5,
		GenreWeight:        1,
		AllowExperimental:  false,
		PeakPosition:       50,
	}
}

// baseWeights are the §4.4.1 weights before strictness adjustment.
const (
	baseHarmonicWeight = 0.35
	baseBPMWeight      = 0.30
	energyWeight       = 0.15
	bassWeight         = 0.10
	baseGenreWeight    = 0.10
)

// weights returns the renormalized, strictness- and genre-weight-adjusted
// factor weights for the given params (§4.4.1: "weights renormalize to 1;
// where strictness scales the harmonic weight, subtract the excess from
// BPM weight").
func weights(p Params) (harmonic, bpm, energy, bass, g float64) {
	strictness := float64(p.HarmonicStrictness)
	if strictness < 1 {
		strictness = 1
	}

	if strictness > 10 {
		strictness = 10
	}

	harmonic = baseHarmonicWeight + 0.05*strictness
	excess := harmonic - baseHarmonicWeight
	bpm = baseBPMWeight - excess

	if bpm < 0 {
		bpm = 0
	}

	energy = energyWeight
	bass = bassWeight
	g = p.GenreWeight * baseGenreWeight

	total := harmonic + bpm + energy + bass + g
	if total <= 0 {
		return 0, 0, 0, 0, 0
	}

	return harmonic / total, bpm / total, energy / total, bass / total, g / total
}

// harmonicSubScore computes the §4.4.1 harmonic sub-score between two
// records' Camelot codes. An unparsable code scores 0 (treated as maximally
// incompatible rather than aborting the sequence).
func harmonicSubScore(a, b domain.Record, allowExperimental bool) float64 {
	ca, err := camelot.Parse(a.Camelot)
	if err != nil {
		return 0
	}

	cb, err := camelot.Parse(b.Camelot)
	if err != nil {
		return 0
	}

	return camelot.HarmonicSubScore(ca, cb, allowExperimental)
}

// bpmSubScore implements §4.4.1's BPM rule: 100 within tolerance/2, linear
// down to 0 at 2*tolerance.
func bpmSubScore(a, b domain.Record, tolerance float64) float64 {
	if tolerance <= 0 {
		tolerance = 4
	}

	delta := math.Abs(b.BPM - a.BPM)

	half := tolerance / 2
	if delta <= half {
		return 100
	}

	outer := 2 * tolerance
	if delta >= outer {
		return 0
	}

	return 100 * (outer - delta) / (outer - half)
}

// energySubScore implements §4.4.1's energy-direction rule given the
// strategy's intended direction at this position.
func energySubScore(a, b domain.Record, want Direction) float64 {
	if want == DirectionFlat {
		return 50
	}

	delta := b.Energy - a.Energy

	const eps = 1e-9

	switch {
	case delta > eps:
		if want == DirectionUp {
			return 100
		}

		return 0
	case delta < -eps:
		if want == DirectionDown {
			return 100
		}

		return 0
	default:
		return 50
	}
}

// bassSubScore implements §4.4.1's bass-continuity rule.
func bassSubScore(a, b domain.Record) float64 {
	return 100 - 100*math.Abs(a.BassIntensity-b.BassIntensity)
}

// genreSubScore implements §4.4.1's genre rule via the genre package.
func genreSubScore(a, b domain.Record) float64 {
	return genre.Score(a.Genre, b.Genre)
}

// Score computes the full weighted compatibility score c(A,B) in [0,100].
func Score(a, b domain.Record, p Params, want Direction) float64 {
	wH, wB, wE, wBass, wG := weights(p)

	h := harmonicSubScore(a, b, p.AllowExperimental)
	bpm := bpmSubScore(a, b, p.BPMTolerance)
	e := energySubScore(a, b, want)
	bass := bassSubScore(a, b)
	g := genreSubScore(a, b)

	return wH*h + wB*bpm + wE*e + wBass*bass + wG*g
}

// HarmonicHit reports whether a pair's harmonic sub-score meets the
// §4.4.3 hit-rate threshold (>= 70).
func HarmonicHit(a, b domain.Record, allowExperimental bool) bool {
	return harmonicSubScore(a, b, allowExperimental) >= 70
}
