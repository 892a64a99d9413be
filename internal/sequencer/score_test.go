// ABOUTME: Tests for the weighted compatibility score c(A,B) of §4.4.1

package sequencer

import (
	"math"
	"testing"

	"github.com/stojg/crateforge/internal/domain"
)

func TestScoreIdenticalTracksIsMaximal(t *testing.T) {
	a := domain.Record{Camelot: "8A", BPM: 128, Energy: 0.5, BassIntensity: 0.5, Genre: "house"}
	b := a

	got := Score(a, b, DefaultParams(), DirectionFlat)
	// Every factor is 100 except energy, which scores 50 for equal energies
	// under DirectionFlat: 100 - 0.15*50 = 92.5 is the best flat-direction score.
	if math.Abs(got-92.5) > 1e-9 {
		t.Errorf("expected the maximal flat-direction score 92.5 for identical tracks, got %v", got)
	}
}

func TestScorePenalizesLargeBPMJump(t *testing.T) {
	p := DefaultParams()
	a := domain.Record{Camelot: "8A", BPM: 120, Energy: 0.5, BassIntensity: 0.5, Genre: "house"}
	close := domain.Record{Camelot: "8A", BPM: 121, Energy: 0.5, BassIntensity: 0.5, Genre: "house"}
	far := domain.Record{Camelot: "8A", BPM: 160, Energy: 0.5, BassIntensity: 0.5, Genre: "house"}

	scoreClose := Score(a, close, p, DirectionFlat)
	scoreFar := Score(a, far, p, DirectionFlat)

	if scoreClose <= scoreFar {
		t.Errorf("expected close BPM pair to score higher: close=%v far=%v", scoreClose, scoreFar)
	}
}

func TestWeightsRenormalizeToOne(t *testing.T) {
	for strictness := 1; strictness <= 10; strictness++ {
		p := Params{HarmonicStrictness: strictness, GenreWeight: 1}
		h, bpm, e, bass, g := weights(p)

		sum := h + bpm + e + bass + g
		if diff := sum - 1; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("strictness=%d: weights sum to %v, want 1", strictness, sum)
		}
	}
}

func TestHarmonicHit(t *testing.T) {
	a := domain.Record{Camelot: "8A"}
	near := domain.Record{Camelot: "9A"}
	far := domain.Record{Camelot: "2A"}

	if !HarmonicHit(a, near, false) {
		t.Error("expected adjacent same-letter codes to be a harmonic hit")
	}

	if HarmonicHit(a, far, false) {
		t.Error("expected distant codes not to be a harmonic hit")
	}
}
