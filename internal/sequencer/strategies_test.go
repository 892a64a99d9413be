// ABOUTME: Tests for strategy ordering, including the §8 Harmonic Flow end-to-end scenario

package sequencer

import (
	"testing"

	"github.com/stojg/crateforge/internal/domain"
)

func trackAt(path, camelot string, bpm float64) domain.Record {
	return domain.Record{Path: path, Camelot: camelot, BPM: bpm, Energy: 0.5, BassIntensity: 0.5, Genre: "house"}
}

func TestHarmonicFlowOrdering(t *testing.T) {
	pool := []domain.Record{
		trackAt("/music/1_8A.flac", "8A", 128),
		trackAt("/music/2_9A.flac", "9A", 128),
		trackAt("/music/3_10A.flac", "10A", 128),
		trackAt("/music/4_3B.flac", "3B", 128),
	}

	p := DefaultParams()

	playlist, metrics := Sequence(pool, HarmonicFlow, p, nil)

	want := []string{"8A", "9A", "10A", "3B"}

	if len(playlist.Tracks) != len(want) {
		t.Fatalf("expected %d tracks, got %d", len(want), len(playlist.Tracks))
	}

	for i, w := range want {
		if playlist.Tracks[i].Camelot != w {
			t.Errorf("position %d: got %s, want %s", i, playlist.Tracks[i].Camelot, w)
		}
	}

	if metrics.HarmonicHitRate < 2.0/3.0-1e-9 {
		t.Errorf("expected harmonic_hit_rate >= 2/3, got %v", metrics.HarmonicHitRate)
	}
}

func TestSequenceEmptyPoolReturnsZeroedMetrics(t *testing.T) {
	playlist, metrics := Sequence(nil, HarmonicFlow, DefaultParams(), nil)

	if len(playlist.Tracks) != 0 {
		t.Errorf("expected empty playlist, got %d tracks", len(playlist.Tracks))
	}

	if metrics.MeanCompatValid {
		t.Error("expected MeanCompatValid=false for empty playlist")
	}
}

func TestSequenceIsAPermutation(t *testing.T) {
	pool := []domain.Record{
		trackAt("/music/a.flac", "8A", 120),
		trackAt("/music/b.flac", "1A", 140),
		trackAt("/music/c.flac", "6B", 100),
		trackAt("/music/d.flac", "11B", 160),
	}

	for _, s := range Strategies {
		playlist, _ := Sequence(pool, s, DefaultParams(), nil)

		if len(playlist.Tracks) != len(pool) {
			t.Fatalf("strategy %s: expected %d tracks, got %d", s, len(pool), len(playlist.Tracks))
		}

		seen := make(map[string]bool)

		for _, tr := range playlist.Tracks {
			if seen[tr.Path] {
				t.Fatalf("strategy %s: duplicate track %s in output", s, tr.Path)
			}

			seen[tr.Path] = true
		}
	}
}

func TestWarmUpOrdersByBPMAscending(t *testing.T) {
	pool := []domain.Record{
		trackAt("/music/a.flac", "8A", 140),
		trackAt("/music/b.flac", "8A", 100),
		trackAt("/music/c.flac", "8A", 120),
	}

	playlist, _ := Sequence(pool, WarmUp, DefaultParams(), nil)

	for i := 1; i < len(playlist.Tracks); i++ {
		if playlist.Tracks[i].BPM < playlist.Tracks[i-1].BPM {
			t.Errorf("warm_up: expected ascending BPM, got %v before %v", playlist.Tracks[i-1].BPM, playlist.Tracks[i].BPM)
		}
	}
}

func TestCoolDownOrdersByBPMDescending(t *testing.T) {
	pool := []domain.Record{
		trackAt("/music/a.flac", "8A", 100),
		trackAt("/music/b.flac", "8A", 140),
		trackAt("/music/c.flac", "8A", 120),
	}

	playlist, _ := Sequence(pool, CoolDown, DefaultParams(), nil)

	for i := 1; i < len(playlist.Tracks); i++ {
		if playlist.Tracks[i].BPM > playlist.Tracks[i-1].BPM {
			t.Errorf("cool_down: expected descending BPM, got %v before %v", playlist.Tracks[i-1].BPM, playlist.Tracks[i].BPM)
		}
	}
}
