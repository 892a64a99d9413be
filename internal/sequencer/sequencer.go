// ABOUTME: Top-level C4 entry point: dispatch to a strategy, then compute quality metrics (§4.4)
// ABOUTME: Never fails — empty input returns an empty playlist with zeroed metrics per §4.4.4

// Package sequencer implements C4, the playlist sequencer: ten closed
// ordering strategies over a pool of feature records, a weighted pairwise
// compatibility score, and the quality metrics that summarize a produced
// ordering.
package sequencer

import "github.com/stojg/crateforge/internal/domain"

// Sequence implements §4.4's public contract: given a pool of records, a
// strategy, and parameters, return a permutation of the pool plus its
// quality metrics. It never fails: an empty pool yields an empty playlist
// with all metrics zeroed (§4.4.4), and constraint relaxation inside a
// strategy is reported via relax rather than aborting.
func Sequence(pool []domain.Record, strategy Strategy, p Params, relax EventSink) (domain.Playlist, domain.QualityMetrics) {
	if len(pool) == 0 {
		return domain.Playlist{}, domain.QualityMetrics{}
	}

	ordered := Order(pool, strategy, p, relax)
	metrics := ComputeMetrics(ordered, strategy, p)

	return domain.Playlist{Tracks: ordered}, metrics
}
