// ABOUTME: Ties tempo, key, energy and structure estimation into the full feature record of §4.1
// ABOUTME: Implements the failure policy: no record without confident tempo and key; structure failure degrades to a fallback instead

// Package feature implements C1, the audio feature extractor: from a
// decoded mono PCM signal it derives BPM, key/Camelot, energy, bass
// intensity, section map and mix points.
package feature

import (
	"errors"
	"fmt"
	"math"

	"github.com/stojg/crateforge/internal/camelot"
	"github.com/stojg/crateforge/internal/domain"
)

// ErrInvalidSignal is returned for PCM that cannot be analyzed at all
// (NaN/Inf samples or zero duration) — the DecodeError case of §7.
var ErrInvalidSignal = errors.New("feature: invalid PCM signal")

// ExternalMetadata carries the optional artist/title/genre tuple the
// extractor is handed alongside the decoded signal (§4.1 inputs).
type ExternalMetadata struct {
	Artist string
	Title  string
	Genre  string
}

// Extract implements §4.1: given mono float32 PCM at sampleRate and the
// original duration, produce a feature record or an error identifying which
// stage failed. The returned record has a zero Path/SizeB/MTimeNs — the
// caller (C3) stamps those before handing it to the cache; SchemaVersion is
// already set to domain.CurrentSchemaVersion.
func Extract(samples []float32, sampleRate int, durationS float64, meta ExternalMetadata) (domain.Record, error) {
	if durationS <= 0 || len(samples) == 0 {
		return domain.Record{}, fmt.Errorf("%w: zero duration", ErrInvalidSignal)
	}

	for _, s := range samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.Record{}, fmt.Errorf("%w: non-finite sample", ErrInvalidSignal)
		}
	}

	bpm, err := EstimateBPM(samples, sampleRate)
	if err != nil {
		return domain.Record{}, fmt.Errorf("tempo estimation failed: %w", err)
	}

	root, mode, code, err := EstimateKey(samples, sampleRate)
	if err != nil {
		return domain.Record{}, fmt.Errorf("key estimation failed: %w", err)
	}

	energy := EstimateEnergy(samples, sampleRate)
	bass := EstimateBassIntensity(samples, sampleRate)

	sections, mixInS, mixOutS, fallback := DeriveStructure(samples, sampleRate, bpm, durationS)

	rec := domain.Record{
		Artist:            orUnknown(meta.Artist),
		Title:             orUnknown(meta.Title),
		Genre:             orUnknown(meta.Genre),
		DurationS:         durationS,
		BPM:               bpm,
		KeyRoot:           root,
		KeyMode:           domain.KeyMode(mode),
		Camelot:           code.String(),
		Energy:            energy,
		BassIntensity:     bass,
		Sections:          sections,
		MixInS:            mixInS,
		MixOutS:           mixOutS,
		StructureFallback: fallback,
		SchemaVersion:     domain.CurrentSchemaVersion,
	}

	if err := rec.Valid(); err != nil {
		return domain.Record{}, fmt.Errorf("produced record failed invariants: %w", err)
	}

	// ToKey/FromKey round-trip sanity (§8): should always hold given FromKey
	// was used to produce code, but cheap to assert defensively here since
	// a broken mapping would otherwise silently corrupt every cached record.
	if rt, rm, rerr := camelot.ToKey(code); rerr == nil && (rt != root || rm != mode) {
		return domain.Record{}, fmt.Errorf("camelot round-trip mismatch for %s", code)
	}

	return rec, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}

	return s
}
