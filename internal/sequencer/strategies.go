// ABOUTME: The ten closed sequencing strategies of §4.4.2, dispatched on a closed tagged Strategy value
// ABOUTME: All strategies select a deterministic seed (lexicographic path order on ties) and never abort mid-sequence

package sequencer

import (
	"math"
	"sort"

	"github.com/stojg/crateforge/internal/domain"
)

// Strategy is the closed tagged variant of §9's design note: ten named
// ordering policies, dispatched on the tag rather than a dynamic string
// lookup.
type Strategy string

const (
	HarmonicFlow         Strategy = "harmonic_flow"
	HarmonicFlowEnhanced Strategy = "harmonic_flow_enhanced"
	WarmUp               Strategy = "warm_up"
	CoolDown             Strategy = "cool_down"
	PeakTimeEnhanced     Strategy = "peak_time_enhanced"
	EnergyWaveEnhanced   Strategy = "energy_wave_enhanced"
	ConsistentEnhanced   Strategy = "consistent_enhanced"
	GenreFlow            Strategy = "genre_flow"
	EmotionalJourney     Strategy = "emotional_journey"
	SmartHarmonic        Strategy = "smart_harmonic"
)

// Strategies lists all ten closed values, in the order §4.4.2 names them.
var Strategies = []Strategy{
	HarmonicFlow, HarmonicFlowEnhanced, WarmUp, CoolDown, PeakTimeEnhanced,
	EnergyWaveEnhanced, ConsistentEnhanced, GenreFlow, EmotionalJourney, SmartHarmonic,
}

// RelaxationEvent is the non-fatal ConstraintRelaxed event of §4.4.4/§7.
type RelaxationEvent struct {
	Step   int
	Detail string
}

// EventSink receives constraint_relaxed events as they occur; nil is valid
// (events are simply dropped).
type EventSink func(RelaxationEvent)

func sortByPath(records []domain.Record) []domain.Record {
	out := append([]domain.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

func removeAt(records []domain.Record, i int) []domain.Record {
	out := make([]domain.Record, 0, len(records)-1)
	out = append(out, records[:i]...)
	out = append(out, records[i+1:]...)

	return out
}

// greedyOrder is the shared engine behind Harmonic Flow, Harmonic Flow
// Enhanced, Genre Flow's per-cluster ordering, Emotional Journey's
// per-partition ordering, and Smart Harmonic: pick a deterministic seed,
// then repeatedly append the candidate maximizing score(prev, cand,
// remaining), restricted to a hard BPM window that widens by +1 BPM on
// each step where it would otherwise reject every candidate.
func greedyOrder(pool []domain.Record, p Params, want func(step, total int) Direction,
	score func(prev, cand domain.Record, step, total int, remaining []domain.Record, p Params, want Direction) float64,
	relax EventSink) []domain.Record {
	ordered := sortByPath(pool)
	if len(ordered) == 0 {
		return ordered
	}

	result := []domain.Record{ordered[0]}
	remaining := ordered[1:]
	total := len(ordered)

	for len(remaining) > 0 {
		step := len(result)
		prev := result[len(result)-1]
		d := want(step, total)

		window := p.BPMTolerance
		if window <= 0 {
			window = 4
		}

		best := -1
		bestScore := math.Inf(-1)
		widened := 0

		for {
			for i, cand := range remaining {
				if math.Abs(cand.BPM-prev.BPM) > window {
					continue
				}

				s := score(prev, cand, step, total, remaining, p, d)
				if s > bestScore {
					bestScore = s
					best = i
				}
			}

			if best != -1 {
				break
			}

			window++
			widened++

			if relax != nil && widened == 1 {
				relax(RelaxationEvent{Step: step, Detail: "bpm_window_widened"})
			}

			if widened > 2000 {
				// Window already exceeds any possible BPM delta; fall back
				// to scoring every remaining candidate unrestricted.
				for i, cand := range remaining {
					s := score(prev, cand, step, total, remaining, p, d)
					if s > bestScore {
						bestScore = s
						best = i
					}
				}

				break
			}
		}

		result = append(result, remaining[best])
		remaining = removeAt(remaining, best)
	}

	return result
}

func plainScore(prev, cand domain.Record, _, _ int, _ []domain.Record, p Params, want Direction) float64 {
	return Score(prev, cand, p, want)
}

// lookaheadScore implements Harmonic Flow Enhanced's one-step lookahead:
// c(prev, cand) + 0.5 * max_{x in pool\{cand}} c(cand, x).
func lookaheadScore(prev, cand domain.Record, _, _ int, remaining []domain.Record, p Params, want Direction) float64 {
	base := Score(prev, cand, p, want)

	best := 0.0
	found := false

	for _, x := range remaining {
		if x.Path == cand.Path {
			continue
		}

		s := Score(cand, x, p, want)
		if !found || s > best {
			best = s
			found = true
		}
	}

	return base + 0.5*best
}

func flatDirection(int, int) Direction { return DirectionFlat }

// peakTimeDirection implements the discrete sine-wave direction signal of
// §4.4.2: rising for 0..peakPosition% of the playlist, falling thereafter.
func peakTimeDirection(peakPosition float64) func(step, total int) Direction {
	return func(step, total int) Direction {
		if total <= 1 {
			return DirectionFlat
		}

		pct := 100 * float64(step) / float64(total-1)
		if pct <= peakPosition {
			return DirectionUp
		}

		return DirectionDown
	}
}

// energyWaveDirection alternates up/down every step.
func energyWaveDirection(step, _ int) Direction {
	if step%2 == 0 {
		return DirectionUp
	}

	return DirectionDown
}

// smartHarmonicOrder decays harmonic strictness linearly from 10 to 5
// across the playlist (§4.4.2) so the opening favors harmonic precision
// more than the tail does.
func smartHarmonicOrder(pool []domain.Record, p Params, relax EventSink) []domain.Record {
	n := len(pool)

	score := func(prev, cand domain.Record, step, total int, remaining []domain.Record, base Params, want Direction) float64 {
		stepP := base
		if total > 1 {
			frac := float64(step) / float64(total-1)
			stepP.HarmonicStrictness = int(math.Round(10 - 5*frac))
		} else {
			stepP.HarmonicStrictness = 10
		}

		return Score(prev, cand, stepP, want)
	}

	_ = n

	return greedyOrder(pool, p, flatDirection, score, relax)
}

// warmUpOrder sorts by BPM ascending, tie-broken by energy ascending, then
// by path for full determinism.
func warmUpOrder(pool []domain.Record) []domain.Record {
	out := sortByPath(pool)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BPM != out[j].BPM {
			return out[i].BPM < out[j].BPM
		}

		return out[i].Energy < out[j].Energy
	})

	return out
}

// coolDownOrder is Warm-Up's dual: BPM descending, energy descending.
func coolDownOrder(pool []domain.Record) []domain.Record {
	out := sortByPath(pool)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BPM != out[j].BPM {
			return out[i].BPM > out[j].BPM
		}

		return out[i].Energy > out[j].Energy
	})

	return out
}

// consistentEnhancedOrder greedily minimizes |ΔBPM| + |Δenergy|, breaking
// ties with the higher harmonic sub-score and finally by path.
func consistentEnhancedOrder(pool []domain.Record, p Params) []domain.Record {
	ordered := sortByPath(pool)
	if len(ordered) == 0 {
		return ordered
	}

	result := []domain.Record{ordered[0]}
	remaining := ordered[1:]

	for len(remaining) > 0 {
		prev := result[len(result)-1]

		best := 0
		bestCost := math.Inf(1)
		bestHarm := -1.0

		for i, cand := range remaining {
			cost := math.Abs(cand.BPM-prev.BPM) + math.Abs(cand.Energy-prev.Energy)
			harm := harmonicSubScore(prev, cand, p.AllowExperimental)

			switch {
			case cost < bestCost-1e-9:
				bestCost, best, bestHarm = cost, i, harm
			case math.Abs(cost-bestCost) <= 1e-9 && harm > bestHarm:
				best, bestHarm = i, harm
			}
		}

		result = append(result, remaining[best])
		remaining = removeAt(remaining, best)
	}

	return result
}

// genreFlowOrder clusters tracks by exact genre string, orders clusters by
// mean energy ascending (ties by genre name), and runs Harmonic Flow
// within each cluster.
func genreFlowOrder(pool []domain.Record, p Params, relax EventSink) []domain.Record {
	clusters := make(map[string][]domain.Record)

	var keys []string

	for _, r := range pool {
		key := r.Genre
		if _, ok := clusters[key]; !ok {
			keys = append(keys, key)
		}

		clusters[key] = append(clusters[key], r)
	}

	meanEnergy := func(key string) float64 {
		sum := 0.0
		for _, r := range clusters[key] {
			sum += r.Energy
		}

		return sum / float64(len(clusters[key]))
	}

	sort.SliceStable(keys, func(i, j int) bool {
		ei, ej := meanEnergy(keys[i]), meanEnergy(keys[j])
		if ei != ej {
			return ei < ej
		}

		return keys[i] < keys[j]
	})

	var out []domain.Record

	for _, key := range keys {
		out = append(out, greedyOrder(clusters[key], p, flatDirection, plainScore, relax)...)
	}

	return out
}

// emotionalJourneyOrder partitions the pool into intro(20%)/build(30%)/
// peak(25%)/cool(25%) by count, running Harmonic Flow within each
// partition with that phase's energy direction.
func emotionalJourneyOrder(pool []domain.Record, p Params, relax EventSink) []domain.Record {
	ordered := sortByPath(pool)
	n := len(ordered)

	introN := int(math.Round(float64(n) * 0.20))
	buildN := int(math.Round(float64(n) * 0.30))
	peakN := int(math.Round(float64(n) * 0.25))

	introN = clampCount(introN, 0, n)
	buildN = clampCount(buildN, 0, n-introN)
	peakN = clampCount(peakN, 0, n-introN-buildN)
	coolN := n - introN - buildN - peakN

	intro := ordered[:introN]
	build := ordered[introN : introN+buildN]
	peak := ordered[introN+buildN : introN+buildN+peakN]
	cool := ordered[n-coolN:]

	var out []domain.Record
	out = append(out, greedyOrder(intro, p, flatDirection, plainScore, relax)...)
	out = append(out, greedyOrder(build, p, constDirection(DirectionUp), plainScore, relax)...)
	out = append(out, greedyOrder(peak, p, flatDirection, plainScore, relax)...)
	out = append(out, greedyOrder(cool, p, constDirection(DirectionDown), plainScore, relax)...)

	return out
}

func constDirection(d Direction) func(int, int) Direction {
	return func(int, int) Direction { return d }
}

func clampCount(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// Order dispatches on the strategy tag and returns the ordered track list
// (not yet paired with quality metrics — see Sequence in sequencer.go).
func Order(pool []domain.Record, strategy Strategy, p Params, relax EventSink) []domain.Record {
	switch strategy {
	case HarmonicFlow:
		return greedyOrder(pool, p, flatDirection, plainScore, relax)
	case HarmonicFlowEnhanced:
		return greedyOrder(pool, p, flatDirection, lookaheadScore, relax)
	case WarmUp:
		return warmUpOrder(pool)
	case CoolDown:
		return coolDownOrder(pool)
	case PeakTimeEnhanced:
		return greedyOrder(pool, p, peakTimeDirection(p.PeakPosition), plainScore, relax)
	case EnergyWaveEnhanced:
		return greedyOrder(pool, p, energyWaveDirection, plainScore, relax)
	case ConsistentEnhanced:
		return consistentEnhancedOrder(pool, p)
	case GenreFlow:
		return genreFlowOrder(pool, p, relax)
	case EmotionalJourney:
		return emotionalJourneyOrder(pool, p, relax)
	case SmartHarmonic:
		return smartHarmonicOrder(pool, p, relax)
	default:
		return greedyOrder(pool, p, flatDirection, plainScore, relax)
	}
}

// IntendedDirection returns the strategy's per-step intended energy
// direction function, used by the quality-metrics energy_correlation
// computation. Order does not call it: the orderers above pick their own
// directions, and for some strategies (Emotional Journey among them) those
// differ from the curve returned here.
func IntendedDirection(strategy Strategy, p Params) func(step, total int) Direction {
	switch strategy {
	case PeakTimeEnhanced:
		return peakTimeDirection(p.PeakPosition)
	case EnergyWaveEnhanced:
		return energyWaveDirection
	case WarmUp:
		return constDirection(DirectionUp)
	case CoolDown:
		return constDirection(DirectionDown)
	default:
		return flatDirection
	}
}
