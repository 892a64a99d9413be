// ABOUTME: Camelot wheel utilities: key<->Camelot mapping, wheel distance and harmonic sub-scores
// ABOUTME: Adapted from the teacher's relative/parallel major-minor detection, generalized to the full 24-entry table

// Package camelot implements the Camelot wheel used for harmonic mixing:
// mapping a (root pitch class, mode) pair to its two-character code and
// back, and scoring how compatible two codes are for a DJ transition.
package camelot

import (
	"fmt"
	"regexp"
	"strconv"
)

// Code is a parsed Camelot code, e.g. "8A".
type Code struct {
	Number int  // 1..12
	Letter byte // 'A' (minor) or 'B' (major)
}

var codeRegex = regexp.MustCompile(`^(\d{1,2})([AB])$`)

// Parse parses a Camelot code string like "8A" into its structured form.
func Parse(s string) (Code, error) {
	m := codeRegex.FindStringSubmatch(s)
	if m == nil {
		return Code{}, fmt.Errorf("invalid camelot code: %q", s)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 12 {
		return Code{}, fmt.Errorf("invalid camelot number: %q", m[1])
	}

	return Code{Number: n, Letter: m[2][0]}, nil
}

func (c Code) String() string {
	return fmt.Sprintf("%d%c", c.Number, c.Letter)
}

// noteNames indexes pitch classes 0=C, 1=C#, ... 11=B.
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the pitch-class name for root in [0,11].
func NoteName(root int) string {
	return noteNames[((root%12)+12)%12]
}

// camelotForMajorRoot maps a major-key root pitch class (0=C) to its
// Camelot number. Derived so that adjacent Camelot numbers are a perfect
// fifth (7 semitones) apart and same-number A/B are relative minor/major,
// matching the fixed 24-entry table referenced throughout spec.md.
var camelotForMajorRoot = map[int]int{
	11: 1, // B major  -> 1B
	6:  2, // F# major -> 2B
	1:  3, // Db major -> 3B
	8:  4, // Ab major -> 4B
	3:  5, // Eb major -> 5B
	10: 6, // Bb major -> 6B
	5:  7, // F major  -> 7B
	0:  8, // C major  -> 8B
	7:  9, // G major  -> 9B
	2:  10, // D major -> 10B
	9:  11, // A major -> 11B
	4:  12, // E major -> 12B
}

// FromKey derives the Camelot code for a (root pitch class, mode) pair.
// A = minor, B = major; the relative minor of a major key shares its
// number (§3 invariant: A <-> minor, B <-> major).
func FromKey(root int, mode string) (Code, error) {
	root = ((root % 12) + 12) % 12

	switch mode {
	case "major":
		n, ok := camelotForMajorRoot[root]
		if !ok {
			return Code{}, fmt.Errorf("no camelot mapping for major root %d", root)
		}

		return Code{Number: n, Letter: 'B'}, nil
	case "minor":
		// The relative major of a minor key is 3 semitones up; reuse the
		// major table and keep the same wheel number with letter A.
		majorRoot := (root + 3) % 12

		n, ok := camelotForMajorRoot[majorRoot]
		if !ok {
			return Code{}, fmt.Errorf("no camelot mapping for minor root %d", root)
		}

		return Code{Number: n, Letter: 'A'}, nil
	default:
		return Code{}, fmt.Errorf("unknown mode: %q", mode)
	}
}

// ToKey is the inverse of FromKey: it recovers (root pitch class, mode)
// from a Camelot code, closing the round-trip law of §8.
func ToKey(c Code) (root int, mode string, err error) {
	for majorRoot, n := range camelotForMajorRoot {
		if n != c.Number {
			continue
		}

		switch c.Letter {
		case 'B':
			return majorRoot, "major", nil
		case 'A':
			return ((majorRoot - 3) % 12 + 12) % 12, "minor", nil
		}
	}

	return 0, "", fmt.Errorf("no key for camelot code %s", c)
}

// WheelDistance returns the circular distance between two Camelot numbers
// on the 12-position wheel (0..6).
func WheelDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}

	if d > 6 {
		d = 12 - d
	}

	return d
}

// HarmonicSubScore implements the §4.4.1 harmonic sub-score rule for an
// ordered pair of Camelot codes. allowExperimental controls the score for
// every transition not listed above (steps beyond ±3, and ±1 steps that
// also change letter), which are otherwise scored 0.
func HarmonicSubScore(a, b Code, allowExperimental bool) float64 {
	if a.Number == b.Number && a.Letter == b.Letter {
		return 100
	}

	if a.Number == b.Number {
		return 95 // same number, other letter: relative major/minor
	}

	dist := WheelDistance(a.Number, b.Number)

	switch {
	case dist == 1 && a.Letter == b.Letter:
		return 90
	case dist == 2:
		return 70
	case dist == 3:
		return 40
	default:
		if allowExperimental {
			return 20
		}

		return 0
	}
}
