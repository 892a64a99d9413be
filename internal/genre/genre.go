// ABOUTME: Genre similarity scoring for the sequencer's genre factor (§4.4.1)
// ABOUTME: Family table contents are an implementation decision per spec §9 Open Questions, adapted from the teacher's hierarchy

// Package genre scores similarity between two genre strings: equal (100),
// same family (60), or unrelated (0), per spec.md §4.4.1's score rule. The
// family table is a flattening of the teacher's hierarchical genre map
// (playlist/genre.go) down to spec's coarser three-tier score.
package genre

import "strings"

// FamilyTable maps a normalized genre string to its family name. Two
// genres in the same family (but not identical) score 60; spec.md leaves
// the contents of this table an implementation decision.
var FamilyTable = map[string]string{
	"house":             "electronic",
	"electro house":      "electronic",
	"progressive house":  "electronic",
	"techno":             "electronic",
	"trance":             "electronic",
	"drum and bass":      "electronic",
	"dnb":                "electronic",
	"jungle":             "electronic",
	"dubstep":            "electronic",
	"electro swing":      "electronic",
	"breakbeat":          "electronic",
	"garage":             "electronic",
	"electronica":        "electronic",
	"synthwave":          "electronic",
	"edm":                "electronic",

	"rock":         "rock",
	"alternative":  "rock",
	"hard rock":    "rock",
	"punk":         "rock",
	"indie":        "rock",
	"industrial":   "rock",

	"metal":        "metal",
	"heavy metal":  "metal",
	"thrash metal": "metal",

	"hip hop": "hip hop",
	"rap":     "hip hop",
	"trap":    "hip hop",

	"jazz":      "jazz",
	"acid jazz": "jazz",
	"fusion":    "jazz",

	"funk": "funk soul",
	"soul": "funk soul",
	"r&b":  "funk soul",

	"reggae":       "reggae",
	"dub":          "reggae",
	"roots reggae": "reggae",

	"pop":      "pop",
	"dance":    "pop",
	"dj pop":   "pop",
}

// normalize matches the §4.4.1 rule: case-insensitive, trimmed.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Score implements the §4.4.1 genre factor rule: 100 for an exact
// (case-insensitive, trimmed) match, 60 for two genres with the same
// family-table entry, 0 otherwise.
func Score(a, b string) float64 {
	na, nb := normalize(a), normalize(b)

	if na == nb {
		return 100
	}

	if na == "" || nb == "" {
		return 0
	}

	famA, okA := FamilyTable[na]
	famB, okB := FamilyTable[nb]

	if okA && okB && famA == famB {
		return 60
	}

	return 0
}
