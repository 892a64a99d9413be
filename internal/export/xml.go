// ABOUTME: Structured XML playlist export (§6): Location/Name/Artist/Genre/TotalTime/AverageBpm/Tonality with POSITION_MARK children
// ABOUTME: Uses encoding/xml (stdlib) — no example repo wires a third-party XML marshaller for this NML-like interchange format

package export

import (
	"encoding/xml"
	"fmt"
	"math"
	"net/url"
	"os"

	"github.com/stojg/crateforge/internal/camelot"
	"github.com/stojg/crateforge/internal/domain"
)

// PositionMark is a mix-in/mix-out marker on a track (§6).
type PositionMark struct {
	XMLName xml.Name `xml:"POSITION_MARK"`
	Name    string   `xml:"Name,attr"`
	Start   string   `xml:"Start,attr"`
}

// TrackEntry is one track's structured XML representation (§6).
type TrackEntry struct {
	XMLName    xml.Name       `xml:"TRACK"`
	Location   string         `xml:"Location,attr"`
	Name       string         `xml:"Name,attr"`
	Artist     string         `xml:"Artist,attr"`
	Genre      string         `xml:"Genre,attr"`
	TotalTime  int            `xml:"TotalTime,attr"`
	AverageBpm string         `xml:"AverageBpm,attr"`
	Tonality   string         `xml:"Tonality,attr"`
	Marks      []PositionMark `xml:"POSITION_MARK"`
}

// Collection is the root element wrapping every track entry.
type Collection struct {
	XMLName xml.Name     `xml:"COLLECTION"`
	Entries int          `xml:"Entries,attr"`
	Tracks  []TrackEntry `xml:"TRACK"`
}

// tonalityTable is the fixed 24-entry Camelot->Tonality mapping §6
// requires. Built from camelot.ToKey rather than duplicated literally, so
// it can never drift from the FromKey/ToKey round-trip table.
func tonalityTable() map[string]string {
	table := make(map[string]string, 24)

	for n := 1; n <= 12; n++ {
		for _, letter := range []byte{'A', 'B'} {
			code := camelot.Code{Number: n, Letter: letter}

			root, mode, err := camelot.ToKey(code)
			if err != nil {
				continue
			}

			name := camelot.NoteName(root)
			if mode == "minor" {
				name += "m"
			}

			table[code.String()] = name
		}
	}

	return table
}

// WriteXML writes tracks to path as the §6 structured XML variant.
func WriteXML(path string, tracks []domain.Record) error {
	table := tonalityTable()

	entries := make([]TrackEntry, len(tracks))

	for i, t := range tracks {
		entries[i] = TrackEntry{
			Location:   fileURI(t.Path),
			Name:       t.Title,
			Artist:     t.Artist,
			Genre:      t.Genre,
			TotalTime:  int(math.Round(t.DurationS)),
			AverageBpm: fmt.Sprintf("%.2f", t.BPM),
			Tonality:   table[t.Camelot],
			Marks: []PositionMark{
				{Name: "MIX IN", Start: fmt.Sprintf("%.6f", t.MixInS)},
				{Name: "MIX OUT", Start: fmt.Sprintf("%.6f", t.MixOutS)},
			},
		}
	}

	col := Collection{Entries: len(entries), Tracks: entries}

	out, err := xml.MarshalIndent(col, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal xml: %w", err)
	}

	body := append([]byte(xml.Header), out...)

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("export: write xml: %w", err)
	}

	return nil
}

// fileURI renders an absolute filesystem path as a file:// URI.
func fileURI(path string) string {
	u := url.URL{Scheme: "file", Path: path}

	return u.String()
}
