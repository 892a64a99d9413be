// ABOUTME: M3U playlist export/import with #EXTINF/#MIXPOINT extensions (§6)
// ABOUTME: Grounded on the teacher's ReadPlaylist/WritePlaylist (playlist/playlist.go), extended for mix points

// Package export writes and reads the two playlist interchange formats of
// §6: the extended M3U variant carrying mix points, and a structured XML
// variant with per-track POSITION_MARK children.
package export

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/stojg/crateforge/internal/domain"
)

// WriteM3U writes tracks to path in the §6 extended M3U form: one
// #EXTINF+#MIXPOINT+path triple per track, blank line between, UTF-8, LF
// line endings.
func WriteM3U(path, name string, tracks []domain.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create m3u: %w", err)
	}

	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)

	if _, err := w.WriteString("#EXTM3U\n#EXTENC:UTF-8\n#PLAYLIST:" + name + "\n"); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i, t := range tracks {
		if i > 0 {
			if _, err := w.WriteString("\n"); err != nil {
				return fmt.Errorf("export: write blank line: %w", err)
			}
		}

		durationInt := int(math.Round(t.DurationS))

		line := fmt.Sprintf("#EXTINF:%d,%s - %s\n#MIXPOINT:%s,%s\n%s\n",
			durationInt, t.Artist, t.Title,
			formatSeconds(t.MixInS), formatSeconds(t.MixOutS), t.Path)

		if _, err := w.WriteString(line); err != nil {
			return fmt.Errorf("export: write track: %w", err)
		}
	}

	return w.Flush()
}

// formatSeconds renders a duration with enough precision for a round-trip
// (six decimal places covers sub-millisecond fidelity without scientific
// notation).
func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}

// M3UTrack is the tuple the round-trip law of §8 checks: (path, mix_in_s,
// mix_out_s, artist, title, duration_s_int).
type M3UTrack struct {
	Path           string
	Artist         string
	Title          string
	DurationSInt   int
	MixInS         float64
	MixOutS        float64
}

// ReadM3U parses the §6 extended M3U form back into M3UTrack tuples,
// closing the round-trip law of §8.
func ReadM3U(path string) ([]M3UTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open m3u: %w", err)
	}

	defer func() { _ = f.Close() }()

	var tracks []M3UTrack

	var pending M3UTrack
	havePending := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#EXTINF:"):
			pending = M3UTrack{}
			havePending = true

			rest := strings.TrimPrefix(trimmed, "#EXTINF:")

			comma := strings.Index(rest, ",")
			if comma < 0 {
				continue
			}

			durStr, artistTitle := rest[:comma], rest[comma+1:]

			if d, err := strconv.Atoi(strings.TrimSpace(durStr)); err == nil {
				pending.DurationSInt = d
			}

			if sep := strings.Index(artistTitle, " - "); sep >= 0 {
				pending.Artist = artistTitle[:sep]
				pending.Title = artistTitle[sep+3:]
			} else {
				pending.Title = artistTitle
			}
		case strings.HasPrefix(trimmed, "#MIXPOINT:"):
			rest := strings.TrimPrefix(trimmed, "#MIXPOINT:")

			parts := strings.SplitN(rest, ",", 2)
			if len(parts) == 2 {
				if in, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
					pending.MixInS = in
				}

				if out, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
					pending.MixOutS = out
				}
			}
		case strings.HasPrefix(trimmed, "#"):
			continue
		default:
			if havePending {
				pending.Path = trimmed
				tracks = append(tracks, pending)
				havePending = false
			} else {
				tracks = append(tracks, M3UTrack{Path: trimmed})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("export: read m3u: %w", err)
	}

	return tracks, nil
}
