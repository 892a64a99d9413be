// ABOUTME: Tests for M3U export/import, including the §8 round-trip law

package export

import (
	"path/filepath"
	"testing"

	"github.com/stojg/crateforge/internal/domain"
)

func TestM3URoundTrip(t *testing.T) {
	tracks := []domain.Record{
		{Path: "/music/a.flac", Artist: "Artist A", Title: "Title A", DurationS: 181.6, MixInS: 12.25, MixOutS: 165.75},
		{Path: "/music/b.flac", Artist: "Artist B", Title: "Title B", DurationS: 200, MixInS: 20, MixOutS: 180},
	}

	path := filepath.Join(t.TempDir(), "playlist.m3u8")

	if err := WriteM3U(path, "test playlist", tracks); err != nil {
		t.Fatalf("WriteM3U failed: %v", err)
	}

	got, err := ReadM3U(path)
	if err != nil {
		t.Fatalf("ReadM3U failed: %v", err)
	}

	if len(got) != len(tracks) {
		t.Fatalf("expected %d tracks, got %d", len(tracks), len(got))
	}

	for i, want := range tracks {
		g := got[i]

		if g.Path != want.Path {
			t.Errorf("track %d: path = %q, want %q", i, g.Path, want.Path)
		}

		if g.Artist != want.Artist || g.Title != want.Title {
			t.Errorf("track %d: artist/title = %q/%q, want %q/%q", i, g.Artist, g.Title, want.Artist, want.Title)
		}

		if diff := absFloat(g.MixInS - want.MixInS); diff > 1e-4 {
			t.Errorf("track %d: mix_in_s = %v, want %v", i, g.MixInS, want.MixInS)
		}

		if diff := absFloat(g.MixOutS - want.MixOutS); diff > 1e-4 {
			t.Errorf("track %d: mix_out_s = %v, want %v", i, g.MixOutS, want.MixOutS)
		}
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}

	return f
}
