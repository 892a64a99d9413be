// ABOUTME: Tests for §4.3's worker-count policy, filename fallback parsing and symlink-safe enumeration

package analyzer

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestWorkerCountPolicy(t *testing.T) {
	cases := []struct {
		name     string
		hostCPUs int
		numFiles int
		want     int
	}{
		{"tiny folder always gets one worker", 8, 3, 1},
		{"small folder caps at two", 8, 10, 2},
		{"medium folder caps at four", 8, 30, 4},
		{"large folder uses full policy width on an 8-core host", 8, 200, 6},
		{"large folder respects a 4-core host", 4, 200, 4},
		{"large folder on a 2-core host uses both cores", 2, 200, 2},
		{"single-core host never exceeds one worker", 1, 200, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WorkerCount(tc.hostCPUs, tc.numFiles)
			if got != tc.want {
				t.Errorf("WorkerCount(%d, %d) = %d, want %d", tc.hostCPUs, tc.numFiles, got, tc.want)
			}
		})
	}
}

func TestWorkerCountNeverExceedsHostCPUs(t *testing.T) {
	for _, cpus := range []int{1, 2, 4, 6, 8, 16, 32} {
		got := WorkerCount(cpus, 1000)
		if got > cpus {
			t.Errorf("WorkerCount(%d, 1000) = %d exceeds host CPU count", cpus, got)
		}
	}
}

func TestWorkerCountOnThisHost(t *testing.T) {
	got := WorkerCount(runtime.NumCPU(), 500)
	if got < 1 || got > runtime.NumCPU() {
		t.Errorf("WorkerCount out of bounds: %d (host has %d cpus)", got, runtime.NumCPU())
	}
}

func TestParseFilename(t *testing.T) {
	cases := []struct {
		name       string
		file       string
		wantArtist string
		wantTitle  string
		wantOK     bool
	}{
		{"artist dash title", "Artist Name - Track Title.mp3", "Artist Name", "Track Title", true},
		// The plain "artist - title" pattern is tried first and already matches.
		{"track number prefixed", "03 - Artist Name - Track Title.flac", "03", "Artist Name - Track Title", true},
		{"hyphen no spaces", "Artist-Title.wav", "Artist", "Title", true},
		{"underscore separated", "Artist_Title.aiff", "Artist", "Title", true},
		{"no recognizable pattern", "justanamewithnoseparator.mp3", "Unknown", "Unknown", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			artist, title, ok := parseFilename(tc.file)
			if ok != tc.wantOK {
				t.Fatalf("parseFilename(%q) ok = %v, want %v", tc.file, ok, tc.wantOK)
			}

			if ok {
				if artist != tc.wantArtist || title != tc.wantTitle {
					t.Errorf("parseFilename(%q) = (%q, %q), want (%q, %q)", tc.file, artist, title, tc.wantArtist, tc.wantTitle)
				}
			}
		})
	}
}

func TestEnumerateFindsSupportedFilesSorted(t *testing.T) {
	dir := t.TempDir()

	mustTouch(t, filepath.Join(dir, "b.mp3"))
	mustTouch(t, filepath.Join(dir, "a.flac"))
	mustTouch(t, filepath.Join(dir, "ignore.txt"))

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	mustTouch(t, filepath.Join(sub, "c.wav"))

	files, err := enumerate(dir, map[string]bool{"mp3": true, "flac": true, "wav": true})
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(files), files)
	}
}

func TestEnumerateHandlesSymlinkCycles(t *testing.T) {
	dir := t.TempDir()

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	mustTouch(t, filepath.Join(sub, "track.mp3"))

	cycleLink := filepath.Join(sub, "back-to-root")
	if err := os.Symlink(dir, cycleLink); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	done := make(chan struct{})

	var files []string

	var err error

	go func() {
		files, err = enumerate(dir, map[string]bool{"mp3": true})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("enumerate did not terminate, suspected symlink cycle infinite loop")
	}

	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}

	if len(files) != 1 {
		t.Errorf("expected exactly one track found despite the cycle, got %d: %v", len(files), files)
	}
}

func mustTouch(t *testing.T, path string) {
	t.Helper()

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}
