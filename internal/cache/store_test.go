// ABOUTME: Tests for the cross-process track cache: get/put round-trip, staleness, clear, schema migration

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stojg/crateforge/internal/domain"
)

func writeTempAudioFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}

func TestPutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	defer func() { _ = store.Close() }()

	audioPath := writeTempAudioFile(t, dir, "track.flac")

	info, err := os.Stat(audioPath)
	if err != nil {
		t.Fatal(err)
	}

	rec := domain.Record{
		Path:      audioPath,
		SizeB:     info.Size(),
		MTimeNs:   info.ModTime().UnixNano(),
		Artist:    "Artist",
		Title:     "Title",
		BPM:       128,
		DurationS: 180,
		MixInS:    10,
		MixOutS:   170,
		Sections: []domain.Section{
			{Label: domain.SectionIntro, StartS: 0, EndS: 90},
			{Label: domain.SectionOutro, StartS: 90, EndS: 180},
		},
	}

	store.Put(audioPath, rec)

	got, ok := store.Get(audioPath)
	if !ok {
		t.Fatal("expected cache hit after put")
	}

	if got.Artist != rec.Artist || got.BPM != rec.BPM {
		t.Errorf("round-tripped record mismatch: got %+v, want %+v", got, rec)
	}
}

func TestGetMissesOnUnknownPath(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	defer func() { _ = store.Close() }()

	if _, ok := store.Get(filepath.Join(dir, "never-analyzed.flac")); ok {
		t.Error("expected miss for a path never written")
	}
}

func TestGetMissesAfterFileModified(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	defer func() { _ = store.Close() }()

	audioPath := writeTempAudioFile(t, dir, "track.flac")
	store.Put(audioPath, domain.Record{Path: audioPath, DurationS: 1, MixOutS: 1,
		Sections: []domain.Section{{Label: domain.SectionIntro, StartS: 0, EndS: 0.5}, {Label: domain.SectionOutro, StartS: 0.5, EndS: 1}}})

	if _, ok := store.Get(audioPath); !ok {
		t.Fatal("expected cache hit before modification")
	}

	time.Sleep(10 * time.Millisecond)

	if err := os.WriteFile(audioPath, []byte("different bytes, different size!"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Get(audioPath); ok {
		t.Error("expected cache miss after file was modified")
	}
}

func TestClearRemovesAllEntries(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	defer func() { _ = store.Close() }()

	audioPath := writeTempAudioFile(t, dir, "track.flac")
	store.Put(audioPath, domain.Record{Path: audioPath, DurationS: 1, MixOutS: 1,
		Sections: []domain.Section{{Label: domain.SectionIntro, StartS: 0, EndS: 0.5}, {Label: domain.SectionOutro, StartS: 0.5, EndS: 1}}})

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, ok := store.Get(audioPath); ok {
		t.Error("expected miss after Clear")
	}
}

func TestMigrateSchemaInvalidatesOlderEntries(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	defer func() { _ = store.Close() }()

	audioPath := writeTempAudioFile(t, dir, "track.flac")
	store.Put(audioPath, domain.Record{Path: audioPath, DurationS: 1, MixOutS: 1,
		Sections: []domain.Section{{Label: domain.SectionIntro, StartS: 0, EndS: 0.5}, {Label: domain.SectionOutro, StartS: 0.5, EndS: 1}}})

	if err := store.MigrateSchema(SchemaVersion-1, SchemaVersion+1); err != nil {
		t.Fatalf("MigrateSchema failed: %v", err)
	}

	if _, ok := store.Get(audioPath); ok {
		t.Error("expected entry invalidated after migrating to a version it doesn't match")
	}
}
