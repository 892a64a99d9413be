// ABOUTME: Tests for extension dispatch and the linear resampler, without depending on real codec fixtures

package decode

import (
	"math"
	"testing"
)

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"/music/Track.MP3":  "mp3",
		"/music/track.flac": "flac",
		"track":             "",
		"a.b.WAV":           "wav",
	}

	for path, want := range cases {
		if got := Extension(path); got != want {
			t.Errorf("Extension(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestFileRejectsUnsupportedExtension(t *testing.T) {
	if _, err := File("/tmp/does-not-matter.xyz", 22050); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}

func TestResampleLinearHalvesLengthWhenHalvingRate(t *testing.T) {
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}

	out := resampleLinear(samples, 44100, 22050)

	wantLen := 500
	if out == nil || len(out) < wantLen-2 || len(out) > wantLen+2 {
		t.Errorf("expected roughly %d samples after halving the rate, got %d", wantLen, len(out))
	}
}

func TestResampleLinearNoOpWhenRatesMatch(t *testing.T) {
	samples := []float32{1, 2, 3}

	out := resampleLinear(samples, 22050, 22050)
	if len(out) != len(samples) {
		t.Fatalf("expected unchanged length, got %d", len(out))
	}

	for i := range samples {
		if out[i] != samples[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], samples[i])
		}
	}
}

func TestDownmixIntsAveragesChannels(t *testing.T) {
	data := []int{100, 200, 300, 400} // two stereo frames
	mono := downmixInts(data, 2, 16)

	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(mono))
	}

	maxVal := float32(int64(1) << 15)
	want0 := (float32(100) + float32(200)) / 2 / maxVal

	if math.Abs(float64(mono[0]-want0)) > 1e-6 {
		t.Errorf("mono[0] = %v, want %v", mono[0], want0)
	}
}
