// ABOUTME: Decodes a container file (wav/aiff/mp3/flac) into mono float32 PCM at a target sample rate
// ABOUTME: Treated by spec.md as an assumed-available external collaborator; wired to real decode libraries from the pack rather than stubbed

// Package decode turns a file on disk into the mono float32 PCM signal C1
// operates on. spec.md treats container decoding as an external
// collaborator assumed available as a function; this package is that
// function, implemented with the decode libraries the example pack uses
// (go-audio/wav, go-audio/aiff, hajimehoshi/go-mp3, mewkiz/flac) rather than
// hand-rolled parsing.
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// Result is the decoded signal handed to the feature extractor.
type Result struct {
	Samples    []float32
	SampleRate int
	DurationS  float64
}

// SupportedExtensions is the default set from §4.3.
var SupportedExtensions = map[string]bool{
	"wav":  true,
	"aiff": true,
	"mp3":  true,
	"flac": true,
}

// Extension returns the lowercased extension (no dot) of path.
func Extension(path string) string {
	ext := filepath.Ext(path)

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// File decodes path into mono PCM resampled to targetSampleRate.
func File(path string, targetSampleRate int) (Result, error) {
	switch Extension(path) {
	case "wav":
		return decodeWAV(path, targetSampleRate)
	case "aiff", "aif":
		return decodeAIFF(path, targetSampleRate)
	case "mp3":
		return decodeMP3(path, targetSampleRate)
	case "flac":
		return decodeFLAC(path, targetSampleRate)
	default:
		return Result{}, fmt.Errorf("decode: unsupported extension %q", Extension(path))
	}
}

func decodeWAV(path string, targetSampleRate int) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("decode: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Result{}, fmt.Errorf("decode: not a valid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Result{}, fmt.Errorf("decode: wav pcm buffer: %w", err)
	}

	mono := downmixInts(buf.Data, buf.Format.NumChannels, buf.SourceBitDepth)

	return finishResult(mono, int(dec.SampleRate), targetSampleRate)
}

func decodeAIFF(path string, targetSampleRate int) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("decode: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := aiff.NewDecoder(f)

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Result{}, fmt.Errorf("decode: aiff pcm buffer: %w", err)
	}

	mono := downmixInts(buf.Data, buf.Format.NumChannels, int(dec.BitDepth))

	return finishResult(mono, int(dec.SampleRate), targetSampleRate)
}

func decodeMP3(path string, targetSampleRate int) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("decode: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return Result{}, fmt.Errorf("decode: mp3: %w", err)
	}

	sr := dec.SampleRate()

	// go-mp3 always emits 16-bit little-endian stereo PCM.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return Result{}, fmt.Errorf("decode: mp3 read: %w", err)
	}

	mono := make([]float32, 0, len(raw)/4)

	for i := 0; i+3 < len(raw); i += 4 {
		l := int16(uint16(raw[i]) | uint16(raw[i+1])<<8)
		r := int16(uint16(raw[i+2]) | uint16(raw[i+3])<<8)
		avg := (float32(l) + float32(r)) / 2 / 32768.0
		mono = append(mono, avg)
	}

	return finishResult(mono, sr, targetSampleRate)
}

func decodeFLAC(path string, targetSampleRate int) (Result, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("decode: flac: %w", err)
	}
	defer stream.Close()

	sr := int(stream.Info.SampleRate)
	maxVal := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	var mono []float32

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}

		if err != nil {
			return Result{}, fmt.Errorf("decode: flac frame: %w", err)
		}

		numSubframes := len(frame.Subframes)
		if numSubframes == 0 {
			continue
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			var sum int64

			for _, sub := range frame.Subframes {
				if i < len(sub.Samples) {
					sum += int64(sub.Samples[i])
				}
			}

			avg := float32(sum) / float32(numSubframes) / maxVal
			mono = append(mono, avg)
		}
	}

	return finishResult(mono, sr, targetSampleRate)
}

// downmixInts averages interleaved integer channel samples to mono float32
// in [-1,1], given the source bit depth for normalization.
func downmixInts(data []int, channels, bitDepth int) []float32 {
	if channels <= 0 {
		channels = 1
	}

	maxVal := float32(int64(1) << (bitDepth - 1))
	if maxVal <= 0 {
		maxVal = 1
	}

	n := len(data) / channels
	mono := make([]float32, n)

	for i := 0; i < n; i++ {
		var sum int64

		for c := 0; c < channels; c++ {
			sum += int64(data[i*channels+c])
		}

		mono[i] = float32(sum) / float32(channels) / maxVal
	}

	return mono
}

// finishResult resamples mono to targetSampleRate (linear interpolation)
// and computes duration from the original sample count/rate.
func finishResult(mono []float32, sourceSampleRate, targetSampleRate int) (Result, error) {
	if sourceSampleRate <= 0 {
		return Result{}, fmt.Errorf("decode: invalid source sample rate %d", sourceSampleRate)
	}

	durationS := float64(len(mono)) / float64(sourceSampleRate)

	resampled := mono
	if targetSampleRate > 0 && targetSampleRate != sourceSampleRate {
		resampled = resampleLinear(mono, sourceSampleRate, targetSampleRate)
	}

	return Result{Samples: resampled, SampleRate: targetSampleRate, DurationS: durationS}, nil
}

// resampleLinear performs simple linear-interpolation resampling.
func resampleLinear(samples []float32, sourceRate, targetRate int) []float32 {
	if len(samples) == 0 || sourceRate == targetRate {
		return samples
	}

	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)

	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)

		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]

			continue
		}

		frac := float32(srcPos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}

	return out
}
