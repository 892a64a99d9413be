// ABOUTME: Aggregate configuration for the analyzer and sequencer, loaded/saved as TOML
// ABOUTME: Grounded on the teacher's LoadConfig/SaveConfig/DefaultConfig/GetConfigPath pattern

// Package config defines crateforge's single configuration record: C3's
// analyzer tunables, C4's sequencer parameters, and the genre-family table
// §9 leaves as an implementation decision. It is loaded and saved as TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// AnalyzerConfig holds C3's tunables (§4.3).
type AnalyzerConfig struct {
	MaxWorkers          int      `toml:"max_workers"`
	PerFileTimeoutS     int      `toml:"per_file_timeout_s"`
	SupportedExtensions []string `toml:"supported_extensions"`
	SampleRate          int      `toml:"sample_rate"`
	CacheDir            string   `toml:"cache_dir"`
}

// SequencerConfig holds C4's numeric parameters (§4.4).
type SequencerConfig struct {
	BPMTolerance       float64 `toml:"bpm_tolerance"`
	HarmonicStrictness int     `toml:"harmonic_strictness"`
	GenreWeight        float64 `toml:"genre_weight"`
	AllowExperimental  bool    `toml:"allow_experimental"`
	PeakPosition       float64 `toml:"peak_position"`
}

// Config is the single configuration record §6 describes: "a single
// configuration record passed to the analyzer... no global state; no
// environment variables required."
type Config struct {
	Analyzer    AnalyzerConfig    `toml:"analyzer"`
	Sequencer   SequencerConfig   `toml:"sequencer"`
	GenreFamily map[string]string `toml:"genre_family"`
}

// DefaultConfig returns the documented §4.3/§4.4 defaults.
func DefaultConfig() Config {
	return Config{
		Analyzer: AnalyzerConfig{
			MaxWorkers:          0,
			PerFileTimeoutS:     60,
			SupportedExtensions: []string{"wav", "aiff", "mp3", "flac"},
			SampleRate:          22050,
			CacheDir:            defaultCacheDir(),
		},
		Sequencer: SequencerConfig{
			BPMTolerance:       4,
			HarmonicStrictness: 5,
			GenreWeight:        1,
			AllowExperimental:  false,
			PeakPosition:       50,
		},
		GenreFamily: map[string]string{},
	}
}

// LoadConfig loads configuration from a TOML file. If the file doesn't
// exist, it returns defaults rather than an error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}

		return DefaultConfig(), fmt.Errorf("config: read: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as TOML, creating the parent directory if
// needed.
func SaveConfig(path string, cfg Config) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create: %w", err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("config: close: %w", closeErr)
		}
	}()

	if err = toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path: current directory
// first, then ~/.config/crateforge/config.toml.
func GetConfigPath() string {
	if _, err := os.Stat("./crateforge.toml"); err == nil {
		return "./crateforge.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./crateforge.toml"
	}

	return filepath.Join(home, ".config", "crateforge", "config.toml")
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crateforge-cache"
	}

	return filepath.Join(home, ".cache", "crateforge")
}

// ExtensionSet converts SupportedExtensions into the map form the analyzer
// consumes.
func (c AnalyzerConfig) ExtensionSet() map[string]bool {
	set := make(map[string]bool, len(c.SupportedExtensions))
	for _, ext := range c.SupportedExtensions {
		set[ext] = true
	}

	return set
}
