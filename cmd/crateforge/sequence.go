// ABOUTME: `crateforge sequence` — re-analyzes (cache-hit-fast) a folder, then sequences and exports a playlist
// ABOUTME: Strategy/parameter flags map directly onto sequencer.Params and sequencer.Strategy

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stojg/crateforge/config"
	"github.com/stojg/crateforge/internal/analyzer"
	"github.com/stojg/crateforge/internal/cache"
	"github.com/stojg/crateforge/internal/debuglog"
	"github.com/stojg/crateforge/internal/domain"
	"github.com/stojg/crateforge/internal/export"
	"github.com/stojg/crateforge/internal/sequencer"
)

func runSequence(args []string) error {
	fs := flag.NewFlagSet("sequence", flag.ExitOnError)

	configPath := fs.String("config", "", "path to crateforge.toml (default: platform config path)")
	strategyName := fs.String("strategy", string(sequencer.HarmonicFlow), "sequencing strategy name")
	bpmTolerance := fs.Float64("bpm-tolerance", 0, "override BPM tolerance (0 = config default)")
	strictness := fs.Int("strictness", 0, "override harmonic strictness 1..10 (0 = config default)")
	genreWeight := fs.Float64("genre-weight", -1, "override genre weight 0..1 (-1 = config default)")
	allowExperimental := fs.Bool("allow-experimental", false, "allow experimental harmonic transitions (>3 wheel steps, or 1 step with a letter change)")
	peakPosition := fs.Float64("peak-position", 0, "override peak position percent for peak_time_enhanced (0 = config default)")
	name := fs.String("name", "crateforge playlist", "playlist name written into the M3U header")
	out := fs.String("out", "playlist.m3u8", "output path; .xml extension selects the structured XML variant")
	debugLogPath := fs.String("debug-log", "", "write worker pool/cache debug traces to this file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *debugLogPath != "" {
		if err := debuglog.SetupDebugLog(*debugLogPath); err != nil {
			return fmt.Errorf("setup debug log: %w", err)
		}
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: crateforge sequence [flags] <folder>")
	}

	root := fs.Arg(0)

	strategy, err := parseStrategy(*strategyName)
	if err != nil {
		return err
	}

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p := sequencer.Params{
		BPMTolerance:       cfg.Sequencer.BPMTolerance,
		HarmonicStrictness: cfg.Sequencer.HarmonicStrictness,
		GenreWeight:        cfg.Sequencer.GenreWeight,
		AllowExperimental:  cfg.Sequencer.AllowExperimental || *allowExperimental,
		PeakPosition:       cfg.Sequencer.PeakPosition,
	}

	if *bpmTolerance > 0 {
		p.BPMTolerance = *bpmTolerance
	}

	if *strictness > 0 {
		p.HarmonicStrictness = *strictness
	}

	if *genreWeight >= 0 {
		p.GenreWeight = *genreWeight
	}

	if *peakPosition > 0 {
		p.PeakPosition = *peakPosition
	}

	store, err := cache.Open(cfg.Analyzer.CacheDir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		cancel()
	}()

	acfg := analyzer.Config{
		MaxWorkers:          cfg.Analyzer.MaxWorkers,
		PerFileTimeoutS:     cfg.Analyzer.PerFileTimeoutS,
		SupportedExtensions: cfg.Analyzer.ExtensionSet(),
		SampleRate:          cfg.Analyzer.SampleRate,
		Cache:               store,
	}

	records, failures, err := analyzer.AnalyzeFolder(ctx, root, acfg, nil)
	if err != nil {
		return fmt.Errorf("analyze folder: %w", err)
	}

	if len(failures) > 0 {
		fmt.Printf("warning: %d files could not be analyzed and were excluded\n", len(failures))
	}

	var relaxations int

	relax := func(e sequencer.RelaxationEvent) { relaxations++ }

	playlist, metrics := sequencer.Sequence(records, strategy, p, relax)

	if relaxations > 0 {
		fmt.Printf("constraint relaxed %d time(s) while sequencing\n", relaxations)
	}

	if isXML(*out) {
		if err := export.WriteXML(*out, playlist.Tracks); err != nil {
			return fmt.Errorf("write xml playlist: %w", err)
		}
	} else {
		if err := export.WriteM3U(*out, *name, playlist.Tracks); err != nil {
			return fmt.Errorf("write m3u playlist: %w", err)
		}
	}

	printSummary(playlist, metrics, *out)

	return nil
}

func parseStrategy(name string) (sequencer.Strategy, error) {
	for _, s := range sequencer.Strategies {
		if string(s) == name {
			return s, nil
		}
	}

	return "", fmt.Errorf("unknown strategy %q", name)
}

func isXML(path string) bool {
	return len(path) >= 4 && path[len(path)-4:] == ".xml"
}

func printSummary(playlist domain.Playlist, metrics domain.QualityMetrics, out string) {
	fmt.Printf("wrote %d tracks to %s\n", len(playlist.Tracks), out)

	if !metrics.MeanCompatValid {
		fmt.Println("mean_compat: n/a (fewer than 2 tracks)")

		return
	}

	fmt.Printf("mean_compat=%.1f harmonic_hit_rate=%.2f bpm_jump_mean=%.1f genre_switches=%d\n",
		metrics.MeanCompat, metrics.HarmonicHitRate, metrics.BPMJumpMean, metrics.GenreSwitches)
}
