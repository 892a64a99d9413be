// ABOUTME: `crateforge analyze` — walks a folder, populates the track cache, reports progress and failures
// ABOUTME: Progress rendering (spinner on a TTY, plain lines otherwise) follows the teacher's cli.go RunCLI pattern

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/stojg/crateforge/config"
	"github.com/stojg/crateforge/internal/analyzer"
	"github.com/stojg/crateforge/internal/cache"
	"github.com/stojg/crateforge/internal/debuglog"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)

	configPath := fs.String("config", "", "path to crateforge.toml (default: platform config path)")
	cacheDir := fs.String("cache-dir", "", "override the configured cache directory")
	workers := fs.Int("workers", 0, "override the computed worker count (0 = auto)")
	timeoutS := fs.Int("timeout", 0, "override per-file timeout in seconds (0 = config default)")
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
		return fmt.Errorf("usage: crateforge analyze [flags] <folder>")
	}

	root := fs.Arg(0)

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if *cacheDir != "" {
		cfg.Analyzer.CacheDir = *cacheDir
	}

	if *workers > 0 {
		cfg.Analyzer.MaxWorkers = *workers
	}

	if *timeoutS > 0 {
		cfg.Analyzer.PerFileTimeoutS = *timeoutS
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

	isTerminal := isTTY(os.Stdout)
	spinnerIdx := 0
	cacheHits, analyzed := 0, 0

	sink := func(done, total int, currentFile string, status analyzer.Status) {
		switch status {
		case analyzer.StatusCacheHit:
			cacheHits++
		case analyzer.StatusAnalyzed:
			analyzed++
		}

		if isTerminal {
			spinnerIdx = (spinnerIdx + 1) % len(spinnerFrames)
			fmt.Printf("\r%s %d/%d  %s", spinnerFrames[spinnerIdx], done, total, truncate(currentFile, 60))
		} else {
			fmt.Printf("[%d/%d] %s: %s\n", done, total, status, currentFile)
		}
	}

	start := time.Now()

	records, failures, err := analyzer.AnalyzeFolder(ctx, root, acfg, sink)
	if err != nil {
		return fmt.Errorf("analyze folder: %w", err)
	}

	if isTerminal {
		fmt.Print("\r")
	}

	fmt.Printf("\nAnalyzed %d tracks in %s (%d from cache, %d newly analyzed, %d failed)\n",
		len(records), time.Since(start).Round(time.Millisecond), cacheHits, analyzed, len(failures))

	if len(failures) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "Path\tReason\tDetail")

		for _, f := range failures {
			detail := ""
			if f.Err != nil {
				detail = f.Err.Error()
			}

			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", f.Path, f.Reason, truncate(detail, 80))
		}

		_ = w.Flush()
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	if n <= 3 {
		return s[:n]
	}

	return s[:n-3] + "..."
}
