// ABOUTME: Parallel folder analysis (C3, §4.3): enumerate, dispatch to a worker pool, cache, reassemble in order
// ABOUTME: Worker-count policy, per-file timeouts and filename-based metadata fallback follow §4.3 exactly

// Package analyzer implements C3, the parallel analyzer: it walks a root
// folder for supported audio files, dispatches decode+extract+cache jobs
// across a worker pool sized per §4.3's policy, enforces per-file timeouts,
// and reassembles results in enumeration order.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/stojg/crateforge/internal/cache"
	"github.com/stojg/crateforge/internal/decode"
	"github.com/stojg/crateforge/internal/domain"
	"github.com/stojg/crateforge/internal/feature"
	"github.com/stojg/crateforge/internal/pool"

	"github.com/dhowden/tag"
)

// Config holds C3's tunables (§4.3).
type Config struct {
	MaxWorkers          int
	PerFileTimeoutS     int
	SupportedExtensions map[string]bool
	SampleRate          int
	Cache               *cache.Store

	// simulateDelay, keyed by path, makes analyzeOne sleep before doing
	// real work. It exists so tests can exercise per-file timeout handling
	// deterministically (§8 scenario 5: "inject an extractor that sleeps
	// 5x the per-file timeout on one file") without depending on a
	// genuinely slow codec or feature extraction on real audio.
	simulateDelay map[string]time.Duration
}

// DefaultConfig returns §4.3's documented defaults, with MaxWorkers left at
// 0 to signal "compute from host CPU count and file count".
func DefaultConfig() Config {
	return Config{
		MaxWorkers:          0,
		PerFileTimeoutS:     60,
		SupportedExtensions: decode.SupportedExtensions,
		SampleRate:          22050,
	}
}

// Status is the progress_sink's per-job status (§4.3).
type Status string

const (
	StatusCacheHit Status = "cache_hit"
	StatusAnalyzed Status = "analyzed"
	StatusFailed   Status = "failed"
)

// ProgressSink receives (done, total, current_file, status) updates,
// emitted only from the dispatcher goroutine, never from workers (§4.3).
type ProgressSink func(done, total int, currentFile string, status Status)

// WorkerCount implements §4.3's worker-count policy: max(min(6,n), n/2)
// capped at n, then scaled down by the number of files to analyze.
func WorkerCount(hostCPUs, numFiles int) int {
	if hostCPUs < 1 {
		hostCPUs = 1
	}

	w := min(6, hostCPUs)
	if half := hostCPUs / 2; half > w {
		w = half
	}

	if w > hostCPUs {
		w = hostCPUs
	}

	switch {
	case numFiles < 5:
		return 1
	case numFiles < 20:
		return min(2, w)
	case numFiles < 50:
		return min(4, w)
	default:
		return w
	}
}

// job is one unit of work: decode -> extract -> cache.
type job struct {
	index int
	path  string
}

// result is a completed job's outcome.
type result struct {
	index   int
	record  domain.Record
	failure *domain.Failure
	status  Status
}

// AnalyzeFolder implements analyze_folder(root, cfg, progress_sink) of
// §4.3: enumerate every supported audio file under root (recursive,
// symlink-cycle-safe), dispatch each through the cache/decode/extract
// pipeline across a worker pool, and return records and failures in
// enumeration order.
func AnalyzeFolder(ctx context.Context, root string, cfg Config, sink ProgressSink) ([]domain.Record, []domain.Failure, error) {
	if cfg.SupportedExtensions == nil {
		cfg.SupportedExtensions = decode.SupportedExtensions
	}

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}

	if cfg.PerFileTimeoutS <= 0 {
		cfg.PerFileTimeoutS = 60
	}

	files, err := enumerate(root, cfg.SupportedExtensions)
	if err != nil {
		return nil, nil, fmt.Errorf("analyzer: enumerate: %w", err)
	}

	total := len(files)

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = WorkerCount(runtime.NumCPU(), total)
	}

	if workers > total {
		workers = total
	}

	if workers < 1 {
		workers = 1
	}

	wp := pool.NewWorkerPool(workers, total)
	results := make(chan result, total)

	for i, f := range files {
		j := job{index: i, path: f}

		wp.Submit(func() {
			results <- runJob(ctx, j, cfg)
		})
	}

	// Workers only ever write to results; wp.Wait()+close(results) runs on
	// its own goroutine purely to signal completion, never to read a result
	// or call sink — that stays on this function's own goroutine below, so
	// ProgressSink's "only the dispatcher" invariant holds.
	go func() {
		wp.Wait()
		wp.Close()
		close(results)
	}()

	records := make([]*domain.Record, total)
	failures := make([]*domain.Failure, total)

	done := 0

	for r := range results {
		done++

		if r.failure != nil {
			failures[r.index] = r.failure

			if sink != nil {
				sink(done, total, files[r.index], StatusFailed)
			}

			continue
		}

		records[r.index] = &r.record

		if sink != nil {
			sink(done, total, files[r.index], r.status)
		}
	}

	outRecords := make([]domain.Record, 0, total)
	outFailures := make([]domain.Failure, 0)

	for i := 0; i < total; i++ {
		if records[i] != nil {
			outRecords = append(outRecords, *records[i])
		} else if failures[i] != nil {
			outFailures = append(outFailures, *failures[i])
		}
	}

	return outRecords, outFailures, nil
}

// runJob decodes, extracts and caches a single file, enforcing the
// per-file deadline. On deadline elapse the job's goroutine is abandoned
// (Go offers no cheap process-per-job kill; this mirrors the teacher's
// goroutine-based pool while still honoring the hard wall-clock deadline
// the caller observes) and the job is recorded as a timeout failure.
func runJob(ctx context.Context, j job, cfg Config) result {
	deadline := time.Duration(cfg.PerFileTimeoutS) * time.Second

	type outcome struct {
		rec    domain.Record
		status Status
		err    error
	}

	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: fmt.Errorf("worker panic: %v", p)}
			}
		}()

		rec, status, err := analyzeOne(j.path, cfg)
		ch <- outcome{rec: rec, status: status, err: err}
	}()

	select {
	case <-ctx.Done():
		return result{index: j.index, failure: &domain.Failure{Path: j.path, Reason: domain.ReasonTimeout, Err: ctx.Err()}}
	case <-time.After(deadline):
		return result{index: j.index, failure: &domain.Failure{Path: j.path, Reason: domain.ReasonTimeout}}
	case o := <-ch:
		if o.err != nil {
			reason := domain.ReasonFeatureFailure
			if strings.Contains(o.err.Error(), "panic") {
				reason = domain.ReasonWorkerCrash
			} else if strings.Contains(o.err.Error(), "decode") || errors.Is(o.err, feature.ErrInvalidSignal) {
				reason = domain.ReasonDecodeError
			}

			return result{index: j.index, failure: &domain.Failure{Path: j.path, Reason: reason, Err: o.err}}
		}

		return result{index: j.index, record: o.rec, status: o.status}
	}
}

// analyzeOne consults the cache, and on miss decodes, extracts features and
// writes the result back to the cache.
func analyzeOne(path string, cfg Config) (domain.Record, Status, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Record{}, "", fmt.Errorf("unreadable: %w", err)
	}

	if cfg.Cache != nil {
		if rec, ok := cfg.Cache.Get(path); ok {
			return rec, StatusCacheHit, nil
		}
	}

	if d, ok := cfg.simulateDelay[path]; ok {
		time.Sleep(d)
	}

	pcm, err := decode.File(path, cfg.SampleRate)
	if err != nil {
		return domain.Record{}, "", fmt.Errorf("decode: %w", err)
	}

	meta := readMetadata(path)

	rec, err := feature.Extract(pcm.Samples, pcm.SampleRate, pcm.DurationS, meta)
	if err != nil {
		return domain.Record{}, "", fmt.Errorf("extract: %w", err)
	}

	rec.Path = path
	rec.SizeB = info.Size()
	rec.MTimeNs = info.ModTime().UnixNano()

	if cfg.Cache != nil {
		cfg.Cache.Put(path, rec)
	}

	return rec, StatusAnalyzed, nil
}

// readMetadata reads tag metadata via dhowden/tag, falling back to filename
// parsing per §4.3 when artist/title are empty.
func readMetadata(path string) feature.ExternalMetadata {
	meta := feature.ExternalMetadata{}

	if f, err := os.Open(path); err == nil {
		defer func() { _ = f.Close() }()

		if m, err := tag.ReadFrom(f); err == nil {
			meta.Artist = strings.TrimSpace(m.Artist())
			meta.Title = strings.TrimSpace(m.Title())
			meta.Genre = strings.TrimSpace(m.Genre())
		}
	}

	if meta.Artist == "" || meta.Title == "" {
		artist, title, ok := parseFilename(filepath.Base(path))
		if ok {
			if meta.Artist == "" {
				meta.Artist = artist
			}

			if meta.Title == "" {
				meta.Title = title
			}
		}
	}

	return meta
}

var filenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?P<artist>[^/\\]+?) - (?P<title>[^/\\]+?)$`),
	regexp.MustCompile(`^\d{1,3} - (?P<artist>[^/\\]+?) - (?P<title>[^/\\]+?)$`),
	regexp.MustCompile(`^(?P<artist>[^/\\]+?)-(?P<title>[^/\\]+?)$`),
	regexp.MustCompile(`^(?P<artist>[^/\\]+?)_(?P<title>[^/\\]+?)$`),
}

// parseFilename implements §4.3's filename fallback: try the four patterns
// in order, return the first whose artist/title groups are both non-empty.
func parseFilename(name string) (artist, title string, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	for _, re := range filenamePatterns {
		m := re.FindStringSubmatch(stem)
		if m == nil {
			continue
		}

		groups := make(map[string]string)
		for i, n := range re.SubexpNames() {
			if n != "" && i < len(m) {
				groups[n] = strings.TrimSpace(m[i])
			}
		}

		if groups["artist"] != "" && groups["title"] != "" {
			return groups["artist"], groups["title"], true
		}
	}

	return "Unknown", "Unknown", false
}

// enumerate walks root recursively for files whose extension is in exts,
// guarding against symlink cycles by tracking the resolved real paths
// (filepath.EvalSymlinks) of directories it descends into.
func enumerate(root string, exts map[string]bool) ([]string, error) {
	var files []string

	visitedDirs := make(map[string]bool)

	var walk func(dir string) error
	walk = func(dir string) error {
		real, err := filepath.EvalSymlinks(dir)
		if err != nil {
			real = dir
		}

		if visitedDirs[real] {
			return nil
		}

		visitedDirs[real] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", dir, err)
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, e := range entries {
			full := filepath.Join(dir, e.Name())

			if e.IsDir() {
				if err := walk(full); err != nil {
					return err
				}

				continue
			}

			if e.Type()&os.ModeSymlink != 0 {
				info, err := os.Stat(full)
				if err != nil {
					continue
				}

				if info.IsDir() {
					if err := walk(full); err != nil {
						return err
					}

					continue
				}
			}

			ext := decode.Extension(full)
			if exts[ext] {
				files = append(files, full)
			}
		}

		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}

	return files, nil
}
