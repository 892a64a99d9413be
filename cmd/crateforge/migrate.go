// ABOUTME: `crateforge migrate` — invalidates cache entries not at the target schema version
// ABOUTME: Standardizes on a single current schema version per §9's open question on the source's mixed v3/v4 stores

package main

import (
	"flag"
	"fmt"

	"github.com/stojg/crateforge/config"
	"github.com/stojg/crateforge/internal/cache"
)

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)

	configPath := fs.String("config", "", "path to crateforge.toml (default: platform config path)")
	cacheDir := fs.String("cache-dir", "", "override the configured cache directory")
	from := fs.Int("from", 0, "source schema version (ignored: every entry not at --to is invalidated)")
	to := fs.Int("to", cache.SchemaVersion, "target schema version")

	if err := fs.Parse(args); err != nil {
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

	dir := cfg.Analyzer.CacheDir
	if *cacheDir != "" {
		dir = *cacheDir
	}

	store, err := cache.Open(dir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	defer func() { _ = store.Close() }()

	if err := store.MigrateSchema(*from, *to); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	fmt.Printf("cache at %s migrated to schema version %d\n", dir, *to)

	return nil
}
