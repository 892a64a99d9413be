// ABOUTME: Content-addressed, cross-process-safe persistent cache of track feature records (C2, §4.2)
// ABOUTME: bbolt supplies the crash-safe, single-writer store; gofrs/flock supplies the companion cross-process lock file

// Package cache implements C2, the track cache: a persistent store keyed by
// file path, with fingerprint-based staleness detection, cross-process
// advisory locking via a companion lock file, and crash safety inherited
// from bbolt's copy-on-write commit discipline.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"

	"github.com/stojg/crateforge/internal/debuglog"
	"github.com/stojg/crateforge/internal/domain"
)

// SchemaVersion is the single current schema version (§9 Open Questions:
// standardize on one version rather than the source's mixed v3/v4).
const SchemaVersion = domain.CurrentSchemaVersion

// lockWait is the bounded wait for the cross-process lock (§4.2: "bounded
// wait (>= 2 seconds)").
const lockWait = 2 * time.Second

var recordsBucket = []byte("records")

// ErrSchemaMismatch reports a store schema version mismatch. No function in
// this package returns it: Open does not check entry schema versions.
var ErrSchemaMismatch = errors.New("cache: store schema version mismatch")

// errLockTimeout names a CacheLockTimeout (§7). No code path returns it;
// callers of Get/Put see a lock timeout only as a miss/discard.
var errLockTimeout = errors.New("cache: lock acquisition timed out")

// entry is the on-disk envelope stored per path.
type entry struct {
	Fingerprint domain.Fingerprint
	Schema      int
	Record      domain.Record
}

// Store is a handle to an open cache directory. A Store is safe for
// concurrent use by multiple goroutines and multiple processes (the latter
// via the companion lock file).
type Store struct {
	dir  string
	db   *bolt.DB
	lock *flock.Flock
}

// Open opens (creating if necessary) a cache store rooted at dir. It does
// not inspect the schema versions of existing entries and neither migrates
// nor refuses a store written at another version; Get treats such entries
// as misses, and MigrateSchema deletes them.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: mkdir: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "features.db"), 0o644, &bolt.Options{Timeout: lockWait})
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)

		return err
	}); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("cache: create bucket: %w", err)
	}

	lockPath := filepath.Join(dir, "features.lock")

	return &Store{dir: dir, db: db, lock: flock.New(lockPath)}, nil
}

// Close releases the store's file handles.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements §4.2's get operation: acquire a shared lock, stat the
// file, look up by path, validate the fingerprint, then double-check after
// lock acquisition by re-statting and re-looking-up before returning.
func (s *Store) Get(path string) (domain.Record, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), lockWait)
	defer cancel()

	locked, err := s.lock.TryRLockContext(ctx, 20*time.Millisecond)
	if err != nil || !locked {
		debuglog.Debugf("cache: get %s: lock timeout, treating as miss", path)

		return domain.Record{}, false // CacheLockTimeout: reader behaves as miss
	}
	defer func() { _ = s.lock.Unlock() }()

	fp, ok := statFingerprint(path)
	if !ok {
		debuglog.Debugf("cache: get %s: stat failed, miss", path)

		return domain.Record{}, false
	}

	e, ok := s.lookup(path)
	if !ok || !e.Fingerprint.Matches(fp) || e.Schema != SchemaVersion {
		debuglog.Debugf("cache: get %s: miss (found=%v)", path, ok)

		return domain.Record{}, false
	}

	// Double-check after lock acquisition: re-stat, re-lookup (§4.2).
	fp2, ok := statFingerprint(path)
	if !ok || !fp2.Matches(fp) {
		debuglog.Debugf("cache: get %s: miss on double-check re-stat", path)

		return domain.Record{}, false
	}

	e2, ok := s.lookup(path)
	if !ok || !e2.Fingerprint.Matches(fp2) || e2.Schema != SchemaVersion {
		debuglog.Debugf("cache: get %s: miss on double-check re-lookup", path)

		return domain.Record{}, false
	}

	debuglog.Debugf("cache: get %s: hit", path)

	return e2.Record, true
}

// Put implements §4.2's put operation: acquire an exclusive lock, re-stat,
// write keyed by path with the current fingerprint. A missing file
// (removed between discovery and put) or a lock timeout silently discards
// the write.
func (s *Store) Put(path string, rec domain.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), lockWait)
	defer cancel()

	locked, err := s.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil || !locked {
		debuglog.Debugf("cache: put %s: lock timeout, write discarded", path)

		return // CacheLockTimeout: write discarded
	}
	defer func() { _ = s.lock.Unlock() }()

	fp, ok := statFingerprint(path)
	if !ok {
		debuglog.Debugf("cache: put %s: file removed, write discarded", path)

		return // file removed: discard silently
	}

	rec.SchemaVersion = SchemaVersion

	e := entry{Fingerprint: fp, Schema: SchemaVersion, Record: rec}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		debuglog.Debugf("cache: put %s: encode failed: %v", path, err)

		return
	}

	// bbolt's Update transaction commits atomically (copy-on-write B+tree),
	// so a process killed mid-write leaves the previous value intact —
	// the crash-safety requirement of §4.2.
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(path), buf.Bytes())
	}); err != nil {
		debuglog.Debugf("cache: put %s: commit failed: %v", path, err)

		return
	}

	debuglog.Debugf("cache: put %s: committed", path)
}

// lookup reads and decodes the raw entry for path, treating decode failure
// (CacheCorruption, §7) as a miss so the next Put overwrites it.
func (s *Store) lookup(path string) (entry, bool) {
	var raw []byte

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(recordsBucket).Get([]byte(path))
		if v != nil {
			raw = append([]byte(nil), v...)
		}

		return nil
	})

	if raw == nil {
		return entry{}, false
	}

	var e entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e); err != nil {
		return entry{}, false // corrupted entry: treated as miss
	}

	return e, true
}

// Clear removes every entry from the store.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(recordsBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}

		_, err := tx.CreateBucket(recordsBucket)

		return err
	})
}

// MigrateSchema invalidates every entry not already at newVersion. The
// source mixed two schema numbers (v3/v4); this implementation standardizes
// on a single current version (SchemaVersion) and treats migration as
// invalidation rather than field-by-field conversion, since no migration
// mapping between versions is specified (§9 Open Questions).
func (s *Store) MigrateSchema(oldVersion, newVersion int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)

		var staleKeys [][]byte

		if err := b.ForEach(func(k, v []byte) error {
			var e entry
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&e); err != nil || e.Schema != newVersion {
				staleKeys = append(staleKeys, append([]byte(nil), k...))
			}

			return nil
		}); err != nil {
			return err
		}

		for _, k := range staleKeys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// statFingerprint stats path and builds its current fingerprint; ok is
// false if the file cannot be stat'd (removed, permission error, etc.).
func statFingerprint(path string) (domain.Fingerprint, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Fingerprint{}, false
	}

	return domain.Fingerprint{
		Path:    path,
		SizeB:   info.Size(),
		MTimeNs: info.ModTime().UnixNano(),
	}, true
}
