package main

import (
	"fmt"
	"os"

	"github.com/saworbit/zipatch/internal/platform"
	"github.com/saworbit/zipatch/pkg/cas"
	"github.com/saworbit/zipatch/pkg/config"
	"github.com/saworbit/zipatch/pkg/merkle"
	"github.com/saworbit/zipatch/pkg/zipfmt"
	"go.etcd.io/bbolt"
)

// minArchiveSize is the smallest a well-formed zip archive can be: an
// empty central directory plus an EndOfCentralDirectory record with no
// comment. Rejecting anything shorter up front gives a clearer error than
// letting zipfmt.LoadArchive fail partway through hunting for a trailer
// that was never going to fit.
var minArchiveSize = (&zipfmt.EndOfCentralDirectory{}).StructureLength()

// loadArchiveFile reads and parses a zip archive from path, refusing to
// read it if the current user would normally be denied access or if the
// file is too small to hold a valid archive trailer.
func loadArchiveFile(path string) (*zipfmt.Archive, error) {
	path = platform.LongPathname(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := ensureReadable(path, info); err != nil {
		return nil, err
	}
	if info.Size() < minArchiveSize {
		return nil, fmt.Errorf("%s: %d bytes is too small to be a zip archive (need at least %d)", path, info.Size(), minArchiveSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	archive, err := zipfmt.LoadArchive(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return archive, nil
}

// openDeltaCache opens the on-disk delta cache described by cfg. It returns
// a nil cache and a no-op closer when caching is disabled.
func openDeltaCache(cfg *config.PatchConfig) (*cas.DeltaCache, func() error, error) {
	if !cfg.EnableCache {
		return nil, func() error { return nil }, nil
	}

	db, err := bbolt.Open(cfg.CachePath, 0o644, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache %s: %w", cfg.CachePath, err)
	}

	cache, err := cas.NewDeltaCache(db, cfg.CacheHashAlgo)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return cache, db.Close, nil
}

// integrityManagerFor always returns a ready IntegrityManager: computing a
// root costs nothing extra once the new archive's central directory is
// already in hand, so it isn't gated behind cfg.EnableCache.
func integrityManagerFor(cfg *config.PatchConfig) *merkle.IntegrityManager {
	return merkle.NewIntegrityManager()
}
