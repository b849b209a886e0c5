package generator

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/saworbit/zipatch/pkg/cas"
	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/saworbit/zipatch/pkg/merkle"
	"go.etcd.io/bbolt"
)

func openTestCache(t *testing.T) *cas.DeltaCache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache, err := cas.NewDeltaCache(db, "sha2-256")
	if err != nil {
		t.Fatalf("NewDeltaCache() error = %v", err)
	}
	return cache
}

func TestGenerateWithOptionsCacheHitOnSecondRun(t *testing.T) {
	old := buildArchive(t, map[string]string{"a": "payload one, quite similar to the next"})
	newer := buildArchive(t, map[string]string{"a": "payload two, quite similar to the last"})

	cache := openTestCache(t)
	registry := engine.Defaults()

	var buf1 bytes.Buffer
	report1, err := GenerateWithOptions(&buf1, old, newer, registry, Options{Cache: cache})
	if err != nil {
		t.Fatalf("first GenerateWithOptions() error = %v", err)
	}
	if report1.CacheMisses != 1 || report1.CacheHits != 0 {
		t.Fatalf("first run report = %+v, want 1 miss, 0 hits", report1)
	}

	var buf2 bytes.Buffer
	report2, err := GenerateWithOptions(&buf2, old, newer, registry, Options{Cache: cache})
	if err != nil {
		t.Fatalf("second GenerateWithOptions() error = %v", err)
	}
	if report2.CacheHits != 1 || report2.CacheMisses != 0 {
		t.Fatalf("second run report = %+v, want 1 hit, 0 misses", report2)
	}

	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		t.Error("cached and uncached runs produced different patch streams")
	}
}

func TestGenerateWithOptionsComputesIntegrityRoot(t *testing.T) {
	old := buildArchive(t, map[string]string{"a": "x"})
	newer := buildArchive(t, map[string]string{"a": "x", "b": "y"})

	var buf bytes.Buffer
	report, err := GenerateWithOptions(&buf, old, newer, engine.Defaults(), Options{Integrity: merkle.NewIntegrityManager()})
	if err != nil {
		t.Fatalf("GenerateWithOptions() error = %v", err)
	}
	if len(report.IntegrityRoot) == 0 {
		t.Error("IntegrityRoot is empty, want a computed root")
	}

	expected, err := merkle.NewIntegrityManager().BuildTree(merkle.DigestsFromCentralDirectory(newer.CentralDirectory()))
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	if !bytes.Equal(report.IntegrityRoot, merkle.GetRoot(expected)) {
		t.Error("IntegrityRoot does not match independently computed root")
	}
}

func TestGenerateWithoutOptionsLeavesAmbientFieldsZero(t *testing.T) {
	old := buildArchive(t, map[string]string{"a": "x"})
	newer := buildArchive(t, map[string]string{"a": "x"})

	var buf bytes.Buffer
	report, err := Generate(&buf, old, newer, engine.Defaults())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if report.CacheHits != 0 || report.CacheMisses != 0 || report.IntegrityRoot != nil {
		t.Errorf("report = %+v, want zero ambient fields", report)
	}
}
