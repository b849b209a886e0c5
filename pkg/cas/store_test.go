package cas

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"
)

func setupTestDB(t *testing.T) (*bbolt.DB, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func TestNewDeltaCache(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cache, err := NewDeltaCache(db, "sha2-256")
	if err != nil {
		t.Fatalf("NewDeltaCache() error = %v", err)
	}
	if cache == nil {
		t.Fatal("NewDeltaCache() returned nil cache")
	}
}

func TestNewDeltaCacheRejectsUnknownAlgo(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if _, err := NewDeltaCache(db, "md5"); err == nil {
		t.Fatal("NewDeltaCache(md5) error = nil, want error")
	}
}

func TestDeltaCachePutAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cache, err := NewDeltaCache(db, "sha2-256")
	if err != nil {
		t.Fatalf("NewDeltaCache() error = %v", err)
	}

	oldBytes := []byte("payload one, quite similar to the next")
	newBytes := []byte("payload two, quite similar to the last")
	key, err := cache.Key(oldBytes, newBytes, 2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	if _, ok, err := cache.Get(key); err != nil || ok {
		t.Fatalf("Get() before Put = (%v, %v), want (nil, false)", ok, err)
	}

	delta := []byte("some delta bytes")
	if err := cache.Put(key, delta); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := cache.Get(key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false after Put")
	}
	if !bytes.Equal(got, delta) {
		t.Errorf("Get() = %q, want %q", got, delta)
	}
}

func TestDeltaCacheKeyIsStableAndDistinguishesEngine(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cache, err := NewDeltaCache(db, "sha2-256")
	if err != nil {
		t.Fatalf("NewDeltaCache() error = %v", err)
	}

	oldBytes := []byte("old")
	newBytes := []byte("new")

	k1, err := cache.Key(oldBytes, newBytes, 2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	k2, err := cache.Key(oldBytes, newBytes, 2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if k1 != k2 {
		t.Errorf("Key() not stable: %q != %q", k1, k2)
	}

	k3, err := cache.Key(oldBytes, newBytes, 3)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if k1 == k3 {
		t.Error("Key() did not distinguish delta engine id")
	}
}

func TestDeltaCachePutAndGetChunked(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cache, err := NewDeltaCache(db, "sha2-256")
	if err != nil {
		t.Fatalf("NewDeltaCache() error = %v", err)
	}

	key, err := cache.Key([]byte("old"), []byte("new"), 2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	// zstd compresses random bytes down to roughly their own size, so an
	// incompressible payload well above chunkThreshold still produces a
	// compressed blob large enough to force the chunked storage path.
	big := make([]byte, chunkThreshold+chunkSizeBytes/2)
	r := rand.New(rand.NewSource(7))
	r.Read(big)

	if err := cache.Put(key, big); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketDeltas))
		value := bucket.Get([]byte(key))
		if !isChunkManifest(value) {
			t.Fatal("expected key to hold a chunk manifest after a large Put")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	got, ok, err := cache.Get(key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false after chunked Put")
	}
	if !bytes.Equal(got, big) {
		t.Error("Get() did not reassemble the original blob byte-for-byte")
	}

	stats, err := cache.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want 1 (chunks aren't separate entries)", stats.TotalEntries)
	}
}

func TestDeltaCacheOverwriteShrinksAwayFromChunked(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cache, err := NewDeltaCache(db, "sha2-256")
	if err != nil {
		t.Fatalf("NewDeltaCache() error = %v", err)
	}

	key, err := cache.Key([]byte("old"), []byte("new"), 2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	big := make([]byte, chunkThreshold+1024)
	r := rand.New(rand.NewSource(9))
	r.Read(big)
	if err := cache.Put(key, big); err != nil {
		t.Fatalf("Put(big) error = %v", err)
	}

	small := []byte("small replacement delta")
	if err := cache.Put(key, small); err != nil {
		t.Fatalf("Put(small) error = %v", err)
	}

	got, ok, err := cache.Get(key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || !bytes.Equal(got, small) {
		t.Fatalf("Get() = (%q, %v), want (%q, true)", got, ok, small)
	}

	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketDeltas))
		return bucket.ForEach(func(k, v []byte) error {
			if isChunkEntryKey(k) {
				t.Errorf("stale chunk entry %q survived overwrite by a small value", k)
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestDeltaCacheGetStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cache, err := NewDeltaCache(db, "sha2-256")
	if err != nil {
		t.Fatalf("NewDeltaCache() error = %v", err)
	}

	key, err := cache.Key([]byte("a"), []byte("b"), 2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if err := cache.Put(key, []byte("delta bytes")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	stats, err := cache.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want 1", stats.TotalEntries)
	}
	if stats.TotalBytes == 0 {
		t.Error("TotalBytes = 0, want > 0")
	}
}
