// Package cas provides a content-addressed cache for delta blobs, so that
// generating a patch between the same old/new payload pair twice does not
// repeat the delta computation.
package cas

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/multiformats/go-multihash"
	"go.etcd.io/bbolt"
)

const bucketDeltas = "deltas"

const compressionMagic = "ZPC1"

// DeltaCache stores delta blobs keyed by the content hash of the old and new
// payload bytes and the delta engine that produced them, so a cache hit is
// only ever returned to the same engine that would recompute it.
type DeltaCache struct {
	db       *bbolt.DB
	hashAlgo uint64
}

// NewDeltaCache opens a DeltaCache backed by db, keying entries with the
// named multihash algorithm ("sha2-256" or "blake2b-256").
func NewDeltaCache(db *bbolt.DB, hashAlgo string) (*DeltaCache, error) {
	var mhType uint64
	switch hashAlgo {
	case "sha2-256":
		mhType = multihash.SHA2_256
	case "blake2b-256":
		mhType = multihash.BLAKE2B_MIN + 31
	default:
		return nil, fmt.Errorf("cas: unsupported hash algorithm: %s", hashAlgo)
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketDeltas))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cas: initialize delta bucket: %w", err)
	}

	return &DeltaCache{db: db, hashAlgo: mhType}, nil
}

// Key computes the cache key for a (oldBytes, newBytes, deltaEngineID)
// triple: the concatenation of their multihash digests and the engine id,
// hashed again so lookups are a single fixed-width key.
func (c *DeltaCache) Key(oldBytes, newBytes []byte, deltaEngineID uint32) (string, error) {
	oldMH, err := multihash.Sum(oldBytes, c.hashAlgo, -1)
	if err != nil {
		return "", fmt.Errorf("cas: hash old payload: %w", err)
	}
	newMH, err := multihash.Sum(newBytes, c.hashAlgo, -1)
	if err != nil {
		return "", fmt.Errorf("cas: hash new payload: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(oldMH)
	buf.Write(newMH)
	fmt.Fprintf(&buf, ":%d", deltaEngineID)

	keyMH, err := multihash.Sum(buf.Bytes(), c.hashAlgo, -1)
	if err != nil {
		return "", fmt.Errorf("cas: hash cache key: %w", err)
	}
	return keyMH.B58String(), nil
}

// Get returns the cached delta blob for key, or ok=false if absent. A blob
// stored above chunkThreshold is transparently reassembled from its chunk
// entries first.
func (c *DeltaCache) Get(key string) (blob []byte, ok bool, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketDeltas))
		value := bucket.Get([]byte(key))
		if value == nil {
			return nil
		}

		compressed := value
		if isChunkManifest(value) {
			reassembled, chunkErr := getChunked(bucket, key, value)
			if chunkErr != nil {
				return fmt.Errorf("reassemble chunked delta %s: %w", key, chunkErr)
			}
			compressed = reassembled
		}

		decompressed, decErr := decompressForCache(compressed)
		if decErr != nil {
			return fmt.Errorf("decompress cached delta %s: %w", key, decErr)
		}
		blob = decompressed
		ok = true
		return nil
	})
	return blob, ok, err
}

// Put stores blob under key, compressing it for storage. It overwrites any
// existing entry for the same key. Compressed blobs above chunkThreshold
// are split across multiple bucket entries instead of one, keeping bbolt's
// mmap growth incremental.
func (c *DeltaCache) Put(key string, blob []byte) error {
	compressed, err := compressForCache(blob)
	if err != nil {
		return fmt.Errorf("cas: compress delta for storage: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketDeltas))
		if len(compressed) > chunkThreshold {
			return putChunked(bucket, key, compressed)
		}
		if err := deleteChunks(bucket, key); err != nil {
			return err
		}
		return bucket.Put([]byte(key), compressed)
	})
}

// Stats reports simple counters about the cache contents.
type Stats struct {
	TotalEntries int
	TotalBytes   int64
}

// GetStats returns aggregate statistics about the cache. Chunk entries
// belonging to an oversized delta are counted toward TotalBytes but not as
// separate TotalEntries, since they are not independently addressable
// cache entries.
func (c *DeltaCache) GetStats() (Stats, error) {
	var stats Stats
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketDeltas))
		return bucket.ForEach(func(k, v []byte) error {
			if !isChunkEntryKey(k) {
				stats.TotalEntries++
			}
			stats.TotalBytes += int64(len(v))
			return nil
		})
	})
	return stats, err
}

var (
	zstdEncoderOnce sync.Once
	zstdDecoderOnce sync.Once
	zstdEncoder     *zstd.Encoder
	zstdDecoder     *zstd.Decoder
	zstdInitErr     error
)

func getZstdEncoder() (*zstd.Encoder, error) {
	zstdEncoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			zstdInitErr = err
			return
		}
		zstdEncoder = enc
	})
	return zstdEncoder, zstdInitErr
}

func getZstdDecoder() (*zstd.Decoder, error) {
	zstdDecoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			zstdInitErr = err
			return
		}
		zstdDecoder = dec
	})
	return zstdDecoder, zstdInitErr
}

func compressForCache(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	dst := enc.EncodeAll(data, nil)
	return append([]byte(compressionMagic), dst...), nil
}

func decompressForCache(data []byte) ([]byte, error) {
	if len(data) < len(compressionMagic) || !bytes.Equal(data[:len(compressionMagic)], []byte(compressionMagic)) {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	dec, err := getZstdDecoder()
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(data[len(compressionMagic):], nil)
}
