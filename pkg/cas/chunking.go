package cas

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// chunkKeySeparator marks the boundary between a delta cache key and its
// chunk suffix, so GetStats can tell a top-level manifest entry apart from
// the chunk entries it owns.
var chunkKeySeparator = []byte("\x00chunk\x00")

// isChunkEntryKey reports whether k addresses a chunk rather than a
// top-level cache entry.
func isChunkEntryKey(k []byte) bool {
	return bytes.Contains(k, chunkKeySeparator)
}

// chunkSizeBytes bounds how much of a delta blob lives in a single bbolt
// value. bbolt grows its mmap by doubling, so one enormous value forces a
// correspondingly enormous jump; spreading a large delta across many
// bounded chunks keeps growth incremental instead.
const chunkSizeBytes = 1 << 20 // 1 MiB

// chunkThreshold is the compressed-blob size above which Put splits the
// payload across chunk keys instead of storing it under key directly.
const chunkThreshold = 4 * chunkSizeBytes

// manifestMagic marks a bucket value as a chunk manifest rather than an
// inline blob, so Get can tell the two apart without a schema version.
const manifestMagic = "ZPCK"

const chunkHashSize = sha256.Size

// splitIntoChunks partitions data into consecutive pieces of at most size
// bytes each. The final piece may be shorter.
func splitIntoChunks(data []byte, size int) [][]byte {
	if size <= 0 || len(data) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for offset := 0; offset < len(data); offset += size {
		end := offset + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[offset:end])
	}
	return chunks
}

func chunkHash(data []byte) [chunkHashSize]byte {
	return sha256.Sum256(data)
}

// chunkKey derives the bucket key for chunk index of key. Keys are ordered
// by index so a ForEach range over the prefix would visit them in order,
// though Get addresses them directly instead.
func chunkKey(key string, index int) []byte {
	suffix := make([]byte, 4)
	binary.BigEndian.PutUint32(suffix, uint32(index))
	out := append([]byte(key), chunkKeySeparator...)
	return append(out, suffix...)
}

// putChunked writes blob as a chunk manifest plus one bucket entry per
// chunk, replacing whatever was previously stored under key.
func putChunked(bucket *bbolt.Bucket, key string, blob []byte) error {
	if err := deleteChunks(bucket, key); err != nil {
		return err
	}

	chunks := splitIntoChunks(blob, chunkSizeBytes)
	manifest := make([]byte, 0, len(manifestMagic)+4+len(chunks)*(4+chunkHashSize))
	manifest = append(manifest, manifestMagic...)
	countBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(countBuf, uint32(len(chunks)))
	manifest = append(manifest, countBuf...)

	for i, chunk := range chunks {
		if err := bucket.Put(chunkKey(key, i), chunk); err != nil {
			return fmt.Errorf("cas: store chunk %d of %s: %w", i, key, err)
		}
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(chunk)))
		manifest = append(manifest, lenBuf...)
		sum := chunkHash(chunk)
		manifest = append(manifest, sum[:]...)
	}

	return bucket.Put([]byte(key), manifest)
}

// isChunkManifest reports whether value is a chunk manifest rather than an
// inline compressed blob.
func isChunkManifest(value []byte) bool {
	return len(value) >= len(manifestMagic) && string(value[:len(manifestMagic)]) == manifestMagic
}

// getChunked reassembles the blob described by manifest, verifying each
// chunk's stored hash before appending it.
func getChunked(bucket *bbolt.Bucket, key string, manifest []byte) ([]byte, error) {
	offset := len(manifestMagic)
	if offset+4 > len(manifest) {
		return nil, fmt.Errorf("cas: truncated chunk manifest for %s", key)
	}
	count := int(binary.BigEndian.Uint32(manifest[offset : offset+4]))
	offset += 4

	var out []byte
	for i := 0; i < count; i++ {
		if offset+4+chunkHashSize > len(manifest) {
			return nil, fmt.Errorf("cas: truncated chunk manifest entry %d for %s", i, key)
		}
		wantLen := int(binary.BigEndian.Uint32(manifest[offset : offset+4]))
		offset += 4
		var wantHash [chunkHashSize]byte
		copy(wantHash[:], manifest[offset:offset+chunkHashSize])
		offset += chunkHashSize

		chunk := bucket.Get(chunkKey(key, i))
		if chunk == nil {
			return nil, fmt.Errorf("cas: missing chunk %d for %s", i, key)
		}
		if len(chunk) != wantLen {
			return nil, fmt.Errorf("cas: chunk %d for %s has length %d, manifest says %d", i, key, len(chunk), wantLen)
		}
		if got := chunkHash(chunk); got != wantHash {
			return nil, fmt.Errorf("cas: chunk %d for %s failed integrity check", i, key)
		}
		if out == nil {
			out = make([]byte, 0, wantLen*count)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// deleteChunks removes any chunk entries left over from a previous, larger
// value stored under key. It is a no-op if key was never chunked.
func deleteChunks(bucket *bbolt.Bucket, key string) error {
	existing := bucket.Get([]byte(key))
	if !isChunkManifest(existing) {
		return nil
	}
	offset := len(manifestMagic)
	if offset+4 > len(existing) {
		return nil
	}
	count := int(binary.BigEndian.Uint32(existing[offset : offset+4]))
	for i := 0; i < count; i++ {
		if err := bucket.Delete(chunkKey(key, i)); err != nil {
			return fmt.Errorf("cas: delete stale chunk %d for %s: %w", i, key, err)
		}
	}
	return nil
}
