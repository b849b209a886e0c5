// Package merkle builds an out-of-band integrity root over an archive's
// central directory entries. It is never part of the patch wire format: a
// generator can attach a root to its Report, and a caller can independently
// recompute one over an applied archive to catch reconstruction bugs that
// slip past the format-level checks.
package merkle

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/cbergoon/merkletree"
	"github.com/saworbit/zipatch/pkg/zipfmt"
)

// EntryDigest is the leaf material hashed into the tree: enough of a
// central directory entry's identity to notice a substituted or corrupted
// entry, without hashing the (potentially large) payload bytes themselves.
type EntryDigest struct {
	Name           string
	CRC32          uint64
	CompressedSize uint64
}

// DigestsFromCentralDirectory builds the leaf set for an archive's central
// directory, in its existing order.
func DigestsFromCentralDirectory(entries []*zipfmt.CentralDirectoryFile) []EntryDigest {
	digests := make([]EntryDigest, len(entries))
	for i, cd := range entries {
		digests[i] = EntryDigest{Name: cd.FileName, CRC32: cd.CRC32, CompressedSize: cd.CompressedSize}
	}
	return digests
}

type entryContent struct {
	digest EntryDigest
}

// CalculateHash implements merkletree.Content.
func (c entryContent) CalculateHash() ([]byte, error) {
	h := sha256.New()
	h.Write([]byte(c.digest.Name))
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.digest.CRC32))
	binary.LittleEndian.PutUint64(buf[4:12], c.digest.CompressedSize)
	h.Write(buf[:])
	return h.Sum(nil), nil
}

// Equals implements merkletree.Content.
func (c entryContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(entryContent)
	if !ok {
		return false, fmt.Errorf("merkle: type mismatch comparing entry content")
	}
	return c.digest == o.digest, nil
}

// IntegrityManager builds and verifies Merkle trees over archive entry
// digests.
type IntegrityManager struct{}

// NewIntegrityManager returns a ready-to-use IntegrityManager.
func NewIntegrityManager() *IntegrityManager {
	return &IntegrityManager{}
}

// BuildTree builds a Merkle tree over digests, in the given order.
func (m *IntegrityManager) BuildTree(digests []EntryDigest) (*merkletree.MerkleTree, error) {
	if len(digests) == 0 {
		return nil, fmt.Errorf("merkle: cannot build tree from empty entry list")
	}

	contents := make([]merkletree.Content, len(digests))
	for i, d := range digests {
		contents[i] = entryContent{digest: d}
	}

	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return nil, fmt.Errorf("merkle: build tree: %w", err)
	}
	return tree, nil
}

// GetRoot returns the Merkle root hash for a tree, or nil for a nil tree.
func GetRoot(tree *merkletree.MerkleTree) []byte {
	if tree == nil {
		return nil
	}
	return tree.MerkleRoot()
}

// VerifyIntegrity rebuilds a tree from digests and confirms both its
// internal structure and its root match expectedRoot.
func (m *IntegrityManager) VerifyIntegrity(digests []EntryDigest, expectedRoot []byte) error {
	tree, err := m.BuildTree(digests)
	if err != nil {
		return fmt.Errorf("merkle: verify integrity: %w", err)
	}

	valid, err := tree.VerifyTree()
	if err != nil {
		return fmt.Errorf("merkle: tree verification failed: %w", err)
	}
	if !valid {
		return fmt.Errorf("merkle: tree structure is invalid")
	}

	actualRoot := GetRoot(tree)
	if !bytesEqual(actualRoot, expectedRoot) {
		return fmt.Errorf("merkle: root mismatch: expected %x, got %x", expectedRoot, actualRoot)
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
