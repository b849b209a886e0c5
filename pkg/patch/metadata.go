package patch

import (
	"fmt"
	"io"

	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/saworbit/zipatch/pkg/zipfmt"
)

// BeginMetadata carries the full central directory of the new archive, so
// the applier can install accurate catalog metadata even for entries
// whose bytes it never re-derives from scratch (REFRESH, PATCH).
type BeginMetadata struct {
	Central []*zipfmt.CentralDirectoryFile
	EOCD    zipfmt.EndOfCentralDirectory
}

func (m *BeginMetadata) Read(r io.Reader) error {
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	m.Central = make([]*zipfmt.CentralDirectoryFile, 0, count)
	for i := uint64(0); i < count; i++ {
		cd := &zipfmt.CentralDirectoryFile{}
		if err := cd.Read(r); err != nil {
			return err
		}
		m.Central = append(m.Central, cd)
	}
	return m.EOCD.Read(r)
}

func (m *BeginMetadata) Write(w io.Writer) error {
	if err := writeUint32(w, uint64(len(m.Central))); err != nil {
		return err
	}
	for _, cd := range m.Central {
		if err := cd.Write(w); err != nil {
			return err
		}
	}
	return m.EOCD.Write(w)
}

func (m *BeginMetadata) StructureLength() int64 {
	n := int64(4)
	for _, cd := range m.Central {
		n += cd.StructureLength()
	}
	return n + m.EOCD.StructureLength()
}

// RefreshMetadata carries a replacement local header and (when the
// descriptor flag is set) data descriptor for an entry whose payload
// bytes are not being retransmitted.
type RefreshMetadata struct {
	LocalFile      zipfmt.LocalFile
	DataDescriptor *zipfmt.DataDescriptor
}

func (m *RefreshMetadata) Read(r io.Reader) error {
	if err := m.LocalFile.Read(r); err != nil {
		return err
	}
	if m.LocalFile.HasDataDescriptor() {
		dd := &zipfmt.DataDescriptor{}
		if err := dd.Read(r); err != nil {
			return err
		}
		m.DataDescriptor = dd
	}
	return nil
}

func (m *RefreshMetadata) Write(w io.Writer) error {
	if err := m.LocalFile.Write(w); err != nil {
		return err
	}
	if m.DataDescriptor != nil {
		return m.DataDescriptor.Write(w)
	}
	return nil
}

func (m *RefreshMetadata) StructureLength() int64 {
	n := m.LocalFile.StructureLength()
	if m.DataDescriptor != nil {
		n += m.DataDescriptor.StructureLength()
	}
	return n
}

// PatchMetadata carries a RefreshMetadata payload plus the delta and
// compression engines used to produce Blob, and Blob itself.
//
// The engine ids are unexported and reached only through DeltaEngineID and
// CompressionEngineID: each returns its own field. This is a deliberate
// point of care, since the layout the two ids sit in (delta id
// immediately followed by compression id) invites transposing them by
// accident in an accessor.
type PatchMetadata struct {
	Refresh              RefreshMetadata
	deltaEngineID        uint32
	compressionEngineID  uint32
	Blob                 []byte
}

// NewPatchMetadata constructs a PatchMetadata with explicit engine ids.
func NewPatchMetadata(refresh RefreshMetadata, deltaEngineID, compressionEngineID uint32, blob []byte) PatchMetadata {
	return PatchMetadata{
		Refresh:             refresh,
		deltaEngineID:       deltaEngineID,
		compressionEngineID: compressionEngineID,
		Blob:                blob,
	}
}

// DeltaEngineID returns the id of the delta generator/applier used to
// produce and consume Blob's delta payload.
func (m *PatchMetadata) DeltaEngineID() uint32 { return m.deltaEngineID }

// CompressionEngineID returns the id of the compressor/uncompressor used
// on Blob, or engine.CompressionEngineNone if it was not further
// compressed.
func (m *PatchMetadata) CompressionEngineID() uint32 { return m.compressionEngineID }

func (m *PatchMetadata) Read(r io.Reader, version Version) error {
	if err := m.Refresh.Read(r); err != nil {
		return err
	}
	if version >= Version2 {
		deltaID, err := readUint32(r)
		if err != nil {
			return err
		}
		compressionID, err := readUint32(r)
		if err != nil {
			return err
		}
		m.deltaEngineID = uint32(deltaID)
		m.compressionEngineID = uint32(compressionID)
	} else {
		m.deltaEngineID = engine.DeltaJavaXDelta
		m.compressionEngineID = engine.CompressionEngineNone
	}

	length, err := readUint32(r)
	if err != nil {
		return err
	}
	blob := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, blob); err != nil {
			return wrapShortRead(err)
		}
	}
	m.Blob = blob
	return nil
}

func (m *PatchMetadata) Write(w io.Writer, version Version) error {
	if err := m.Refresh.Write(w); err != nil {
		return err
	}
	if version >= Version2 {
		if err := writeUint32(w, uint64(m.deltaEngineID)); err != nil {
			return err
		}
		if err := writeUint32(w, uint64(m.compressionEngineID)); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint64(len(m.Blob))); err != nil {
		return err
	}
	_, err := w.Write(m.Blob)
	return err
}

func (m *PatchMetadata) StructureLength(version Version) int64 {
	n := m.Refresh.StructureLength()
	if version >= Version2 {
		n += 4 + 4
	}
	return n + 4 + int64(len(m.Blob))
}

// NewMetadata carries a full replacement local header, optional data
// descriptor, and the entry's compressed payload verbatim.
type NewMetadata struct {
	Refresh RefreshMetadata
	Blob    []byte
}

func (m *NewMetadata) Read(r io.Reader) error {
	if err := m.Refresh.Read(r); err != nil {
		return err
	}
	length, err := readUint32(r)
	if err != nil {
		return err
	}
	blob := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, blob); err != nil {
			return wrapShortRead(err)
		}
	}
	m.Blob = blob
	return nil
}

func (m *NewMetadata) Write(w io.Writer) error {
	if err := m.Refresh.Write(w); err != nil {
		return err
	}
	if err := writeUint32(w, uint64(len(m.Blob))); err != nil {
		return err
	}
	_, err := w.Write(m.Blob)
	return err
}

func (m *NewMetadata) StructureLength() int64 {
	return m.Refresh.StructureLength() + 4 + int64(len(m.Blob))
}

func fmtUnsupportedVersion(v Version) error {
	return fmt.Errorf("%w: patch version %d", ErrUnsupportedVersion, v)
}
