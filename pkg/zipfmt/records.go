package zipfmt

import (
	"bytes"
	"io"
)

// Signature values for the four record types this package parses. A
// mismatch on read is a fatal format error.
const (
	SignatureLocalFile             uint64 = 0x04034b50
	SignatureDataDescriptor        uint64 = 0x08074b50
	SignatureCentralDirectoryFile  uint64 = 0x02014b50
	SignatureEndOfCentralDirectory uint64 = 0x06054b50
)

// LocalFile is the per-entry header that precedes an entry's compressed
// data in the local section of an archive.
type LocalFile struct {
	VersionNeededToExtract uint32
	GeneralPurposeBitFlag  uint32
	CompressionMethod      uint32
	LastModifiedFileTime   uint32
	LastModifiedFileDate   uint32
	CRC32                  uint64
	CompressedSize         uint64
	UncompressedSize       uint64
	FileName               string
	ExtraField             []byte
}

// HasDataDescriptor reports whether this header's general-purpose bit flag
// marks its CRC and sizes as carried in a trailing DataDescriptor.
func (l *LocalFile) HasDataDescriptor() bool {
	return HasDataDescriptor(l.GeneralPurposeBitFlag)
}

func (l *LocalFile) Read(r io.Reader) error {
	if err := checkSignature(r, SignatureLocalFile, "LocalFile"); err != nil {
		return err
	}
	var err error
	if l.VersionNeededToExtract, err = readUint16(r); err != nil {
		return err
	}
	if l.GeneralPurposeBitFlag, err = readUint16(r); err != nil {
		return err
	}
	if l.CompressionMethod, err = readUint16(r); err != nil {
		return err
	}
	if l.LastModifiedFileTime, err = readUint16(r); err != nil {
		return err
	}
	if l.LastModifiedFileDate, err = readUint16(r); err != nil {
		return err
	}
	if l.CRC32, err = readUint32(r); err != nil {
		return err
	}
	if l.CompressedSize, err = readUint32(r); err != nil {
		return err
	}
	if l.UncompressedSize, err = readUint32(r); err != nil {
		return err
	}
	fileNameLength, err := readUint16(r)
	if err != nil {
		return err
	}
	extraFieldLength, err := readUint16(r)
	if err != nil {
		return err
	}
	if l.FileName, err = readUTF8(r, fileNameLength); err != nil {
		return err
	}
	if l.ExtraField, err = readBytes(r, extraFieldLength); err != nil {
		return err
	}
	return nil
}

func (l *LocalFile) Write(w io.Writer) error {
	if err := writeUint32(w, SignatureLocalFile); err != nil {
		return err
	}
	if err := writeUint16(w, l.VersionNeededToExtract); err != nil {
		return err
	}
	if err := writeUint16(w, l.GeneralPurposeBitFlag); err != nil {
		return err
	}
	if err := writeUint16(w, l.CompressionMethod); err != nil {
		return err
	}
	if err := writeUint16(w, l.LastModifiedFileTime); err != nil {
		return err
	}
	if err := writeUint16(w, l.LastModifiedFileDate); err != nil {
		return err
	}
	if err := writeUint32(w, l.CRC32); err != nil {
		return err
	}
	if err := writeUint32(w, l.CompressedSize); err != nil {
		return err
	}
	if err := writeUint32(w, l.UncompressedSize); err != nil {
		return err
	}
	if err := writeUint16(w, uint32(len(l.FileName))); err != nil {
		return err
	}
	if err := writeUint16(w, uint32(len(l.ExtraField))); err != nil {
		return err
	}
	if err := writeUTF8(w, l.FileName); err != nil {
		return err
	}
	if _, err := w.Write(l.ExtraField); err != nil {
		return err
	}
	return nil
}

func (l *LocalFile) StructureLength() int64 {
	return 4 + 2 + 2 + 2 + 2 + 2 + 4 + 4 + 4 + 2 + 2 +
		int64(len(l.FileName)) + int64(len(l.ExtraField))
}

// DataDescriptor trails an entry's compressed data when the local header's
// general-purpose bit flag marks sizes as deferred. Readers accept the
// record with or without its leading signature; writers always emit it.
type DataDescriptor struct {
	CRC32            uint64
	CompressedSize   uint64
	UncompressedSize uint64
}

func (d *DataDescriptor) Read(r io.Reader) error {
	var first [4]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return wrapShortRead(err)
	}
	sig := uint64(first[3])<<24 | uint64(first[2])<<16 | uint64(first[1])<<8 | uint64(first[0])
	if sig == SignatureDataDescriptor {
		v, err := readUint32(r)
		if err != nil {
			return err
		}
		d.CRC32 = v
	} else {
		d.CRC32 = sig
	}
	var err error
	if d.CompressedSize, err = readUint32(r); err != nil {
		return err
	}
	if d.UncompressedSize, err = readUint32(r); err != nil {
		return err
	}
	return nil
}

func (d *DataDescriptor) Write(w io.Writer) error {
	if err := writeUint32(w, SignatureDataDescriptor); err != nil {
		return err
	}
	if err := writeUint32(w, d.CRC32); err != nil {
		return err
	}
	if err := writeUint32(w, d.CompressedSize); err != nil {
		return err
	}
	return writeUint32(w, d.UncompressedSize)
}

// StructureLength assumes the signature-present form, which is what Write
// always produces.
func (d *DataDescriptor) StructureLength() int64 {
	return 4 + 4 + 4 + 4
}

// CentralDirectoryFile catalogs one entry in the central directory; it
// mirrors the corresponding LocalFile's metadata plus catalog-only fields.
type CentralDirectoryFile struct {
	VersionMadeBy           uint32
	VersionNeededToExtract  uint32
	GeneralPurposeBitFlag   uint32
	CompressionMethod       uint32
	LastModifiedFileTime    uint32
	LastModifiedFileDate    uint32
	CRC32                   uint64
	CompressedSize          uint64
	UncompressedSize        uint64
	DiskNumberStart         uint32
	InternalFileAttributes  uint32
	ExternalFileAttributes  uint64
	RelativeOffsetOfHeader  uint64
	FileName                string
	ExtraField              []byte
	FileComment             string
}

func (c *CentralDirectoryFile) Read(r io.Reader) error {
	if err := checkSignature(r, SignatureCentralDirectoryFile, "CentralDirectoryFile"); err != nil {
		return err
	}
	var err error
	if c.VersionMadeBy, err = readUint16(r); err != nil {
		return err
	}
	if c.VersionNeededToExtract, err = readUint16(r); err != nil {
		return err
	}
	if c.GeneralPurposeBitFlag, err = readUint16(r); err != nil {
		return err
	}
	if c.CompressionMethod, err = readUint16(r); err != nil {
		return err
	}
	if c.LastModifiedFileTime, err = readUint16(r); err != nil {
		return err
	}
	if c.LastModifiedFileDate, err = readUint16(r); err != nil {
		return err
	}
	if c.CRC32, err = readUint32(r); err != nil {
		return err
	}
	if c.CompressedSize, err = readUint32(r); err != nil {
		return err
	}
	if c.UncompressedSize, err = readUint32(r); err != nil {
		return err
	}
	fileNameLength, err := readUint16(r)
	if err != nil {
		return err
	}
	extraFieldLength, err := readUint16(r)
	if err != nil {
		return err
	}
	fileCommentLength, err := readUint16(r)
	if err != nil {
		return err
	}
	if c.DiskNumberStart, err = readUint16(r); err != nil {
		return err
	}
	if c.InternalFileAttributes, err = readUint16(r); err != nil {
		return err
	}
	if c.ExternalFileAttributes, err = readUint32(r); err != nil {
		return err
	}
	if c.RelativeOffsetOfHeader, err = readUint32(r); err != nil {
		return err
	}
	if c.FileName, err = readUTF8(r, fileNameLength); err != nil {
		return err
	}
	if c.ExtraField, err = readBytes(r, extraFieldLength); err != nil {
		return err
	}
	if c.FileComment, err = readUTF8(r, fileCommentLength); err != nil {
		return err
	}
	return nil
}

func (c *CentralDirectoryFile) Write(w io.Writer) error {
	if err := writeUint32(w, SignatureCentralDirectoryFile); err != nil {
		return err
	}
	if err := writeUint16(w, c.VersionMadeBy); err != nil {
		return err
	}
	if err := writeUint16(w, c.VersionNeededToExtract); err != nil {
		return err
	}
	if err := writeUint16(w, c.GeneralPurposeBitFlag); err != nil {
		return err
	}
	if err := writeUint16(w, c.CompressionMethod); err != nil {
		return err
	}
	if err := writeUint16(w, c.LastModifiedFileTime); err != nil {
		return err
	}
	if err := writeUint16(w, c.LastModifiedFileDate); err != nil {
		return err
	}
	if err := writeUint32(w, c.CRC32); err != nil {
		return err
	}
	if err := writeUint32(w, c.CompressedSize); err != nil {
		return err
	}
	if err := writeUint32(w, c.UncompressedSize); err != nil {
		return err
	}
	if err := writeUint16(w, uint32(len(c.FileName))); err != nil {
		return err
	}
	if err := writeUint16(w, uint32(len(c.ExtraField))); err != nil {
		return err
	}
	if err := writeUint16(w, uint32(len(c.FileComment))); err != nil {
		return err
	}
	if err := writeUint16(w, c.DiskNumberStart); err != nil {
		return err
	}
	if err := writeUint16(w, c.InternalFileAttributes); err != nil {
		return err
	}
	if err := writeUint32(w, c.ExternalFileAttributes); err != nil {
		return err
	}
	if err := writeUint32(w, c.RelativeOffsetOfHeader); err != nil {
		return err
	}
	if err := writeUTF8(w, c.FileName); err != nil {
		return err
	}
	if _, err := w.Write(c.ExtraField); err != nil {
		return err
	}
	return writeUTF8(w, c.FileComment)
}

func (c *CentralDirectoryFile) StructureLength() int64 {
	return 4 + 2 + 2 + 2 + 2 + 2 + 2 + 4 + 4 + 4 + 2 + 2 + 2 + 2 + 2 + 4 + 4 +
		int64(len(c.FileName)) + int64(len(c.ExtraField)) + int64(len(c.FileComment))
}

// PositionIndependentEquals compares two central-directory entries ignoring
// RelativeOffsetOfHeader, the one field that changes when an entry moves
// within an archive without any other part of it changing.
func (c *CentralDirectoryFile) PositionIndependentEquals(other *CentralDirectoryFile) bool {
	return c.equals(other, true)
}

func (c *CentralDirectoryFile) Equals(other *CentralDirectoryFile) bool {
	return c.equals(other, false)
}

func (c *CentralDirectoryFile) equals(o *CentralDirectoryFile, positionIndependent bool) bool {
	if o == nil {
		return false
	}
	if c.CRC32 != o.CRC32 {
		return false
	}
	if !positionIndependent && c.RelativeOffsetOfHeader != o.RelativeOffsetOfHeader {
		return false
	}
	return c.CompressedSize == o.CompressedSize &&
		c.CompressionMethod == o.CompressionMethod &&
		c.DiskNumberStart == o.DiskNumberStart &&
		c.ExternalFileAttributes == o.ExternalFileAttributes &&
		bytes.Equal(c.ExtraField, o.ExtraField) &&
		c.FileComment == o.FileComment &&
		c.FileName == o.FileName &&
		c.GeneralPurposeBitFlag == o.GeneralPurposeBitFlag &&
		c.InternalFileAttributes == o.InternalFileAttributes &&
		c.LastModifiedFileDate == o.LastModifiedFileDate &&
		c.LastModifiedFileTime == o.LastModifiedFileTime &&
		c.UncompressedSize == o.UncompressedSize &&
		c.VersionMadeBy == o.VersionMadeBy &&
		c.VersionNeededToExtract == o.VersionNeededToExtract
}

// EndOfCentralDirectory is the trailer at the tail of an archive.
type EndOfCentralDirectory struct {
	DiskNumber                 uint32
	DiskNumberStartCentralDir  uint32
	NumEntriesThisDisk         uint32
	TotalEntries               uint32
	LengthOfCentralDirectory   uint64
	OffsetOfStartOfCentralDir  uint64
	Comment                    string
}

func (e *EndOfCentralDirectory) Read(r io.Reader) error {
	if err := checkSignature(r, SignatureEndOfCentralDirectory, "EndOfCentralDirectory"); err != nil {
		return err
	}
	var err error
	if e.DiskNumber, err = readUint16(r); err != nil {
		return err
	}
	if e.DiskNumberStartCentralDir, err = readUint16(r); err != nil {
		return err
	}
	if e.NumEntriesThisDisk, err = readUint16(r); err != nil {
		return err
	}
	if e.TotalEntries, err = readUint16(r); err != nil {
		return err
	}
	if e.LengthOfCentralDirectory, err = readUint32(r); err != nil {
		return err
	}
	if e.OffsetOfStartOfCentralDir, err = readUint32(r); err != nil {
		return err
	}
	commentLength, err := readUint16(r)
	if err != nil {
		return err
	}
	if e.Comment, err = readUTF8(r, commentLength); err != nil {
		return err
	}
	return nil
}

func (e *EndOfCentralDirectory) Write(w io.Writer) error {
	if err := writeUint32(w, SignatureEndOfCentralDirectory); err != nil {
		return err
	}
	if err := writeUint16(w, e.DiskNumber); err != nil {
		return err
	}
	if err := writeUint16(w, e.DiskNumberStartCentralDir); err != nil {
		return err
	}
	if err := writeUint16(w, e.NumEntriesThisDisk); err != nil {
		return err
	}
	if err := writeUint16(w, e.TotalEntries); err != nil {
		return err
	}
	if err := writeUint32(w, e.LengthOfCentralDirectory); err != nil {
		return err
	}
	if err := writeUint32(w, e.OffsetOfStartOfCentralDir); err != nil {
		return err
	}
	if err := writeUint16(w, uint32(len(e.Comment))); err != nil {
		return err
	}
	return writeUTF8(w, e.Comment)
}

func (e *EndOfCentralDirectory) StructureLength() int64 {
	return 4 + 2 + 2 + 2 + 2 + 4 + 4 + 2 + int64(len(e.Comment))
}
