package zipfmt

import (
	"bytes"
	"hash/crc32"
	"time"

	"github.com/klauspost/compress/flate"
)

// CompressionMethod values recognized by this package's builder and by
// GeneralPurposeBitFlag's deflate-option bits.
const (
	CompressionStored  uint32 = 0
	CompressionDeflate uint32 = 8
)

// Deflate option sub-values packed into general-purpose bit flag bits 1-2
// when CompressionMethod is CompressionDeflate.
const (
	DeflateOptionNormal uint32 = iota
	DeflateOptionMax
	DeflateOptionFast
	DeflateOptionSuperFast
)

const versionNeededToExtract = 20

// Builder assembles an Archive one entry at a time from raw uncompressed
// content, producing bit-exact LocalFile/DataDescriptor/CentralDirectoryFile
// triples. It is the reference producer for archives this package writes.
type Builder struct {
	archive *Archive

	// UseDataDescriptor controls whether appended entries carry their CRC
	// and sizes in a trailing DataDescriptor (true, the default) or
	// directly in the local header (false).
	UseDataDescriptor bool
}

// NewBuilder returns a Builder with an empty backing Archive and the
// data-descriptor flag enabled by default.
func NewBuilder() *Builder {
	return &Builder{
		archive:           NewArchive(),
		UseDataDescriptor: true,
	}
}

// Add compresses content with raw deflate and appends the resulting entry
// to the archive under path, stamped with lastModified. It fails if the
// archive has already been finished.
func (b *Builder) Add(path string, lastModified time.Time, content []byte) error {
	if b.archive.Finalized() {
		return ErrIllegalState
	}

	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := fw.Write(content); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}

	crc := crc32.ChecksumIEEE(content)
	date, timeOfDay := PackTime(lastModified)

	flags := SetDeflateOption(0, DeflateOptionNormal)
	flags = SetDataDescriptor(flags, b.UseDataDescriptor)

	lf := LocalFile{
		VersionNeededToExtract: versionNeededToExtract,
		GeneralPurposeBitFlag:  flags,
		CompressionMethod:      CompressionDeflate,
		LastModifiedFileTime:   timeOfDay,
		LastModifiedFileDate:   date,
		FileName:               path,
		ExtraField:             []byte{},
	}

	parts := &LocalSectionParts{LocalFile: lf, FileData: compressed.Bytes()}

	if b.UseDataDescriptor {
		parts.DataDescriptor = &DataDescriptor{
			CRC32:            uint64(crc),
			CompressedSize:   uint64(compressed.Len()),
			UncompressedSize: uint64(len(content)),
		}
	} else {
		parts.LocalFile.CRC32 = uint64(crc)
		parts.LocalFile.CompressedSize = uint64(compressed.Len())
		parts.LocalFile.UncompressedSize = uint64(len(content))
	}

	cd := &CentralDirectoryFile{
		VersionMadeBy:          versionNeededToExtract,
		VersionNeededToExtract: versionNeededToExtract,
		GeneralPurposeBitFlag:  flags,
		CompressionMethod:      CompressionDeflate,
		LastModifiedFileTime:   timeOfDay,
		LastModifiedFileDate:   date,
		CRC32:                  crc32ForCD(parts),
		CompressedSize:         uint64(compressed.Len()),
		UncompressedSize:       uint64(len(content)),
		FileName:               path,
		ExtraField:             []byte{},
	}

	return b.archive.Append(parts, cd)
}

func crc32ForCD(p *LocalSectionParts) uint64 {
	crc, _, _ := p.AuthoritativeSizes()
	return crc
}

// Finish finalizes and returns the built Archive. No further entries may
// be added afterward.
func (b *Builder) Finish() *Archive {
	b.archive.Finalize()
	return b.archive
}
