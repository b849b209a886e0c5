package zipfmt

import "io"

// LocalSectionParts is the per-entry triple stored in an archive's local
// section: the local file header, the entry's compressed payload, and an
// optional trailing data descriptor.
type LocalSectionParts struct {
	LocalFile      LocalFile
	FileData       []byte
	DataDescriptor *DataDescriptor
}

// Read parses one LocalSectionParts starting at the current position of r.
//
// When the local header's general-purpose bit flag marks sizes as
// deferred to a trailing DataDescriptor, the header's own CompressedSize
// field is zero and cannot be used to bound the payload read. compressedSizeHint
// supplies the true value in that case; callers that already know an
// entry's compressed size (LoadArchive, seeded from the central
// directory) pass it, and callers reading a self-contained LocalFile with
// sizes already in the header pass 0, which is ignored.
func (p *LocalSectionParts) Read(r io.Reader, compressedSizeHint uint64) error {
	if err := p.LocalFile.Read(r); err != nil {
		return err
	}

	dataLen := p.LocalFile.CompressedSize
	if p.LocalFile.HasDataDescriptor() {
		dataLen = compressedSizeHint
	}

	buf := make([]byte, dataLen)
	if dataLen > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return wrapShortRead(err)
		}
	}
	p.FileData = buf

	if p.LocalFile.HasDataDescriptor() {
		dd := &DataDescriptor{}
		if err := dd.Read(r); err != nil {
			return err
		}
		p.DataDescriptor = dd
	}
	return nil
}

func (p *LocalSectionParts) Write(w io.Writer) error {
	if err := p.LocalFile.Write(w); err != nil {
		return err
	}
	if _, err := w.Write(p.FileData); err != nil {
		return err
	}
	if p.DataDescriptor != nil {
		if err := p.DataDescriptor.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (p *LocalSectionParts) StructureLength() int64 {
	n := p.LocalFile.StructureLength() + int64(len(p.FileData))
	if p.DataDescriptor != nil {
		n += p.DataDescriptor.StructureLength()
	}
	return n
}

// AuthoritativeSizes returns the CRC32, compressed size, and uncompressed
// size for this entry: from the data descriptor when present, otherwise
// from the local file header.
func (p *LocalSectionParts) AuthoritativeSizes() (crc32, compressedSize, uncompressedSize uint64) {
	if p.DataDescriptor != nil {
		return p.DataDescriptor.CRC32, p.DataDescriptor.CompressedSize, p.DataDescriptor.UncompressedSize
	}
	return p.LocalFile.CRC32, p.LocalFile.CompressedSize, p.LocalFile.UncompressedSize
}
